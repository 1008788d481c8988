package tls

import (
	"fmt"

	"github.com/samber/lo"
)

// TLS 单个受控路口（traffic light system）
// 功能：持有初始化后只读的绿灯相位目录与本路口的局部状态
// 说明：actionCounts只增不减，仅供诊断输出，决策逻辑从不读取它
type TLS struct {
	id          string
	greenPhases []int // 升序排列的绿灯相位编号，初始化后只读，非空

	cursor       int           // 相位游标，保留的本地状态，当前决策逻辑不使用
	actionCounts map[int]int64 // 相位编号->被选中次数（append only，诊断用）
}

// NewTLS 创建单个受控路口
// 功能：从静态相位目录提取绿灯相位并初始化本地状态
// 参数：id-路口ID，phases-静态相位目录
// 返回：初始化完成的TLS实例；目录中没有绿灯相位时返回错误（配置错误，不可恢复）
func NewTLS(id string, phases []Phase) (*TLS, error) {
	greens, err := extractGreenPhases(phases)
	if err != nil {
		return nil, fmt.Errorf("tls %s: %w", id, err)
	}
	return &TLS{
		id:           id,
		greenPhases:  greens,
		actionCounts: make(map[int]int64),
	}, nil
}

// ID 获取路口ID
func (t *TLS) ID() string {
	return t.id
}

// GreenPhases 获取绿灯相位编号列表（升序，只读）
func (t *TLS) GreenPhases() []int {
	return t.greenPhases
}

// isGreenPhase 判断相位编号是否属于本路口的绿灯相位
func (t *TLS) isGreenPhase(phaseID int) bool {
	return lo.Contains(t.greenPhases, phaseID)
}

// recordAction 相位被选中一次，递增诊断计数器
func (t *TLS) recordAction(phaseID int) {
	t.actionCounts[phaseID]++
}

// ActionCounts 获取相位选中次数的快照
// 返回：相位编号->选中次数的拷贝，供诊断输出使用
func (t *TLS) ActionCounts() map[int]int64 {
	counts := make(map[int]int64, len(t.actionCounts))
	for phaseID, n := range t.actionCounts {
		counts[phaseID] = n
	}
	return counts
}
