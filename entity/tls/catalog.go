package tls

import (
	"errors"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// SUMO风格信号状态字符串中的关键字符
const (
	yellowChar = 'y'  // 过渡（黄灯）状态
	greenChars = "Gg" // 允许通行状态（含需让行的绿灯g）
)

var (
	// ErrNoGreenPhase 静态相位目录中没有任何可通行的绿灯相位（配置错误，初始化时立即失败）
	ErrNoGreenPhase = errors.New("signal program has no green phase")
)

// Phase 静态相位定义，来自外部信号程序目录，初始化后只读
type Phase struct {
	Index int    `yaml:"index" bson:"index" json:"index"` // 相位编号，路口内唯一
	State string `yaml:"state" bson:"state" json:"state"` // 信号状态字符串
}

// IsGreen 判断相位是否为可通行的绿灯相位
// 状态串中不含任何过渡字符，且至少包含一个通行字符
func (p Phase) IsGreen() bool {
	return !strings.ContainsRune(p.State, yellowChar) && strings.ContainsAny(p.State, greenChars)
}

// extractGreenPhases 从静态相位目录中提取绿灯相位编号并按编号升序排列
// 功能：初始化时对每个路口执行一次，结果在进程生命周期内只读
// 返回：升序排列的绿灯相位编号，目录中没有绿灯相位时返回ErrNoGreenPhase
func extractGreenPhases(phases []Phase) ([]int, error) {
	greens := lo.FilterMap(phases, func(p Phase, _ int) (int, bool) {
		return p.Index, p.IsGreen()
	})
	if len(greens) == 0 {
		return nil, ErrNoGreenPhase
	}
	sort.Ints(greens)
	return greens, nil
}
