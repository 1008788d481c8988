package tls

import (
	"fmt"
	"sort"

	"git.fiblab.net/general/common/v2/parallel"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/tlscontrol-oss/entity"
)

// TLS管理器
type TLSManager struct {
	strategy *Strategy

	data map[string]*TLS
	tlss []*TLS
}

// NewManager 创建TLS管理器实例
// 功能：初始化TLS管理器与决策策略，创建内部数据结构
// 参数：params-策略参数
// 返回：新创建的TLS管理器实例
func NewManager(params Params) *TLSManager {
	return &TLSManager{
		strategy: NewStrategy(params),
		data:     make(map[string]*TLS),
		tlss:     make([]*TLS, 0),
	}
}

// Init 根据静态信号程序目录初始化所有路口
// 功能：为目录中的每个路口构建TLS实体并提取绿灯相位
// 参数：programs-tls id->静态相位目录
// 返回：任一路口没有绿灯相位时返回错误（配置错误，调用方fail fast，不进入tick处理）
// 说明：按tls id排序后初始化，保证日志与诊断输出顺序稳定
func (m *TLSManager) Init(programs map[string][]Phase) error {
	ids := lo.Keys(programs)
	sort.Strings(ids)
	for _, id := range ids {
		t, err := NewTLS(id, programs[id])
		if err != nil {
			return err
		}
		m.tlss = append(m.tlss, t)
	}
	m.data = lo.SliceToMap(m.tlss, func(t *TLS) (string, *TLS) {
		return t.id, t
	})
	log.Infof("TLS: %v", len(m.tlss))
	return nil
}

// Get 根据ID获取TLS实例
// 功能：通过tls id查找对应的TLS对象，如果不存在则panic
func (m *TLSManager) Get(id string) *TLS {
	if t, ok := m.data[id]; !ok {
		log.Panicf("no id %s in tls data", id)
		return nil
	} else {
		return t
	}
}

// GetOrError 根据ID获取TLS实例（带错误处理）
func (m *TLSManager) GetOrError(id string) (*TLS, error) {
	if t, ok := m.data[id]; !ok {
		return nil, fmt.Errorf("no id %s in tls data", id)
	} else {
		return t, nil
	}
}

// DecideNextPhase 对所有路口执行一次决策
// 功能：并行求值每个路口的策略，汇总为本tick的决策
// 参数：obs-本tick观测
// 返回：tls id->动作的映射；没有任何路口需要动作时返回nil而不是空map
// 说明：各路口之间没有共享可变状态，可并行求值；
// 诊断计数器在汇总阶段串行递增，归属各自路口
func (m *TLSManager) DecideNextPhase(obs *entity.Observation) entity.Decision {
	actions := parallel.GoMap(m.tlss, func(t *TLS) *entity.TLSAction {
		return m.strategy.Decide(t, obs)
	})
	decision := make(entity.Decision)
	for i, action := range actions {
		if action == nil {
			// 无信号灯信息或尚未到切相窗口，本tick跳过
			continue
		}
		t := m.tlss[i]
		t.recordAction(action.PhaseID)
		decision[t.id] = *action
	}
	if len(decision) == 0 {
		return nil
	}
	return decision
}

// ActionCounts 获取所有路口相位选中次数的快照
// 返回：tls id->相位编号->选中次数的拷贝，供诊断输出使用
func (m *TLSManager) ActionCounts() map[string]map[int]int64 {
	counts := make(map[string]map[int]int64, len(m.tlss))
	for _, t := range m.tlss {
		counts[t.id] = t.ActionCounts()
	}
	return counts
}

// Len 受控路口数量
func (m *TLSManager) Len() int {
	return len(m.tlss)
}
