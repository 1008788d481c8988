package entity

import "errors"

var (
	// ErrSourceDrained 观测来源的数据已全部消费完毕（正常结束，不是故障）
	ErrSourceDrained = errors.New("observation source drained")
)

// LightInfo 单个路口信号灯的瞬时状态，由外部运行时每tick上报
type LightInfo struct {
	CurrentPhase     *int    // 当前相位编号（nil表示未知）
	TimeToNextSwitch float64 // 距离信号机按自身程序切相的剩余秒数（非负）
	TimeInPhase      float64 // 当前相位已持续的秒数（非负）
}

// Observation 外部运行时在一个tick内提供的全部观测，决策核心只读不改
type Observation struct {
	Lights          map[string]*LightInfo      // tls id->信号灯状态（缺失表示该路口本tick不参与决策）
	WaitingVehicles map[string]map[int]float64 // tls id->相位编号->等待车辆数（缺失按0处理）
}

// Waiting 查询指定路口指定相位的等待车辆数
// 功能：从观测中读取(tls, phase)的等待车辆数，任一层缺失返回0，无副作用
func (o *Observation) Waiting(tlsID string, phaseID int) float64 {
	return o.WaitingVehicles[tlsID][phaseID]
}

// TLSAction 对单个路口的决策结果
type TLSAction struct {
	PhaseID  int     `json:"phase_id"` // 下一个绿灯相位编号
	Duration float64 `json:"duration"` // 绿灯持续时长（秒，保留一位小数）
}

// Decision tls id->动作的映射
// nil表示本tick没有任何路口需要动作，与空map含义不同，调用方按no-op处理
type Decision map[string]TLSAction

// 依赖倒置，表达决策核心对外部运行时的接口需求

// 观测来源接口（仿真器bridge、场景回放、合成流量等）
type IObservationSource interface {
	Next() (*Observation, error) // 获取下一tick的观测，数据耗尽返回ErrSourceDrained
	Close() error
}

// 决策去向接口（仿真器bridge、离线收集器等）
type IDecisionSink interface {
	Apply(step int32, decision Decision) error // 应用一次决策（decision可能为nil）
	Close() error
}

// 信号灯决策管理器接口
type ITLSManager interface {
	DecideNextPhase(obs *Observation) Decision // 对所有路口执行一次决策
	ActionCounts() map[string]map[int]int64    // 诊断用相位选中次数快照
}
