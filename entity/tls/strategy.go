// 提供demand based自适应信号灯决策算法
// 不按原相位顺序轮转，而是在信号机临近切相时按各相位的需求效率重新选择下一个绿灯相位
package tls

import (
	"math"
	"sort"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/tlscontrol-oss/entity"
)

// Params demand based策略的启发式参数
// 数值为固定启发式常数而非模型推导结果，集中命名便于在性质测试中调参与模糊测试
type Params struct {
	MinGreen           float64 // 最短绿灯时长（秒）
	MaxGreen           float64 // 最长绿灯时长（秒）
	EligibilityWindow  float64 // 距信号机自行切相小于等于该值时才介入（秒）
	SwitchPenalty      float64 // 切相惩罚分子，惩罚=SwitchPenalty/(相位已持续秒数+1)
	StayThreshold      float64 // 当前相位原始效率达到最优原始效率的该比例时保持不切
	CapacityBase       float64 // 放行能力基数
	CapacityPerVehicle float64 // 每辆等待车辆带来的放行能力增量
	CapacityFloor      float64 // 放行能力下限
	Alpha              float64 // 绿灯时长中等待车辆数的系数
	Beta               float64 // 绿灯时长中放行能力平方根的系数
	LongPhaseDecay     float64 // 超长相位的时长衰减系数
	LongPhaseThreshold float64 // 触发时长衰减的相位持续秒数
}

// DefaultParams 默认参数集
func DefaultParams() Params {
	return Params{
		MinGreen:           7.0,
		MaxGreen:           70.0,
		EligibilityWindow:  0.5,
		SwitchPenalty:      120.0,
		StayThreshold:      0.85,
		CapacityBase:       100.0,
		CapacityPerVehicle: 1.5,
		CapacityFloor:      10.0,
		Alpha:              0.27,
		Beta:               0.17,
		LongPhaseDecay:     0.9,
		LongPhaseThreshold: 60.0,
	}
}

// Strategy demand based相位选择策略
// 功能：每tick对每个路口独立决策，自身无可变状态，相同观测输入产生相同输出
type Strategy struct {
	params Params
}

// NewStrategy 创建demand based策略实例
func NewStrategy(params Params) *Strategy {
	return &Strategy{params: params}
}

// phaseScore 相位及其得分
type phaseScore struct {
	phaseID int
	score   float64
}

// sortStableDesc 按得分降序稳定排序
// 得分完全相同的相位保持原有枚举顺序（相位编号升序在前）
func sortStableDesc(scores []phaseScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].score > scores[j].score
	})
}

// Capacity 估计相位的放行能力
// 等待车辆越多认为放行越快，随等待数单调不减，带下限保护
func (s *Strategy) Capacity(waiting float64) float64 {
	return math.Max(s.params.CapacityFloor, s.params.CapacityBase+waiting*s.params.CapacityPerVehicle)
}

// Efficiency 相位效率得分
// 没有等待车辆时恒为0（无需求则无优先级，与放行能力无关）；
// 否则为等待数与放行能力之积，对持续增长的需求呈超线性
func (s *Strategy) Efficiency(waiting float64) float64 {
	if waiting <= 0 {
		return 0
	}
	return waiting * s.Capacity(waiting)
}

// rankByEfficiency 计算所有绿灯相位的原始效率并按得分降序稳定排列
func (s *Strategy) rankByEfficiency(t *TLS, obs *entity.Observation) []phaseScore {
	scores := lo.Map(t.greenPhases, func(phaseID int, _ int) phaseScore {
		return phaseScore{
			phaseID: phaseID,
			score:   s.Efficiency(obs.Waiting(t.id, phaseID)),
		}
	})
	sortStableDesc(scores)
	return scores
}

// Decide 对单个路口做一次决策
// 参数：t-路口，obs-本tick观测
// 返回：选中的相位与绿灯时长；返回nil表示本tick跳过该路口（非错误）
// 算法说明：
// 1. 观测中没有该路口的信号灯信息则跳过
// 2. 信号机即将按自身程序切相（剩余时间大于EligibilityWindow）则不抢占，跳过
// 3. 计算所有绿灯相位的原始效率
// 4. 对非当前相位扣除切相惩罚后重新降序排列，取最优作为候选；
//    惩罚随相位持续时间衰减，切换随时间变得越来越便宜
// 5. 保持规则：在原始（未扣惩罚）得分上比较，当前相位效率不低于最优的
//    StayThreshold倍时保持当前相位，覆盖惩罚排序的结果
// 6. 按候选相位的需求计算自适应绿灯时长
func (s *Strategy) Decide(t *TLS, obs *entity.Observation) *entity.TLSAction {
	info, ok := obs.Lights[t.id]
	if !ok || info == nil {
		return nil
	}
	if info.TimeToNextSwitch > s.params.EligibilityWindow {
		// 信号机马上要自行切相，不介入
		return nil
	}

	raw := s.rankByEfficiency(t, obs)

	// 切相惩罚：相位持续越久惩罚越小
	penalty := s.params.SwitchPenalty / (info.TimeInPhase + 1.0)
	adjusted := lo.Map(raw, func(ps phaseScore, _ int) phaseScore {
		if info.CurrentPhase == nil || ps.phaseID != *info.CurrentPhase {
			ps.score -= penalty
		}
		return ps
	})
	sortStableDesc(adjusted)
	bestPhase := adjusted[0].phaseID

	// 保持规则：当前相位在原始得分上足够接近最优时不切换
	// 仅当上报的当前相位确实是本路口的绿灯相位时生效，
	// 过渡状态上报的相位编号按原始效率0处理，不会被保持也不会被输出
	if info.CurrentPhase != nil && t.isGreenPhase(*info.CurrentPhase) {
		currentRaw := 0.0
		for _, ps := range raw {
			if ps.phaseID == *info.CurrentPhase {
				currentRaw = ps.score
				break
			}
		}
		if currentRaw >= s.params.StayThreshold*raw[0].score {
			bestPhase = *info.CurrentPhase
		}
	}

	return &entity.TLSAction{
		PhaseID:  bestPhase,
		Duration: s.Duration(obs.Waiting(t.id, bestPhase), info.TimeInPhase),
	}
}

// Duration 计算自适应绿灯时长
// 基础时长随等待车辆数与放行能力平方根增长，夹在[MinGreen, MaxGreen]内；
// 相位持续超过LongPhaseThreshold时乘以衰减系数抑制超长相位，
// 衰减在夹取之后进行且不再重新夹取，时长可能略低于MinGreen，保留该行为；
// 结果保留一位小数
func (s *Strategy) Duration(waiting, timeInPhase float64) float64 {
	duration := s.params.MinGreen + s.params.Alpha*waiting + s.params.Beta*math.Sqrt(s.Capacity(waiting))
	duration = lo.Clamp(duration, s.params.MinGreen, s.params.MaxGreen)
	if timeInPhase > s.params.LongPhaseThreshold {
		duration *= s.params.LongPhaseDecay
	}
	return math.Round(duration*10) / 10
}
