// 合成流量：围绕信号程序目录随机生成观测，用于独立部署模式下的压测与浸泡运行
package synthetic

import (
	"sort"

	"github.com/tsinghua-fib-lab/tlscontrol-oss/entity"
	"github.com/tsinghua-fib-lab/tlscontrol-oss/entity/tls"
	"github.com/tsinghua-fib-lab/tlscontrol-oss/utils/config"
	"github.com/tsinghua-fib-lab/tlscontrol-oss/utils/randengine"
)

// Source 合成流量观测来源
// 说明：相同种子产生相同观测序列；tls按id排序后生成，避免map遍历顺序引入不确定性
type Source struct {
	engine     *randengine.Engine
	ids        []string         // 排序后的tls id
	greens     map[string][]int // tls id->绿灯相位编号
	maxWaiting float64
}

// New 创建合成流量来源
// 参数：programs-静态信号程序目录，c-合成流量配置
func New(programs map[string][]tls.Phase, c config.SyntheticSource) *Source {
	s := &Source{
		engine:     randengine.New(c.Seed),
		ids:        make([]string, 0, len(programs)),
		greens:     make(map[string][]int, len(programs)),
		maxWaiting: c.MaxWaiting,
	}
	if s.maxWaiting <= 0 {
		s.maxWaiting = 60
	}
	for id, phases := range programs {
		greens := make([]int, 0, len(phases))
		for _, p := range phases {
			if p.IsGreen() {
				greens = append(greens, p.Index)
			}
		}
		if len(greens) == 0 {
			// 没有绿灯相位的路口在管理器初始化时已经失败，这里直接跳过
			continue
		}
		sort.Ints(greens)
		s.ids = append(s.ids, id)
		s.greens[id] = greens
	}
	sort.Strings(s.ids)
	return s
}

// Next 生成下一tick的随机观测
// 算法说明：
// 1. 每个路口以小概率整tick缺席（模拟尚未纳入仿真的路口）
// 2. 当前相位从绿灯相位中随机选取
// 3. 大部分tick处于可介入窗口内，少数tick距切相还远
// 4. 每个绿灯相位以一定概率出现随机数量的等待车辆
func (s *Source) Next() (*entity.Observation, error) {
	obs := &entity.Observation{
		Lights:          make(map[string]*entity.LightInfo, len(s.ids)),
		WaitingVehicles: make(map[string]map[int]float64, len(s.ids)),
	}
	for _, id := range s.ids {
		if s.engine.PTrue(0.1) {
			continue
		}
		greens := s.greens[id]
		current := greens[s.engine.Intn(len(greens))]
		timeToSwitch := 0.0
		if s.engine.PTrue(0.3) {
			timeToSwitch = s.engine.Uniform(0.6, 30)
		}
		obs.Lights[id] = &entity.LightInfo{
			CurrentPhase:     &current,
			TimeToNextSwitch: timeToSwitch,
			TimeInPhase:      s.engine.Uniform(0, 90),
		}
		waiting := make(map[int]float64, len(greens))
		for _, phaseID := range greens {
			if s.engine.PTrue(0.8) {
				waiting[phaseID] = float64(s.engine.Intn(int(s.maxWaiting)))
			}
		}
		obs.WaitingVehicles[id] = waiting
	}
	return obs, nil
}

// Close 关闭来源（无资源需要释放）
func (s *Source) Close() error {
	return nil
}
