// 场景回放：把预先录制的逐tick观测JSON文件作为观测来源，用于离线调参与回归对比
package scenario

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tsinghua-fib-lab/tlscontrol-oss/entity"
)

//go:embed schema.json
var schemaJSON string

// tickRecord 场景文件中单个tick的记录
type tickRecord struct {
	Lights map[string]struct {
		CurrentPhase     *int    `json:"current_phase,omitempty"`
		TimeToNextSwitch float64 `json:"time_to_next_switch"`
		TimeInPhase      float64 `json:"time_in_phase"`
	} `json:"lights"`
	// JSON对象的键只能是字符串，相位编号在解析后转换为int
	WaitingVehicles map[string]map[string]float64 `json:"waiting_vehicles"`
}

// Source 场景回放观测来源
// 功能：按录制顺序逐tick返回观测，耗尽后返回entity.ErrSourceDrained
type Source struct {
	ticks []*entity.Observation
	pos   int
}

// New 创建场景回放来源
// 功能：读取场景文件，先按内嵌JSON Schema校验再解析为观测序列
// 参数：file-场景JSON文件路径
// 返回：初始化完成的回放来源；文件不合法时返回错误
func New(file string) (*Source, error) {
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("load scenario file: %w", err)
	}
	if err := validate(raw); err != nil {
		return nil, fmt.Errorf("invalid scenario file %s: %w", file, err)
	}

	var records []tickRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("parse scenario file %s: %w", file, err)
	}
	ticks := make([]*entity.Observation, 0, len(records))
	for i, r := range records {
		obs, err := toObservation(r)
		if err != nil {
			return nil, fmt.Errorf("scenario tick %d: %w", i, err)
		}
		ticks = append(ticks, obs)
	}
	return &Source{ticks: ticks}, nil
}

// validate 按内嵌schema校验场景文件
func validate(raw []byte) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("scenario.schema.json", strings.NewReader(schemaJSON)); err != nil {
		return fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := compiler.Compile("scenario.schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}
	return schema.Validate(payload)
}

// toObservation 把单个tick记录转换为内部观测结构
func toObservation(r tickRecord) (*entity.Observation, error) {
	obs := &entity.Observation{
		Lights:          make(map[string]*entity.LightInfo, len(r.Lights)),
		WaitingVehicles: make(map[string]map[int]float64, len(r.WaitingVehicles)),
	}
	for id, ls := range r.Lights {
		obs.Lights[id] = &entity.LightInfo{
			CurrentPhase:     ls.CurrentPhase,
			TimeToNextSwitch: ls.TimeToNextSwitch,
			TimeInPhase:      ls.TimeInPhase,
		}
	}
	for id, waiting := range r.WaitingVehicles {
		m := make(map[int]float64, len(waiting))
		for key, count := range waiting {
			phaseID, err := strconv.Atoi(key)
			if err != nil {
				return nil, fmt.Errorf("invalid phase key %q for tls %s", key, id)
			}
			m[phaseID] = count
		}
		obs.WaitingVehicles[id] = m
	}
	return obs, nil
}

// Next 返回下一tick的观测
func (s *Source) Next() (*entity.Observation, error) {
	if s.pos >= len(s.ticks) {
		return nil, entity.ErrSourceDrained
	}
	obs := s.ticks[s.pos]
	s.pos++
	return obs, nil
}

// Len 场景中的tick总数
func (s *Source) Len() int {
	return len(s.ticks)
}

// Close 关闭来源（无资源需要释放）
func (s *Source) Close() error {
	return nil
}

// Collector 决策收集器
// 功能：把每tick的决策按顺序收集在内存中，供离线对比使用
type Collector struct {
	Decisions []entity.Decision
}

// Apply 收集一次决策（nil也收集，保持与tick一一对应）
func (c *Collector) Apply(step int32, decision entity.Decision) error {
	c.Decisions = append(c.Decisions, decision)
	return nil
}

// Close 关闭收集器
func (c *Collector) Close() error {
	return nil
}
