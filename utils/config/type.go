package config

// InputPath 指定输入数据来源的配置（MongoDB、文件系统）
// 说明：File非空时优先从文件加载，否则从MongoDB的DB.Col集合加载
type InputPath struct {
	DB   string `yaml:"db"`             // 数据库名
	Col  string `yaml:"col"`            // 集合名
	File string `yaml:"file,omitempty"` // 文件路径（优先级高于MongoDB）
}

// Input 指定所有输入数据的配置项
type Input struct {
	URI     string    `yaml:"uri"`     // MongoDB连接字符串
	Catalog InputPath `yaml:"catalog"` // 静态信号程序目录
}

// ControlStep 指定决策循环运行区间和间隔的配置项
type ControlStep struct {
	Start    int32   `yaml:"start"`    // 开始步数
	Total    int32   `yaml:"total"`    // 总步数
	Interval float64 `yaml:"interval"` // 每步的时间间隔（秒）
}

// BridgeSource 外部运行时bridge的连接配置
type BridgeSource struct {
	Network string `yaml:"network"` // 网络类型（tcp或unix）
	Addr    string `yaml:"addr"`    // bridge服务地址
}

// ScenarioSource 场景回放文件配置
type ScenarioSource struct {
	File string `yaml:"file"` // 场景JSON文件路径
}

// SyntheticSource 合成流量配置
type SyntheticSource struct {
	Seed       uint64  `yaml:"seed"`        // 随机种子
	MaxWaiting float64 `yaml:"max_waiting"` // 单相位等待车辆数上限
}

// Source 观测来源配置，bridge、scenario、synthetic三选一
type Source struct {
	Bridge    *BridgeSource    `yaml:"bridge,omitempty"`
	Scenario  *ScenarioSource  `yaml:"scenario,omitempty"`
	Synthetic *SyntheticSource `yaml:"synthetic,omitempty"`
}

// Output 输出配置
type Output struct {
	SQLite string `yaml:"sqlite,omitempty"` // 决策记录数据库文件路径，为空则不记录
}

// Control 决策循环控制配置
type Control struct {
	Step    ControlStep `yaml:"step"`
	Monitor string      `yaml:"monitor,omitempty"` // 诊断HTTP服务监听地址，为空则不启动
}

// Config YAML配置文件的根结构
type Config struct {
	Input   Input   `yaml:"input"`   // 输入
	Control Control `yaml:"control"` // 决策循环控制
	Source  Source  `yaml:"source"`  // 观测来源
	Output  Output  `yaml:"output"`  // 输出
}
