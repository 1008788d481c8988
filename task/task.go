package task

import (
	"errors"
	"flag"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/tlscontrol-oss/bridge"
	"github.com/tsinghua-fib-lab/tlscontrol-oss/clock"
	"github.com/tsinghua-fib-lab/tlscontrol-oss/entity"
	"github.com/tsinghua-fib-lab/tlscontrol-oss/entity/tls"
	"github.com/tsinghua-fib-lab/tlscontrol-oss/monitor"
	"github.com/tsinghua-fib-lab/tlscontrol-oss/output/recorder"
	"github.com/tsinghua-fib-lab/tlscontrol-oss/scenario"
	"github.com/tsinghua-fib-lab/tlscontrol-oss/synthetic"
	"github.com/tsinghua-fib-lab/tlscontrol-oss/utils/config"
	"github.com/tsinghua-fib-lab/tlscontrol-oss/utils/input"
)

const (
	SelfName = "tlscontrol" // 本程序在控制任务中的名字
)

var (
	heartBeatInterval = flag.Int("log.heartbeat_interval", 100, "心跳日志间隔步数")

	log = logrus.WithField("module", "task")
)

// nopSink 丢弃决策的去向，用于合成流量等无下游的运行模式
type nopSink struct{}

func (nopSink) Apply(step int32, decision entity.Decision) error { return nil }
func (nopSink) Close() error                                     { return nil }

// Context 控制任务上下文
// 功能：包含一次控制任务的所有变量和状态，替代全局变量
type Context struct {

	// 任务名
	job string
	// 本次运行的标识，用于日志与决策记录的关联
	runID string
	// 关闭指令
	closed atomic.Bool

	// 时钟
	clock *clock.Clock

	// TLS决策管理器
	tlsManager *tls.TLSManager
	// 观测来源
	source entity.IObservationSource
	// 决策去向
	sink entity.IDecisionSink
	// 决策记录器（可选）
	recorder *recorder.Recorder
	// 诊断HTTP服务（可选）
	monitor *monitor.Monitor

	// 运行时配置文件
	runtimeConfig *config.RuntimeConfig
}

// NewContext 创建新的控制任务上下文
// 功能：初始化控制任务的所有组件和配置
// 参数：job-任务名称，c-配置对象
// 返回：初始化完成的Context实例
// 算法说明：
// 1. 初始化时钟与运行时配置
// 2. 加载静态信号程序目录
// 3. 构建TLS决策管理器（目录中存在无绿灯相位的路口时立即失败）
// 4. 按配置选择观测来源与决策去向（bridge、场景回放、合成流量三选一）
// 5. 按配置启用决策记录器与诊断HTTP服务
func NewContext(job string, c config.Config) *Context {
	ctx := &Context{
		job:   job,
		runID: uuid.NewString(),
	}
	ctx.clock = clock.New(c.Control.Step)
	ctx.runtimeConfig = config.NewRuntimeConfig(c)

	// 加载决策核心启动所需的数据
	in, err := input.Init(c)
	if err != nil {
		log.Panicf("input load err: %v", err)
	}

	ctx.tlsManager = tls.NewManager(tls.DefaultParams())
	if err := ctx.tlsManager.Init(in.Programs); err != nil {
		log.Panicf("tls init err: %v", err)
	}

	switch {
	case c.Source.Bridge != nil:
		client := bridge.New(*c.Source.Bridge)
		ctx.source = client
		ctx.sink = client
	case c.Source.Scenario != nil:
		src, err := scenario.New(c.Source.Scenario.File)
		if err != nil {
			log.Panicf("scenario load err: %v", err)
		}
		ctx.source = src
		ctx.sink = &scenario.Collector{}
	case c.Source.Synthetic != nil:
		ctx.source = synthetic.New(in.Programs, *c.Source.Synthetic)
		ctx.sink = nopSink{}
	default:
		log.Panic("one of source.bridge, source.scenario, source.synthetic must be specified")
	}

	if path := c.Output.SQLite; path != "" {
		r, err := recorder.New(path, ctx.runID)
		if err != nil {
			log.Panicf("recorder init err: %v", err)
		}
		ctx.recorder = r
	}
	if addr := c.Control.Monitor; addr != "" {
		ctx.monitor = monitor.New(addr, ctx.tlsManager)
		go func() {
			if err := ctx.monitor.Serve(); err != nil {
				log.Errorf("monitor serve err: %v", err)
			}
		}()
	}

	log.Infof("run %s: %d TLS under control", ctx.runID, ctx.tlsManager.Len())
	return ctx
}

func (ctx *Context) RunID() string {
	return ctx.runID
}

func (ctx *Context) Clock() *clock.Clock {
	return ctx.clock
}

func (ctx *Context) TLSManager() entity.ITLSManager {
	return ctx.tlsManager
}

func (ctx *Context) RuntimeConfig() *config.RuntimeConfig {
	return ctx.runtimeConfig
}

// step 执行一个tick
// 功能：推进时钟，拉取观测，执行决策，分发到去向、记录器与诊断服务
// 返回：是否继续运行
// 说明：记录器写入失败只记日志，不中断决策循环
func (ctx *Context) step() bool {
	ctx.clock.Tick()

	if ctx.clock.InternalStep%int32(*heartBeatInterval) == 0 {
		hour, minute, second := ctx.clock.GetHourMinuteSecond()
		log.Infof(
			"STEP: %d(%d:%d:%.2f)",
			ctx.clock.InternalStep,
			hour, minute, second,
		)
	}

	obs, err := ctx.source.Next()
	if err != nil {
		if errors.Is(err, entity.ErrSourceDrained) {
			log.Infof("observation source drained at step %d", ctx.clock.InternalStep)
			return false
		}
		log.Errorf("observation fetch err at step %d: %v", ctx.clock.InternalStep, err)
		return false
	}

	decision := ctx.tlsManager.DecideNextPhase(obs)
	if err := ctx.sink.Apply(ctx.clock.InternalStep, decision); err != nil {
		log.Errorf("decision apply err at step %d: %v", ctx.clock.InternalStep, err)
		return false
	}
	if ctx.recorder != nil {
		if err := ctx.recorder.Record(ctx.clock.InternalStep, decision); err != nil {
			log.Errorf("decision record err at step %d: %v", ctx.clock.InternalStep, err)
		}
	}
	if ctx.monitor != nil {
		ctx.monitor.Observe(ctx.clock.InternalStep, decision)
	}
	return true
}

// Run 运行
// 功能：执行决策循环直至步数耗尽、观测耗尽或收到关闭指令
func (ctx *Context) Run() {
	for !ctx.clock.Done() {
		if !ctx.step() {
			break
		}
		if ctx.closed.Load() {
			break
		}
	}
	log.Infof("control task complete at step %d", ctx.clock.InternalStep)
	ctx.Close()
}

// Close 关闭上下文持有的所有资源，可重复调用
func (ctx *Context) Close() {
	if !ctx.closed.CompareAndSwap(false, true) {
		return
	}
	if err := ctx.source.Close(); err != nil {
		log.Errorf("source close err: %v", err)
	}
	if err := ctx.sink.Close(); err != nil {
		log.Errorf("sink close err: %v", err)
	}
	if ctx.recorder != nil {
		if err := ctx.recorder.Close(); err != nil {
			log.Errorf("recorder close err: %v", err)
		}
	}
	if ctx.monitor != nil {
		if err := ctx.monitor.Close(); err != nil {
			log.Errorf("monitor close err: %v", err)
		}
	}
}
