// 只读诊断HTTP服务：暴露健康检查、相位选中计数与最近一次决策
package monitor

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/tlscontrol-oss/entity"
)

var log = logrus.WithField("module", "monitor")

// Monitor 诊断HTTP服务
// 说明：只读，不提供任何修改决策状态的入口
type Monitor struct {
	manager entity.ITLSManager
	server  *http.Server

	mtx          sync.RWMutex
	lastStep     int32
	lastDecision entity.Decision
}

// New 创建诊断HTTP服务
// 参数：addr-监听地址，manager-用于读取诊断计数的管理器
func New(addr string, manager entity.ITLSManager) *Monitor {
	m := &Monitor{manager: manager}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))
	r.Get("/health", m.handleHealth)
	r.Get("/counters", m.handleCounters)
	r.Get("/decision", m.handleDecision)

	m.server = &http.Server{Addr: addr, Handler: r}
	return m
}

// Serve 启动HTTP服务并阻塞至关闭
func (m *Monitor) Serve() error {
	log.Infof("monitor listening on %s", m.server.Addr)
	if err := m.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Observe 记录最近一次决策供查询
func (m *Monitor) Observe(step int32, decision entity.Decision) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.lastStep = step
	m.lastDecision = decision
}

// Handler 获取HTTP处理器（测试用）
func (m *Monitor) Handler() http.Handler {
	return m.server.Handler
}

// Close 关闭HTTP服务
func (m *Monitor) Close() error {
	return m.server.Close()
}

func (m *Monitor) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (m *Monitor) handleCounters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, m.manager.ActionCounts())
}

func (m *Monitor) handleDecision(w http.ResponseWriter, r *http.Request) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"step":     m.lastStep,
		"decision": m.lastDecision,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("write response err: %v", err)
	}
}
