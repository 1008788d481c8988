// 与外部运行时（仿真器侧bridge服务）通信的适配器
// 帧格式：4字节大端长度 + msgpack消息体；请求为带endpoint字段的map，响应为约定的结构体
package bridge

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/tlscontrol-oss/entity"
	"github.com/tsinghua-fib-lab/tlscontrol-oss/utils/config"
	"github.com/vmihailenco/msgpack/v5"
)

var log = logrus.WithField("module", "bridge")

const (
	dialRetryCount    = 10              // 连接bridge服务的最大重试次数
	dialRetryInterval = 1 * time.Second // 重试间隔
)

// wire结构，字段与bridge服务端约定一致

type lightState struct {
	CurrentPhase     *int    `msgpack:"current_phase"`
	TimeToNextSwitch float64 `msgpack:"time_to_next_switch"`
	TimeInPhase      float64 `msgpack:"time_in_phase"`
}

type observationResponse struct {
	Lights          map[string]lightState      `msgpack:"lights"`
	WaitingVehicles map[string]map[int]float64 `msgpack:"waiting_vehicles"`
}

type wireAction struct {
	PhaseID  int     `msgpack:"phase_id"`
	Duration float64 `msgpack:"duration"`
}

type ackResponse struct {
	OK    bool   `msgpack:"ok"`
	Error string `msgpack:"error"`
}

// Client bridge客户端，同时实现观测来源与决策去向
// 说明：决策循环是单线程的，Client不做内部并发保护
type Client struct {
	network string
	addr    string
	conn    net.Conn
}

// New 创建bridge客户端
// 参数：c-bridge连接配置（network为tcp或unix）
func New(c config.BridgeSource) *Client {
	return &Client{network: c.Network, addr: c.Addr}
}

// sendMsg 发送一帧：4字节大端长度 + 消息体
func sendMsg(conn net.Conn, payload []byte) error {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(payload)))
	if _, err := conn.Write(hdr[:]); err != nil {
		return err
	}
	_, err := conn.Write(payload)
	return err
}

// readMsg 读取一帧
func readMsg(conn net.Conn) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(conn, hdr[:]); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(hdr[:])
	if length == 0 {
		return nil, nil
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(conn, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ensureConn 确保连接可用，必要时带重试地重新建立连接
func (c *Client) ensureConn() error {
	if c.conn != nil {
		return nil
	}
	var lastErr error
	for i := 0; i < dialRetryCount; i++ {
		conn, err := net.Dial(c.network, c.addr)
		if err == nil {
			c.conn = conn
			log.Infof("connected to bridge at %s://%s", c.network, c.addr)
			return nil
		}
		lastErr = err
		log.Warnf("failed to connect to bridge %s: %v, retrying", c.addr, err)
		time.Sleep(dialRetryInterval)
	}
	return fmt.Errorf("bridge `%s` did not become ready after %d retries: %w", c.addr, dialRetryCount, lastErr)
}

// call 执行一次请求/响应往返
// 任一环节失败即关闭连接，由下一次调用重新建立
func (c *Client) call(req any, resp any) error {
	if err := c.ensureConn(); err != nil {
		return err
	}
	payload, err := msgpack.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal bridge request: %w", err)
	}
	if err := sendMsg(c.conn, payload); err != nil {
		c.dropConn()
		return fmt.Errorf("send bridge request: %w", err)
	}
	raw, err := readMsg(c.conn)
	if err != nil {
		c.dropConn()
		return fmt.Errorf("read bridge response: %w", err)
	}
	if err := msgpack.Unmarshal(raw, resp); err != nil {
		return fmt.Errorf("parse bridge response: %w", err)
	}
	return nil
}

func (c *Client) dropConn() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// Next 获取下一tick的观测
// 功能：向bridge请求observation端点并转换为内部观测结构
func (c *Client) Next() (*entity.Observation, error) {
	var resp observationResponse
	if err := c.call(map[string]string{"endpoint": "observation"}, &resp); err != nil {
		return nil, err
	}
	obs := &entity.Observation{
		Lights:          make(map[string]*entity.LightInfo, len(resp.Lights)),
		WaitingVehicles: resp.WaitingVehicles,
	}
	for id, ls := range resp.Lights {
		obs.Lights[id] = &entity.LightInfo{
			CurrentPhase:     ls.CurrentPhase,
			TimeToNextSwitch: ls.TimeToNextSwitch,
			TimeInPhase:      ls.TimeInPhase,
		}
	}
	return obs, nil
}

// Apply 将一次决策下发给bridge
// 功能：向bridge发送decision端点请求；decision为nil时本tick无动作，不发送
func (c *Client) Apply(step int32, decision entity.Decision) error {
	if decision == nil {
		return nil
	}
	actions := make(map[string]wireAction, len(decision))
	for id, a := range decision {
		actions[id] = wireAction{PhaseID: a.PhaseID, Duration: a.Duration}
	}
	req := map[string]any{
		"endpoint": "decision",
		"params": map[string]any{
			"step":    step,
			"actions": actions,
		},
	}
	var resp ackResponse
	if err := c.call(req, &resp); err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("bridge rejected decision at step %d: %s", step, resp.Error)
	}
	return nil
}

// Close 关闭与bridge的连接
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
