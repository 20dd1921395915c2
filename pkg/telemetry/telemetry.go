// Package telemetry 通过 WebSocket 推送任务事件与心跳
//
// 推送是尽力而为的: 队列满或连接断开时事件被丢弃，连接断开后
// 按固定间隔自动重连，直到 Close。
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/zoeyai/zoeysight/internal/logger"
)

var log = logger.Module("telemetry")

// ErrClosed 推送器已关闭
var ErrClosed = errors.New("推送器已关闭")

// EventType 事件类型
type EventType string

const (
	TypeTaskStarted  EventType = "task_started"
	TypeTaskProgress EventType = "task_progress"
	TypeTaskFinished EventType = "task_finished"
	TypeHeartbeat    EventType = "heartbeat"
)

// 任务状态
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// 执行器状态
const (
	StateIdle = "IDLE"
	StateBusy = "BUSY"
)

// Event 推送的事件
type Event struct {
	Type       EventType    `json:"type"`
	TaskID     string       `json:"taskId,omitempty"`
	Name       string       `json:"name,omitempty"`
	Status     string       `json:"status,omitempty"`
	Progress   float64      `json:"progress,omitempty"`
	Message    string       `json:"message,omitempty"`
	DurationMs int64        `json:"durationMs,omitempty"`
	Image      string       `json:"image,omitempty"`
	Timestamp  int64        `json:"timestamp"`
	Agent      *AgentStatus `json:"agent,omitempty"`
}

// AgentStatus 心跳中携带的执行器状态
type AgentStatus struct {
	State         string `json:"state"`
	CurrentTaskID string `json:"currentTaskId,omitempty"`
	CurrentTask   string `json:"currentTask,omitempty"`
	TaskStartedAt int64  `json:"taskStartedAt,omitempty"`
}

// StatusFunc 心跳时查询执行器状态
type StatusFunc func() AgentStatus

// Reporter 事件接收方
type Reporter interface {
	Publish(ev Event) bool
}

// ConnState 连接状态
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
	StateReconnecting ConnState = "reconnecting"
)

// Config 推送器配置
type Config struct {
	URL               string
	HeartbeatInterval time.Duration
	ReconnectDelay    time.Duration
	HandshakeTimeout  time.Duration
	QueueSize         int
}

// DefaultConfig 默认配置
func DefaultConfig(rawURL string) Config {
	return Config{
		URL:               rawURL,
		HeartbeatInterval: 10 * time.Second,
		ReconnectDelay:    5 * time.Second,
		HandshakeTimeout:  10 * time.Second,
		QueueSize:         100,
	}
}

// Publisher WebSocket 事件推送器
type Publisher struct {
	cfg    Config
	dialer websocket.Dialer

	outgoing chan Event
	stopCh   chan struct{}
	wg       sync.WaitGroup

	writeMu sync.Mutex

	mu       sync.RWMutex
	conn     *websocket.Conn
	state    ConnState
	closed   bool
	started  bool
	statusFn StatusFunc
	dropped  int
}

// NewPublisher 创建推送器，需调用 Connect 建立连接
func NewPublisher(cfg Config) *Publisher {
	def := DefaultConfig(cfg.URL)
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = def.HeartbeatInterval
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = def.ReconnectDelay
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = def.HandshakeTimeout
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	cfg.URL = BuildURL(cfg.URL)
	return &Publisher{
		cfg:      cfg,
		dialer:   websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		outgoing: make(chan Event, cfg.QueueSize),
		stopCh:   make(chan struct{}),
		state:    StateDisconnected,
	}
}

// BuildURL 规范化推送地址
//
//   - localhost:3001 → ws://localhost:3001/ws/telemetry
//   - http://host → ws://host/ws/telemetry
//   - https://host → wss://host/ws/telemetry
//   - example.com → wss://example.com/ws/telemetry
func BuildURL(raw string) string {
	const path = "/ws/telemetry"
	switch {
	case raw == "":
		return ""
	case strings.HasPrefix(raw, "ws://"), strings.HasPrefix(raw, "wss://"):
		u, err := url.Parse(raw)
		if err != nil {
			return raw
		}
		if u.Path == "" || u.Path == "/" {
			u.Path = path
		}
		return u.String()
	case strings.HasPrefix(raw, "http://"):
		return "ws://" + strings.TrimSuffix(raw[len("http://"):], "/") + path
	case strings.HasPrefix(raw, "https://"):
		return "wss://" + strings.TrimSuffix(raw[len("https://"):], "/") + path
	case isLocalAddress(raw):
		return "ws://" + raw + path
	default:
		return "wss://" + raw + path
	}
}

func isLocalAddress(addr string) bool {
	host := addr
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host = host[:i]
	}
	return host == "localhost" || host == "127.0.0.1" || host == "0.0.0.0" || host == "::1"
}

// URL 规范化后的地址
func (p *Publisher) URL() string { return p.cfg.URL }

// SetStatusFunc 设置心跳状态来源
func (p *Publisher) SetStatusFunc(fn StatusFunc) {
	p.mu.Lock()
	p.statusFn = fn
	p.mu.Unlock()
}

// State 当前连接状态
func (p *Publisher) State() ConnState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Dropped 因队列满或断线被丢弃的事件数
func (p *Publisher) Dropped() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.dropped
}

func (p *Publisher) setState(s ConnState) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// Connect 建立连接并启动发送、心跳与接收循环
func (p *Publisher) Connect(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if p.started {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	p.setState(StateConnecting)
	conn, err := p.dial(ctx)
	if err != nil {
		p.setState(StateDisconnected)
		return err
	}

	p.mu.Lock()
	p.conn = conn
	p.state = StateConnected
	p.started = true
	p.mu.Unlock()
	log.Info("已连接 %s", p.cfg.URL)

	p.wg.Add(2)
	go p.sendLoop()
	go p.readLoop(conn)
	return nil
}

func (p *Publisher) dial(ctx context.Context) (*websocket.Conn, error) {
	if p.cfg.URL == "" {
		return nil, errors.New("推送地址为空")
	}
	conn, _, err := p.dialer.DialContext(ctx, p.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("连接 %s 失败: %w", p.cfg.URL, err)
	}
	return conn, nil
}

// Publish 把事件放入发送队列，队列满或已关闭时返回 false
//
// nil 推送器上调用是安全的空操作。
func (p *Publisher) Publish(ev Event) bool {
	if p == nil {
		return false
	}
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().UnixMilli()
	}
	select {
	case <-p.stopCh:
		return false
	default:
	}
	select {
	case p.outgoing <- ev:
		return true
	default:
		p.mu.Lock()
		p.dropped++
		p.mu.Unlock()
		log.Warn("发送队列已满，丢弃事件 %s", ev.Type)
		return false
	}
}

func (p *Publisher) sendLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case ev := <-p.outgoing:
			p.write(ev)
		case <-ticker.C:
			p.write(p.heartbeat())
		}
	}
}

func (p *Publisher) heartbeat() Event {
	p.mu.RLock()
	fn := p.statusFn
	p.mu.RUnlock()

	agent := AgentStatus{State: StateIdle}
	if fn != nil {
		agent = fn()
	}
	return Event{Type: TypeHeartbeat, Timestamp: time.Now().UnixMilli(), Agent: &agent}
}

func (p *Publisher) write(ev Event) {
	data, err := sonic.Marshal(ev)
	if err != nil {
		log.Error("序列化事件失败: %v", err)
		return
	}

	p.mu.Lock()
	conn := p.conn
	if conn == nil {
		p.dropped++
	}
	p.mu.Unlock()
	if conn == nil {
		log.Debug("未连接，丢弃事件 %s", ev.Type)
		return
	}

	p.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, data)
	p.writeMu.Unlock()
	if err != nil {
		// 关闭连接让 readLoop 触发重连
		log.Warn("发送事件失败: %v", err)
		_ = conn.Close()
	}
}

// readLoop 丢弃服务端消息，只用于发现断线
func (p *Publisher) readLoop(conn *websocket.Conn) {
	defer p.wg.Done()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			select {
			case <-p.stopCh:
				return
			default:
			}
			log.Warn("连接中断: %v", err)
			p.reconnect(conn)
			return
		}
	}
}

// reconnect 按固定间隔重连直到成功或关闭
func (p *Publisher) reconnect(old *websocket.Conn) {
	p.mu.Lock()
	if p.conn == old {
		p.conn = nil
	}
	p.state = StateReconnecting
	p.mu.Unlock()
	_ = old.Close()

	for attempt := 1; ; attempt++ {
		timer := time.NewTimer(p.cfg.ReconnectDelay)
		select {
		case <-p.stopCh:
			timer.Stop()
			return
		case <-timer.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), p.cfg.HandshakeTimeout)
		conn, err := p.dial(ctx)
		cancel()
		if err != nil {
			log.Warn("第 %d 次重连失败: %v", attempt, err)
			continue
		}

		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			_ = conn.Close()
			return
		}
		p.conn = conn
		p.state = StateConnected
		p.wg.Add(1)
		p.mu.Unlock()

		log.Info("第 %d 次重连成功", attempt)
		go p.readLoop(conn)
		return
	}
}

// Close 停止所有循环并关闭连接
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	conn := p.conn
	p.conn = nil
	p.state = StateDisconnected
	p.mu.Unlock()

	close(p.stopCh)

	var err error
	if conn != nil {
		p.writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		p.writeMu.Unlock()
		err = conn.Close()
	}
	p.wg.Wait()
	log.Info("已断开")
	return err
}
