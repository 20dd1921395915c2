package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

func TestBuildURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"localhost:3001", "ws://localhost:3001/ws/telemetry"},
		{"127.0.0.1:8080", "ws://127.0.0.1:8080/ws/telemetry"},
		{"example.com", "wss://example.com/ws/telemetry"},
		{"http://host:9000", "ws://host:9000/ws/telemetry"},
		{"https://host/", "wss://host/ws/telemetry"},
		{"ws://host:1", "ws://host:1/ws/telemetry"},
		{"wss://host/custom", "wss://host/custom"},
	}
	for _, tt := range tests {
		if got := BuildURL(tt.in); got != tt.want {
			t.Errorf("BuildURL(%q) = %q, 期望 %q", tt.in, got, tt.want)
		}
	}
}

// eventServer 把收到的事件写入通道，dropFirst 为 true 时第一条消息后断开连接
type eventServer struct {
	*httptest.Server
	events    chan Event
	conns     atomic.Int32
	dropFirst bool
}

func newEventServer(t *testing.T, dropFirst bool) *eventServer {
	t.Helper()
	s := &eventServer{events: make(chan Event, 64), dropFirst: dropFirst}
	upgrader := websocket.Upgrader{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		n := s.conns.Add(1)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var ev Event
			if err := sonic.Unmarshal(data, &ev); err != nil {
				t.Errorf("无法解析事件: %v", err)
				return
			}
			s.events <- ev
			if s.dropFirst && n == 1 {
				return
			}
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *eventServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http") + "/ws/telemetry"
}

// waitFor 等待指定类型的事件
func waitFor(t *testing.T, events <-chan Event, typ EventType, timeout time.Duration) Event {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case ev := <-events:
			if ev.Type == typ {
				return ev
			}
		case <-deadline:
			t.Fatalf("等待 %s 事件超时", typ)
		}
	}
}

func TestPublishDeliversEvents(t *testing.T) {
	srv := newEventServer(t, false)
	p := NewPublisher(Config{URL: srv.wsURL(), HeartbeatInterval: time.Hour})
	if err := p.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	if p.State() != StateConnected {
		t.Errorf("状态 = %s", p.State())
	}
	if !p.Publish(Event{Type: TypeTaskStarted, TaskID: "t1", Name: "walk", Status: StatusRunning}) {
		t.Fatal("事件未入队")
	}

	ev := waitFor(t, srv.events, TypeTaskStarted, 2*time.Second)
	if ev.TaskID != "t1" || ev.Name != "walk" || ev.Status != StatusRunning {
		t.Errorf("事件 = %+v", ev)
	}
	if ev.Timestamp == 0 {
		t.Error("缺少时间戳")
	}
}

func TestHeartbeatCarriesAgentStatus(t *testing.T) {
	srv := newEventServer(t, false)
	p := NewPublisher(Config{URL: srv.wsURL(), HeartbeatInterval: 20 * time.Millisecond})
	p.SetStatusFunc(func() AgentStatus {
		return AgentStatus{State: StateBusy, CurrentTaskID: "abc", CurrentTask: "scrape"}
	})
	if err := p.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	ev := waitFor(t, srv.events, TypeHeartbeat, 2*time.Second)
	if ev.Agent == nil || ev.Agent.State != StateBusy || ev.Agent.CurrentTaskID != "abc" {
		t.Errorf("心跳 = %+v", ev.Agent)
	}
}

func TestReconnectAfterServerDrop(t *testing.T) {
	srv := newEventServer(t, true)
	p := NewPublisher(Config{
		URL:               srv.wsURL(),
		HeartbeatInterval: time.Hour,
		ReconnectDelay:    10 * time.Millisecond,
	})
	if err := p.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	p.Publish(Event{Type: TypeTaskStarted, TaskID: "first"})
	waitFor(t, srv.events, TypeTaskStarted, 2*time.Second)

	// 断线期间的事件会被丢弃，持续推送直到新连接收到
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		p.Publish(Event{Type: TypeTaskFinished, TaskID: "second"})
		select {
		case ev := <-srv.events:
			if ev.Type == TypeTaskFinished {
				if n := srv.conns.Load(); n < 2 {
					t.Errorf("连接次数 = %d, 期望至少 2", n)
				}
				return
			}
		case <-time.After(20 * time.Millisecond):
		}
	}
	t.Fatal("重连后未收到事件")
}

func TestConnectFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	p := NewPublisher(Config{URL: url})
	if err := p.Connect(context.Background()); err == nil {
		t.Fatal("服务端不可达时应返回错误")
	}
	if p.State() != StateDisconnected {
		t.Errorf("状态 = %s", p.State())
	}
}

func TestPublishAfterClose(t *testing.T) {
	p := NewPublisher(Config{URL: "ws://localhost:1"})
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if p.Publish(Event{Type: TypeTaskProgress}) {
		t.Error("关闭后不应接受事件")
	}
	if err := p.Connect(context.Background()); err != ErrClosed {
		t.Errorf("关闭后连接应返回 ErrClosed, 得到 %v", err)
	}

	var nilPub *Publisher
	if nilPub.Publish(Event{Type: TypeHeartbeat}) {
		t.Error("nil 推送器不应接受事件")
	}
}

func TestQueueFullDropsEvents(t *testing.T) {
	p := NewPublisher(Config{URL: "ws://localhost:1", QueueSize: 2})
	defer p.Close()
	for i := 0; i < 2; i++ {
		if !p.Publish(Event{Type: TypeTaskProgress}) {
			t.Fatalf("第 %d 个事件应入队", i)
		}
	}
	if p.Publish(Event{Type: TypeTaskProgress}) {
		t.Error("队列满时应丢弃")
	}
	if p.Dropped() != 1 {
		t.Errorf("丢弃数 = %d", p.Dropped())
	}
}
