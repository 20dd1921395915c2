package motion

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/zoeyai/zoeysight/pkg/geometry"
)

// fakeDevice 记录所有输入事件
type fakeDevice struct {
	mu     sync.Mutex
	pos    geometry.Point
	moves  []geometry.Point
	events []string
	fail   map[string]bool
}

func newFakeDevice(x, y int) *fakeDevice {
	return &fakeDevice{pos: geometry.Point{X: x, Y: y}, fail: map[string]bool{}}
}

func (d *fakeDevice) Position() geometry.Point {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pos
}

func (d *fakeDevice) MoveTo(x, y int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pos = geometry.Point{X: x, Y: y}
	d.moves = append(d.moves, d.pos)
}

func (d *fakeDevice) Toggle(button Button, down bool) error {
	return d.record(fmt.Sprintf("mouse:%s:%v", button, down))
}

func (d *fakeDevice) KeyToggle(key string, down bool) error {
	return d.record(fmt.Sprintf("key:%s:%v", key, down))
}

func (d *fakeDevice) Scroll(amount int) {
	_ = d.record(fmt.Sprintf("scroll:%d", amount))
}

func (d *fakeDevice) TypeText(text string) {
	_ = d.record("type:" + text)
}

func (d *fakeDevice) record(ev string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail[ev] {
		return errors.New("设备故障: " + ev)
	}
	d.events = append(d.events, ev)
	return nil
}

func (d *fakeDevice) Events() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.events...)
}

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func TestKnotsFor(t *testing.T) {
	tests := []struct {
		to   geometry.Point
		want int
	}{
		{geometry.Point{X: 0, Y: 0}, 0},
		{geometry.Point{X: 99, Y: 0}, 0},
		{geometry.Point{X: 300, Y: 0}, 2},
		{geometry.Point{X: 400, Y: 0}, 2},
		{geometry.Point{X: 2000, Y: 2000}, 3},
	}
	for _, tt := range tests {
		if got := KnotsFor(geometry.Point{}, tt.to); got != tt.want {
			t.Errorf("KnotsFor(%v) = %d, 期望 %d", tt.to, got, tt.want)
		}
	}
}

func TestSpeedTargetPoints(t *testing.T) {
	for speed, band := range speedBands {
		for i := 0; i < 200; i++ {
			n := speed.TargetPoints()
			if float64(n) < band[0] || float64(n) > band[1] {
				t.Fatalf("%s 采样 %d 超出区间 %v", speed, n, band)
			}
		}
	}
	if n := Speed("invalid").TargetPoints(); n < 20 || n > 30 {
		t.Errorf("未知档位应按 fast 采样，得到 %d", n)
	}
	if _, err := ParseSpeed("warp"); err == nil {
		t.Error("未知档位应返回错误")
	}
}

func TestBezierPathEndpoints(t *testing.T) {
	from := geometry.Point{X: 100, Y: 100}
	to := geometry.Point{X: 700, Y: 450}
	for _, tween := range []Tween{EaseOutQuad, EaseOutElastic} {
		p := DefaultBezierParams(from, to, SpeedMedium)
		p.Tween = tween
		path := BezierPath(from, to, p)
		if len(path) != p.TargetPoints {
			t.Fatalf("轨迹点数 = %d, 期望 %d", len(path), p.TargetPoints)
		}
		if path[0] != from {
			t.Errorf("起点 = %v, 期望 %v", path[0], from)
		}
		if path[len(path)-1] != to {
			t.Errorf("终点 = %v, 期望 %v", path[len(path)-1], to)
		}
	}
}

func TestBezierPathStraightLine(t *testing.T) {
	from := geometry.Point{X: 0, Y: 50}
	to := geometry.Point{X: 200, Y: 50}
	path := BezierPath(from, to, BezierParams{Knots: 0, Tween: EaseOutQuad, TargetPoints: 20})
	for _, pt := range path {
		if pt.Y != 50 {
			t.Fatalf("无控制点且无扰动时轨迹应为直线，得到 %v", pt)
		}
		if pt.X < 0 || pt.X > 200 {
			t.Fatalf("轨迹点越界: %v", pt)
		}
	}
}

func TestTweenEndpoints(t *testing.T) {
	for name, tw := range map[string]Tween{"quad": EaseOutQuad, "elastic": EaseOutElastic} {
		if v := tw(0); math.Abs(v) > 1e-9 {
			t.Errorf("%s(0) = %v", name, v)
		}
		if v := tw(1); math.Abs(v-1) > 1e-3 {
			t.Errorf("%s(1) = %v", name, v)
		}
	}
}

func TestWindPathReachesDestination(t *testing.T) {
	tests := []struct {
		from, to geometry.Point
	}{
		{geometry.Point{X: 0, Y: 0}, geometry.Point{X: 500, Y: 300}},
		{geometry.Point{X: 800, Y: 600}, geometry.Point{X: 10, Y: 20}},
		{geometry.Point{X: 5, Y: 5}, geometry.Point{X: 5, Y: 5}},
	}
	for _, tt := range tests {
		path := WindPath(tt.from, tt.to, DefaultWindParams)
		if len(path) == 0 || path[len(path)-1] != tt.to {
			t.Errorf("WindPath(%v, %v) 未落在终点", tt.from, tt.to)
		}
		prev := tt.from
		for _, pt := range path[:len(path)-1] {
			if pt.Dist(prev) > 2*DefaultWindParams.MaxStep+2 {
				t.Errorf("单步距离 %.1f 超过最大步长", pt.Dist(prev))
			}
			prev = pt
		}
	}
}

func TestWindPathSnapsToDestination(t *testing.T) {
	from := geometry.Point{X: 10, Y: 10}
	to := geometry.Point{X: 400, Y: 250}

	// 没有引力和风力时质点不动，只有末尾补点能落在终点
	path := WindPath(from, to, WindParams{MaxStep: 30, DampingDist: 30})
	if len(path) != 1 || path[0] != to {
		t.Errorf("停滞时应只补终点, 得到 %v", path)
	}

	// 引力远大于步长上限时每步都被截断
	strong := WindParams{Gravity: 1000, MaxStep: 10, DampingDist: 5}
	path = WindPath(from, to, strong)
	if path[len(path)-1] != to {
		t.Fatalf("末点 %v, 期望 %v", path[len(path)-1], to)
	}
	prev := from
	for _, pt := range path[:len(path)-1] {
		if d := pt.Dist(prev); d > strong.MaxStep+1 {
			t.Errorf("单步距离 %.1f 超过上限 %.0f", d, strong.MaxStep)
		}
		prev = pt
	}
}

func TestMouseMoveTo(t *testing.T) {
	dev := newFakeDevice(10, 10)
	m := NewMouse(dev)
	m.sleep = noSleep

	dest := geometry.Point{X: 400, Y: 300}
	for _, style := range []Style{StyleBezier, StyleWind} {
		if err := m.MoveTo(context.Background(), dest, MoveStyle(style)); err != nil {
			t.Fatalf("%s MoveTo 失败: %v", style, err)
		}
		if got := dev.Position(); got != dest {
			t.Errorf("%s 终点 = %v, 期望 %v", style, got, dest)
		}
	}
}

func TestMouseMoveToCancelled(t *testing.T) {
	dev := newFakeDevice(0, 0)
	m := NewMouse(dev)
	m.sleep = noSleep
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.MoveTo(ctx, geometry.Point{X: 300, Y: 300})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("期望 context.Canceled, 得到 %v", err)
	}
	if len(dev.moves) != 0 {
		t.Errorf("取消后不应移动，实际移动 %d 次", len(dev.moves))
	}
}

func TestMouseMoveRelative(t *testing.T) {
	dev := newFakeDevice(100, 100)
	m := NewMouse(dev)
	m.sleep = noSleep

	if err := m.MoveRelative(context.Background(), 43, 0, 0, 0, MoveKnots(0)); err != nil {
		t.Fatal(err)
	}
	if got := dev.Position(); got != (geometry.Point{X: 143, Y: 100}) {
		t.Errorf("相对移动终点 = %v", got)
	}

	if err := m.MoveRelative(context.Background(), 50, 50, 5, 5); err != nil {
		t.Fatal(err)
	}
	got := dev.Position()
	if got.X < 188 || got.X > 198 || got.Y < 145 || got.Y > 155 {
		t.Errorf("抖动后的终点 %v 超出范围", got)
	}
}

func TestClickOrder(t *testing.T) {
	tests := []struct {
		name string
		opts ClickOptions
		want []string
	}{
		{
			name: "左键",
			opts: DefaultClick,
			want: []string{"mouse:left:true", "mouse:left:false"},
		},
		{
			name: "按住 shift",
			opts: ClickOptions{Button: ButtonLeft, HoldKey: "shift", ForceDelay: true},
			want: []string{"key:shift:true", "mouse:left:true", "mouse:left:false", "key:shift:false"},
		},
		{
			name: "右键",
			opts: ClickOptions{Button: ButtonRight},
			want: []string{"mouse:right:true", "mouse:right:false"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := newFakeDevice(0, 0)
			m := NewMouse(dev)
			m.sleep = noSleep
			if err := m.Click(context.Background(), tt.opts); err != nil {
				t.Fatal(err)
			}
			assertEvents(t, dev.Events(), tt.want)
		})
	}
}

func TestClickCancelledStillReleases(t *testing.T) {
	dev := newFakeDevice(0, 0)
	m := NewMouse(dev)
	m.sleep = noSleep
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.Click(ctx, ClickOptions{Button: ButtonLeft, HoldKey: "ctrl", ForceDelay: true})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("期望 context.Canceled, 得到 %v", err)
	}
	assertEvents(t, dev.Events(), []string{"key:ctrl:true", "mouse:left:true", "mouse:left:false", "key:ctrl:false"})
}

func TestMoveCameraValidation(t *testing.T) {
	c := NewCamera(newFakeDevice(0, 0))
	c.sleep = noSleep
	tests := []struct {
		h, v float64
		want error
	}{
		{0, 0, ErrNoRotation},
		{361, 0, ErrRotationRange},
		{-400, 10, ErrRotationRange},
		{0, 91, ErrRotationRange},
		{10, -90.5, ErrRotationRange},
	}
	for _, tt := range tests {
		if err := c.MoveCamera(context.Background(), tt.h, tt.v); !errors.Is(err, tt.want) {
			t.Errorf("MoveCamera(%v, %v) = %v, 期望 %v", tt.h, tt.v, err, tt.want)
		}
	}
}

func TestMoveCameraKeys(t *testing.T) {
	tests := []struct {
		name string
		h, v float64
		keys []string
	}{
		{"向左", -90, 0, []string{"left"}},
		{"向右", 45, 0, []string{"right"}},
		{"向下", 0, -30, []string{"down"}},
		{"组合", 180, 60, []string{"right", "up"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := newFakeDevice(0, 0)
			c := NewCamera(dev)
			c.sleep = noSleep
			if err := c.MoveCamera(context.Background(), tt.h, tt.v); err != nil {
				t.Fatal(err)
			}
			events := dev.Events()
			if len(events) != 2*len(tt.keys) {
				t.Fatalf("事件数 = %d, 期望 %d: %v", len(events), 2*len(tt.keys), events)
			}
			for _, k := range tt.keys {
				down := indexOf(events, "key:"+k+":true")
				up := indexOf(events, "key:"+k+":false")
				if down < 0 || up < 0 || up < down {
					t.Errorf("%s 的按下/抬起顺序不正确: %v", k, events)
				}
			}
		})
	}
}

func TestMoveCameraLongerKeyFirst(t *testing.T) {
	dev := newFakeDevice(0, 0)
	c := NewCamera(dev)
	c.sleep = noSleep
	// 水平 360° 约 3.56s，垂直 10° 约 0.19s
	if err := c.MoveCamera(context.Background(), 360, 10); err != nil {
		t.Fatal(err)
	}
	if events := dev.Events(); events[0] != "key:right:true" {
		t.Errorf("按住时间较长的方向键应先按下: %v", events)
	}
}

func TestHoldDurations(t *testing.T) {
	h, v := HoldDurations(-360, 90)
	if math.Abs(h.Seconds()-3.5626031001) > 1e-6 {
		t.Errorf("水平 360° = %v", h)
	}
	if math.Abs(v.Seconds()-1.75) > 1e-6 {
		t.Errorf("垂直 90° = %v", v)
	}
}

func TestSearchWithCameraBounds(t *testing.T) {
	c := NewCamera(newFakeDevice(0, 0))
	c.sleep = noSleep
	for i := 0; i < 50; i++ {
		theta, phi, err := c.SearchWithCamera(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if a := math.Abs(theta); a < 80 || a > 100 {
			t.Fatalf("theta = %v", theta)
		}
		if a := math.Abs(phi); a < 20 || a > 70 {
			t.Fatalf("phi = %v", phi)
		}
	}
}

func TestTrackedReleaseAll(t *testing.T) {
	dev := newFakeDevice(0, 0)
	tr := Track(dev)
	_ = tr.KeyToggle("left", true)
	_ = tr.KeyToggle("shift", true)
	_ = tr.KeyToggle("shift", false)
	_ = tr.Toggle(ButtonRight, true)

	if held := tr.Held(); len(held) != 1 || held[0] != "left" {
		t.Fatalf("Held = %v", held)
	}
	if err := tr.ReleaseAll(); err != nil {
		t.Fatal(err)
	}
	if held := tr.Held(); len(held) != 0 {
		t.Errorf("释放后仍有按键: %v", held)
	}
	events := dev.Events()
	if indexOf(events, "key:left:false") < 0 || indexOf(events, "mouse:right:false") < 0 {
		t.Errorf("未释放全部按键: %v", events)
	}
}

func TestParseStyle(t *testing.T) {
	if s, err := ParseStyle("wind"); err != nil || s != StyleWind {
		t.Errorf("ParseStyle(wind) = %v, %v", s, err)
	}
	if _, err := ParseStyle("teleport"); err == nil {
		t.Error("未知风格应返回错误")
	}
}

func assertEvents(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("事件 = %v, 期望 %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("事件 = %v, 期望 %v", got, want)
		}
	}
}

func indexOf(items []string, s string) int {
	for i, v := range items {
		if v == s {
			return i
		}
	}
	return -1
}

func BenchmarkBezierPath(b *testing.B) {
	from := geometry.Point{X: 0, Y: 0}
	to := geometry.Point{X: 800, Y: 600}
	p := DefaultBezierParams(from, to, SpeedFast)
	for i := 0; i < b.N; i++ {
		BezierPath(from, to, p)
	}
}
