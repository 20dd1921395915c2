package motion

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/zoeyai/zoeysight/internal/logger"
	"github.com/zoeyai/zoeysight/pkg/geometry"
	"github.com/zoeyai/zoeysight/pkg/humanize"
)

var log = logger.Module("motion")

// Style 轨迹风格
type Style string

const (
	StyleBezier Style = "bezier"
	StyleWind   Style = "wind"
)

// ParseStyle 解析轨迹风格
func ParseStyle(s string) (Style, error) {
	switch Style(s) {
	case StyleBezier, StyleWind:
		return Style(s), nil
	default:
		return StyleBezier, fmt.Errorf("未知的轨迹风格: %q", s)
	}
}

// DefaultStepDelay 每个轨迹点之间的停顿
const DefaultStepDelay = 10 * time.Millisecond

// 点击按住时长（秒）
const (
	clickHoldMin  = 0.03
	clickHoldMax  = 0.2
	clickHoldMean = 0.06
)

// Mouse 拟人化指针控制
type Mouse struct {
	dev       Device
	style     Style
	speed     Speed
	stepDelay time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
}

// MouseOption 鼠标配置项
type MouseOption func(*Mouse)

// WithStyle 设置默认轨迹风格
func WithStyle(style Style) MouseOption {
	return func(m *Mouse) { m.style = style }
}

// WithSpeed 设置默认速度档位
func WithSpeed(speed Speed) MouseOption {
	return func(m *Mouse) { m.speed = speed }
}

// WithStepDelay 设置轨迹点之间的停顿
func WithStepDelay(d time.Duration) MouseOption {
	return func(m *Mouse) { m.stepDelay = d }
}

// NewMouse 创建鼠标，默认贝塞尔轨迹、fast 速度
func NewMouse(dev Device, opts ...MouseOption) *Mouse {
	m := &Mouse{
		dev:       dev,
		style:     StyleBezier,
		speed:     SpeedFast,
		stepDelay: DefaultStepDelay,
		sleep:     sleepCtx,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Device 底层设备
func (m *Mouse) Device() Device { return m.dev }

// Position 当前指针位置
func (m *Mouse) Position() geometry.Point { return m.dev.Position() }

// moveConfig 单次移动的参数
type moveConfig struct {
	style  Style
	speed  Speed
	knots  int
	tween  Tween
	wind   WindParams
	bezier *BezierParams
}

// MoveOption 单次移动的配置项
type MoveOption func(*moveConfig)

// MoveStyle 覆盖本次移动的轨迹风格
func MoveStyle(style Style) MoveOption {
	return func(c *moveConfig) { c.style = style }
}

// MoveSpeed 覆盖本次移动的速度档位
func MoveSpeed(speed Speed) MoveOption {
	return func(c *moveConfig) { c.speed = speed }
}

// MoveKnots 指定贝塞尔控制点数量，0 为直线
//
// 在右键菜单上移动时用 0 或 1 可以避免菜单被划走。
func MoveKnots(n int) MoveOption {
	return func(c *moveConfig) { c.knots = n }
}

// MoveTween 指定缓动函数
func MoveTween(t Tween) MoveOption {
	return func(c *moveConfig) { c.tween = t }
}

// MoveWind 指定 WindMouse 参数
func MoveWind(p WindParams) MoveOption {
	return func(c *moveConfig) { c.wind = p }
}

// MoveBezier 完整指定贝塞尔参数，优先于 MoveKnots/MoveTween/MoveSpeed
func MoveBezier(p BezierParams) MoveOption {
	return func(c *moveConfig) { c.bezier = &p }
}

// Path 生成从当前位置到 dest 的轨迹，不移动指针
func (m *Mouse) Path(dest geometry.Point, opts ...MoveOption) []geometry.Point {
	from := m.dev.Position()
	cfg := moveConfig{style: m.style, speed: m.speed, knots: -1, wind: DefaultWindParams}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.style == StyleWind {
		return WindPath(from, dest, cfg.wind)
	}

	params := DefaultBezierParams(from, dest, cfg.speed)
	if cfg.bezier != nil {
		params = *cfg.bezier
	} else {
		if cfg.knots >= 0 {
			params.Knots = cfg.knots
		}
		params.Tween = cfg.tween
	}
	return BezierPath(from, dest, params)
}

// MoveTo 沿拟人化轨迹把指针移到 dest（屏幕坐标）
//
// 每个轨迹点之间检查 ctx，取消时指针停在当前位置。
func (m *Mouse) MoveTo(ctx context.Context, dest geometry.Point, opts ...MoveOption) error {
	path := m.Path(dest, opts...)
	for _, pt := range path {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.dev.MoveTo(pt.X, pt.Y)
		if err := m.sleep(ctx, m.stepDelay); err != nil {
			return err
		}
	}
	return nil
}

// MoveRelative 相对当前位置移动 (x, y)，dx、dy 非零时在 ±dx、±dy 内抖动目标
func (m *Mouse) MoveRelative(ctx context.Context, x, y, dx, dy int, opts ...MoveOption) error {
	if dx != 0 {
		x += int(math.Round(humanize.TruncNorm(float64(-dx), float64(dx))))
	}
	if dy != 0 {
		y += int(math.Round(humanize.TruncNorm(float64(-dy), float64(dy))))
	}
	cur := m.dev.Position()
	return m.MoveTo(ctx, geometry.Point{X: cur.X + x, Y: cur.Y + y}, opts...)
}

// ClickOptions 点击参数
type ClickOptions struct {
	Button Button
	// HoldKey 非空时在点击期间按住该键（如 "shift"）
	HoldKey string
	// ForceDelay 在按下与抬起之间停顿 30~200ms
	ForceDelay bool
}

// DefaultClick 左键并带按住停顿
var DefaultClick = ClickOptions{Button: ButtonLeft, ForceDelay: true}

// Click 在当前位置点击
//
// 顺序: 修饰键按下 → 鼠标按下 → 停顿 → 鼠标抬起 → 修饰键抬起。
// 停顿被取消时仍会抬起已按下的按键。
func (m *Mouse) Click(ctx context.Context, opts ClickOptions) (err error) {
	if opts.Button == "" {
		opts.Button = ButtonLeft
	}
	if opts.HoldKey != "" {
		if err := m.dev.KeyToggle(opts.HoldKey, true); err != nil {
			return fmt.Errorf("按下 %s 失败: %w", opts.HoldKey, err)
		}
		defer func() {
			if upErr := m.dev.KeyToggle(opts.HoldKey, false); upErr != nil && err == nil {
				err = fmt.Errorf("抬起 %s 失败: %w", opts.HoldKey, upErr)
			}
		}()
	}

	if err := m.dev.Toggle(opts.Button, true); err != nil {
		return fmt.Errorf("按下鼠标 %s 失败: %w", opts.Button, err)
	}
	var holdErr error
	if opts.ForceDelay {
		hold := humanize.TruncNormWith(clickHoldMin, clickHoldMax, clickHoldMean, (clickHoldMax-clickHoldMin)/6)
		holdErr = m.sleep(ctx, seconds(hold))
	}
	if err := m.dev.Toggle(opts.Button, false); err != nil {
		return fmt.Errorf("抬起鼠标 %s 失败: %w", opts.Button, err)
	}
	return holdErr
}

// LeftClick 带停顿的左键点击
func (m *Mouse) LeftClick(ctx context.Context) error {
	return m.Click(ctx, DefaultClick)
}

// RightClick 右键点击，默认不停顿
func (m *Mouse) RightClick(ctx context.Context, forceDelay bool) error {
	return m.Click(ctx, ClickOptions{Button: ButtonRight, ForceDelay: forceDelay})
}

// Scroll 滚动 steps 次，每次之间按 pause 停顿
func (m *Mouse) Scroll(ctx context.Context, amount, steps int, pause func() time.Duration) error {
	for i := 0; i < steps; i++ {
		m.dev.Scroll(amount)
		if pause != nil {
			if err := m.sleep(ctx, pause()); err != nil {
				return err
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}
