// Package engine 把截图、颜色分割、模板匹配、OCR、鼠标与寻路组合为
// 面向客户端窗口的高层操作
//
// 基本用法:
//
//	e, err := engine.FromConfig(cfg)
//	if err != nil {
//	    return err
//	}
//	defer e.Close()
//
//	if _, err := e.Calibrate(ctx); err != nil {
//	    return err
//	}
//	found, err := e.MoveMouseToColorObject(ctx, e.Color(color.HSV, "cyan_mark"), 0, engine.DistAbsolute)
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zoeyai/zoeysight/internal/logger"
	"github.com/zoeyai/zoeysight/pkg/calibration"
	"github.com/zoeyai/zoeysight/pkg/color"
	"github.com/zoeyai/zoeysight/pkg/geometry"
	"github.com/zoeyai/zoeysight/pkg/humanize"
	"github.com/zoeyai/zoeysight/pkg/motion"
	"github.com/zoeyai/zoeysight/pkg/navigation"
	"github.com/zoeyai/zoeysight/pkg/vision/cv"
	"github.com/zoeyai/zoeysight/pkg/vision/ocr"
)

var log = logger.Module("engine")

var (
	// ErrNotCalibrated 尚未校准窗口
	ErrNotCalibrated = errors.New("窗口尚未校准")
	// ErrInvalidSleepBounds 休眠下界不小于上界
	ErrInvalidSleepBounds = errors.New("休眠下界必须小于上界")
)

// Locator 返回客户端窗口的屏幕矩形
type Locator func() (geometry.Rectangle, error)

// cameraMover 相机操作，测试中替换
type cameraMover interface {
	MoveCamera(ctx context.Context, horizontal, vertical float64) error
	SearchWithCamera(ctx context.Context) (theta, phi float64, err error)
}

// Engine 单个客户端窗口的自动化引擎
//
// 一个引擎同一时间只应由一个任务驱动；Regions 在重新校准时整体替换。
type Engine struct {
	capturer  geometry.Capturer
	device    *motion.Tracked
	mouse     *motion.Mouse
	camera    cameraMover
	palette   *color.Palette
	fonts     ocr.Fonts
	templates *cv.Library
	locate    Locator

	services  []navigation.PathService
	walkerCfg navigation.WalkerConfig

	mu      sync.RWMutex
	regions *calibration.Regions
	compass *navigation.CompassReader

	sleep       func(ctx context.Context, d time.Duration) error
	nearbyLimit time.Duration
}

// Option 引擎选项
type Option func(*Engine)

// WithPalette 使用指定调色板，默认为内置调色板
func WithPalette(p *color.Palette) Option {
	return func(e *Engine) { e.palette = p }
}

// WithFonts 使用已加载的字体
func WithFonts(fonts ocr.Fonts) Option {
	return func(e *Engine) { e.fonts = fonts }
}

// WithTemplates 使用模板库
func WithTemplates(lib *cv.Library) Option {
	return func(e *Engine) { e.templates = lib }
}

// WithLocator 设置窗口定位函数
func WithLocator(l Locator) Option {
	return func(e *Engine) { e.locate = l }
}

// WithMouseOptions 设置鼠标风格、速度等
func WithMouseOptions(opts ...motion.MouseOption) Option {
	return func(e *Engine) { e.mouse = motion.NewMouse(e.device, opts...) }
}

// WithPathServices 设置寻路服务，按顺序尝试
func WithPathServices(services ...navigation.PathService) Option {
	return func(e *Engine) { e.services = services }
}

// WithWalkerConfig 设置行走参数
func WithWalkerConfig(cfg navigation.WalkerConfig) Option {
	return func(e *Engine) { e.walkerCfg = cfg }
}

// WithRegions 使用已知的区域，跳过校准
func WithRegions(r *calibration.Regions) Option {
	return func(e *Engine) { e.regions = r }
}

// WithCompassReader 使用已加载的罗盘参考图
func WithCompassReader(r *navigation.CompassReader) Option {
	return func(e *Engine) { e.compass = r }
}

// New 创建引擎
func New(capturer geometry.Capturer, device motion.Device, opts ...Option) *Engine {
	tracked := motion.Track(device)
	e := &Engine{
		capturer:    capturer,
		device:      tracked,
		mouse:       motion.NewMouse(tracked),
		camera:      motion.NewCamera(tracked),
		palette:     color.DefaultPalette(),
		fonts:       ocr.Fonts{},
		walkerCfg:   navigation.DefaultWalkerConfig,
		sleep:       sleepCtx,
		nearbyLimit: 20 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Device 带按键跟踪的输入设备，停止任务时用于释放按键
func (e *Engine) Device() *motion.Tracked { return e.device }

// Mouse 鼠标
func (e *Engine) Mouse() *motion.Mouse { return e.mouse }

// Capturer 截图来源
func (e *Engine) Capturer() geometry.Capturer { return e.capturer }

// Palette 调色板
func (e *Engine) Palette() *color.Palette { return e.palette }

// Color 按名称取颜色，不存在时返回零值并记录警告
func (e *Engine) Color(space color.Space, name string) color.Color {
	c, err := e.palette.Get(space, name)
	if err != nil {
		log.Warn("%v", err)
	}
	return c
}

// Regions 当前校准结果
func (e *Engine) Regions() (*calibration.Regions, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.regions == nil {
		return nil, ErrNotCalibrated
	}
	return e.regions, nil
}

// Calibrate 定位窗口并重新推导全部区域
func (e *Engine) Calibrate(ctx context.Context) (*calibration.Regions, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.locate == nil {
		return nil, &calibration.WindowInitializationError{Cause: errors.New("未设置窗口定位函数")}
	}
	if e.templates == nil {
		return nil, &calibration.WindowInitializationError{Cause: errors.New("未设置模板库")}
	}

	window, err := e.locate()
	if err != nil {
		return nil, &calibration.WindowInitializationError{Cause: err}
	}

	regions, err := calibration.NewCalibrator(e.templates, e.capturer).Calibrate(window)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	// 布局变化后罗盘参考图不再适用
	if e.compass != nil && e.regions != nil && e.regions.Layout.Mode != regions.Layout.Mode {
		e.compass.Close()
		e.compass = nil
	}
	e.regions = regions
	e.mu.Unlock()
	return regions, nil
}

// Sleep 在 [lo, hi] 秒内休眠，偏向下界
func (e *Engine) Sleep(ctx context.Context, lo, hi float64) error {
	if lo >= hi {
		return fmt.Errorf("%w: %w: lo=%.3f, hi=%.3f", ErrInvalidSleepBounds, humanize.ErrInvalidBounds, lo, hi)
	}
	d := humanize.BiasedTruncNorm(lo, hi, false)
	return e.sleep(ctx, time.Duration(d*float64(time.Second)))
}

// pause 默认 0.1~0.3 秒的操作间隔
func (e *Engine) pause(ctx context.Context) error {
	return e.Sleep(ctx, 0.1, 0.3)
}

// font 取已加载字体
func (e *Engine) font(name string) (*ocr.Font, error) {
	return e.fonts.Get(name)
}

// Close 释放字体、模板与罗盘参考图
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.compass != nil {
		e.compass.Close()
		e.compass = nil
	}
	e.fonts.Close()
	if e.templates != nil {
		e.templates.Close()
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
