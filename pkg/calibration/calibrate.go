// Package calibration 把客户端窗口拆分为具名子区域
//
// 校准流程:
//  1. 在整窗截图中定位三个锚点：小地图（按布局依次尝试）、聊天框、控制面板
//  2. 按布局偏移表推导数十个子区域（状态球、聊天行、背包格子、法术等）
//  3. 为圆形区域附加逐行涂黑条带
//  4. 游戏视图 = 三个锚点的外包框减去锚点区域
//
// 任一锚点缺失时返回 WindowInitializationError，不会返回部分结果。
package calibration

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gocv.io/x/gocv"

	"github.com/zoeyai/zoeysight/internal/logger"
	"github.com/zoeyai/zoeysight/pkg/geometry"
	"github.com/zoeyai/zoeysight/pkg/vision/cv"
)

var log = logger.Module("calibration")

// TemplateFolder 锚点模板所在目录（相对模板库根目录）
const TemplateFolder = "ui_templates"

// 非布局相关的锚点模板
const (
	ChatTemplate         = "chat"
	ControlPanelTemplate = "control-panel"
)

// WindowInitializationError 校准失败
type WindowInitializationError struct {
	// Missing 未找到的锚点
	Missing []string
	Cause   error
}

func (e *WindowInitializationError) Error() string {
	var b strings.Builder
	b.WriteString("窗口初始化失败")
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, "，未找到: %s", strings.Join(e.Missing, ", "))
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, " (%v)", e.Cause)
	}
	b.WriteString("。请确认客户端窗口没有被遮挡、窗口完整显示在屏幕内，且界面处于经典布局（不是现代可缩放布局）")
	return b.String()
}

func (e *WindowInitializationError) Unwrap() error {
	return e.Cause
}

// Calibrator 在窗口截图中定位锚点并推导区域
type Calibrator struct {
	templates *cv.Library
	capturer  geometry.Capturer
	opts      []cv.MatchOption
}

// NewCalibrator 创建校准器，opts 作用于全部锚点搜索
func NewCalibrator(templates *cv.Library, capturer geometry.Capturer, opts ...cv.MatchOption) *Calibrator {
	return &Calibrator{templates: templates, capturer: capturer, opts: opts}
}

// Calibrate 校准窗口，window 为客户端窗口的屏幕矩形
func (c *Calibrator) Calibrate(window geometry.Rectangle) (*Regions, error) {
	start := time.Now()

	img, err := window.Capture(c.capturer)
	if err != nil {
		return nil, &WindowInitializationError{Cause: err}
	}
	defer img.Close()

	var missing []string
	var causes []error

	layout, minimap, err := c.locateMinimap(img, window)
	if err != nil {
		causes = append(causes, err)
	}
	if minimap == nil {
		missing = append(missing, "minimap")
	}

	chat, err := c.locate(img, window, ChatTemplate)
	if err != nil {
		causes = append(causes, err)
	}
	if chat == nil {
		missing = append(missing, "chat")
	}

	cp, err := c.locate(img, window, ControlPanelTemplate)
	if err != nil {
		causes = append(causes, err)
	}
	if cp == nil {
		missing = append(missing, "control_panel")
	}

	if len(missing) > 0 {
		elapsed := float64(time.Since(start).Milliseconds())
		log.LogEvent("calibrate", false, elapsed, strings.Join(missing, ","))
		return nil, &WindowInitializationError{Missing: missing, Cause: errors.Join(causes...)}
	}

	regions := Build(layout, *minimap, *chat, *cp)
	regions.Window = window
	if err := regions.validate(); err != nil {
		return nil, &WindowInitializationError{Cause: err}
	}

	elapsed := float64(time.Since(start).Milliseconds())
	log.LogEvent("calibrate", true, elapsed, layout.String())
	log.Info("窗口校准完成: 布局=%s, 游戏视图=%s", layout, regions.GameView)
	return regions, nil
}

// locateMinimap 依次尝试每种布局的小地图模板
func (c *Calibrator) locateMinimap(img gocv.Mat, window geometry.Rectangle) (Layout, *geometry.Rectangle, error) {
	var errs []error
	for _, layout := range Layouts {
		rect, err := c.locate(img, window, layout.Template())
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if rect != nil {
			log.Debug("检测到布局 %s: %s", layout, rect)
			return layout, rect, nil
		}
	}
	return Layout{}, nil, errors.Join(errs...)
}

// locate 在窗口截图中搜索锚点模板，返回屏幕坐标
func (c *Calibrator) locate(img gocv.Mat, window geometry.Rectangle, name string) (*geometry.Rectangle, error) {
	tmpl, err := c.templates.Get(TemplateFolder, name)
	if err != nil {
		return nil, fmt.Errorf("加载锚点模板 %s 失败: %w", name, err)
	}
	res, err := tmpl.MatchIn(img, c.opts...)
	if err != nil {
		var sizeErr *cv.ImageSizeError
		if errors.As(err, &sizeErr) {
			// 窗口比模板还小，视为未找到
			return nil, nil
		}
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	rect := res.Rect.Offset(window.Left, window.Top)
	return &rect, nil
}
