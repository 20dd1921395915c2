package calibration

import (
	"fmt"
	"strings"

	"github.com/zoeyai/zoeysight/pkg/geometry"
)

// Mode 客户端界面布局
type Mode int

const (
	// Fixed 固定尺寸经典布局
	Fixed Mode = iota
	// Resizable 可缩放经典布局
	Resizable
)

func (m Mode) String() string {
	switch m {
	case Fixed:
		return "fixed_classic"
	case Resizable:
		return "resizable_classic"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode 解析布局名称
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "fixed", "fixed_classic":
		return Fixed, nil
	case "resizable", "resizable_classic":
		return Resizable, nil
	}
	return 0, fmt.Errorf("未知布局: %s", s)
}

// box 相对锚点左上角的固定尺寸矩形
type box struct {
	dx, dy, w, h int
}

func (b box) at(anchor geometry.Rectangle) geometry.Rectangle {
	return geometry.Rectangle{Left: anchor.Left + b.dx, Top: anchor.Top + b.dy, Width: b.w, Height: b.h}
}

// grow 相对锚点平移并扩展尺寸的矩形
type grow struct {
	dx, dy, dw, dh int
}

func (g grow) at(anchor geometry.Rectangle) geometry.Rectangle {
	return geometry.Rectangle{
		Left:   anchor.Left + g.dx,
		Top:    anchor.Top + g.dy,
		Width:  anchor.Width + g.dw,
		Height: anchor.Height + g.dh,
	}
}

// offsets 小地图锚点及其派生区域的像素偏移
type offsets struct {
	template string

	minimapArea grow
	compass     box
	minimap     box
	// 依次为生命、祈祷、奔跑、特攻
	orbs    [4]box
	orbText [4]box

	// gridInfo 相对游戏视图左上角
	gridInfo geometry.Point
	// xpTotal.X 为距小地图区域左边界的距离，Y 相对游戏视图顶部
	xpTotal geometry.Point

	// gameViewPad 大于 0 时游戏视图去掉小地图列与聊天行，并保留该宽度的边框
	gameViewPad int
	// controlPanelSpansMinimap 控制面板遮挡区域与小地图区域同宽
	controlPanelSpansMinimap bool
}

// Layout 布局及其偏移表
type Layout struct {
	Mode    Mode
	offsets offsets
}

func (l Layout) String() string {
	return l.Mode.String()
}

// Template 布局对应的小地图模板名（ui_templates 目录下）
func (l Layout) Template() string {
	return l.offsets.template
}

var (
	// FixedLayout 固定尺寸经典布局
	FixedLayout = Layout{
		Mode: Fixed,
		offsets: offsets{
			template:    "minimap-fixed-classic",
			minimapArea: grow{dx: -1, dy: 0, dw: 48, dh: 4},
			compass:     box{27, 2, 34, 35},
			minimap:     box{52, 4, 147, 159},
			orbs: [4]box{
				{25, 43, 28, 28},
				{25, 77, 28, 28},
				{35, 109, 28, 28},
				{57, 134, 28, 28},
			},
			orbText: [4]box{
				{3, 54, 22, 14},
				{3, 88, 22, 14},
				{13, 120, 22, 14},
				{35, 145, 22, 14},
			},
			gridInfo:                 geometry.Point{X: 10, Y: 28},
			xpTotal:                  geometry.Point{X: 105, Y: 9},
			gameViewPad:              3,
			controlPanelSpansMinimap: true,
		},
	}

	// ResizableLayout 可缩放经典布局
	ResizableLayout = Layout{
		Mode: Resizable,
		offsets: offsets{
			template:    "minimap-resizable-classic",
			minimapArea: grow{dx: 0, dy: 0, dw: 1, dh: 15},
			compass:     box{33, 2, 37, 37},
			minimap:     box{48, 1, 162, 162},
			orbs: [4]box{
				{26, 48, 28, 28},
				{26, 82, 28, 28},
				{36, 114, 28, 28},
				{58, 139, 28, 28},
			},
			orbText: [4]box{
				{4, 59, 22, 14},
				{4, 93, 22, 14},
				{14, 125, 22, 14},
				{36, 150, 22, 14},
			},
			gridInfo: geometry.Point{X: 6, Y: 23},
			xpTotal:  geometry.Point{X: 144, Y: 4},
		},
	}

	// Layouts 按探测顺序排列的全部布局
	Layouts = []Layout{FixedLayout, ResizableLayout}
)

// LayoutFor 按模式取布局
func LayoutFor(m Mode) (Layout, error) {
	for _, l := range Layouts {
		if l.Mode == m {
			return l, nil
		}
	}
	return Layout{}, fmt.Errorf("未知布局: %s", m)
}
