// Package color 定义颜色与调色板
//
// 视觉编码 RGB、BGR 之间只是通道顺序不同，可以无损互转；
// HSV 为分析编码（OpenCV 刻度，色相 0~179），仅用于轮廓分割，
// 不与视觉编码互转。
package color

import (
	"errors"
	"fmt"
)

// Space 颜色编码
type Space int

const (
	RGB Space = iota
	BGR
	HSV
)

func (s Space) String() string {
	switch s {
	case RGB:
		return "rgb"
	case BGR:
		return "bgr"
	case HSV:
		return "hsv"
	default:
		return fmt.Sprintf("Space(%d)", int(s))
	}
}

// ParseSpace 解析编码名称
func ParseSpace(s string) (Space, error) {
	switch s {
	case "rgb", "RGB":
		return RGB, nil
	case "bgr", "BGR":
		return BGR, nil
	case "hsv", "HSV":
		return HSV, nil
	}
	return 0, fmt.Errorf("未知颜色编码: %q", s)
}

// ErrUnsupportedConversion 视觉编码与分析编码之间不做转换
var ErrUnsupportedConversion = errors.New("不支持在视觉编码与 HSV 之间转换")

// Color 单色或闭区间颜色
//
// Lower == Upper 时表示单色。通道顺序由 Space 决定。
type Color struct {
	Name  string   `json:"name,omitempty"`
	Lower [3]uint8 `json:"lower"`
	Upper [3]uint8 `json:"upper"`
	Space Space    `json:"space"`
}

// New 创建单色
func New(space Space, c [3]uint8) Color {
	return Color{Lower: c, Upper: c, Space: space}
}

// NewRange 创建颜色区间
func NewRange(space Space, lower, upper [3]uint8) Color {
	return Color{Lower: lower, Upper: upper, Space: space}
}

// IsSingle 是否为单色
func (c Color) IsSingle() bool {
	return c.Lower == c.Upper
}

// Corrected 按通道取 min/max，保证 lower <= upper
//
// 区间写反（例如色相 lower=10, upper=5）时等价于 [5, 10]。
func (c Color) Corrected() Color {
	out := c
	for i := 0; i < 3; i++ {
		out.Lower[i] = min(c.Lower[i], c.Upper[i])
		out.Upper[i] = max(c.Lower[i], c.Upper[i])
	}
	return out
}

// Convert 转换到目标编码
//
// RGB 与 BGR 互转为通道置换，同编码原样返回，涉及 HSV 的转换返回错误。
func (c Color) Convert(to Space) (Color, error) {
	if c.Space == to {
		return c, nil
	}
	if c.Space == HSV || to == HSV {
		return Color{}, fmt.Errorf("%s -> %s: %w", c.Space, to, ErrUnsupportedConversion)
	}

	out := c
	out.Lower = swap(c.Lower)
	out.Upper = swap(c.Upper)
	out.Space = to
	return out, nil
}

// Named 返回带名称的副本
func (c Color) Named(name string) Color {
	c.Name = name
	return c
}

func (c Color) String() string {
	name := c.Name
	if name == "" {
		name = "color"
	}
	if c.IsSingle() {
		return fmt.Sprintf("%s(%s%v)", name, c.Space, c.Lower)
	}
	return fmt.Sprintf("%s(%s%v..%v)", name, c.Space, c.Lower, c.Upper)
}

func swap(v [3]uint8) [3]uint8 {
	return [3]uint8{v[2], v[1], v[0]}
}
