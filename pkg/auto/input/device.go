// Package input 通过 robotgo 驱动系统指针与键盘，实现 motion.Device
package input

import (
	"fmt"

	"github.com/go-vgo/robotgo"

	"github.com/zoeyai/zoeysight/pkg/auto"
	"github.com/zoeyai/zoeysight/pkg/geometry"
	"github.com/zoeyai/zoeysight/pkg/motion"
)

// Device robotgo 输入设备，坐标均为截图像素
type Device struct{}

// NewDevice 创建输入设备
func NewDevice() *Device { return &Device{} }

var _ motion.Device = (*Device)(nil)

// Position 当前指针位置
func (d *Device) Position() geometry.Point {
	x, y := robotgo.Location()
	sx, sy := auto.NormalizePointForScreen(x, y)
	return geometry.Point{X: sx, Y: sy}
}

// MoveTo 把指针瞬移到 (x, y)
func (d *Device) MoveTo(x, y int) {
	ix, iy := auto.NormalizePointForInput(x, y)
	robotgo.Move(ix, iy)
}

// Toggle 按下或抬起鼠标按键
func (d *Device) Toggle(button motion.Button, down bool) error {
	if err := robotgo.Toggle(string(button), direction(down)); err != nil {
		return fmt.Errorf("鼠标 %s %s 失败: %w", button, direction(down), err)
	}
	return nil
}

// KeyToggle 按下或抬起键盘按键
func (d *Device) KeyToggle(key string, down bool) error {
	if err := robotgo.KeyToggle(key, direction(down)); err != nil {
		return fmt.Errorf("按键 %s %s 失败: %w", key, direction(down), err)
	}
	return nil
}

// Scroll 垂直滚动，正数向上
func (d *Device) Scroll(amount int) {
	switch {
	case amount > 0:
		robotgo.ScrollDir(amount, "up")
	case amount < 0:
		robotgo.ScrollDir(-amount, "down")
	}
}

// TypeText 输入文字
func (d *Device) TypeText(text string) {
	robotgo.TypeStr(text)
}

func direction(down bool) string {
	if down {
		return "down"
	}
	return "up"
}
