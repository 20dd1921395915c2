//go:build !windows

package auto

import "github.com/go-vgo/robotgo"

// NormalizePointForInput 非 Windows 平台无需缩放
func NormalizePointForInput(x, y int) (int, int) {
	return x, y
}

// NormalizePointForScreen 非 Windows 平台无需缩放
func NormalizePointForScreen(x, y int) (int, int) {
	return x, y
}

// NormalizeRegionForInput 非 Windows 平台无需缩放
func NormalizeRegionForInput(x, y, width, height int) (int, int, int, int) {
	return x, y, width, height
}

// NormalizeRegionForScreen 非 Windows 平台无需缩放
func NormalizeRegionForScreen(x, y, width, height int) (int, int, int, int) {
	return x, y, width, height
}

// ResetScaleCache 非 Windows 平台无操作
func ResetScaleCache() {}

// DPIScale 非 Windows 平台返回 1.0
func DPIScale() float64 {
	return 1.0
}

// PhysicalScreenSize 物理屏幕尺寸，macOS Retina 由 robotgo 自行处理
func PhysicalScreenSize() (width, height int) {
	return robotgo.GetScreenSize()
}
