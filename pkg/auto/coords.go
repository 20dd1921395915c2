// Package auto 提供截图像素坐标与输入坐标之间的换算
//
// 截图（robotgo、kbinani）始终以物理像素返回，而指针移动在高 DPI 的
// Windows 上可能使用逻辑坐标。识别结果都在截图空间，下发输入前需要
// 用 NormalizePointForInput 换算，读取指针位置后用 NormalizePointForScreen 换回。
package auto

import (
	"math"

	"github.com/zoeyai/zoeysight/internal/logger"
)

var log = logger.Module("auto")

// ScaleInt 缩放整数值
func ScaleInt(value int, factor float64) int {
	if factor <= 0 {
		return value
	}
	return int(math.Round(float64(value) * factor))
}

// normalizeScale 把探测到的比例收敛到合理值，接近 1 时视为无缩放
func normalizeScale(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 1.0
	}
	if v < 0.5 || v > 4.0 {
		return 1.0
	}
	if math.Abs(v-1.0) < 0.05 {
		return 1.0
	}
	return v
}

// scaleRegion 按比例换算区域，非零宽高至少保留 1 像素
func scaleRegion(x, y, width, height int, sx, sy float64) (int, int, int, int) {
	nx, ny := ScaleInt(x, sx), ScaleInt(y, sy)
	nw, nh := ScaleInt(width, sx), ScaleInt(height, sy)
	if width > 0 && nw < 1 {
		nw = 1
	}
	if height > 0 && nh < 1 {
		nh = 1
	}
	return nx, ny, nw, nh
}
