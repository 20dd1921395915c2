package calibration

import (
	"math"

	"github.com/zoeyai/zoeysight/pkg/geometry"
)

// WidthTables 计算矩形内切椭圆每一行的左右边界
//
// left[i] 为第 i 行椭圆左侧需要涂黑的宽度，right[i] 为椭圆右侧开始涂黑的列。
// 罗盘、状态球和小地图都用它近似成圆形区域。
func WidthTables(width, height int) (left, right []int) {
	left = make([]int, height)
	right = make([]int, height)
	rx, ry := float64(width)/2, float64(height)/2

	for i := 0; i < height; i++ {
		dy := (float64(i) + 0.5 - ry) / ry
		half := rx * math.Sqrt(math.Max(0, 1-dy*dy))
		left[i] = int(math.Round(rx - half))
		right[i] = int(math.Round(rx + half))
	}
	return left, right
}

// stripsLeft 每行从左边界开始、宽度为 widths[i] 的 1 像素高条带
func stripsLeft(widths []int) []geometry.Rectangle {
	var out []geometry.Rectangle
	for i, w := range widths {
		if w != 0 {
			out = append(out, geometry.Rectangle{Left: 0, Top: i, Width: w, Height: 1})
		}
	}
	return out
}

// stripsRight 每行从 starts[i] 列开始直到右边界的 1 像素高条带
func stripsRight(regionWidth int, starts []int) []geometry.Rectangle {
	var out []geometry.Rectangle
	for i, x := range starts {
		if w := regionWidth - x; w != 0 {
			out = append(out, geometry.Rectangle{Left: x, Top: i, Width: w, Height: 1})
		}
	}
	return out
}

// rounded 为矩形附加内切椭圆之外的涂黑条带
func rounded(r geometry.Rectangle) geometry.Rectangle {
	left, right := WidthTables(r.Width, r.Height)
	r.Subtract = append(stripsLeft(left), stripsRight(r.Width, right)...)
	return r
}
