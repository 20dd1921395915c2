// Package navigation 负责地块坐标、小地图像素与寻路
//
// 坐标约定: 地块坐标 x 向东增大、y 向北增大；小地图像素 x 向右、y 向下。
// 小地图可能随相机旋转，heading 为罗盘相对正北的顺时针角度。
package navigation

import (
	"math"

	"github.com/zoeyai/zoeysight/internal/logger"
	"github.com/zoeyai/zoeysight/pkg/geometry"
)

var log = logger.Module("navigation")

// PixelsPerTile 默认缩放下小地图每个地块的像素数
const PixelsPerTile = 4

// TileToMinimapOffset 计算目标地块相对小地图中心的像素偏移
func TileToMinimapOffset(cur, dest geometry.Point, headingDeg float64) geometry.Point {
	xReg := float64(dest.X-cur.X) * PixelsPerTile
	yReg := float64(cur.Y-dest.Y) * PixelsPerTile

	theta := headingDeg * math.Pi / 180
	sin, cos := math.Sincos(theta)
	return geometry.Point{
		X: int(math.RoundToEven(xReg*cos - yReg*sin)),
		Y: int(math.RoundToEven(xReg*sin + yReg*cos)),
	}
}

// HasArrived 判断是否位于以 dest 为中心、半边长 pad 的方形区域内
//
// pad 为 0 时要求恰好站在 dest 上。
func HasArrived(cur, dest geometry.Point, pad int) bool {
	if pad <= 0 {
		return cur == dest
	}
	return cur.X >= dest.X-pad && cur.X <= dest.X+pad &&
		cur.Y >= dest.Y-pad && cur.Y <= dest.Y+pad
}

// NextWaypoint 从终点往回找第一个在视野内的路径点，返回其下标
//
// 视野为以 cur 为中心、半边长 horizon 的方形。找不到返回 -1。
func NextWaypoint(path []geometry.Point, cur geometry.Point, horizon int) int {
	for i := len(path) - 1; i >= 0; i-- {
		dx := path[i].X - cur.X
		dy := path[i].Y - cur.Y
		if dx >= -horizon && dx <= horizon && dy >= -horizon && dy <= horizon {
			return i
		}
	}
	return -1
}

// Densify 在相距超过 maxDist 个地块的相邻路径点之间插入等距的中间点
func Densify(path []geometry.Point, maxDist float64) []geometry.Point {
	if len(path) == 0 {
		return nil
	}
	out := make([]geometry.Point, 0, len(path))
	out = append(out, path[0])
	for i := 0; i < len(path)-1; i++ {
		p1, p2 := path[i], path[i+1]
		if dist := p1.Dist(p2); dist > maxDist {
			n := int(math.Ceil(dist / maxDist))
			dx := float64(p2.X-p1.X) / float64(n)
			dy := float64(p2.Y-p1.Y) / float64(n)
			for k := 1; k < n; k++ {
				out = append(out, geometry.Point{
					X: int(math.RoundToEven(float64(p1.X) + float64(k)*dx)),
					Y: int(math.RoundToEven(float64(p1.Y) + float64(k)*dy)),
				})
			}
		}
		out = append(out, p2)
	}
	return out
}
