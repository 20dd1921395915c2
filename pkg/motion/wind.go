package motion

import (
	"math"
	"math/rand/v2"

	"github.com/zoeyai/zoeysight/pkg/geometry"
)

var (
	sqrt3 = math.Sqrt(3)
	sqrt5 = math.Sqrt(5)
)

// WindParams WindMouse 参数
type WindParams struct {
	Gravity     float64 // G0 引力
	Wind        float64 // W0 风力波动幅度
	MaxStep     float64 // M0 最大步长
	DampingDist float64 // D0 风力由随机转为衰减的距离
}

// DefaultWindParams G0=60, W0=30, M0=30, D0=30
var DefaultWindParams = WindParams{Gravity: 60, Wind: 30, MaxStep: 30, DampingDist: 30}

// windMaxIterations 防止极端参数下不收敛
const windMaxIterations = 10000

// WindPath 模拟受引力与风力作用的质点，生成到 to 的轨迹
//
// 只在取整后的位置变化时记录一个点，末尾总是落在 to 上。
func WindPath(from, to geometry.Point, p WindParams) []geometry.Point {
	x, y := float64(from.X), float64(from.Y)
	xf, yf := float64(to.X), float64(to.Y)
	maxStep := p.MaxStep

	var vx, vy, wx, wy float64
	var path []geometry.Point

	for i := 0; i < windMaxIterations; i++ {
		dist := math.Hypot(xf-x, yf-y)
		if dist < 1 {
			break
		}
		wMag := math.Min(p.Wind, dist)
		if dist >= p.DampingDist {
			wx = wx/sqrt3 + (2*rand.Float64()-1)*wMag/sqrt5
			wy = wy/sqrt3 + (2*rand.Float64()-1)*wMag/sqrt5
		} else {
			wx /= sqrt3
			wy /= sqrt3
			if maxStep < 3 {
				maxStep = rand.Float64()*3 + 3
			} else {
				maxStep /= sqrt5
			}
		}
		vx += wx + p.Gravity*(xf-x)/dist
		vy += wy + p.Gravity*(yf-y)/dist
		if vMag := math.Hypot(vx, vy); vMag > maxStep {
			clip := maxStep/2 + rand.Float64()*maxStep/2
			vx = vx / vMag * clip
			vy = vy / vMag * clip
		}
		x += vx
		y += vy
		mx, my := math.Round(x), math.Round(y)
		if x != mx || y != my {
			x, y = mx, my
			path = append(path, geometry.Point{X: int(mx), Y: int(my)})
		}
	}

	if len(path) == 0 || path[len(path)-1] != to {
		path = append(path, to)
	}
	return path
}
