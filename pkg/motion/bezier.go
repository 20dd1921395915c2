package motion

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/zoeyai/zoeysight/pkg/geometry"
	"github.com/zoeyai/zoeysight/pkg/humanize"
)

// Speed 指针移动速度档位，决定贝塞尔轨迹的采样点数
type Speed string

const (
	SpeedSlowest Speed = "slowest"
	SpeedSlow    Speed = "slow"
	SpeedMedium  Speed = "medium"
	SpeedFast    Speed = "fast"
	SpeedFastest Speed = "fastest"
)

// 每个档位的采样点数区间
var speedBands = map[Speed][2]float64{
	SpeedSlowest: {85, 100},
	SpeedSlow:    {65, 80},
	SpeedMedium:  {45, 60},
	SpeedFast:    {20, 30},
	SpeedFastest: {10, 15},
}

// ParseSpeed 解析速度档位
func ParseSpeed(s string) (Speed, error) {
	speed := Speed(s)
	if _, ok := speedBands[speed]; !ok {
		return SpeedFast, fmt.Errorf("未知的移动速度: %q", s)
	}
	return speed, nil
}

// TargetPoints 在档位区间内按截断正态采样点数，未知档位按 fast 处理
func (s Speed) TargetPoints() int {
	band, ok := speedBands[s]
	if !ok {
		band = speedBands[SpeedFast]
	}
	return int(math.Round(humanize.TruncNorm(band[0], band[1])))
}

// BezierParams 贝塞尔轨迹参数
type BezierParams struct {
	// OffsetBoundaryX/Y 内部控制点可超出起终点包围盒的距离
	OffsetBoundaryX int
	OffsetBoundaryY int
	// Knots 内部控制点数量，0 为直线
	Knots int
	// 纵向扰动：以 DistortionFreq 的概率给中间点加 N(mean, std)
	DistortionMean float64
	DistortionStd  float64
	DistortionFreq float64
	// Tween 为 nil 时随机选择 EaseOutElastic 或 EaseOutQuad
	Tween        Tween
	TargetPoints int
}

// DefaultBezierParams 按距离和速度生成默认参数
func DefaultBezierParams(from, to geometry.Point, speed Speed) BezierParams {
	return BezierParams{
		OffsetBoundaryX: 100,
		OffsetBoundaryY: 100,
		Knots:           KnotsFor(from, to),
		DistortionMean:  1,
		DistortionStd:   1,
		DistortionFreq:  0.5,
		TargetPoints:    speed.TargetPoints(),
	}
}

// KnotsFor 按距离决定控制点数量，每 200 像素一个，最多 3 个
func KnotsFor(from, to geometry.Point) int {
	return min(int(math.Round(from.Dist(to)/200)), 3)
}

// BezierPath 生成从 from 到 to 的贝塞尔轨迹，首尾点分别为起点和终点
func BezierPath(from, to geometry.Point, p BezierParams) []geometry.Point {
	left := min(from.X, to.X) - p.OffsetBoundaryX
	right := max(from.X, to.X) + p.OffsetBoundaryX
	down := min(from.Y, to.Y) - p.OffsetBoundaryY
	up := max(from.Y, to.Y) + p.OffsetBoundaryY

	knots := make([][2]float64, 0, p.Knots+2)
	knots = append(knots, [2]float64{float64(from.X), float64(from.Y)})
	for i := 0; i < p.Knots; i++ {
		knots = append(knots, [2]float64{
			float64(randIn(left, right)),
			float64(randIn(down, up)),
		})
	}
	knots = append(knots, [2]float64{float64(to.X), float64(to.Y)})

	mid := max(abs(from.X-to.X), abs(from.Y-to.Y), 2)
	curve := bernsteinCurve(mid, knots)
	distort(curve, p.DistortionMean, p.DistortionStd, p.DistortionFreq)

	tween := p.Tween
	if tween == nil {
		tween = humanize.Pick[Tween](EaseOutElastic, EaseOutQuad)
	}
	n := max(p.TargetPoints, 2)

	path := make([]geometry.Point, 0, n)
	for i := 0; i < n; i++ {
		idx := int(tween(float64(i)/float64(n-1)) * float64(len(curve)-1))
		// 弹性缓动会越过 1
		idx = max(0, min(idx, len(curve)-1))
		pt := curve[idx]
		path = append(path, geometry.Point{X: int(math.Round(pt[0])), Y: int(math.Round(pt[1]))})
	}
	return path
}

// bernsteinCurve 在 [0, 1] 上等距取 n 个参数点计算贝塞尔曲线
func bernsteinCurve(n int, knots [][2]float64) [][2]float64 {
	degree := len(knots) - 1
	out := make([][2]float64, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n-1)
		var x, y float64
		for k, kp := range knots {
			b := binomial(degree, k) * math.Pow(t, float64(k)) * math.Pow(1-t, float64(degree-k))
			x += b * kp[0]
			y += b * kp[1]
		}
		out[i] = [2]float64{x, y}
	}
	return out
}

// distort 对首尾以外的点做纵向扰动
func distort(points [][2]float64, mean, std, freq float64) {
	for i := 1; i < len(points)-1; i++ {
		if rand.Float64() < freq {
			points[i][1] += rand.NormFloat64()*std + mean
		}
	}
}

func binomial(n, k int) float64 {
	r := 1.0
	for i := 1; i <= k; i++ {
		r = r * float64(n-k+i) / float64(i)
	}
	return r
}

// randIn 在 [lo, hi) 上取整数
func randIn(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rand.IntN(hi-lo)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
