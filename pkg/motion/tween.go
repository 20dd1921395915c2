package motion

import "math"

// Tween 缓动函数，把 [0, 1] 上的进度映射到轨迹位置
type Tween func(t float64) float64

// EaseOutQuad 二次缓出
func EaseOutQuad(t float64) float64 {
	return -t * (t - 2)
}

// EaseOutElastic 弹性缓出（振幅 1，周期 0.3），末端会略微越过终点
func EaseOutElastic(t float64) float64 {
	const amplitude, period = 1.0, 0.3
	s := period / (2 * math.Pi) * math.Asin(1/amplitude)
	return amplitude*math.Pow(2, -10*t)*math.Sin((t-s)*(2*math.Pi/period)) + 1
}
