// Package humanize 提供模拟人类操作的随机采样工具
//
// 截断正态、偏置截断正态、截断卡方等分布用于生成点击位置、
// 等待时长和鼠标轨迹参数。
package humanize

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

// ErrInvalidBounds 区间上下界非法（下界不小于上界）
var ErrInvalidBounds = errors.New("区间下界必须小于上界")

// maxResample 截断采样的最大重采样次数，超出后回退到区间内的夹取值
const maxResample = 10000

// TruncNorm 从截断正态分布采样，均值为区间中点，标准差为区间宽度的 1/6
func TruncNorm(lo, hi float64) float64 {
	return TruncNormWith(lo, hi, (lo+hi)/2, (hi-lo)/6)
}

// TruncNormWith 使用指定均值和标准差从 [lo, hi] 截断正态分布采样
// 超出区间的样本被丢弃重采样
func TruncNormWith(lo, hi, mean, std float64) float64 {
	if hi <= lo || std <= 0 {
		return clamp(mean, lo, math.Max(lo, hi))
	}

	for i := 0; i < maxResample; i++ {
		sample := rand.NormFloat64()*std + mean
		if sample >= lo && sample <= hi {
			return sample
		}
	}
	return clamp(mean, lo, hi)
}

// BiasedTruncNorm 从两个子分布混合而成的截断正态分布采样
//
// 子分布均值位于区间的 1/3 和 2/3 处，权重为 1:4。
// preferHigh 为 false 时偏向下界（均值 1/3 处的权重为 0.8）。
func BiasedTruncNorm(lo, hi float64, preferHigh bool) float64 {
	means := [2]float64{
		lo + (hi-lo)/3,
		lo + (hi-lo)*2/3,
	}

	// 权重 (i+1)^2 / Σ(j+1)^2 => [0.2, 0.8]
	pHigh := 0.8
	if !preferHigh {
		pHigh = 0.2
	}

	mean := means[0]
	if rand.Float64() < pHigh {
		mean = means[1]
	}
	return TruncNormWith(lo, hi, mean, (hi-lo)/6)
}

// TruncChiSquared 从自由度为 df 的卡方分布采样并截断到 [min, max]
// max 传 math.Inf(1) 表示无上界
func TruncChiSquared(df int, min, max float64) float64 {
	if df < 1 {
		df = 1
	}
	for i := 0; i < maxResample; i++ {
		x := 0.0
		for k := 0; k < df; k++ {
			z := rand.NormFloat64()
			x += z * z
		}
		if x >= min && x <= max {
			return x
		}
	}
	return clamp(float64(df), min, max)
}

// Chance 以概率 prob 返回 true
func Chance(prob float64) (bool, error) {
	if prob < 0 || prob > 1 || math.IsNaN(prob) {
		return false, fmt.Errorf("概率必须在 0 到 1 之间: %v", prob)
	}
	return rand.Float64() <= prob, nil
}

// Uniform 在 [lo, hi) 上均匀采样
func Uniform(lo, hi float64) float64 {
	return lo + rand.Float64()*(hi-lo)
}

// IntBetween 在 [lo, hi] 上均匀采样整数
func IntBetween(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rand.IntN(hi-lo+1)
}

// Pick 从候选中随机选择一个
func Pick[T any](items ...T) T {
	return items[rand.IntN(len(items))]
}

// PointIn 在包围盒内按截断正态生成点
//
// 包围盒四周随机收缩 10%~15%，再以收缩后盒子的中心为均值、
// 边长的 1/6 为标准差分别对 x、y 采样。
func PointIn(xmin, ymin, width, height int) (x, y int) {
	padding := Uniform(0.10, 0.15)
	innerX := roundInt(float64(xmin) + float64(width)*padding)
	innerY := roundInt(float64(ymin) + float64(height)*padding)
	innerW := roundInt(float64(width) * (1 - padding*2))
	innerH := roundInt(float64(height) * (1 - padding*2))
	return pointFrom(innerX, innerY, innerW, innerH)
}

// PointAround 在点 (px, py) 周围 ±xpad、±ypad 的范围内生成点
func PointAround(px, py, xpad, ypad int) (x, y int) {
	return PointIn(px-xpad, py-ypad, 2*xpad, 2*ypad)
}

// pointFrom 不收缩，直接在盒子内按截断正态采样
func pointFrom(xmin, ymin, width, height int) (int, int) {
	xmax := xmin + width
	ymax := ymin + height
	xCenter := float64(xmin + roundInt(float64(xmax-xmin)/2))
	yCenter := float64(ymin + roundInt(float64(ymax-ymin)/2))

	x := roundInt(TruncNormWith(float64(xmin), float64(xmax), xCenter, float64(width)/6))
	y := roundInt(TruncNormWith(float64(ymin), float64(ymax), yCenter, float64(height)/6))
	return x, y
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// roundInt 四舍六入五成双，与像素坐标取整规则保持一致
func roundInt(v float64) int {
	return int(math.RoundToEven(v))
}
