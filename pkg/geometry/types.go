// Package geometry 提供屏幕几何模型：点、矩形区域、区域截图与子区域剔除，
// 以及从颜色分割中得到的屏幕对象。
//
// 基本用法:
//
//	rect := geometry.Rectangle{Left: 100, Top: 100, Width: 200, Height: 150}
//	rect.Subtract = []geometry.Rectangle{{Left: 0, Top: 0, Width: 20, Height: 20}}
//	img, err := rect.Capture(capturer)
//	if err != nil {
//	    return err
//	}
//	defer img.Close()
package geometry

import (
	"errors"
	"fmt"
	"math"
)

// ErrNoReference 查询相对距离时缺少参照矩形
var ErrNoReference = errors.New("缺少参照矩形，无法计算相对距离")

// ErrNoContainer 屏幕对象缺少所属矩形，无法换算屏幕坐标
var ErrNoContainer = errors.New("屏幕对象缺少所属矩形引用")

// Point 表示二维坐标点（像素坐标或地块坐标）
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add 返回两点之和
func (p Point) Add(o Point) Point {
	return Point{X: p.X + o.X, Y: p.Y + o.Y}
}

// Sub 返回两点之差
func (p Point) Sub(o Point) Point {
	return Point{X: p.X - o.X, Y: p.Y - o.Y}
}

// Dist 欧氏距离
func (p Point) Dist(o Point) float64 {
	return math.Hypot(float64(p.X-o.X), float64(p.Y-o.Y))
}

func (p Point) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// CosineSimilarity 计算两个向量的余弦相似度，结果限定在 [-1, 1]
func CosineSimilarity(v1, v2 []float64) (float64, error) {
	if len(v1) != len(v2) {
		return 0, fmt.Errorf("向量维度不一致: %d != %d", len(v1), len(v2))
	}

	var dot, n1, n2 float64
	for i := range v1 {
		dot += v1[i] * v2[i]
		n1 += v1[i] * v1[i]
		n2 += v2[i] * v2[i]
	}
	if n1 == 0 || n2 == 0 {
		return 0, errors.New("零向量没有方向，无法计算余弦相似度")
	}

	sim := dot / (math.Sqrt(n1) * math.Sqrt(n2))
	return math.Max(-1, math.Min(1, sim)), nil
}
