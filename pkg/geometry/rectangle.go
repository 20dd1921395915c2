package geometry

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/zoeyai/zoeysight/pkg/humanize"
)

// Capturer 像素来源：按屏幕坐标截取区域
//
// 返回的 Mat 可以是 BGRA、BGR 或灰度图，调用方负责 Close。
type Capturer interface {
	CaptureRegion(x, y, width, height int) (gocv.Mat, error)
}

// Rectangle 可截图的屏幕矩形区域
type Rectangle struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`

	// Subtract 每次截图后涂黑的子区域（局部坐标），用于近似非矩形区域
	Subtract []Rectangle `json:"subtract,omitempty"`

	// 参照矩形（值拷贝），仅用于相对距离查询
	ref    image.Rectangle
	hasRef bool
}

// NewRectangle 创建矩形，宽高不能为负
func NewRectangle(left, top, width, height int) (Rectangle, error) {
	if width < 0 || height < 0 {
		return Rectangle{}, fmt.Errorf("矩形宽高不能为负: width=%d, height=%d", width, height)
	}
	return Rectangle{Left: left, Top: top, Width: width, Height: height}, nil
}

// FromPoints 由左上角和右下角创建矩形
func FromPoints(start, end Point) (Rectangle, error) {
	return NewRectangle(start.X, start.Y, end.X-start.X, end.Y-start.Y)
}

// WithReference 返回带参照矩形的副本
func (r Rectangle) WithReference(parent Rectangle) Rectangle {
	r.ref = parent.Bounds()
	r.hasRef = true
	return r
}

// Bounds 转换为 image.Rectangle
func (r Rectangle) Bounds() image.Rectangle {
	return image.Rect(r.Left, r.Top, r.Left+r.Width, r.Top+r.Height)
}

// Center 中心点
func (r Rectangle) Center() Point {
	return Point{X: r.Left + r.Width/2, Y: r.Top + r.Height/2}
}

// TopLeft 左上角
func (r Rectangle) TopLeft() Point { return Point{X: r.Left, Y: r.Top} }

// TopRight 右上角
func (r Rectangle) TopRight() Point { return Point{X: r.Left + r.Width, Y: r.Top} }

// BottomLeft 左下角
func (r Rectangle) BottomLeft() Point { return Point{X: r.Left, Y: r.Top + r.Height} }

// BottomRight 右下角
func (r Rectangle) BottomRight() Point {
	return Point{X: r.Left + r.Width, Y: r.Top + r.Height}
}

// Area 面积
func (r Rectangle) Area() int {
	return r.Width * r.Height
}

// Contains 判断屏幕坐标点是否在矩形内（右、下边界不含）
func (r Rectangle) Contains(p Point) bool {
	return p.X >= r.Left && p.X < r.Left+r.Width && p.Y >= r.Top && p.Y < r.Top+r.Height
}

// Offset 平移矩形，子区域保持不变
func (r Rectangle) Offset(dx, dy int) Rectangle {
	r.Left += dx
	r.Top += dy
	return r
}

// DistanceFromCenter 本矩形中心到参照矩形中心的距离
func (r Rectangle) DistanceFromCenter() (float64, error) {
	if !r.hasRef {
		return 0, ErrNoReference
	}
	refCenter := Point{X: r.ref.Min.X + r.ref.Dx()/2, Y: r.ref.Min.Y + r.ref.Dy()/2}
	return r.Center().Dist(refCenter), nil
}

// RandomPoint 在矩形内生成一个拟人的随机点
// 四周收缩 10%~15% 后按截断正态分布采样，避免落在边缘
func (r Rectangle) RandomPoint() Point {
	x, y := humanize.PointIn(r.Left, r.Top, r.Width, r.Height)
	return Point{X: x, Y: y}
}

// Capture 截取矩形区域，返回 BGR 图像
//
// 先截取完整包围盒并丢弃 alpha 通道，再把 Subtract 中的每个子区域置零。
func (r Rectangle) Capture(c Capturer) (gocv.Mat, error) {
	src, err := c.CaptureRegion(r.Left, r.Top, r.Width, r.Height)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("截取区域 %s 失败: %w", r, err)
	}
	defer src.Close()

	img := ToBGR(src)
	r.applySubtract(&img)
	return img, nil
}

// applySubtract 子区域置零
func (r Rectangle) applySubtract(img *gocv.Mat) {
	bounds := image.Rect(0, 0, img.Cols(), img.Rows())
	for _, s := range r.Subtract {
		area := image.Rect(s.Left, s.Top, s.Left+s.Width, s.Top+s.Height).Intersect(bounds)
		if area.Empty() {
			continue
		}
		roi := img.Region(area)
		roi.SetTo(gocv.NewScalar(0, 0, 0, 0))
		roi.Close()
	}
}

// ToMap 转换为 map，供日志与快照使用
func (r Rectangle) ToMap() map[string]int {
	return map[string]int{
		"left":   r.Left,
		"top":    r.Top,
		"width":  r.Width,
		"height": r.Height,
	}
}

func (r Rectangle) String() string {
	return fmt.Sprintf("Rectangle(x=%d, y=%d, w=%d, h=%d)", r.Left, r.Top, r.Width, r.Height)
}

// ToBGR 把任意通道数的图像转换为新的 BGR 图像
func ToBGR(src gocv.Mat) gocv.Mat {
	dst := gocv.NewMat()
	switch src.Channels() {
	case 4:
		gocv.CvtColor(src, &dst, gocv.ColorBGRAToBGR)
	case 1:
		gocv.CvtColor(src, &dst, gocv.ColorGrayToBGR)
	default:
		src.CopyTo(&dst)
	}
	return dst
}
