package geometry

import (
	"image"
	"math"

	"gocv.io/x/gocv"

	"github.com/zoeyai/zoeysight/pkg/humanize"
)

const (
	// objectPointRetries 随机点落在轮廓外时的最大重试次数
	objectPointRetries = 100
	// objectPointPad 判断点是否在轮廓内时，向内收缩的像素数
	objectPointPad = 5
)

// Interior 轮廓内部像素集合
//
// 只保存每列的最小/最大行号和每行的最小/最大列号，
// 这足以支持带收缩边距的成员判断。创建后只读，可在多个对象间共享。
type Interior struct {
	width, height int
	count         int
	colMin        []int
	colMax        []int
	rowMin        []int
	rowMax        []int
}

// NewInterior 从单通道掩码创建内部像素集合（非零即前景）
func NewInterior(mask gocv.Mat) *Interior {
	w, h := mask.Cols(), mask.Rows()
	in := newEmptyInterior(w, h)

	data := mask.ToBytes()
	step := mask.Step()
	for y := 0; y < h; y++ {
		row := data[y*step : y*step+w]
		for x, v := range row {
			if v != 0 {
				in.add(x, y)
			}
		}
	}
	return in
}

// NewInteriorFromPoints 从点集创建内部像素集合
func NewInteriorFromPoints(width, height int, points []Point) *Interior {
	in := newEmptyInterior(width, height)
	for _, p := range points {
		if p.X >= 0 && p.X < width && p.Y >= 0 && p.Y < height {
			in.add(p.X, p.Y)
		}
	}
	return in
}

func newEmptyInterior(w, h int) *Interior {
	in := &Interior{
		width:  w,
		height: h,
		colMin: make([]int, w),
		colMax: make([]int, w),
		rowMin: make([]int, h),
		rowMax: make([]int, h),
	}
	for i := range in.colMin {
		in.colMin[i], in.colMax[i] = -1, -1
	}
	for i := range in.rowMin {
		in.rowMin[i], in.rowMax[i] = -1, -1
	}
	return in
}

func (in *Interior) add(x, y int) {
	if in.colMin[x] < 0 || y < in.colMin[x] {
		in.colMin[x] = y
	}
	if y > in.colMax[x] {
		in.colMax[x] = y
	}
	if in.rowMin[y] < 0 || x < in.rowMin[y] {
		in.rowMin[y] = x
	}
	if x > in.rowMax[y] {
		in.rowMax[y] = x
	}
	in.count++
}

// Len 前景像素数
func (in *Interior) Len() int {
	return in.count
}

// Contains 判断局部坐标点是否在轮廓内部，pad 为向内收缩的像素数
//
// 点需要同时满足：在所在列的 [ymin+pad, ymax-pad] 之间，
// 且在所在行的 [xmin+pad, xmax-pad] 之间。
func (in *Interior) Contains(p Point, pad int) bool {
	if in == nil || p.X < 0 || p.X >= in.width || p.Y < 0 || p.Y >= in.height {
		return false
	}
	if in.colMin[p.X] < 0 || in.rowMin[p.Y] < 0 {
		return false
	}
	return in.colMin[p.X]+pad <= p.Y && p.Y <= in.colMax[p.X]-pad &&
		in.rowMin[p.Y]+pad <= p.X && p.X <= in.rowMax[p.Y]-pad
}

// DetectedObject 颜色分割得到的屏幕对象
//
// 坐标均为所属矩形截图内的局部坐标。换算屏幕坐标前必须通过
// WithContainer 绑定所属矩形，否则返回 ErrNoContainer。
type DetectedObject struct {
	XMin   int `json:"xmin"`
	XMax   int `json:"xmax"`
	YMin   int `json:"ymin"`
	YMax   int `json:"ymax"`
	Width  int `json:"width"`
	Height int `json:"height"`

	// Interior 轮廓内部像素，分块对象共享同一个集合
	Interior *Interior `json:"-"`

	container    image.Rectangle
	hasContainer bool
}

// WithContainer 返回绑定所属矩形的副本
func (o DetectedObject) WithContainer(r Rectangle) DetectedObject {
	o.container = r.Bounds()
	o.hasContainer = true
	return o
}

// HasContainer 是否已绑定所属矩形
func (o DetectedObject) HasContainer() bool {
	return o.hasContainer
}

// Container 所属矩形
func (o DetectedObject) Container() (Rectangle, error) {
	if !o.hasContainer {
		return Rectangle{}, ErrNoContainer
	}
	b := o.container
	return Rectangle{Left: b.Min.X, Top: b.Min.Y, Width: b.Dx(), Height: b.Dy()}, nil
}

// Center 对象中心的屏幕坐标
func (o DetectedObject) Center() (Point, error) {
	if !o.hasContainer {
		return Point{}, ErrNoContainer
	}
	x := roundHalfEven(float64(o.XMin+o.XMax) / 2)
	y := roundHalfEven(float64(o.YMin+o.YMax) / 2)
	return Point{X: o.container.Min.X + x, Y: o.container.Min.Y + y}, nil
}

// containerCenter 所属矩形中心
func (o DetectedObject) containerCenter() Point {
	b := o.container
	return Point{X: b.Min.X + b.Dx()/2, Y: b.Min.Y + b.Dy()/2}
}

// DistFromContainerCenter 对象中心到所属矩形中心的距离，用于排序
func (o DetectedObject) DistFromContainerCenter() (float64, error) {
	c, err := o.Center()
	if err != nil {
		return 0, err
	}
	return c.Dist(o.containerCenter()), nil
}

// VertDistFromContainerCenter 垂直方向距离
func (o DetectedObject) VertDistFromContainerCenter() (float64, error) {
	c, err := o.Center()
	if err != nil {
		return 0, err
	}
	return math.Abs(float64(c.Y - o.containerCenter().Y)), nil
}

// HorzDistFromContainerCenter 水平方向距离
func (o DetectedObject) HorzDistFromContainerCenter() (float64, error) {
	c, err := o.Center()
	if err != nil {
		return 0, err
	}
	return math.Abs(float64(c.X - o.containerCenter().X)), nil
}

// RandomPoint 在对象轮廓内生成随机屏幕坐标
//
// 在包围盒内采样并用内部像素集合校验，最多重试 100 次，失败则返回中心点。
func (o DetectedObject) RandomPoint() (Point, error) {
	if !o.hasContainer {
		return Point{}, ErrNoContainer
	}

	for attempt := 0; attempt <= objectPointRetries; attempt++ {
		x, y := humanize.PointIn(o.XMin, o.YMin, o.Width, o.Height)
		p := Point{X: x, Y: y}
		if o.Interior.Contains(p, objectPointPad) {
			return Point{X: o.container.Min.X + x, Y: o.container.Min.Y + y}, nil
		}
	}
	return o.Center()
}

func roundHalfEven(v float64) int {
	return int(math.RoundToEven(v))
}
