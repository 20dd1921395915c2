package geometry

import (
	"errors"
	"math"
	"testing"

	"gocv.io/x/gocv"
)

// fakeCapturer 返回纯色 BGRA 图像
type fakeCapturer struct {
	calls int
}

func (f *fakeCapturer) CaptureRegion(x, y, width, height int) (gocv.Mat, error) {
	f.calls++
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(40, 80, 120, 255), height, width, gocv.MatTypeCV8UC4), nil
}

func TestNewRectangleRejectsNegative(t *testing.T) {
	if _, err := NewRectangle(0, 0, -1, 10); err == nil {
		t.Error("负宽度应返回错误")
	}
	r, err := NewRectangle(5, 6, 7, 8)
	if err != nil {
		t.Fatalf("合法矩形不应报错: %v", err)
	}
	if r.BottomRight() != (Point{X: 12, Y: 14}) {
		t.Errorf("右下角错误: %v", r.BottomRight())
	}
}

func TestFromPoints(t *testing.T) {
	r, err := FromPoints(Point{X: 10, Y: 20}, Point{X: 40, Y: 60})
	if err != nil {
		t.Fatal(err)
	}
	if r.Width != 30 || r.Height != 40 {
		t.Errorf("FromPoints 尺寸错误: %s", r)
	}
}

func TestCaptureDropsAlpha(t *testing.T) {
	r := Rectangle{Left: 0, Top: 0, Width: 20, Height: 10}
	img, err := r.Capture(&fakeCapturer{})
	if err != nil {
		t.Fatalf("截图失败: %v", err)
	}
	defer img.Close()

	if img.Channels() != 3 {
		t.Errorf("截图应为 3 通道, 实际 %d", img.Channels())
	}
	v := img.GetVecbAt(5, 5)
	if v[0] != 40 || v[1] != 80 || v[2] != 120 {
		t.Errorf("像素值错误: %v", v)
	}
}

func TestCaptureSubtractFullCoverageIsBlack(t *testing.T) {
	r := Rectangle{Left: 50, Top: 50, Width: 30, Height: 20}
	r.Subtract = []Rectangle{
		{Left: 0, Top: 0, Width: 30, Height: 10},
		{Left: 0, Top: 10, Width: 30, Height: 10},
	}

	img, err := r.Capture(&fakeCapturer{})
	if err != nil {
		t.Fatalf("截图失败: %v", err)
	}
	defer img.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	if n := gocv.CountNonZero(gray); n != 0 {
		t.Errorf("全部剔除后应全黑, 非零像素 %d", n)
	}
}

func TestCapturePartialSubtract(t *testing.T) {
	r := Rectangle{Width: 10, Height: 10}
	// 超出边界的部分应被裁掉
	r.Subtract = []Rectangle{{Left: 5, Top: 0, Width: 50, Height: 1}}

	img, err := r.Capture(&fakeCapturer{})
	if err != nil {
		t.Fatal(err)
	}
	defer img.Close()

	if v := img.GetVecbAt(0, 7); v[0] != 0 {
		t.Errorf("剔除区域应为黑色: %v", v)
	}
	if v := img.GetVecbAt(0, 2); v[0] != 40 {
		t.Errorf("非剔除区域应保留原值: %v", v)
	}
	if v := img.GetVecbAt(1, 7); v[0] != 40 {
		t.Errorf("第二行不应被剔除: %v", v)
	}
}

func TestDistanceFromCenterRequiresReference(t *testing.T) {
	r := Rectangle{Left: 10, Top: 10, Width: 10, Height: 10}
	if _, err := r.DistanceFromCenter(); !errors.Is(err, ErrNoReference) {
		t.Errorf("缺少参照矩形应返回 ErrNoReference, 实际 %v", err)
	}

	parent := Rectangle{Left: 0, Top: 0, Width: 30, Height: 60}
	d, err := r.WithReference(parent).DistanceFromCenter()
	if err != nil {
		t.Fatal(err)
	}
	// (15,15) 到 (15,30)
	if d != 15 {
		t.Errorf("距离错误: %v", d)
	}
}

func TestCosineSimilarity(t *testing.T) {
	vectors := [][]float64{
		{1, 2, 3},
		{-4, 0.5, 7},
		{0.001, 1000},
	}
	for _, v := range vectors {
		neg := make([]float64, len(v))
		for i := range v {
			neg[i] = -v[i]
		}

		same, err := CosineSimilarity(v, v)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(same-1) > 1e-12 {
			t.Errorf("同向向量相似度应为 1, 实际 %v", same)
		}

		opp, _ := CosineSimilarity(v, neg)
		if math.Abs(opp+1) > 1e-12 {
			t.Errorf("反向向量相似度应为 -1, 实际 %v", opp)
		}
	}

	if _, err := CosineSimilarity([]float64{0, 0}, []float64{1, 1}); err == nil {
		t.Error("零向量应返回错误")
	}
	if _, err := CosineSimilarity([]float64{1}, []float64{1, 1}); err == nil {
		t.Error("维度不一致应返回错误")
	}
}

func squareInterior(size int) *Interior {
	var pts []Point
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			pts = append(pts, Point{X: x, Y: y})
		}
	}
	return NewInteriorFromPoints(size, size, pts)
}

func TestDetectedObjectRequiresContainer(t *testing.T) {
	obj := DetectedObject{XMin: 0, XMax: 20, YMin: 0, YMax: 20, Width: 20, Height: 20, Interior: squareInterior(20)}

	if _, err := obj.Center(); !errors.Is(err, ErrNoContainer) {
		t.Errorf("未绑定容器时 Center 应返回 ErrNoContainer, 实际 %v", err)
	}
	if _, err := obj.RandomPoint(); !errors.Is(err, ErrNoContainer) {
		t.Errorf("未绑定容器时 RandomPoint 应返回 ErrNoContainer, 实际 %v", err)
	}
}

func TestDetectedObjectCenterAndDistance(t *testing.T) {
	container := Rectangle{Left: 100, Top: 200, Width: 100, Height: 100}
	obj := DetectedObject{XMin: 10, XMax: 30, YMin: 40, YMax: 60, Width: 20, Height: 20}.WithContainer(container)

	c, err := obj.Center()
	if err != nil {
		t.Fatal(err)
	}
	if c != (Point{X: 120, Y: 250}) {
		t.Errorf("中心点错误: %v", c)
	}

	h, _ := obj.HorzDistFromContainerCenter()
	v, _ := obj.VertDistFromContainerCenter()
	if h != 30 || v != 0 {
		t.Errorf("水平/垂直距离错误: h=%v v=%v", h, v)
	}
}

func TestDetectedObjectRandomPointInsideInterior(t *testing.T) {
	container := Rectangle{Left: 1000, Top: 500, Width: 200, Height: 200}
	obj := DetectedObject{
		XMin: 0, XMax: 40, YMin: 0, YMax: 40,
		Width: 40, Height: 40,
		Interior: squareInterior(41),
	}.WithContainer(container)

	for i := 0; i < 200; i++ {
		p, err := obj.RandomPoint()
		if err != nil {
			t.Fatal(err)
		}
		local := p.Sub(Point{X: 1000, Y: 500})
		if !obj.Interior.Contains(local, objectPointPad) {
			c, _ := obj.Center()
			if p != c {
				t.Fatalf("随机点 %v 不在轮廓内", p)
			}
		}
	}
}

func TestRandomPointFallsBackToCenter(t *testing.T) {
	container := Rectangle{Left: 0, Top: 0, Width: 50, Height: 50}
	// 内部像素集合为空，所有采样都会失败
	obj := DetectedObject{
		XMin: 0, XMax: 20, YMin: 0, YMax: 20, Width: 20, Height: 20,
		Interior: NewInteriorFromPoints(21, 21, nil),
	}.WithContainer(container)

	p, err := obj.RandomPoint()
	if err != nil {
		t.Fatal(err)
	}
	if p != (Point{X: 10, Y: 10}) {
		t.Errorf("重试失败后应返回中心点, 实际 %v", p)
	}
}

func TestInteriorContainsPad(t *testing.T) {
	in := squareInterior(20)
	if !in.Contains(Point{X: 10, Y: 10}, 5) {
		t.Error("中心点应在收缩后的区域内")
	}
	if in.Contains(Point{X: 2, Y: 10}, 5) {
		t.Error("边缘点不应在收缩后的区域内")
	}
	if !in.Contains(Point{X: 2, Y: 10}, 0) {
		t.Error("不收缩时边缘点应在区域内")
	}
	if in.Contains(Point{X: 25, Y: 10}, 0) {
		t.Error("越界点不应在区域内")
	}
}
