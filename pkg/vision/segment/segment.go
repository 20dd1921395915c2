// Package segment 把截图按颜色分割为二值掩码和屏幕对象
//
// 典型流程:
//
//	mask, err := segment.IsolateContours(img, palette.MustGet(color.HSV, "GREEN_MARK"))
//	defer mask.Close()
//	objs := segment.ExtractObjects(mask)
package segment

import (
	"errors"
	"fmt"
	"image"
	stdcolor "image/color"

	"gocv.io/x/gocv"

	"github.com/zoeyai/zoeysight/pkg/color"
	"github.com/zoeyai/zoeysight/pkg/geometry"
)

const (
	// MinContourArea 面积小于该值的轮廓视为噪点
	MinContourArea = 25.0
	// grayThreshold 掩码灰度化后的二值化阈值
	grayThreshold = 50
	// MaxSingleObjectArea 包围盒面积不超过该值时输出单个对象
	MaxSingleObjectArea = 125 * 125
	// ChunkSize 大对象切块边长
	ChunkSize = 50
)

// ErrNoColors 未提供颜色
var ErrNoColors = errors.New("至少需要一个颜色")

var white = stdcolor.RGBA{R: 255, G: 255, B: 255, A: 0}

// Isolate 按颜色生成二值掩码
//
// img 与 colors 必须是同一种编码；RGB 颜色会自动转换为 BGR。
// 每个颜色先做逐通道 min/max 校正再 InRange，结果按位或合并。
func Isolate(img gocv.Mat, colors ...color.Color) (gocv.Mat, error) {
	if len(colors) == 0 {
		return gocv.NewMat(), ErrNoColors
	}

	mask := gocv.Zeros(img.Rows(), img.Cols(), gocv.MatTypeCV8UC1)
	one := gocv.NewMat()
	defer one.Close()

	for _, c := range colors {
		if c.Space == color.RGB {
			c, _ = c.Convert(color.BGR)
		}
		lo, hi := bounds(c)
		gocv.InRangeWithScalar(img, lo, hi, &one)
		gocv.BitwiseOr(mask, one, &mask)
	}
	return mask, nil
}

// IsolateContours 把 BGR 图像中 HSV 颜色区域提取为实心轮廓掩码
//
// 流程: BGR→HSV，InRange，按掩码保留像素，HSV→BGR→灰度，阈值 50 二值化，
// 仅取外轮廓，丢弃面积小于 25 的轮廓，其余以白色填充并再次二值化。
func IsolateContours(img gocv.Mat, colors ...color.Color) (gocv.Mat, error) {
	if len(colors) == 0 {
		return gocv.NewMat(), ErrNoColors
	}
	for _, c := range colors {
		if c.Space != color.HSV {
			return gocv.NewMat(), fmt.Errorf("轮廓分割需要 HSV 颜色, 实际 %s", c)
		}
	}

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(img, &hsv, gocv.ColorBGRToHSV)

	inRange, err := Isolate(hsv, colors...)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer inRange.Close()

	masked := gocv.NewMat()
	defer masked.Close()
	gocv.BitwiseAndWithMask(hsv, hsv, &masked, inRange)

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(masked, &bgr, gocv.ColorHSVToBGR)

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(bgr, &gray, gocv.ColorBGRToGray)

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(gray, &binary, grayThreshold, 255, gocv.ThresholdBinary)

	contours := gocv.FindContours(binary, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	out := gocv.Zeros(binary.Rows(), binary.Cols(), gocv.MatTypeCV8UC1)
	for i := 0; i < contours.Size(); i++ {
		if gocv.ContourArea(contours.At(i)) < MinContourArea {
			continue
		}
		gocv.DrawContours(&out, contours, i, white, -1)
	}
	gocv.Threshold(out, &out, 0, 255, gocv.ThresholdBinary)
	return out, nil
}

// ExtractObjects 从二值掩码中提取屏幕对象
//
// 每个外轮廓的包围盒面积不超过 125×125 时输出一个对象；
// 否则按 50×50 切块（末块为余数），每个含前景像素的块输出一个对象。
// 同一轮廓切出的块共享整个轮廓的内部像素集合。
// 返回的对象未绑定所属矩形，调用方需通过 WithContainer 绑定。
func ExtractObjects(mask gocv.Mat) []geometry.DetectedObject {
	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxNone)
	defer contours.Close()

	var objs []geometry.DetectedObject
	for i := 0; i < contours.Size(); i++ {
		interior := fillContour(mask, contours, i)
		box := gocv.BoundingRect(contours.At(i))
		w, h := box.Dx(), box.Dy()

		if w*h <= MaxSingleObjectArea {
			objs = append(objs, geometry.DetectedObject{
				XMin: box.Min.X, XMax: box.Min.X + w,
				YMin: box.Min.Y, YMax: box.Min.Y + h,
				Width: w, Height: h,
				Interior: interior,
			})
			continue
		}
		objs = append(objs, chunk(mask, box, interior)...)
	}
	return objs
}

// chunk 把大对象切成 50×50 的块
func chunk(mask gocv.Mat, box image.Rectangle, interior *geometry.Interior) []geometry.DetectedObject {
	var objs []geometry.DetectedObject
	w, h := box.Dx(), box.Dy()
	for dy := 0; dy < h; dy += ChunkSize {
		for dx := 0; dx < w; dx += ChunkSize {
			cw, ch := min(ChunkSize, w-dx), min(ChunkSize, h-dy)
			x, y := box.Min.X+dx, box.Min.Y+dy

			roi := mask.Region(image.Rect(x, y, x+cw, y+ch))
			n := gocv.CountNonZero(roi)
			roi.Close()
			if n == 0 {
				continue
			}

			objs = append(objs, geometry.DetectedObject{
				XMin: x, XMax: x + cw,
				YMin: y, YMax: y + ch,
				Width: cw, Height: ch,
				Interior: interior,
			})
		}
	}
	return objs
}

// fillContour 填充单个轮廓，返回其内部像素集合
func fillContour(mask gocv.Mat, contours gocv.PointsVector, idx int) *geometry.Interior {
	filled := gocv.Zeros(mask.Rows(), mask.Cols(), gocv.MatTypeCV8UC1)
	defer filled.Close()
	gocv.DrawContours(&filled, contours, idx, white, -1)
	return geometry.NewInterior(filled)
}

// FindObjects 截取矩形区域并提取指定 HSV 颜色的对象，对象已绑定该矩形
func FindObjects(rect geometry.Rectangle, c geometry.Capturer, colors ...color.Color) ([]geometry.DetectedObject, error) {
	img, err := rect.Capture(c)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	mask, err := IsolateContours(img, colors...)
	if err != nil {
		return nil, err
	}
	defer mask.Close()

	objs := ExtractObjects(mask)
	for i := range objs {
		objs[i] = objs[i].WithContainer(rect)
	}
	return objs, nil
}

func bounds(c color.Color) (gocv.Scalar, gocv.Scalar) {
	c = c.Corrected()
	lo := gocv.NewScalar(float64(c.Lower[0]), float64(c.Lower[1]), float64(c.Lower[2]), 0)
	hi := gocv.NewScalar(float64(c.Upper[0]), float64(c.Upper[1]), float64(c.Upper[2]), 0)
	return lo, hi
}
