// Package screen 截取屏幕像素，实现 geometry.Capturer
package screen

import (
	"fmt"
	"image"

	"github.com/go-vgo/robotgo"
	"github.com/kbinani/screenshot"
	"gocv.io/x/gocv"

	"github.com/zoeyai/zoeysight/pkg/auto"
	"github.com/zoeyai/zoeysight/pkg/geometry"
	"github.com/zoeyai/zoeysight/pkg/vision/cv"
)

// 截图后端
const (
	BackendRobotgo    = "robotgo"
	BackendScreenshot = "screenshot"
)

// New 按名称创建截图器，空字符串使用 robotgo
func New(backend string) (geometry.Capturer, error) {
	switch backend {
	case "", BackendRobotgo:
		return RobotgoCapturer{}, nil
	case BackendScreenshot:
		return ScreenshotCapturer{}, nil
	default:
		return nil, fmt.Errorf("未知的截图后端: %q", backend)
	}
}

// RobotgoCapturer 通过 robotgo 截图，返回 BGRA
type RobotgoCapturer struct{}

// CaptureRegion 截取屏幕区域（截图像素坐标）
func (RobotgoCapturer) CaptureRegion(x, y, width, height int) (gocv.Mat, error) {
	if width <= 0 || height <= 0 {
		return gocv.NewMat(), fmt.Errorf("截图区域无效: %dx%d", width, height)
	}
	ix, iy, iw, ih := auto.NormalizeRegionForInput(x, y, width, height)
	img, err := robotgo.CaptureImg(ix, iy, iw, ih)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("截取区域失败: %w", err)
	}
	return toMat(img, width, height)
}

// ScreenshotCapturer 通过 kbinani/screenshot 截图，坐标即物理像素
type ScreenshotCapturer struct{}

// CaptureRegion 截取屏幕区域
func (ScreenshotCapturer) CaptureRegion(x, y, width, height int) (gocv.Mat, error) {
	if width <= 0 || height <= 0 {
		return gocv.NewMat(), fmt.Errorf("截图区域无效: %dx%d", width, height)
	}
	img, err := screenshot.CaptureRect(image.Rect(x, y, x+width, y+height))
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("截取区域失败: %w", err)
	}
	return toMat(img, width, height)
}

// toMat 转换为 BGRA Mat，尺寸与请求不一致时（DPI 换算取整）缩放回请求尺寸
func toMat(img image.Image, width, height int) (gocv.Mat, error) {
	mat, err := cv.ImageToMat(img)
	if err != nil {
		return mat, err
	}
	if mat.Cols() == width && mat.Rows() == height {
		return mat, nil
	}
	defer mat.Close()
	return cv.ResizeImage(mat, width, height), nil
}

// Displays 各显示器的屏幕矩形
func Displays() []geometry.Rectangle {
	n := screenshot.NumActiveDisplays()
	out := make([]geometry.Rectangle, 0, n)
	for i := 0; i < n; i++ {
		b := screenshot.GetDisplayBounds(i)
		out = append(out, geometry.Rectangle{Left: b.Min.X, Top: b.Min.Y, Width: b.Dx(), Height: b.Dy()})
	}
	return out
}

// ScreenSize 主屏物理尺寸（与截图分辨率一致）
func ScreenSize() (width, height int) {
	return auto.PhysicalScreenSize()
}
