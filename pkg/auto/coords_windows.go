//go:build windows

package auto

import (
	"sync"

	"github.com/go-vgo/robotgo"
	"golang.org/x/sys/windows"
)

// Windows 坐标空间:
//   - 物理像素: 截图与模板匹配结果所在的空间
//   - robotgo 输入坐标: 随版本与 DPI 感知设置可能是物理或逻辑像素
//
// 不做假设，首次使用时比较整屏截图尺寸与 robotgo.GetScreenSize()
// 得到 coordScale = 截图尺寸 / 输入坐标尺寸。

var (
	user32 = windows.NewLazySystemDLL("user32.dll")
	gdi32  = windows.NewLazySystemDLL("gdi32.dll")

	procGetDpiForWindow = user32.NewProc("GetDpiForWindow")
	procGetDC           = user32.NewProc("GetDC")
	procReleaseDC       = user32.NewProc("ReleaseDC")
	procGetDeviceCaps   = gdi32.NewProc("GetDeviceCaps")
)

const logPixelsX = 88

// scaleCache 缓存探测结果
type scaleCache struct {
	mu       sync.Mutex
	detected bool
	sx, sy   float64
	dpi      float64
}

var cache scaleCache

// DPIScale Windows DPI 缩放比例，1.0 = 100%，1.5 = 150%
func DPIScale() float64 {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	if cache.dpi > 0 {
		return cache.dpi
	}
	cache.dpi = queryDPIScale()
	return cache.dpi
}

func queryDPIScale() float64 {
	var dpi uintptr

	// Windows 10 1607+
	if procGetDpiForWindow.Find() == nil {
		hwnd := windows.GetForegroundWindow()
		if hwnd == 0 {
			hwnd = windows.GetDesktopWindow()
		}
		if hwnd != 0 {
			dpi, _, _ = procGetDpiForWindow.Call(uintptr(hwnd))
		}
	}

	if dpi == 0 && procGetDC.Find() == nil && procGetDeviceCaps.Find() == nil {
		if dc, _, _ := procGetDC.Call(0); dc != 0 {
			dpi, _, _ = procGetDeviceCaps.Call(dc, logPixelsX)
			_, _, _ = procReleaseDC.Call(0, dc)
		}
	}

	if dpi == 0 {
		dpi = 96
	}
	scale := float64(dpi) / 96.0
	if scale < 0.5 || scale > 4.0 {
		scale = 1.0
	}
	return scale
}

// coordScale 截图像素与 robotgo 输入坐标之间的比例
func coordScale() (float64, float64) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	if cache.detected {
		return cache.sx, cache.sy
	}
	cache.sx, cache.sy = detectCoordScale()
	cache.detected = true

	rw, rh := robotgo.GetScreenSize()
	log.Debug("坐标比例: 屏幕=%dx%d coordScale=%.3f/%.3f", rw, rh, cache.sx, cache.sy)
	return cache.sx, cache.sy
}

func detectCoordScale() (float64, float64) {
	reportedW, reportedH := robotgo.GetScreenSize()
	if reportedW <= 0 || reportedH <= 0 {
		return 1.0, 1.0
	}

	img, err := robotgo.CaptureImg()
	if err != nil || img == nil {
		// 截图失败时按 DPI 兜底
		if cache.dpi == 0 {
			cache.dpi = queryDPIScale()
		}
		return cache.dpi, cache.dpi
	}

	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if w <= 0 || h <= 0 {
		return 1.0, 1.0
	}
	return normalizeScale(float64(w) / float64(reportedW)), normalizeScale(float64(h) / float64(reportedH))
}

// ResetScaleCache 显示器或 DPI 变化后重新探测
func ResetScaleCache() {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	cache.detected = false
	cache.sx, cache.sy, cache.dpi = 0, 0, 0
}

// PhysicalScreenSize 物理屏幕尺寸（与截图分辨率一致）
func PhysicalScreenSize() (width, height int) {
	w, h := robotgo.GetScreenSize()
	sx, sy := coordScale()
	return ScaleInt(w, sx), ScaleInt(h, sy)
}

// NormalizePointForInput 截图坐标 → robotgo 坐标
func NormalizePointForInput(x, y int) (int, int) {
	sx, sy := coordScale()
	return ScaleInt(x, 1/sx), ScaleInt(y, 1/sy)
}

// NormalizePointForScreen robotgo 坐标 → 截图坐标
func NormalizePointForScreen(x, y int) (int, int) {
	sx, sy := coordScale()
	return ScaleInt(x, sx), ScaleInt(y, sy)
}

// NormalizeRegionForInput 截图区域 → robotgo 区域
func NormalizeRegionForInput(x, y, width, height int) (int, int, int, int) {
	sx, sy := coordScale()
	return scaleRegion(x, y, width, height, 1/sx, 1/sy)
}

// NormalizeRegionForScreen robotgo 区域 → 截图区域
func NormalizeRegionForScreen(x, y, width, height int) (int, int, int, int) {
	sx, sy := coordScale()
	return scaleRegion(x, y, width, height, sx, sy)
}
