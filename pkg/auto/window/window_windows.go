//go:build windows

package window

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/zoeyai/zoeysight/pkg/geometry"
)

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procEnumWindows              = user32.NewProc("EnumWindows")
	procGetWindowTextW           = user32.NewProc("GetWindowTextW")
	procGetWindowTextLengthW     = user32.NewProc("GetWindowTextLengthW")
	procGetWindowThreadProcessId = user32.NewProc("GetWindowThreadProcessId")
	procGetWindowRect            = user32.NewProc("GetWindowRect")
	procGetClientRect            = user32.NewProc("GetClientRect")
	procClientToScreen           = user32.NewProc("ClientToScreen")
	procIsWindowVisible          = user32.NewProc("IsWindowVisible")
	procIsIconic                 = user32.NewProc("IsIconic")
	procSetForegroundWindow      = user32.NewProc("SetForegroundWindow")
	procShowWindow               = user32.NewProc("ShowWindow")
	procBringWindowToTop         = user32.NewProc("BringWindowToTop")
	procGetForegroundWindow      = user32.NewProc("GetForegroundWindow")
	procAttachThreadInput        = user32.NewProc("AttachThreadInput")
	procGetCurrentThreadId       = kernel32.NewProc("GetCurrentThreadId")
)

const (
	swRestore = 9
	swShow    = 5
	// 过小的窗口多为托盘或隐藏窗口
	minWindowSize = 50
)

type rect struct {
	Left, Top, Right, Bottom int32
}

type point struct {
	X, Y int32
}

// listPlatform 使用 EnumWindows 枚举可见的顶层窗口
func listPlatform() ([]Info, error) {
	var out []Info
	cb := windows.NewCallback(func(hwnd windows.HWND, _ uintptr) uintptr {
		if visible, _, _ := procIsWindowVisible.Call(uintptr(hwnd)); visible == 0 {
			return 1
		}
		title := windowText(hwnd)
		if title == "" {
			return 1
		}
		var pid uint32
		_, _, _ = procGetWindowThreadProcessId.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&pid)))
		if pid == 0 {
			return 1
		}

		var r rect
		_, _, _ = procGetWindowRect.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&r)))
		bounds := geometry.Rectangle{
			Left: int(r.Left), Top: int(r.Top),
			Width: int(r.Right - r.Left), Height: int(r.Bottom - r.Top),
		}
		if bounds.Width < minWindowSize || bounds.Height < minWindowSize {
			return 1
		}

		out = append(out, Info{
			PID:     int(pid),
			Title:   title,
			Process: processName(int(pid)),
			Bounds:  bounds,
			Client:  clientRect(hwnd),
		})
		return 1
	})
	_, _, _ = procEnumWindows.Call(cb, 0)
	return out, nil
}

func windowText(hwnd windows.HWND) string {
	n, _, _ := procGetWindowTextLengthW.Call(uintptr(hwnd))
	if n == 0 {
		return ""
	}
	buf := make([]uint16, n+1)
	_, _, _ = procGetWindowTextW.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&buf[0])), n+1)
	return windows.UTF16ToString(buf)
}

// clientRect 客户区的屏幕坐标
func clientRect(hwnd windows.HWND) geometry.Rectangle {
	var r rect
	if ok, _, _ := procGetClientRect.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&r))); ok == 0 {
		return geometry.Rectangle{}
	}
	var origin point
	if ok, _, _ := procClientToScreen.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&origin))); ok == 0 {
		return geometry.Rectangle{}
	}
	return geometry.Rectangle{
		Left: int(origin.X), Top: int(origin.Y),
		Width: int(r.Right - r.Left), Height: int(r.Bottom - r.Top),
	}
}

// findHandle 按 PID 和标题找到窗口句柄
func findHandle(w *Info) windows.HWND {
	var target windows.HWND
	cb := windows.NewCallback(func(hwnd windows.HWND, _ uintptr) uintptr {
		var pid uint32
		_, _, _ = procGetWindowThreadProcessId.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&pid)))
		if int(pid) != w.PID {
			return 1
		}
		if visible, _, _ := procIsWindowVisible.Call(uintptr(hwnd)); visible == 0 {
			return 1
		}
		if windowText(hwnd) == w.Title {
			target = hwnd
			return 0
		}
		return 1
	})
	_, _, _ = procEnumWindows.Call(cb, 0)
	return target
}

// focusPlatform 附加输入线程后切换前台窗口
func focusPlatform(w *Info) error {
	hwnd := findHandle(w)
	if hwnd == 0 {
		return fmt.Errorf("未找到 PID %d 的窗口句柄", w.PID)
	}

	current, _, _ := procGetCurrentThreadId.Call()
	if fg, _, _ := procGetForegroundWindow.Call(); fg != 0 {
		if fgThread, _, _ := procGetWindowThreadProcessId.Call(fg, 0); fgThread != 0 && fgThread != current {
			_, _, _ = procAttachThreadInput.Call(current, fgThread, 1)
			defer procAttachThreadInput.Call(current, fgThread, 0)
		}
	}

	if iconic, _, _ := procIsIconic.Call(uintptr(hwnd)); iconic != 0 {
		_, _, _ = procShowWindow.Call(uintptr(hwnd), swRestore)
	} else {
		_, _, _ = procShowWindow.Call(uintptr(hwnd), swShow)
	}
	_, _, _ = procBringWindowToTop.Call(uintptr(hwnd))
	if ok, _, _ := procSetForegroundWindow.Call(uintptr(hwnd)); ok == 0 {
		return fmt.Errorf("SetForegroundWindow 失败")
	}
	return nil
}
