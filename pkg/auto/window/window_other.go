//go:build !windows

package window

import (
	"fmt"

	"github.com/go-vgo/robotgo"

	"github.com/zoeyai/zoeysight/pkg/auto"
	"github.com/zoeyai/zoeysight/pkg/geometry"
)

// listPlatform 通过 robotgo 枚举带标题的进程窗口
func listPlatform() ([]Info, error) {
	pids, err := robotgo.Pids()
	if err != nil {
		return nil, fmt.Errorf("获取进程列表失败: %w", err)
	}

	var out []Info
	for _, pid := range pids {
		title := robotgo.GetTitle(pid)
		if title == "" {
			continue
		}
		out = append(out, Info{
			PID:     pid,
			Title:   title,
			Process: processName(pid),
			Bounds:  toRect(robotgo.GetBounds(pid)),
			Client:  toRect(robotgo.GetClient(pid)),
		})
	}
	return out, nil
}

func toRect(x, y, w, h int) geometry.Rectangle {
	x, y, w, h = auto.NormalizeRegionForScreen(x, y, w, h)
	return geometry.Rectangle{Left: x, Top: y, Width: w, Height: h}
}

// focusPlatform 非 Windows 平台使用 robotgo
func focusPlatform(w *Info) error {
	return robotgo.ActivePid(w.PID)
}
