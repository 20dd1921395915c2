// Package window 按标题查找客户端窗口、读取其客户区并激活
package window

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/zoeyai/zoeysight/internal/logger"
	"github.com/zoeyai/zoeysight/pkg/geometry"
)

var log = logger.Module("window")

// ErrNotFound 没有匹配的窗口
var ErrNotFound = errors.New("未找到窗口")

// Info 窗口信息，坐标为截图像素
type Info struct {
	PID     int                `json:"pid"`
	Title   string             `json:"title"`
	Process string             `json:"process"`
	Bounds  geometry.Rectangle `json:"bounds"`
	// Client 客户区（不含标题栏与边框）
	Client geometry.Rectangle `json:"client"`
}

// Provider 窗口查找与激活
type Provider struct{}

// NewProvider 创建窗口提供者
func NewProvider() *Provider { return &Provider{} }

// List 列出标题或进程名包含 filter 的窗口（不区分大小写）
func (p *Provider) List(filter string) ([]Info, error) {
	all, err := listPlatform()
	if err != nil {
		return nil, err
	}
	return filterWindows(all, filter), nil
}

// Find 按标题查找窗口，标题完全相同的优先
func (p *Provider) Find(title string) (*Info, error) {
	all, err := listPlatform()
	if err != nil {
		return nil, err
	}
	w := pickWindow(all, title)
	if w == nil {
		return nil, fmt.Errorf("%w: 标题包含 %q", ErrNotFound, title)
	}
	return w, nil
}

// Locate 返回窗口客户区的屏幕矩形
func (p *Provider) Locate(title string) (geometry.Rectangle, error) {
	w, err := p.Find(title)
	if err != nil {
		return geometry.Rectangle{}, err
	}
	rect := w.Client
	if rect.Width == 0 || rect.Height == 0 {
		rect = w.Bounds
	}
	log.Debug("窗口 %q (PID=%d, %s): %s", w.Title, w.PID, w.Process, rect)
	return rect, nil
}

// Focus 激活窗口并置于前台
func (p *Provider) Focus(title string) error {
	w, err := p.Find(title)
	if err != nil {
		return err
	}
	if err := focusPlatform(w); err != nil {
		return fmt.Errorf("激活窗口 %q 失败: %w", w.Title, err)
	}
	return nil
}

// filterWindows 按标题或进程名过滤，空 filter 返回全部
func filterWindows(all []Info, filter string) []Info {
	if filter == "" {
		return all
	}
	needle := strings.ToLower(filter)
	var out []Info
	for _, w := range all {
		if strings.Contains(strings.ToLower(w.Title), needle) ||
			strings.Contains(strings.ToLower(w.Process), needle) {
			out = append(out, w)
		}
	}
	return out
}

// pickWindow 优先标题完全相同，其次标题包含，最后进程名包含
func pickWindow(all []Info, title string) *Info {
	needle := strings.ToLower(title)
	match := func(pred func(Info) bool) *Info {
		for i := range all {
			if pred(all[i]) {
				return &all[i]
			}
		}
		return nil
	}
	if w := match(func(w Info) bool { return strings.EqualFold(w.Title, title) }); w != nil {
		return w
	}
	if w := match(func(w Info) bool { return strings.Contains(strings.ToLower(w.Title), needle) }); w != nil {
		return w
	}
	return match(func(w Info) bool { return strings.Contains(strings.ToLower(w.Process), needle) })
}

// processName 进程名，去掉 .exe 后缀
func processName(pid int) string {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return ""
	}
	name, err := proc.Name()
	if err != nil {
		return ""
	}
	if strings.HasSuffix(strings.ToLower(name), ".exe") {
		name = name[:len(name)-4]
	}
	return name
}
