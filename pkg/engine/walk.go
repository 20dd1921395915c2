package engine

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/zoeyai/zoeysight/pkg/geometry"
	"github.com/zoeyai/zoeysight/pkg/navigation"
)

// compassReader 按当前布局懒加载罗盘参考图
func (e *Engine) compassReader() (*navigation.CompassReader, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.compass != nil {
		return e.compass, nil
	}
	if e.regions == nil {
		return nil, ErrNotCalibrated
	}
	if e.templates == nil {
		return nil, ErrNoTemplates
	}
	dir := filepath.Join(e.templates.Root(), navigation.CompassFolder, e.regions.Layout.String())
	r, err := navigation.LoadCompassReader(dir)
	if err != nil {
		return nil, err
	}
	e.compass = r
	return r, nil
}

// Heading 读取罗盘朝向（度），实现 navigation.Body
func (e *Engine) Heading(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	regions, err := e.Regions()
	if err != nil {
		return 0, err
	}
	reader, err := e.compassReader()
	if err != nil {
		return 0, err
	}
	img, err := regions.CompassOrb.Capture(e.capturer)
	if err != nil {
		return 0, fmt.Errorf("截取罗盘失败: %w", err)
	}
	defer img.Close()

	deg, err := reader.Heading(img)
	if err != nil {
		return 0, err
	}
	return float64(deg), nil
}

// Walker 以本引擎为身体的行走器
func (e *Engine) Walker() *navigation.Walker {
	return navigation.NewWalker(e, e.walkerCfg, e.services...)
}

// WalkTo 依次尝试寻路服务与预设路径走到 dest
func (e *Engine) WalkTo(ctx context.Context, dest geometry.Point, fallback []geometry.Point) error {
	if _, err := e.Regions(); err != nil {
		return err
	}
	return e.Walker().WalkTo(ctx, dest, fallback)
}

var _ navigation.Body = (*Engine)(nil)
