package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/zoeyai/zoeysight/pkg/geometry"
	"github.com/zoeyai/zoeysight/pkg/humanize"
)

const (
	// maxZoomUnits 从完全放大到完全缩小所需的滚动量
	maxZoomUnits = 3600
	maxZoomSteps = 50
	// zoomStepDuration 每步滚动间隔的基准（秒）
	zoomStepDuration = 0.01
)

// Direction 罗盘方向
type Direction string

const (
	North Direction = "north"
	East  Direction = "east"
	South Direction = "south"
	West  Direction = "west"
)

// compassMenuOffset 右键罗盘后各方向菜单项相对指针的垂直距离
var compassMenuOffset = map[Direction]int{
	East:  43,
	South: 57,
	West:  72,
}

// ParseDirection 解析罗盘方向
func ParseDirection(s string) (Direction, error) {
	d := Direction(s)
	if d == North {
		return d, nil
	}
	if _, ok := compassMenuOffset[d]; ok {
		return d, nil
	}
	return "", fmt.Errorf("未知方向: %q", s)
}

// Zoom 在游戏视图或小地图上滚动缩放
//
// percent 为 (0, 1] 内的缩放比例，1 表示完整缩放。滚动分成若干短促的连击。
func (e *Engine) Zoom(ctx context.Context, out bool, percent float64, minimap bool) error {
	if percent <= 0 || percent > 1 {
		return fmt.Errorf("缩放比例必须在 (0, 1] 内: %.2f", percent)
	}
	regions, err := e.Regions()
	if err != nil {
		return err
	}
	target := regions.GameView
	if minimap {
		target = regions.Minimap
	}
	if err := e.mouse.MoveTo(ctx, target.RandomPoint()); err != nil {
		return err
	}
	if err := e.pause(ctx); err != nil {
		return err
	}

	sign := 1
	if out {
		sign = -1
	}
	amount := int(math.Ceil(maxZoomUnits * percent))
	steps := int(math.Ceil(maxZoomSteps * percent))
	perStep := int(math.Ceil(float64(amount)/float64(steps))) * sign
	stepPause := zoomStepDuration / maxZoomUnits
	burst := max(1, steps/humanize.IntBetween(3, 5))

	for step := 0; step < steps; step++ {
		if step%burst == 0 {
			if err := e.Sleep(ctx, 0.3, 0.4); err != nil {
				return err
			}
		}
		e.device.Scroll(perStep)
		if err := e.Sleep(ctx, stepPause, 1.5*stepPause); err != nil {
			return err
		}
	}
	log.Debug("缩放完成: out=%v percent=%.0f%% minimap=%v", out, percent*100, minimap)
	return nil
}

// ResetMinimapZoom 右键小地图恢复默认缩放（4 像素 = 1 地块）
func (e *Engine) ResetMinimapZoom(ctx context.Context) error {
	regions, err := e.Regions()
	if err != nil {
		return err
	}
	if err := e.mouse.MoveTo(ctx, regions.Minimap.RandomPoint()); err != nil {
		return err
	}
	if err := e.mouse.RightClick(ctx, false); err != nil {
		return err
	}
	return e.pause(ctx)
}

// SetCompassDirection 通过罗盘菜单把视角对齐到正方向
func (e *Engine) SetCompassDirection(ctx context.Context, dir Direction) error {
	if _, err := ParseDirection(string(dir)); err != nil {
		return err
	}
	regions, err := e.Regions()
	if err != nil {
		return err
	}
	if err := e.mouse.MoveTo(ctx, regions.CompassOrb.RandomPoint()); err != nil {
		return err
	}
	if dir == North {
		return e.mouse.LeftClick(ctx)
	}

	if err := e.mouse.RightClick(ctx, false); err != nil {
		return err
	}
	if err := e.mouse.MoveRelative(ctx, 0, compassMenuOffset[dir], 5, 2); err != nil {
		return err
	}
	if err := e.mouse.LeftClick(ctx); err != nil {
		return err
	}
	log.Debug("罗盘已对齐 %s", dir)
	return nil
}

// MoveCamera 旋转相机，horizontal 负值向左，vertical 负值向下
func (e *Engine) MoveCamera(ctx context.Context, horizontal, vertical float64) error {
	return e.camera.MoveCamera(ctx, horizontal, vertical)
}

// SearchWithCamera 随机转动相机
func (e *Engine) SearchWithCamera(ctx context.Context) (theta, phi float64, err error) {
	return e.camera.SearchWithCamera(ctx)
}

// PitchDownAndAlignCamera 相机俯视到底后对齐罗盘方向
func (e *Engine) PitchDownAndAlignCamera(ctx context.Context, dir Direction) error {
	if _, err := ParseDirection(string(dir)); err != nil {
		return err
	}
	if err := e.camera.MoveCamera(ctx, 0, 90); err != nil {
		return err
	}
	if err := e.pause(ctx); err != nil {
		return err
	}
	return e.SetCompassDirection(ctx, dir)
}

// ClickMinimap 点击小地图中心偏移 offset 处，实现 navigation.Body
func (e *Engine) ClickMinimap(ctx context.Context, offset geometry.Point) error {
	regions, err := e.Regions()
	if err != nil {
		return err
	}
	target := regions.Minimap.Center().Add(offset)
	if err := e.mouse.MoveTo(ctx, target); err != nil {
		return err
	}
	return e.mouse.LeftClick(ctx)
}
