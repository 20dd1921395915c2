package engine

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/zoeyai/zoeysight/pkg/color"
	"github.com/zoeyai/zoeysight/pkg/geometry"
	"github.com/zoeyai/zoeysight/pkg/humanize"
	"github.com/zoeyai/zoeysight/pkg/vision/segment"
)

// DistMeasure 对象到游戏视图中心的距离度量
type DistMeasure string

const (
	DistAbsolute   DistMeasure = "absolute"
	DistVertical   DistMeasure = "vertical"
	DistHorizontal DistMeasure = "horizontal"
)

// ParseDistMeasure 解析距离度量，空串为 absolute
func ParseDistMeasure(s string) (DistMeasure, error) {
	switch DistMeasure(s) {
	case "", DistAbsolute:
		return DistAbsolute, nil
	case DistVertical, DistHorizontal:
		return DistMeasure(s), nil
	}
	return "", fmt.Errorf("未知距离度量: %q", s)
}

// 标记对象搜索的补救阶段（占重试次数的比例）
const (
	tierTilt   = 0.3
	tierSearch = 0.5
	tierWalk   = 0.8
	// 每轮按距离顺序最多尝试的对象数
	orderMax = 3
)

// FindColors 在矩形内查找 HSV 颜色对象，对象已绑定该矩形
func (e *Engine) FindColors(rect geometry.Rectangle, colors ...color.Color) ([]geometry.DetectedObject, error) {
	return segment.FindObjects(rect, e.capturer, colors...)
}

// sortByDistance 按到所属矩形中心的距离升序排列
func sortByDistance(objs []geometry.DetectedObject, measure DistMeasure) {
	key := func(o geometry.DetectedObject) float64 {
		var d float64
		var err error
		switch measure {
		case DistVertical:
			d, err = o.VertDistFromContainerCenter()
		case DistHorizontal:
			d, err = o.HorzDistFromContainerCenter()
		default:
			d, err = o.DistFromContainerCenter()
		}
		if err != nil {
			return math.Inf(1)
		}
		return d
	}
	sort.SliceStable(objs, func(i, j int) bool { return key(objs[i]) < key(objs[j]) })
}

// MoveMouseToColorObject 把鼠标移到游戏视图中第 order 近的颜色标记对象
//
// order 超出对象数量时退回到最近的对象。没有对象时返回 false。
func (e *Engine) MoveMouseToColorObject(ctx context.Context, mark color.Color, order int, measure DistMeasure) (bool, error) {
	regions, err := e.Regions()
	if err != nil {
		return false, err
	}
	objs, err := e.FindColors(regions.GameView, mark)
	if err != nil {
		return false, err
	}
	if len(objs) == 0 {
		return false, nil
	}

	sortByDistance(objs, measure)
	log.Debug("找到 %d 个 %s 对象", len(objs), mark.Name)
	if order < 0 || order >= len(objs) {
		order = 0
	}
	target, err := objs[order].RandomPoint()
	if err != nil {
		return false, err
	}
	if err := e.mouse.MoveTo(ctx, target); err != nil {
		return false, err
	}
	return true, nil
}

// searchAllOrders 依次尝试最近的几个对象，直到悬停文字符合要求
func (e *Engine) searchAllOrders(ctx context.Context, mark color.Color, reqText []string, textColors []color.Color) (bool, error) {
	for order := 0; order < orderMax; order++ {
		if err := e.pause(ctx); err != nil {
			return false, err
		}
		moved, err := e.MoveMouseToColorObject(ctx, mark, order, DistAbsolute)
		if err != nil {
			return false, err
		}
		if !moved {
			continue
		}
		ok, err := e.confirmMouseover(reqText, textColors)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// FindAndMouseToMarkedObject 把鼠标移到悬停文字符合 reqText 的颜色标记对象
//
// 首次失败后最多重试 retries 轮，每轮按距离尝试最近的 3 个对象。
// 超过 30% 的重试后每轮先压低相机，超过 50% 后随机转动相机，
// 超过 80% 后随机走动；每半数轮次重置一次小地图和游戏视图缩放。
func (e *Engine) FindAndMouseToMarkedObject(ctx context.Context, mark color.Color, reqText []string, textColors []color.Color, retries int) (bool, error) {
	start := time.Now()
	report := func(ok bool, detail string) {
		log.LogEvent("marked_object", ok, float64(time.Since(start).Milliseconds()), detail)
	}

	moved, err := e.MoveMouseToColorObject(ctx, mark, 0, DistAbsolute)
	if err != nil {
		return false, err
	}
	if moved {
		ok, err := e.confirmMouseover(reqText, textColors)
		if err != nil {
			return false, err
		}
		if ok {
			report(true, mark.Name)
			return true, nil
		}
	}

	half := retries / 2
	for i := 0; i < retries; i++ {
		found, err := e.searchAllOrders(ctx, mark, reqText, textColors)
		if err != nil {
			return false, err
		}
		if found {
			report(true, fmt.Sprintf("%s 重试 %d", mark.Name, i+1))
			return true, nil
		}

		if i >= int(tierTilt*float64(retries)) {
			tilt := humanize.TruncNormWith(-23, -17, -20, 1)
			if err := e.camera.MoveCamera(ctx, 0, tilt); err != nil {
				return false, err
			}
		}
		if i > int(tierSearch*float64(retries)) {
			if _, _, err := e.camera.SearchWithCamera(ctx); err != nil {
				return false, err
			}
		}
		if i >= int(tierWalk*float64(retries)) {
			if _, err := e.WalkToRandomPointNearby(ctx); err != nil {
				if ctx.Err() != nil {
					return false, ctx.Err()
				}
				log.Warn("随机走动失败: %v", err)
			}
		}
		if half > 0 && i%half == 0 {
			if err := e.Zoom(ctx, true, 1, true); err != nil {
				return false, err
			}
			if err := e.Zoom(ctx, true, 1, false); err != nil {
				return false, err
			}
		}
		log.Debug("重试标记对象搜索 (%d/%d)", i+1, retries)
	}

	log.Info("重试 %d 次后仍未找到 %s 标记对象", retries, mark.Name)
	report(false, mark.Name)
	return false, nil
}

// WalkToRandomPointNearby 点击游戏视图中心附近的随机点，直到角色位置变化
func (e *Engine) WalkToRandomPointNearby(ctx context.Context) (bool, error) {
	regions, err := e.Regions()
	if err != nil {
		return false, err
	}
	gv := regions.GameView
	center := gv.Center()
	xpad := int(math.Round(float64(gv.Width) / 4))
	ypad := int(math.Round(float64(gv.Height) / 4))

	deadline := time.Now().Add(e.nearbyLimit)
	for time.Now().Before(deadline) {
		x, y := humanize.PointAround(center.X, center.Y, xpad, ypad)
		if err := e.mouse.MoveTo(ctx, geometry.Point{X: x, Y: y}); err != nil {
			return false, err
		}
		if err := e.mouse.LeftClick(ctx); err != nil {
			return false, err
		}
		before, err := e.Position(ctx)
		if err != nil {
			return false, err
		}
		if err := e.Sleep(ctx, 3, 4); err != nil {
			return false, err
		}
		after, err := e.Position(ctx)
		if err != nil {
			return false, err
		}
		if after != before {
			return true, nil
		}
	}
	return false, nil
}
