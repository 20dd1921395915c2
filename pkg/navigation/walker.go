package navigation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zoeyai/zoeysight/pkg/geometry"
)

// ErrPathBlocked 视野内没有任何路径点，通常是门或障碍物挡住了路线
var ErrPathBlocked = errors.New("行走中止，路线可能被门等障碍物阻挡")

// Body 行走所需的角色感知与操作
type Body interface {
	// Position 角色当前地块坐标
	Position(ctx context.Context) (geometry.Point, error)
	// Heading 罗盘相对正北的顺时针角度
	Heading(ctx context.Context) (float64, error)
	// ClickMinimap 点击小地图中心偏移 offset 像素处
	ClickMinimap(ctx context.Context, offset geometry.Point) error
	// ResetMinimapZoom 把小地图缩放恢复默认
	ResetMinimapZoom(ctx context.Context) error
}

// WalkerConfig 行走参数
type WalkerConfig struct {
	// DestSide 目的区域边长，1 表示必须到达精确地块
	DestSide int
	// MaxWaypointDist 相邻路径点的最大间距（地块）
	MaxWaypointDist float64
	// Horizon 每次最多向前点击的地块数
	Horizon int
	// ResetZoomEachEmbark 每次出发前重置小地图缩放
	ResetZoomEachEmbark bool
}

// DefaultWalkerConfig 默认行走参数
var DefaultWalkerConfig = WalkerConfig{
	DestSide:            1,
	MaxWaypointDist:     10,
	Horizon:             12,
	ResetZoomEachEmbark: true,
}

// Walker 沿路径通过小地图点击行走
type Walker struct {
	body     Body
	services []PathService
	cfg      WalkerConfig
}

// NewWalker 创建 Walker，services 按顺序作为寻路回退链
func NewWalker(body Body, cfg WalkerConfig, services ...PathService) *Walker {
	if cfg.DestSide <= 0 {
		cfg.DestSide = 1
	}
	if cfg.MaxWaypointDist <= 0 {
		cfg.MaxWaypointDist = DefaultWalkerConfig.MaxWaypointDist
	}
	if cfg.Horizon <= 0 {
		cfg.Horizon = DefaultWalkerConfig.Horizon
	}
	return &Walker{body: body, services: services, cfg: cfg}
}

// Config 当前行走参数
func (w *Walker) Config() WalkerConfig { return w.cfg }

// Arrived 按目的区域边长判断是否到达
func (w *Walker) Arrived(cur, dest geometry.Point) bool {
	return HasArrived(cur, dest, w.cfg.DestSide/2)
}

// FollowPath 沿路径走到 dest
//
// 每一步从终点往回找视野内最远的路径点，换算为小地图偏移后点击。
func (w *Walker) FollowPath(ctx context.Context, path []geometry.Point, dest geometry.Point) error {
	if len(path) == 0 {
		return ErrNoPath
	}
	start := time.Now()
	embarking := true

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		cur, err := w.body.Position(ctx)
		if err != nil {
			return fmt.Errorf("读取位置失败: %w", err)
		}
		if w.Arrived(cur, dest) {
			break
		}

		idx := NextWaypoint(path, cur, w.cfg.Horizon)
		if idx < 0 {
			log.Warn("当前位置 %s 视野内没有路径点", cur)
			return ErrPathBlocked
		}
		log.Debug("行走进度: %d/%d", idx, len(path))

		if w.cfg.ResetZoomEachEmbark && embarking {
			if err := w.body.ResetMinimapZoom(ctx); err != nil {
				return fmt.Errorf("重置小地图缩放失败: %w", err)
			}
			embarking = false
			// 重置期间可能已经走到
			if cur, err = w.body.Position(ctx); err != nil {
				return fmt.Errorf("读取位置失败: %w", err)
			}
			if w.Arrived(cur, dest) {
				break
			}
		}

		heading, err := w.body.Heading(ctx)
		if err != nil {
			return fmt.Errorf("读取罗盘失败: %w", err)
		}
		offset := TileToMinimapOffset(cur, path[idx], heading)
		if err := w.body.ClickMinimap(ctx, offset); err != nil {
			return fmt.Errorf("点击小地图失败: %w", err)
		}
	}

	log.LogEvent("walk", true, float64(time.Since(start).Milliseconds()), dest.String())
	return nil
}

// WalkTo 走到 dest
//
// 依次尝试每个寻路服务，全部失败后沿 fallback 行走；fallback 为空且都失败时返回 ErrNoPath。
func (w *Walker) WalkTo(ctx context.Context, dest geometry.Point, fallback []geometry.Point) error {
	cur, err := w.body.Position(ctx)
	if err != nil {
		return fmt.Errorf("读取位置失败: %w", err)
	}

	var errs []error
	for _, svc := range w.services {
		path, err := svc.FindPath(ctx, cur, dest)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn("%s 寻路失败 %s -> %s: %v", svc.Name(), cur, dest, err)
			errs = append(errs, err)
			continue
		}
		path = Densify(path, w.cfg.MaxWaypointDist)
		if err := w.FollowPath(ctx, path, dest); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn("沿 %s 路径行走失败: %v", svc.Name(), err)
			errs = append(errs, fmt.Errorf("%s: %w", svc.Name(), err))
			// 行走过程中位置已改变
			if cur, err = w.body.Position(ctx); err != nil {
				return fmt.Errorf("读取位置失败: %w", err)
			}
			continue
		}
		return nil
	}

	if len(fallback) > 0 {
		log.Info("沿预设路径行走")
		path := Densify(fallback, w.cfg.MaxWaypointDist)
		if err := w.FollowPath(ctx, path, dest); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			errs = append(errs, fmt.Errorf("预设路径: %w", err))
		} else {
			return nil
		}
	}

	log.LogEvent("walk", false, 0, dest.String())
	if len(errs) == 0 {
		return ErrNoPath
	}
	return fmt.Errorf("%w: %w", ErrNoPath, errors.Join(errs...))
}
