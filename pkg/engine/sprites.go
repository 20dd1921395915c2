package engine

import (
	"errors"

	"github.com/zoeyai/zoeysight/pkg/geometry"
	"github.com/zoeyai/zoeysight/pkg/vision/cv"
)

const (
	// DefaultSpriteConfidence 精灵图默认匹配阈值
	DefaultSpriteConfidence = 0.15
	emptySlotConfidence     = 0.10
	inventoryFolder         = "inventory"
	emptySlotTemplate       = "empty-slot"
	// InventorySize 背包格子数
	InventorySize = 28
)

// ErrNoTemplates 未设置模板库
var ErrNoTemplates = errors.New("未设置模板库")

// FindSprite 在矩形内查找精灵图，未找到返回 (nil, nil)
func (e *Engine) FindSprite(rect geometry.Rectangle, folder, name string, confidence float64, retries int) (*geometry.Rectangle, error) {
	if e.templates == nil {
		return nil, ErrNoTemplates
	}
	tmpl, err := e.templates.Get(folder, name)
	if err != nil {
		return nil, err
	}
	res, err := tmpl.MatchInRect(rect, e.capturer, cv.WithConfidence(confidence), cv.WithRetries(retries))
	if err != nil {
		var sizeErr *cv.ImageSizeError
		if errors.As(err, &sizeErr) {
			log.Debug("精灵图 %s/%s 大于搜索区域: %v", folder, name, err)
			return nil, nil
		}
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	return &res.Rect, nil
}

// InventorySlotsWith 包含指定物品的背包格下标
func (e *Engine) InventorySlotsWith(folder, name string, confidence float64) ([]int, error) {
	regions, err := e.Regions()
	if err != nil {
		return nil, err
	}
	var slots []int
	for i, slot := range regions.InventorySlots {
		hit, err := e.FindSprite(slot, folder, name, confidence, 1)
		if err != nil {
			return nil, err
		}
		if hit != nil {
			slots = append(slots, i)
		}
	}
	return slots, nil
}

// EmptySlotCount 空背包格数量
func (e *Engine) EmptySlotCount() (int, error) {
	slots, err := e.InventorySlotsWith(inventoryFolder, emptySlotTemplate, emptySlotConfidence)
	if err != nil {
		return 0, err
	}
	return len(slots), nil
}

// FullSlotCount 已占用背包格数量
func (e *Engine) FullSlotCount() (int, error) {
	empty, err := e.EmptySlotCount()
	if err != nil {
		return 0, err
	}
	return InventorySize - empty, nil
}
