package cv

import (
	"fmt"

	"github.com/zoeyai/zoeysight/pkg/geometry"
)

// MatchResult 模板匹配结果
type MatchResult struct {
	// Rect 匹配区域（局部或屏幕坐标，取决于调用方式）
	Rect geometry.Rectangle `json:"rect"`
	// Confidence 归一化平方差，越小越好
	Confidence float64 `json:"confidence"`
	// Attempt 命中时的尝试序号，从 1 开始
	Attempt int `json:"attempt"`
	// Time 匹配耗时（毫秒）
	Time float64 `json:"time,omitempty"`
}

// ImageSizeError 模板尺寸大于被搜索图像
type ImageSizeError struct {
	SourceSize [2]int
	SearchSize [2]int
}

func (e *ImageSizeError) Error() string {
	return fmt.Sprintf("模板尺寸 %dx%d 大于被搜索图像 %dx%d",
		e.SearchSize[0], e.SearchSize[1], e.SourceSize[0], e.SourceSize[1])
}
