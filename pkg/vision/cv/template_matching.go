package cv

import (
	"image"
	"math"
	"time"

	"gocv.io/x/gocv"

	"github.com/zoeyai/zoeysight/pkg/geometry"
)

const (
	// MaxResultCount 最大匹配结果数量
	MaxResultCount = 28
)

// TemplateMatching 带掩码的平方差模板匹配器
type TemplateMatching struct {
	imSearch   gocv.Mat
	mask       gocv.Mat
	imSource   gocv.Mat
	confidence float64
}

// NewTemplateMatching 创建模板匹配器
//
// search 为 BGR 模板，mask 为与模板同尺寸的三通道掩码，source 为 BGR 图像。
// confidence 为可接受的最大归一化平方差。
func NewTemplateMatching(search, mask, source gocv.Mat, confidence float64) *TemplateMatching {
	return &TemplateMatching{
		imSearch:   search,
		mask:       mask,
		imSource:   source,
		confidence: confidence,
	}
}

// FindBestResult 查找全局最小值，低于阈值时返回局部坐标结果，否则返回 nil
func (t *TemplateMatching) FindBestResult() (*MatchResult, error) {
	startTime := time.Now()

	if err := checkSourceLargerThanSearch(t.imSource, t.imSearch); err != nil {
		return nil, err
	}

	result := t.getTemplateResultMatrix()
	defer result.Close()

	minVal, _, minLoc, _ := gocv.MinMaxLoc(result)
	if !t.accept(minVal) {
		return nil, nil
	}

	return &MatchResult{
		Rect:       t.getTargetRectangle(minLoc),
		Confidence: float64(minVal),
		Time:       float64(time.Since(startTime).Milliseconds()),
	}, nil
}

// FindAllResults 查找所有低于阈值的匹配，按置信度从好到差排列
//
// 每找到一个匹配，就把结果矩阵中以其为中心、模板大小的区域置为 1，
// 避免同一位置重复命中。
func (t *TemplateMatching) FindAllResults() ([]*MatchResult, error) {
	startTime := time.Now()

	if err := checkSourceLargerThanSearch(t.imSource, t.imSearch); err != nil {
		return nil, err
	}

	result := t.getTemplateResultMatrix()
	defer result.Close()

	h, w := t.imSearch.Rows(), t.imSearch.Cols()
	var results []*MatchResult

	for len(results) < MaxResultCount {
		minVal, _, minLoc, _ := gocv.MinMaxLoc(result)
		if !t.accept(minVal) {
			break
		}

		results = append(results, &MatchResult{
			Rect:       t.getTargetRectangle(minLoc),
			Confidence: float64(minVal),
			Time:       float64(time.Since(startTime).Milliseconds()),
		})

		block := image.Rect(minLoc.X-w/2, minLoc.Y-h/2, minLoc.X+w/2+1, minLoc.Y+h/2+1).
			Intersect(image.Rect(0, 0, result.Cols(), result.Rows()))
		roi := result.Region(block)
		roi.SetTo(gocv.NewScalar(1, 0, 0, 0))
		roi.Close()
	}

	return results, nil
}

func (t *TemplateMatching) accept(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f < t.confidence
}

// getTemplateResultMatrix 计算带掩码的 TM_SQDIFF_NORMED 结果矩阵
func (t *TemplateMatching) getTemplateResultMatrix() gocv.Mat {
	result := gocv.NewMat()
	gocv.MatchTemplate(t.imSource, t.imSearch, &result, gocv.TmSqdiffNormed, t.mask)
	return result
}

// getTargetRectangle 由左上角得到匹配区域
func (t *TemplateMatching) getTargetRectangle(leftTop image.Point) geometry.Rectangle {
	return geometry.Rectangle{
		Left:   leftTop.X,
		Top:    leftTop.Y,
		Width:  t.imSearch.Cols(),
		Height: t.imSearch.Rows(),
	}
}

// checkSourceLargerThanSearch 检查源图像是否大于搜索图像
func checkSourceLargerThanSearch(source, search gocv.Mat) error {
	if source.Rows() < search.Rows() || source.Cols() < search.Cols() {
		return &ImageSizeError{
			SourceSize: [2]int{source.Cols(), source.Rows()},
			SearchSize: [2]int{search.Cols(), search.Rows()},
		}
	}
	return nil
}
