// Package ocr 基于字形相关匹配的文字识别
//
// 先按颜色把截图分割为白字黑底的掩码，再用字体中的每个字形做
// TM_CCOEFF_NORMED 匹配，相关系数不低于 0.98 的位置视为命中，
// 命中结果按 (行, 列) 排序后拼成字符串。识别结果不含空格。
//
// 基本用法:
//
//	fonts, err := ocr.LoadFonts(ocr.DefaultFontsRoot())
//	if err != nil {
//	    return err
//	}
//	font, _ := fonts.Get(ocr.Bold12)
//	text, err := ocr.ScrapeText(img, font, []color.Color{white, cyan})
//
//	// 查找短语位置
//	boxes, err := ocr.FindPhrase(img, font, colors, "Bank booth")
package ocr

import (
	"errors"
	"fmt"
	"image"
	"sort"
	"strings"

	"gocv.io/x/gocv"

	"github.com/zoeyai/zoeysight/internal/logger"
	"github.com/zoeyai/zoeysight/pkg/color"
	"github.com/zoeyai/zoeysight/pkg/geometry"
	"github.com/zoeyai/zoeysight/pkg/vision/segment"
)

var log = logger.Module("ocr")

// DefaultThreshold 字形命中的最低相关系数
const DefaultThreshold = 0.98

// ProblematicChars 默认排除的字符，这些字形过于简单，容易在其他字形内部误命中
const ProblematicChars = "'`.,:;!|-_^\"il"

// ErrUnsupportedChar 严格模式下短语包含字体中不存在的字符
var ErrUnsupportedChar = errors.New("字体不包含该字符")

// Option 识别选项
type Option func(*options)

type options struct {
	threshold   float64
	exclude     string
	includeOnly *string
	strict      bool
}

func newOptions(opts []Option) *options {
	o := &options{threshold: DefaultThreshold, exclude: ProblematicChars}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithThreshold 设置命中阈值
func WithThreshold(threshold float64) Option {
	return func(o *options) {
		o.threshold = threshold
	}
}

// WithExclude 设置排除的字符，覆盖默认的 ProblematicChars
func WithExclude(chars string) Option {
	return func(o *options) {
		o.exclude = chars
	}
}

// WithIncludeOnly 只识别给定字符，优先于排除列表
func WithIncludeOnly(chars string) Option {
	return func(o *options) {
		o.includeOnly = &chars
	}
}

// WithStrict 短语包含字体中不存在的字符时返回 ErrUnsupportedChar，
// 而不是从短语中删去该字符
func WithStrict(strict bool) Option {
	return func(o *options) {
		o.strict = strict
	}
}

// hit 一次字形命中，坐标为掩码局部坐标
type hit struct {
	r    rune
	x, y int
}

// ScrapeText 识别图像中指定颜色的全部文字
//
// img 为 BGR 图像，colors 为视觉编码（RGB 会自动转为 BGR）。
func ScrapeText(img gocv.Mat, font *Font, colors []color.Color, opts ...Option) (string, error) {
	o := newOptions(opts)

	var runes []rune
	for _, r := range font.Runes() {
		if o.includeOnly != nil {
			if !strings.ContainsRune(*o.includeOnly, r) {
				continue
			}
		} else if r == ' ' || strings.ContainsRune(o.exclude, r) {
			continue
		}
		runes = append(runes, r)
	}

	hits, err := scan(img, font, colors, runes, o.threshold)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, h := range hits {
		b.WriteRune(h.r)
	}
	return b.String(), nil
}

// FindPhrase 查找短语的精确匹配，返回每处匹配的包围盒（图像局部坐标）
//
// 区分大小写，空格被忽略。包围盒从首字符左上角到末字符右边界，
// 高度为末字符字形高度。字体不包含的字符默认从短语中删去并记录告警，
// WithStrict(true) 时返回 ErrUnsupportedChar。
func FindPhrase(img gocv.Mat, font *Font, colors []color.Color, phrases []string, opts ...Option) ([]geometry.Rectangle, error) {
	o := newOptions(opts)

	needles, runes, err := preparePhrases(font, phrases, o.strict)
	if err != nil {
		return nil, err
	}

	hits, err := scan(img, font, colors, runes, o.threshold)
	if err != nil {
		return nil, err
	}

	haystack := make([]rune, len(hits))
	for i, h := range hits {
		haystack[i] = h.r
	}

	var found []geometry.Rectangle
	for _, needle := range needles {
		n := len(needle)
		if n == 0 {
			continue
		}
		for i := 0; i+n <= len(haystack); {
			if string(haystack[i:i+n]) != string(needle) {
				i++
				continue
			}
			first, last := hits[i], hits[i+n-1]
			glyph, _ := font.Glyph(last.r)
			found = append(found, geometry.Rectangle{
				Left:   first.x,
				Top:    first.y,
				Width:  last.x - first.x + glyph.Cols(),
				Height: glyph.Rows(),
			})
			i += n
		}
	}
	return found, nil
}

// preparePhrases 去掉空格与字体不支持的字符，返回待匹配短语和需要扫描的字符集合
func preparePhrases(font *Font, phrases []string, strict bool) ([][]rune, []rune, error) {
	seen := make(map[rune]bool)
	var runes []rune
	needles := make([][]rune, 0, len(phrases))

	for _, p := range phrases {
		var needle []rune
		for _, r := range p {
			if r == ' ' {
				continue
			}
			if !font.Has(r) {
				if strict {
					return nil, nil, fmt.Errorf("%w: %q (字体 %s)", ErrUnsupportedChar, r, font.Name)
				}
				log.Warn("字体 %s 不包含字符 %q，已从短语 %q 中删去", font.Name, r, p)
				continue
			}
			needle = append(needle, r)
			if !seen[r] {
				seen[r] = true
				runes = append(runes, r)
			}
		}
		needles = append(needles, needle)
	}
	return needles, runes, nil
}

// scan 对每个字形做相关匹配，返回按 (y, x) 排序的命中列表
func scan(img gocv.Mat, font *Font, colors []color.Color, runes []rune, threshold float64) ([]hit, error) {
	mask, err := segment.Isolate(img, colors...)
	if err != nil {
		return nil, fmt.Errorf("颜色分割失败: %w", err)
	}
	defer mask.Close()

	var hits []hit
	result := gocv.NewMat()
	defer result.Close()
	noMask := gocv.NewMat()
	defer noMask.Close()

	for _, r := range runes {
		glyph, ok := font.Glyph(r)
		if !ok || glyph.Rows() <= font.RowCrop {
			continue
		}
		tmpl := glyph.Region(image.Rect(0, font.RowCrop, glyph.Cols(), glyph.Rows()))
		if tmpl.Rows() > mask.Rows() || tmpl.Cols() > mask.Cols() {
			tmpl.Close()
			continue
		}

		gocv.MatchTemplate(mask, tmpl, &result, gocv.TmCcoeffNormed, noMask)
		tmpl.Close()

		for _, p := range positionsAbove(result, float32(threshold)) {
			hits = append(hits, hit{r: r, x: p.X, y: p.Y})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].y != hits[j].y {
			return hits[i].y < hits[j].y
		}
		return hits[i].x < hits[j].x
	})
	return hits, nil
}

// positionsAbove 返回结果矩阵中不低于阈值的全部位置
func positionsAbove(result gocv.Mat, threshold float32) []image.Point {
	var pts []image.Point
	rows, cols := result.Rows(), result.Cols()

	if data, err := result.DataPtrFloat32(); err == nil && result.IsContinuous() {
		for i, v := range data {
			if v >= threshold {
				pts = append(pts, image.Point{X: i % cols, Y: i / cols})
			}
		}
		return pts
	}

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if result.GetFloatAt(y, x) >= threshold {
				pts = append(pts, image.Point{X: x, Y: y})
			}
		}
	}
	return pts
}

// ScrapeRect 截取屏幕矩形并识别文字
func ScrapeRect(rect geometry.Rectangle, c geometry.Capturer, font *Font, colors []color.Color, opts ...Option) (string, error) {
	img, err := rect.Capture(c)
	if err != nil {
		return "", err
	}
	defer img.Close()
	return ScrapeText(img, font, colors, opts...)
}

// FindPhraseInRect 截取屏幕矩形并查找短语，返回屏幕坐标的包围盒
func FindPhraseInRect(rect geometry.Rectangle, c geometry.Capturer, font *Font, colors []color.Color, phrases []string, opts ...Option) ([]geometry.Rectangle, error) {
	img, err := rect.Capture(c)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	boxes, err := FindPhrase(img, font, colors, phrases, opts...)
	if err != nil {
		return nil, err
	}
	for i := range boxes {
		boxes[i] = boxes[i].Offset(rect.Left, rect.Top)
	}
	return boxes, nil
}
