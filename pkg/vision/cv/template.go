package cv

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/zoeyai/zoeysight/internal/logger"
	"github.com/zoeyai/zoeysight/pkg/geometry"
)

var log = logger.Module("cv")

// 搜索默认值
var (
	// DefaultConfidence 可接受的最大归一化平方差
	DefaultConfidence = 0.15
	// DefaultRetries 默认尝试次数
	DefaultRetries = 1
	// DefaultIncrement 每次重试放宽的阈值
	DefaultIncrement = 0.01
)

// Template 已加载的模板：BGR 图像与三通道 alpha 掩码
//
// 创建后只读，可以被多个搜索共享。
type Template struct {
	// Name 模板名称或文件路径
	Name string

	base gocv.Mat
	mask gocv.Mat
}

// LoadTemplate 按原样读取 PNG（保留 alpha），读取失败返回错误
func LoadTemplate(path string) (*Template, error) {
	img := gocv.IMRead(path, gocv.IMReadUnchanged)
	if img.Empty() {
		img.Close()
		return nil, fmt.Errorf("无法读取模板: %s", path)
	}
	defer img.Close()
	return NewTemplate(path, img)
}

// NewTemplate 由 BGR/BGRA/灰度图像创建模板，没有 alpha 时视为完全不透明
func NewTemplate(name string, img gocv.Mat) (*Template, error) {
	if img.Empty() {
		return nil, fmt.Errorf("模板图像为空: %s", name)
	}

	bgra := gocv.NewMat()
	defer bgra.Close()
	switch img.Channels() {
	case 4:
		img.CopyTo(&bgra)
	case 3:
		gocv.CvtColor(img, &bgra, gocv.ColorBGRToBGRA)
	case 1:
		gocv.CvtColor(img, &bgra, gocv.ColorGrayToBGRA)
	default:
		return nil, fmt.Errorf("模板通道数不支持: %d", img.Channels())
	}

	channels := gocv.Split(bgra)
	defer func() {
		for _, ch := range channels {
			ch.Close()
		}
	}()

	base := gocv.NewMat()
	gocv.Merge(channels[:3], &base)
	mask := gocv.NewMat()
	gocv.Merge([]gocv.Mat{channels[3], channels[3], channels[3]}, &mask)

	return &Template{Name: name, base: base, mask: mask}, nil
}

// Size 模板尺寸 (width, height)
func (t *Template) Size() (int, int) {
	return t.base.Cols(), t.base.Rows()
}

// Close 释放资源
func (t *Template) Close() {
	t.base.Close()
	t.mask.Close()
}

func (t *Template) String() string {
	return fmt.Sprintf("Template(%s)", t.Name)
}

// MatchOption 搜索选项
type MatchOption func(*matchConfig)

type matchConfig struct {
	confidence float64
	retries    int
	increment  float64
}

func defaultMatchConfig() *matchConfig {
	return &matchConfig{
		confidence: DefaultConfidence,
		retries:    DefaultRetries,
		increment:  DefaultIncrement,
	}
}

// WithConfidence 设置可接受的最大归一化平方差
func WithConfidence(confidence float64) MatchOption {
	return func(c *matchConfig) {
		c.confidence = confidence
	}
}

// WithRetries 设置尝试次数，小于 1 时按 1 处理
func WithRetries(retries int) MatchOption {
	return func(c *matchConfig) {
		c.retries = max(1, retries)
	}
}

// WithIncrement 设置每次重试放宽的阈值
func WithIncrement(increment float64) MatchOption {
	return func(c *matchConfig) {
		c.increment = increment
	}
}

// MatchIn 在图像中搜索模板，结果为图像局部坐标
//
// 未找到返回 (nil, nil)。每次失败后阈值增加 increment 再试。
func (t *Template) MatchIn(img gocv.Mat, opts ...MatchOption) (*MatchResult, error) {
	cfg := defaultMatchConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	confidence := cfg.confidence
	for attempt := 1; attempt <= cfg.retries; attempt++ {
		res, err := NewTemplateMatching(t.base, t.mask, img, confidence).FindBestResult()
		if err != nil {
			return nil, err
		}
		if res != nil {
			res.Attempt = attempt
			return res, nil
		}
		confidence += cfg.increment
	}
	return nil, nil
}

// MatchAllIn 查找图像中所有匹配，结果为图像局部坐标
func (t *Template) MatchAllIn(img gocv.Mat, opts ...MatchOption) ([]*MatchResult, error) {
	cfg := defaultMatchConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return NewTemplateMatching(t.base, t.mask, img, cfg.confidence).FindAllResults()
}

// MatchInRect 截取屏幕矩形并搜索，结果换算为屏幕坐标
//
// 每次尝试都会重新截图。
func (t *Template) MatchInRect(rect geometry.Rectangle, c geometry.Capturer, opts ...MatchOption) (*MatchResult, error) {
	cfg := defaultMatchConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	startTime := time.Now()
	confidence := cfg.confidence
	for attempt := 1; attempt <= cfg.retries; attempt++ {
		img, err := rect.Capture(c)
		if err != nil {
			return nil, err
		}
		res, err := NewTemplateMatching(t.base, t.mask, img, confidence).FindBestResult()
		img.Close()
		if err != nil {
			return nil, err
		}
		if res != nil {
			res.Attempt = attempt
			res.Rect = res.Rect.Offset(rect.Left, rect.Top)
			res.Time = float64(time.Since(startTime).Milliseconds())
			log.Debug("找到模板 %s: %s, confidence=%.4f, attempt=%d", t.Name, res.Rect, res.Confidence, attempt)
			return res, nil
		}
		confidence += cfg.increment
	}
	return nil, nil
}

// FindTemplate 在屏幕矩形内查找模板文件，返回屏幕坐标的矩形
//
// 模板无法读取时返回错误；未找到返回 (nil, nil)。
func FindTemplate(path string, rect geometry.Rectangle, c geometry.Capturer, opts ...MatchOption) (*geometry.Rectangle, error) {
	tmpl, err := LoadTemplate(path)
	if err != nil {
		return nil, err
	}
	defer tmpl.Close()

	res, err := tmpl.MatchInRect(rect, c, opts...)
	if err != nil || res == nil {
		return nil, err
	}
	return &res.Rect, nil
}

// FindTemplateIn 在已截取的图像中查找模板文件，返回图像局部坐标的矩形
func FindTemplateIn(path string, img gocv.Mat, opts ...MatchOption) (*geometry.Rectangle, error) {
	tmpl, err := LoadTemplate(path)
	if err != nil {
		return nil, err
	}
	defer tmpl.Close()

	res, err := tmpl.MatchIn(img, opts...)
	if err != nil || res == nil {
		return nil, err
	}
	return &res.Rect, nil
}

// Library 以资源根目录为基准缓存模板
//
// 模板首次使用时加载，之后复用。并发安全。
type Library struct {
	root  string
	mu    sync.Mutex
	cache map[string]*Template
}

// NewLibrary 创建模板库
func NewLibrary(root string) *Library {
	return &Library{root: root, cache: make(map[string]*Template)}
}

// Root 资源根目录
func (l *Library) Root() string {
	return l.root
}

// Path 返回 folder/name.png 的完整路径
func (l *Library) Path(folder, name string) string {
	if filepath.Ext(name) == "" {
		name += ".png"
	}
	return filepath.Join(l.root, folder, name)
}

// Get 获取 folder/name 对应的模板
func (l *Library) Get(folder, name string) (*Template, error) {
	path := l.Path(folder, name)

	l.mu.Lock()
	defer l.mu.Unlock()
	if t, ok := l.cache[path]; ok {
		return t, nil
	}

	t, err := LoadTemplate(path)
	if err != nil {
		return nil, err
	}
	l.cache[path] = t
	return t, nil
}

// Close 释放全部缓存的模板
func (l *Library) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, t := range l.cache {
		t.Close()
		delete(l.cache, k)
	}
}
