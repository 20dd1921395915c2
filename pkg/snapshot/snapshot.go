// Package snapshot 把校准得到的每个区域截图写入目录，并生成带标注的总览图
package snapshot

import (
	"fmt"
	"image"
	stdcolor "image/color"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"

	"github.com/zoeyai/zoeysight/internal/logger"
	"github.com/zoeyai/zoeysight/pkg/calibration"
	"github.com/zoeyai/zoeysight/pkg/geometry"
	"github.com/zoeyai/zoeysight/pkg/vision/cv"
)

var log = logger.Module("snapshot")

const (
	// OverviewFile 总览图文件名
	OverviewFile = "overview.png"
	// RegionsFile 区域坐标文件名
	RegionsFile = "regions.json"

	labelSize = 10.0
)

// 标注颜色依次循环
var palette = []stdcolor.RGBA{
	{R: 255, G: 0, B: 0, A: 255},
	{R: 0, G: 200, B: 0, A: 255},
	{R: 0, G: 128, B: 255, A: 255},
	{R: 255, G: 200, B: 0, A: 255},
	{R: 255, G: 0, B: 255, A: 255},
	{R: 0, G: 255, B: 255, A: 255},
}

var (
	labelFont     *truetype.Font
	labelFontOnce sync.Once
	labelFontErr  error
)

func loadLabelFont() (*truetype.Font, error) {
	labelFontOnce.Do(func() {
		labelFont, labelFontErr = truetype.Parse(gomono.TTF)
	})
	return labelFont, labelFontErr
}

// Options 快照选项
type Options struct {
	// MaxOverviewWidth 总览图最大宽度，超出时等比缩小；0 表示不缩放
	MaxOverviewWidth int
	// SkipRegions 只写总览图
	SkipRegions bool
}

// Result 快照结果
type Result struct {
	Dir      string
	Files    []string
	Overview string
}

// Write 把 regions 中的全部区域截图写入 dir
//
// 单个区域为 <name>.png，列表类区域为 <name>_<i>.png。
func Write(dir string, regions *calibration.Regions, c geometry.Capturer, opts Options) (*Result, error) {
	start := time.Now()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("创建快照目录失败: %w", err)
	}
	res := &Result{Dir: dir}

	if !opts.SkipRegions {
		for _, reg := range regions.All() {
			for i, rect := range reg.Rects {
				name := reg.Name
				if reg.List {
					name = fmt.Sprintf("%s_%d", reg.Name, i)
				}
				path := filepath.Join(dir, name+".png")
				if err := writeRegion(path, rect, c); err != nil {
					return res, fmt.Errorf("写入区域 %s 失败: %w", name, err)
				}
				res.Files = append(res.Files, path)
			}
		}
	}

	data, err := sonic.ConfigStd.MarshalIndent(regions, "", "  ")
	if err != nil {
		return res, fmt.Errorf("序列化区域失败: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, RegionsFile), data, 0644); err != nil {
		return res, fmt.Errorf("写入区域坐标失败: %w", err)
	}

	overview := filepath.Join(dir, OverviewFile)
	if err := writeOverview(overview, regions, c, opts.MaxOverviewWidth); err != nil {
		return res, err
	}
	res.Overview = overview

	log.LogEvent("snapshot", true, float64(time.Since(start).Milliseconds()), fmt.Sprintf("%d 个区域", len(res.Files)))
	return res, nil
}

func writeRegion(path string, rect geometry.Rectangle, c geometry.Capturer) error {
	if rect.Width <= 0 || rect.Height <= 0 {
		return fmt.Errorf("区域尺寸无效: %s", rect)
	}
	img, err := rect.Capture(c)
	if err != nil {
		return err
	}
	defer img.Close()
	return cv.WriteImage(path, img)
}

// writeOverview 截取整个窗口，画出每个区域的边框与名称
func writeOverview(path string, regions *calibration.Regions, c geometry.Capturer, maxWidth int) error {
	win := regions.Window
	mat, err := win.Capture(c)
	if err != nil {
		return err
	}
	defer mat.Close()

	src, err := cv.MatToImage(mat)
	if err != nil {
		return err
	}
	canvas := image.NewRGBA(src.Bounds())
	draw.Draw(canvas, canvas.Bounds(), src, src.Bounds().Min, draw.Src)

	labels, err := newLabeler(canvas)
	if err != nil {
		log.Warn("加载标注字体失败，总览图不含文字: %v", err)
	}

	for i, reg := range regions.All() {
		col := palette[i%len(palette)]
		for j, rect := range reg.Rects {
			local := rect.Bounds().Sub(image.Pt(win.Left, win.Top))
			strokeRect(canvas, local, col)
			if labels != nil && j == 0 {
				labels.draw(reg.Name, local.Min, col)
			}
		}
	}

	out := image.Image(canvas)
	if maxWidth > 0 && canvas.Bounds().Dx() > maxWidth {
		out = scaleToWidth(canvas, maxWidth)
	}

	outMat, err := cv.ImageToMat(out)
	if err != nil {
		return err
	}
	defer outMat.Close()
	return cv.WriteImage(path, outMat)
}

// strokeRect 1 像素边框
func strokeRect(img *image.RGBA, r image.Rectangle, col stdcolor.RGBA) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	for x := r.Min.X; x < r.Max.X; x++ {
		img.SetRGBA(x, r.Min.Y, col)
		img.SetRGBA(x, r.Max.Y-1, col)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.SetRGBA(r.Min.X, y, col)
		img.SetRGBA(r.Max.X-1, y, col)
	}
}

// scaleToWidth 等比缩放到指定宽度
func scaleToWidth(src image.Image, width int) *image.RGBA {
	b := src.Bounds()
	height := max(1, b.Dy()*width/b.Dx())
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}

// labeler 在总览图上写区域名称
type labeler struct {
	ctx *freetype.Context
}

func newLabeler(dst *image.RGBA) (*labeler, error) {
	f, err := loadLabelFont()
	if err != nil {
		return nil, err
	}
	c := freetype.NewContext()
	c.SetDPI(72)
	c.SetFont(f)
	c.SetFontSize(labelSize)
	c.SetClip(dst.Bounds())
	c.SetDst(dst)
	c.SetHinting(font.HintingFull)
	return &labeler{ctx: c}, nil
}

func (l *labeler) draw(text string, at image.Point, col stdcolor.RGBA) {
	l.ctx.SetSrc(image.NewUniform(col))
	pt := freetype.Pt(at.X+2, at.Y+2+int(l.ctx.PointToFixed(labelSize)>>6))
	if _, err := l.ctx.DrawString(text, pt); err != nil {
		log.Debug("绘制标注 %s 失败: %v", text, err)
	}
}
