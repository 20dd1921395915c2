package ocr

import (
	"errors"
	"fmt"
	"image"
	stdcolor "image/color"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"gocv.io/x/gocv"
	"golang.org/x/image/bmp"
)

// 内置字体名，对应字体根目录下的子目录
const (
	Plain11 = "plain_11"
	Plain12 = "plain_12"
	Bold12  = "bold_12"
	Quill   = "quill"
	Quill8  = "quill_8"
)

// FontNames 全部内置字体
var FontNames = []string{Plain11, Plain12, Bold12, Quill, Quill8}

// Font 字形位图字体
//
// 每个字形是一张灰度图，以 Unicode 码点命名（例如 65.bmp 表示 'A'）。
// 加载后只读，可在多个识别调用间共享。
type Font struct {
	Name string
	// RowCrop 匹配前裁掉的字形顶部行数
	RowCrop int

	glyphs map[rune]gocv.Mat
}

// NewFont 由字形表创建字体，字体接管这些 Mat 的所有权
func NewFont(name string, rowCrop int, glyphs map[rune]gocv.Mat) *Font {
	return &Font{Name: name, RowCrop: rowCrop, glyphs: glyphs}
}

// rowCropFor plain_12 顶部有两行空白，其余字体一行
func rowCropFor(name string) int {
	if name == Plain12 {
		return 2
	}
	return 1
}

// LoadFont 从文件系统的 dir 目录加载字体，目录名即字体名
func LoadFont(fsys fs.FS, dir string) (*Font, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("读取字体目录失败: %w", err)
	}

	glyphs := make(map[rune]gocv.Mat)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.EqualFold(path.Ext(name), ".bmp") {
			continue
		}
		code, err := strconv.Atoi(strings.TrimSuffix(name, path.Ext(name)))
		if err != nil {
			continue
		}

		mat, err := decodeGlyph(fsys, path.Join(dir, name))
		if err != nil {
			closeGlyphs(glyphs)
			return nil, err
		}
		glyphs[rune(code)] = mat
	}
	if len(glyphs) == 0 {
		return nil, fmt.Errorf("字体目录中没有字形: %s", dir)
	}

	fontName := path.Base(dir)
	return NewFont(fontName, rowCropFor(fontName), glyphs), nil
}

// LoadFontDir 从本地目录加载字体
func LoadFontDir(dir string) (*Font, error) {
	dir = filepath.Clean(dir)
	return LoadFont(os.DirFS(filepath.Dir(dir)), filepath.Base(dir))
}

// decodeGlyph 解码 BMP 字形为单通道灰度 Mat
func decodeGlyph(fsys fs.FS, name string) (gocv.Mat, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("打开字形失败: %w", err)
	}
	defer f.Close()

	img, err := bmp.Decode(f)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("解码字形 %s 失败: %w", name, err)
	}
	return grayMat(img)
}

// grayMat 把任意图像转换为 CV_8UC1
func grayMat(img image.Image) (gocv.Mat, error) {
	b := img.Bounds()
	data := make([]byte, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g := stdcolor.GrayModel.Convert(img.At(x, y)).(stdcolor.Gray)
			data = append(data, g.Y)
		}
	}
	return gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8UC1, data)
}

// Glyph 返回字形位图
func (f *Font) Glyph(r rune) (gocv.Mat, bool) {
	m, ok := f.glyphs[r]
	return m, ok
}

// Has 字体是否包含该字符
func (f *Font) Has(r rune) bool {
	_, ok := f.glyphs[r]
	return ok
}

// Runes 字体包含的全部字符（按码点排序）
func (f *Font) Runes() []rune {
	out := make([]rune, 0, len(f.glyphs))
	for r := range f.glyphs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Close 释放全部字形
func (f *Font) Close() {
	closeGlyphs(f.glyphs)
	f.glyphs = nil
}

func closeGlyphs(glyphs map[rune]gocv.Mat) {
	for _, m := range glyphs {
		m.Close()
	}
}

// ErrNoFont 字体未加载
var ErrNoFont = errors.New("字体未加载")

// Fonts 按名称索引的字体集合
type Fonts map[string]*Font

// LoadFonts 加载字体根目录下存在的全部内置字体
//
// 某个字体目录缺失时跳过，全部缺失时返回错误。
func LoadFonts(root string) (Fonts, error) {
	fsys := os.DirFS(root)
	fonts := make(Fonts)
	for _, name := range FontNames {
		if _, err := fs.Stat(fsys, name); err != nil {
			log.Debug("字体 %s 不存在，跳过", name)
			continue
		}
		f, err := LoadFont(fsys, name)
		if err != nil {
			fonts.Close()
			return nil, err
		}
		fonts[name] = f
	}
	if len(fonts) == 0 {
		return nil, fmt.Errorf("字体根目录中没有可用字体: %s", root)
	}
	log.Info("已加载 %d 个字体: %s", len(fonts), root)
	return fonts, nil
}

// Get 按名称获取字体
func (set Fonts) Get(name string) (*Font, error) {
	f, ok := set[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoFont, name)
	}
	return f, nil
}

// Close 释放全部字体
func (set Fonts) Close() {
	for _, f := range set {
		f.Close()
	}
}

// DefaultFontsRoot 默认字体根目录（可执行文件旁的 fonts 目录）
func DefaultFontsRoot() string {
	return filepath.Join(getResourcesDir(), "fonts")
}

// getExecutableDir 获取可执行文件所在目录
func getExecutableDir() string {
	execPath, err := os.Executable()
	if err != nil {
		return "."
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return "."
	}
	return filepath.Dir(execPath)
}

// getResourcesDir 获取资源目录，macOS .app 包内为 Contents/Resources
func getResourcesDir() string {
	execDir := getExecutableDir()
	if runtime.GOOS == "darwin" {
		resourcesDir := filepath.Join(execDir, "..", "Resources")
		if _, err := os.Stat(resourcesDir); err == nil {
			return resourcesDir
		}
	}
	return execDir
}
