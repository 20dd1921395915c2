package cv

import (
	"errors"
	"image"
	"path/filepath"
	"testing"

	"gocv.io/x/gocv"

	"github.com/zoeyai/zoeysight/pkg/geometry"
)

// noiseImage 生成随机噪声 BGR 图像，像素值在 [30, 220) 之间
func noiseImage(rows, cols int) gocv.Mat {
	img := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV8UC3)
	gocv.RandU(&img, gocv.NewScalar(30, 30, 30, 0), gocv.NewScalar(220, 220, 220, 0))
	return img
}

// cutTemplate 从 src 的 (x, y) 处裁出 w×h 的模板
func cutTemplate(src gocv.Mat, x, y, w, h int) gocv.Mat {
	roi := src.Region(image.Rect(x, y, x+w, y+h))
	defer roi.Close()
	return roi.Clone()
}

func writeTemplate(t *testing.T, img gocv.Mat) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "template.png")
	if err := WriteImage(path, img); err != nil {
		t.Fatalf("写入模板失败: %v", err)
	}
	return path
}

func TestFindTemplateInAtKnownOffset(t *testing.T) {
	src := noiseImage(120, 160)
	defer src.Close()
	tmplImg := cutTemplate(src, 40, 30, 24, 18)
	defer tmplImg.Close()

	tmpl, err := NewTemplate("pasted", tmplImg)
	if err != nil {
		t.Fatal(err)
	}
	defer tmpl.Close()

	res, err := tmpl.MatchIn(src)
	if err != nil {
		t.Fatalf("搜索失败: %v", err)
	}
	if res == nil {
		t.Fatal("应找到模板")
	}
	if res.Rect.Left != 40 || res.Rect.Top != 30 || res.Rect.Width != 24 || res.Rect.Height != 18 {
		t.Errorf("匹配位置错误: %s", res.Rect)
	}
	if res.Confidence > 1e-4 {
		t.Errorf("完全一致时置信度应为 0, 实际 %v", res.Confidence)
	}
	if res.Attempt != 1 {
		t.Errorf("应在第 1 次尝试命中, 实际 %d", res.Attempt)
	}
}

func TestFindTemplateFromFile(t *testing.T) {
	src := noiseImage(100, 100)
	defer src.Close()
	tmplImg := cutTemplate(src, 10, 60, 20, 20)
	defer tmplImg.Close()
	path := writeTemplate(t, tmplImg)

	rect, err := FindTemplateIn(path, src)
	if err != nil {
		t.Fatal(err)
	}
	if rect == nil || rect.Left != 10 || rect.Top != 60 {
		t.Errorf("文件模板匹配位置错误: %v", rect)
	}
}

func TestTransparentPixelsAreIgnored(t *testing.T) {
	src := noiseImage(80, 80)
	defer src.Close()
	base := cutTemplate(src, 20, 20, 16, 16)
	defer base.Close()

	bgra := gocv.NewMat()
	defer bgra.Close()
	gocv.CvtColor(base, &bgra, gocv.ColorBGRToBGRA)
	// 左半边改为白色且完全透明
	left := bgra.Region(image.Rect(0, 0, 8, 16))
	left.SetTo(gocv.NewScalar(255, 255, 255, 0))
	left.Close()

	tmpl, err := NewTemplate("alpha", bgra)
	if err != nil {
		t.Fatal(err)
	}
	defer tmpl.Close()

	res, err := tmpl.MatchIn(src)
	if err != nil {
		t.Fatal(err)
	}
	if res == nil || res.Rect.Left != 20 || res.Rect.Top != 20 {
		t.Errorf("透明区域不应影响匹配: %+v", res)
	}
}

func TestRetriesRelaxConfidence(t *testing.T) {
	src := noiseImage(60, 60)
	defer src.Close()
	tmplImg := cutTemplate(src, 5, 5, 10, 10)
	defer tmplImg.Close()
	tmpl, err := NewTemplate("retry", tmplImg)
	if err != nil {
		t.Fatal(err)
	}
	defer tmpl.Close()

	// 负阈值时任何结果都不满足
	res, err := tmpl.MatchIn(src, WithConfidence(-1), WithRetries(1))
	if err != nil || res != nil {
		t.Fatalf("负阈值时不应命中: %+v, %v", res, err)
	}

	res, err = tmpl.MatchIn(src, WithConfidence(-1), WithRetries(3), WithIncrement(1.01))
	if err != nil {
		t.Fatal(err)
	}
	if res == nil || res.Attempt != 2 {
		t.Errorf("应在第 2 次尝试命中: %+v", res)
	}
}

func TestNotFoundReturnsNil(t *testing.T) {
	src := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(200, 200, 200, 0), 50, 50, gocv.MatTypeCV8UC3)
	defer src.Close()
	tmplImg := noiseImage(10, 10)
	defer tmplImg.Close()

	tmpl, err := NewTemplate("noise", tmplImg)
	if err != nil {
		t.Fatal(err)
	}
	defer tmpl.Close()

	res, err := tmpl.MatchIn(src)
	if err != nil {
		t.Fatalf("未找到不应返回错误: %v", err)
	}
	if res != nil {
		t.Errorf("不应找到模板: %+v", res)
	}
}

func TestUnreadableTemplate(t *testing.T) {
	src := noiseImage(10, 10)
	defer src.Close()
	if _, err := FindTemplateIn(filepath.Join(t.TempDir(), "missing.png"), src); err == nil {
		t.Error("模板无法读取时应返回错误")
	}
}

func TestTemplateLargerThanSource(t *testing.T) {
	src := noiseImage(10, 10)
	defer src.Close()
	big := noiseImage(20, 20)
	defer big.Close()
	tmpl, err := NewTemplate("big", big)
	if err != nil {
		t.Fatal(err)
	}
	defer tmpl.Close()

	_, err = tmpl.MatchIn(src)
	var sizeErr *ImageSizeError
	if !errors.As(err, &sizeErr) {
		t.Fatalf("应返回 ImageSizeError, 实际 %v", err)
	}
	if sizeErr.SearchSize != [2]int{20, 20} {
		t.Errorf("错误信息尺寸不正确: %+v", sizeErr)
	}
}

func TestMatchAllIn(t *testing.T) {
	src := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(90, 90, 90, 0), 60, 120, gocv.MatTypeCV8UC3)
	defer src.Close()
	sprite := noiseImage(12, 12)
	defer sprite.Close()

	for _, x := range []int{5, 50, 95} {
		roi := src.Region(image.Rect(x, 20, x+12, 32))
		sprite.CopyTo(&roi)
		roi.Close()
	}

	tmpl, err := NewTemplate("sprite", sprite)
	if err != nil {
		t.Fatal(err)
	}
	defer tmpl.Close()

	results, err := tmpl.MatchAllIn(src, WithConfidence(0.05))
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("应找到 3 个匹配, 实际 %d", len(results))
	}
}

type matCapturer struct {
	img gocv.Mat
}

func (m matCapturer) CaptureRegion(x, y, w, h int) (gocv.Mat, error) {
	roi := m.img.Region(image.Rect(x, y, x+w, y+h))
	defer roi.Close()
	return roi.Clone(), nil
}

func TestMatchInRectReturnsScreenCoordinates(t *testing.T) {
	screen := noiseImage(300, 400)
	defer screen.Close()
	tmplImg := cutTemplate(screen, 250, 180, 20, 15)
	defer tmplImg.Close()
	tmpl, err := NewTemplate("screen", tmplImg)
	if err != nil {
		t.Fatal(err)
	}
	defer tmpl.Close()

	rect := geometry.Rectangle{Left: 200, Top: 100, Width: 150, Height: 150}
	res, err := tmpl.MatchInRect(rect, matCapturer{img: screen})
	if err != nil {
		t.Fatal(err)
	}
	if res == nil || res.Rect.Left != 250 || res.Rect.Top != 180 {
		t.Errorf("应返回屏幕坐标: %+v", res)
	}
}

func TestLibraryCachesTemplates(t *testing.T) {
	root := t.TempDir()
	img := noiseImage(8, 8)
	defer img.Close()
	if err := WriteImage(filepath.Join(root, "ui", "anchor.png"), img); err != nil {
		t.Fatal(err)
	}

	lib := NewLibrary(root)
	defer lib.Close()

	a, err := lib.Get("ui", "anchor")
	if err != nil {
		t.Fatal(err)
	}
	b, err := lib.Get("ui", "anchor.png")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("同一模板应只加载一次")
	}
	if _, err := lib.Get("ui", "missing"); err == nil {
		t.Error("不存在的模板应返回错误")
	}
}

func TestSSIM(t *testing.T) {
	a := noiseImage(37, 37)
	defer a.Close()
	b := noiseImage(37, 37)
	defer b.Close()

	same, err := SSIM(a, a)
	if err != nil {
		t.Fatal(err)
	}
	if same < 0.999 {
		t.Errorf("相同图像 SSIM 应接近 1, 实际 %v", same)
	}

	diff, _ := SSIM(a, b)
	if diff >= same {
		t.Errorf("不同图像 SSIM 应更低: %v >= %v", diff, same)
	}

	c := noiseImage(10, 10)
	defer c.Close()
	if _, err := SSIM(a, c); err == nil {
		t.Error("尺寸不一致应返回错误")
	}
}

func TestReadImage(t *testing.T) {
	img := noiseImage(12, 9)
	defer img.Close()
	path := filepath.Join(t.TempDir(), "nested", "frame.png")
	if err := WriteImage(path, img); err != nil {
		t.Fatalf("写入图像失败: %v", err)
	}

	got, err := ReadImage(path)
	if err != nil {
		t.Fatal(err)
	}
	defer got.Close()
	if got.Rows() != 12 || got.Cols() != 9 || got.Channels() != 3 {
		t.Errorf("读取尺寸 %dx%dx%d, 期望 12x9x3", got.Rows(), got.Cols(), got.Channels())
	}

	missing, err := ReadImage(filepath.Join(t.TempDir(), "missing.png"))
	defer missing.Close()
	if err == nil {
		t.Error("文件不存在时应返回错误")
	}
}
