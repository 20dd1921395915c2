package navigation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"

	"gocv.io/x/gocv"

	"github.com/zoeyai/zoeysight/pkg/vision/cv"
)

// CompassFolder 罗盘参考图目录（相对模板库根目录），其下按布局分子目录
const CompassFolder = "ui_templates/compass_degrees"

// ErrNoCompassReference 没有可用的罗盘参考图
var ErrNoCompassReference = errors.New("没有罗盘参考图")

var cardinals = [4]int{0, 90, 180, 270}

// CompassReader 通过与逐度参考图比较 SSIM 读取罗盘朝向
type CompassReader struct {
	degrees []int
	refs    map[int]gocv.Mat
}

// NewCompassReader 使用已加载的参考图创建读取器，接管 refs 中 Mat 的所有权
func NewCompassReader(refs map[int]gocv.Mat) (*CompassReader, error) {
	if len(refs) == 0 {
		return nil, ErrNoCompassReference
	}
	degrees := make([]int, 0, len(refs))
	for d := range refs {
		degrees = append(degrees, d)
	}
	sort.Ints(degrees)
	return &CompassReader{degrees: degrees, refs: refs}, nil
}

// LoadCompassReader 从目录加载 <角度>.png 参考图
func LoadCompassReader(dir string) (*CompassReader, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("读取罗盘参考目录失败: %w", err)
	}
	refs := make(map[int]gocv.Mat)
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".png") {
			continue
		}
		deg, err := strconv.Atoi(strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
		if err != nil || deg < 0 || deg >= 360 {
			continue
		}
		mat, err := cv.ReadImage(filepath.Join(dir, e.Name()))
		if err != nil {
			closeAll(refs)
			return nil, err
		}
		refs[deg] = mat
	}
	log.Debug("已加载 %d 张罗盘参考图: %s", len(refs), dir)
	return NewCompassReader(refs)
}

// Heading 返回与 img 最相似的角度
func (r *CompassReader) Heading(img gocv.Mat) (int, error) {
	scores := make([]float64, len(r.degrees))
	errs := make([]error, len(r.degrees))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < min(runtime.NumCPU(), len(r.degrees)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				scores[i], errs[i] = cv.SSIM(img, r.refs[r.degrees[i]])
			}
		}()
	}
	for i := range r.degrees {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return 0, fmt.Errorf("比较罗盘图像失败: %w", err)
	}
	return pickHeading(r.degrees, scores), nil
}

// Close 释放参考图
func (r *CompassReader) Close() {
	closeAll(r.refs)
}

// pickHeading 在最高分的角度中优先选正方向，否则选最小的角度
func pickHeading(degrees []int, scores []float64) int {
	best := scores[0]
	for _, s := range scores[1:] {
		best = max(best, s)
	}
	chosen := -1
	for i, d := range degrees {
		if scores[i] != best {
			continue
		}
		if isCardinal(d) {
			return d
		}
		if chosen < 0 || d < chosen {
			chosen = d
		}
	}
	return chosen
}

func isCardinal(deg int) bool {
	for _, c := range cardinals {
		if deg == c {
			return true
		}
	}
	return false
}

func closeAll(mats map[int]gocv.Mat) {
	for _, m := range mats {
		m.Close()
	}
}
