package engine

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/zoeyai/zoeysight/pkg/auto/input"
	"github.com/zoeyai/zoeysight/pkg/auto/screen"
	"github.com/zoeyai/zoeysight/pkg/auto/window"
	"github.com/zoeyai/zoeysight/pkg/color"
	"github.com/zoeyai/zoeysight/pkg/config"
	"github.com/zoeyai/zoeysight/pkg/geometry"
	"github.com/zoeyai/zoeysight/pkg/motion"
	"github.com/zoeyai/zoeysight/pkg/navigation"
	"github.com/zoeyai/zoeysight/pkg/vision/cv"
	"github.com/zoeyai/zoeysight/pkg/vision/ocr"
)

// FromConfig 按配置创建连接真实屏幕与输入设备的引擎
func FromConfig(cfg *config.EngineConfig) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	capturer, err := screen.New(cfg.CaptureBackend)
	if err != nil {
		return nil, err
	}

	palette, err := color.LoadPalette(cfg.PaletteFile)
	if err != nil {
		return nil, err
	}

	fontsRoot := cfg.FontsRoot
	if fontsRoot == "" {
		fontsRoot = filepath.Join(cfg.AssetsRoot, "fonts")
	}
	fonts, err := ocr.LoadFonts(fontsRoot)
	if err != nil {
		log.Warn("加载字体失败，文字识别不可用: %v", err)
		fonts = ocr.Fonts{}
	}

	style, _ := motion.ParseStyle(cfg.Mouse.Style)
	speed, _ := motion.ParseSpeed(cfg.Mouse.Speed)

	return New(capturer, input.NewDevice(),
		WithPalette(palette),
		WithFonts(fonts),
		WithTemplates(cv.NewLibrary(filepath.Join(cfg.AssetsRoot, "images"))),
		WithLocator(windowLocator(cfg.WindowTitle)),
		WithMouseOptions(
			motion.WithStyle(style),
			motion.WithSpeed(speed),
			motion.WithStepDelay(time.Duration(cfg.Mouse.StepDelayMs)*time.Millisecond),
		),
		WithWalkerConfig(walkerConfig(cfg.Walker)),
		WithPathServices(pathServices(cfg.PathService)...),
	), nil
}

// windowLocator 激活并定位标题匹配的窗口
func windowLocator(title string) Locator {
	provider := window.NewProvider()
	return func() (geometry.Rectangle, error) {
		if err := provider.Focus(title); err != nil {
			log.Warn("激活窗口失败: %v", err)
		}
		rect, err := provider.Locate(title)
		if err != nil {
			return geometry.Rectangle{}, fmt.Errorf("定位窗口 %q 失败: %w", title, err)
		}
		return rect, nil
	}
}

func walkerConfig(c config.WalkerConfig) navigation.WalkerConfig {
	return navigation.WalkerConfig{
		DestSide:            c.DestSide,
		MaxWaypointDist:     float64(c.MaxWaypointDist),
		Horizon:             c.Horizon,
		ResetZoomEachEmbark: c.ResetZoomEachEmbark,
	}
}

// pathServices 按配置创建寻路服务，URL 为空的服务被跳过
func pathServices(c config.PathServiceConfig) []navigation.PathService {
	retry := navigation.WithRetry(c.Attempts, c.RetryWait())
	var services []navigation.PathService
	if c.DAXURL != "" {
		services = append(services, navigation.NewDAXClient(c.DAXURL, retry))
	}
	if c.OSRSPathfinderURL != "" {
		services = append(services, navigation.NewOSRSPathfinderClient(c.OSRSPathfinderURL, retry))
	}
	return services
}
