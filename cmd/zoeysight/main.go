package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/zoeyai/zoeysight/internal/logger"
	"github.com/zoeyai/zoeysight/pkg/auto/screen"
	"github.com/zoeyai/zoeysight/pkg/config"
	"github.com/zoeyai/zoeysight/pkg/engine"
	"github.com/zoeyai/zoeysight/pkg/geometry"
	"github.com/zoeyai/zoeysight/pkg/permissions"
	"github.com/zoeyai/zoeysight/pkg/snapshot"
	"github.com/zoeyai/zoeysight/pkg/telemetry"
	"github.com/zoeyai/zoeysight/pkg/vision/cv"
	"github.com/zoeyai/zoeysight/pkg/worker"
)

// 版本信息 (可通过 ldflags 注入)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var log = logger.Module("main")

// command 子命令
type command struct {
	name  string
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = []command{
	{"calibrate", "定位窗口并打印全部界面区域", runCalibrate},
	{"snapshot", "把每个界面区域截图保存到目录", runSnapshot},
	{"walk", "走到指定地块: walk -to 3222,3218", runWalk},
	{"scrape", "识别界面文字: scrape -what mouseover|chat|input|position|stats|action|inventory", runScrape},
	{"config", "查看或初始化配置文件", runConfig},
}

func main() {
	var (
		configPath  = flag.String("config", "", "配置文件路径 (默认 ~/.zoeysight/config.json)")
		logLevel    = flag.String("log-level", "", "日志级别，覆盖配置文件")
		showVersion = flag.Bool("version", false, "显示版本信息")
	)
	flag.Usage = printHelp
	flag.Parse()

	if *showVersion {
		printVersion()
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		printHelp()
		os.Exit(2)
	}

	var cmd *command
	for i := range commands {
		if commands[i].name == args[0] {
			cmd = &commands[i]
		}
	}
	if cmd == nil {
		fmt.Fprintf(os.Stderr, "[ERROR] 未知命令: %s\n\n", args[0])
		printHelp()
		os.Exit(2)
	}

	mgr := config.NewManager()
	if *configPath != "" {
		mgr = config.NewManagerWithFile(*configPath)
	}
	cfg, err := mgr.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] 加载配置失败: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if err := cfg.ApplyLogging(); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] %v\n", err)
	}
	defer logger.Default().Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{cfg: cfg, mgr: mgr}
	if err := cmd.run(ctx, a, args[1:]); err != nil {
		log.Error("%s 失败: %v", cmd.name, err)
		a.close()
		os.Exit(1)
	}
	a.close()
}

// app 子命令共享的运行环境
type app struct {
	cfg *config.EngineConfig
	mgr *config.Manager

	eng    *engine.Engine
	pub    *telemetry.Publisher
	runner *worker.Runner
}

// setup 检查权限，创建引擎、事件推送与执行器
func (a *app) setup(ctx context.Context) error {
	if status, err := permissions.Preflight(); err != nil {
		fmt.Println(status.Instructions())
		return err
	}

	eng, err := engine.FromConfig(a.cfg)
	if err != nil {
		return err
	}
	a.eng = eng

	if url := a.cfg.Telemetry.URL; url != "" {
		a.pub = telemetry.NewPublisher(telemetry.Config{
			URL:               url,
			HeartbeatInterval: time.Duration(a.cfg.Telemetry.HeartbeatSec) * time.Second,
			ReconnectDelay:    time.Duration(a.cfg.Telemetry.ReconnectDelay) * time.Second,
		})
		if err := a.pub.Connect(ctx); err != nil {
			// 推送失败不影响任务
			log.Warn("事件推送不可用: %v", err)
			_ = a.pub.Close()
			a.pub = nil
		}
	}

	opts := []worker.Option{}
	if a.pub != nil {
		opts = append(opts, worker.WithReporter(a.pub))
	}
	a.runner = worker.NewRunner(eng.Device(), opts...)
	if a.pub != nil {
		a.pub.SetStatusFunc(a.runner.Status)
	}
	return nil
}

// exec 在执行器上运行任务，收到中断信号时协作取消
func (a *app) exec(ctx context.Context, name string, fn worker.TaskFunc) error {
	id, err := a.runner.Start(context.Background(), name, fn)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- a.runner.Wait(id) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		fmt.Println()
		log.Info("收到中断信号，正在停止任务...")
		if err := a.runner.Stop(id); err != nil {
			return err
		}
		return <-done
	}
}

func (a *app) close() {
	if a.pub != nil {
		_ = a.pub.Close()
	}
	if a.eng != nil {
		a.eng.Close()
	}
}

func runCalibrate(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("calibrate", flag.ExitOnError)
	_ = fs.Parse(args)

	if err := a.setup(ctx); err != nil {
		return err
	}
	return a.exec(ctx, "calibrate", func(ctx context.Context, p *worker.Progress) error {
		regions, err := a.eng.Calibrate(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("窗口: %s  布局: %s\n", regions.Window, regions.Layout)
		for _, reg := range regions.All() {
			if !reg.List {
				fmt.Printf("  %-18s %s\n", reg.Name, reg.Rects[0])
				continue
			}
			fmt.Printf("  %-18s %d 个\n", reg.Name, len(reg.Rects))
		}
		p.Report(1, "已定位 %d 个区域", len(regions.All()))
		return nil
	})
}

func runSnapshot(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	out := fs.String("out", "snapshot", "输出目录")
	maxWidth := fs.Int("max-width", 1280, "总览图最大宽度，0 表示原尺寸")
	skipRegions := fs.Bool("overview-only", false, "只保存总览图")
	_ = fs.Parse(args)

	if err := a.setup(ctx); err != nil {
		return err
	}
	return a.exec(ctx, "snapshot", func(ctx context.Context, p *worker.Progress) error {
		regions, err := a.eng.Calibrate(ctx)
		if err != nil {
			return err
		}
		p.Report(0.5, "已校准")
		res, err := snapshot.Write(*out, regions, a.eng.Capturer(), snapshot.Options{
			MaxOverviewWidth: *maxWidth,
			SkipRegions:      *skipRegions,
		})
		if err != nil {
			return err
		}
		fmt.Printf("已保存 %d 个文件到 %s\n", len(res.Files), res.Dir)
		if a.pub != nil && res.Overview != "" {
			a.attachOverview(p, res.Overview)
		}
		return nil
	})
}

// attachOverview 把总览图压缩为 JPEG 随进度事件推送
func (a *app) attachOverview(p *worker.Progress, path string) {
	mat, err := cv.ReadImage(path)
	if err != nil {
		log.Warn("读取总览图失败: %v", err)
		return
	}
	defer mat.Close()
	data, err := screen.MatToBase64(mat, "jpeg", 70)
	if err != nil {
		log.Warn("编码总览图失败: %v", err)
		return
	}
	p.Attach(data, "总览图 %s", path)
}

func runWalk(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("walk", flag.ExitOnError)
	to := fs.String("to", "", "目标地块 x,y")
	via := fs.String("via", "", "寻路服务都失败时使用的预设路径 x1,y1;x2,y2;...")
	_ = fs.Parse(args)

	dest, err := parsePoint(*to)
	if err != nil {
		return fmt.Errorf("-to: %w", err)
	}
	fallback, err := parsePath(*via)
	if err != nil {
		return fmt.Errorf("-via: %w", err)
	}

	if err := a.setup(ctx); err != nil {
		return err
	}
	return a.exec(ctx, "walk", func(ctx context.Context, p *worker.Progress) error {
		if _, err := a.eng.Calibrate(ctx); err != nil {
			return err
		}
		p.Report(0.1, "前往 %s", dest)
		if err := a.eng.WalkTo(ctx, dest, fallback); err != nil {
			return err
		}
		fmt.Printf("已到达 %s\n", dest)
		return nil
	})
}

func runScrape(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("scrape", flag.ExitOnError)
	what := fs.String("what", "mouseover", "mouseover | chat | input | position | stats | action | inventory")
	action := fs.String("action", "", "配合 -what action 使用的动作名, 如 Fishing")
	_ = fs.Parse(args)

	if err := a.setup(ctx); err != nil {
		return err
	}
	return a.exec(ctx, "scrape", func(ctx context.Context, _ *worker.Progress) error {
		if _, err := a.eng.Calibrate(ctx); err != nil {
			return err
		}
		switch *what {
		case "mouseover":
			text, err := a.eng.MouseoverText()
			if err != nil {
				return err
			}
			fmt.Println(text)
		case "chat":
			lines, err := a.eng.ChatHistory()
			if err != nil {
				return err
			}
			for i, line := range lines {
				fmt.Printf("%2d: %s\n", i, line)
			}
		case "input":
			text, err := a.eng.ChatInputText()
			if err != nil {
				return err
			}
			fmt.Println(text)
		case "stats":
			printStats(a.eng)
		case "action":
			if *action == "" {
				return errors.New("-what action 需要 -action")
			}
			doing, err := a.eng.IsDoingAction(*action)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %v\n", *action, doing)
		case "position":
			wp, err := a.eng.WorldPoint()
			if err != nil {
				return err
			}
			chunk, _ := a.eng.ChunkID()
			region, _ := a.eng.RegionID()
			fmt.Printf("地块: %s  chunk: %d  region: %d\n", wp, chunk, region)
		case "inventory":
			empty, err := a.eng.EmptySlotCount()
			if err != nil {
				return err
			}
			fmt.Printf("空格: %d  已占用: %d\n", empty, engine.InventorySize-empty)
		default:
			return fmt.Errorf("未知的识别目标: %s", *what)
		}
		return nil
	})
}

// printStats 打印圆球与经验读数，读取失败的项显示 -1
func printStats(eng *engine.Engine) {
	stats := []struct {
		name string
		read func() (int, error)
	}{
		{"HP", eng.HP},
		{"Prayer", eng.Prayer},
		{"Run", eng.RunEnergy},
		{"Spec", eng.SpecialEnergy},
		{"XP", eng.TotalXP},
	}
	for _, s := range stats {
		v, err := s.read()
		if err != nil {
			log.Debug("读取 %s 失败: %v", s.name, err)
		}
		fmt.Printf("%-6s %d\n", s.name, v)
	}
}

func runConfig(_ context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	initCfg := fs.Bool("init", false, "写入当前配置 (含默认值) 到配置文件")
	reset := fs.Bool("reset", false, "删除配置文件")
	_ = fs.Parse(args)

	switch {
	case *reset:
		if err := a.mgr.Clear(); err != nil {
			return err
		}
		fmt.Printf("已删除 %s\n", a.mgr.ConfigFile())
		return nil
	case *initCfg:
		if err := a.mgr.Save(a.cfg); err != nil {
			return err
		}
		fmt.Printf("配置已保存到 %s\n", a.mgr.ConfigFile())
		return nil
	}

	fmt.Printf("配置文件: %s (存在: %v)\n", a.mgr.ConfigFile(), a.mgr.Exists())
	fmt.Printf("窗口标题: %s\n", a.cfg.WindowTitle)
	fmt.Printf("资源目录: %s\n", a.cfg.AssetsRoot)
	fmt.Printf("截图后端: %s\n", a.cfg.CaptureBackend)
	fmt.Printf("鼠标: %s / %s\n", a.cfg.Mouse.Style, a.cfg.Mouse.Speed)
	fmt.Printf("寻路服务: %s, %s\n", a.cfg.PathService.DAXURL, a.cfg.PathService.OSRSPathfinderURL)
	if err := a.cfg.Validate(); err != nil {
		fmt.Printf("[WARN] %v\n", err)
	}
	return nil
}

// parsePoint 解析 "x,y"
func parsePoint(s string) (geometry.Point, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return geometry.Point{}, fmt.Errorf("格式应为 x,y: %q", s)
	}
	x, errX := strconv.Atoi(strings.TrimSpace(parts[0]))
	y, errY := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err := errors.Join(errX, errY); err != nil {
		return geometry.Point{}, fmt.Errorf("坐标无效 %q: %w", s, err)
	}
	return geometry.Point{X: x, Y: y}, nil
}

// parsePath 解析 "x1,y1;x2,y2"，空串返回 nil
func parsePath(s string) ([]geometry.Point, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var path []geometry.Point
	for _, part := range strings.Split(s, ";") {
		pt, err := parsePoint(part)
		if err != nil {
			return nil, err
		}
		path = append(path, pt)
	}
	return path, nil
}

// printVersion 打印版本信息
func printVersion() {
	fmt.Printf("zoeysight v%s\n", Version)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}

// printHelp 打印帮助信息
func printHelp() {
	fmt.Println("zoeysight - 基于屏幕识别的游戏客户端自动化引擎")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  zoeysight [选项] <命令> [命令选项]")
	fmt.Println()
	fmt.Println("选项:")
	fmt.Println("  -config string      配置文件路径")
	fmt.Println("  -log-level string   日志级别 (debug, info, warn, error)")
	fmt.Println("  -version            显示版本信息")
	fmt.Println()
	fmt.Println("命令:")
	for _, c := range commands {
		fmt.Printf("  %-10s %s\n", c.name, c.usage)
	}
	fmt.Println()
	fmt.Println("示例:")
	fmt.Println("  zoeysight snapshot -out shots")
	fmt.Println("  zoeysight walk -to 3222,3218")
	fmt.Println("  zoeysight -log-level debug scrape -what chat")
}
