// Package config 引擎配置的加载、保存与校验
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"github.com/zoeyai/zoeysight/internal/logger"
	"github.com/zoeyai/zoeysight/pkg/motion"
	"github.com/zoeyai/zoeysight/pkg/navigation"
)

// ErrInvalidConfig 配置校验失败
var ErrInvalidConfig = errors.New("配置无效")

// MouseConfig 鼠标移动参数
type MouseConfig struct {
	Style       string `json:"style"`
	Speed       string `json:"speed"`
	StepDelayMs int    `json:"step_delay_ms"`
}

// WalkerConfig 寻路参数
type WalkerConfig struct {
	DestSide            int  `json:"dest_side"`
	MaxWaypointDist     int  `json:"max_waypoint_dist"`
	Horizon             int  `json:"horizon"`
	ResetZoomEachEmbark bool `json:"reset_zoom_each_embark"`
}

// PathServiceConfig 路径服务端点与重试
type PathServiceConfig struct {
	DAXURL            string `json:"dax_url"`
	OSRSPathfinderURL string `json:"osrs_pathfinder_url"`
	Attempts          int    `json:"attempts"`
	RetryWaitMs       int    `json:"retry_wait_ms"`
}

// RetryWait 重试间隔
func (c PathServiceConfig) RetryWait() time.Duration {
	return time.Duration(c.RetryWaitMs) * time.Millisecond
}

// TelemetryConfig 事件推送
type TelemetryConfig struct {
	URL            string `json:"url"`
	HeartbeatSec   int    `json:"heartbeat_sec"`
	ReconnectDelay int    `json:"reconnect_delay_sec"`
}

// LogConfig 日志
type LogConfig struct {
	Level   string `json:"level"`
	File    string `json:"file"`
	Console bool   `json:"console"`
}

// EngineConfig 引擎配置
type EngineConfig struct {
	WindowTitle    string            `json:"window_title"`
	AssetsRoot     string            `json:"assets_root"`
	PaletteFile    string            `json:"palette_file"`
	FontsRoot      string            `json:"fonts_root"`
	CaptureBackend string            `json:"capture_backend"`
	Mouse          MouseConfig       `json:"mouse"`
	Walker         WalkerConfig      `json:"walker"`
	PathService    PathServiceConfig `json:"path_service"`
	Telemetry      TelemetryConfig   `json:"telemetry"`
	Log            LogConfig         `json:"log"`
}

// DefaultEngineConfig 默认配置
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		WindowTitle:    "RuneLite",
		AssetsRoot:     "assets",
		CaptureBackend: "robotgo",
		Mouse: MouseConfig{
			Style:       string(motion.StyleBezier),
			Speed:       string(motion.Fast),
			StepDelayMs: 10,
		},
		Walker: WalkerConfig{
			DestSide:            1,
			MaxWaypointDist:     10,
			Horizon:             12,
			ResetZoomEachEmbark: true,
		},
		PathService: PathServiceConfig{
			DAXURL:            navigation.DefaultDAXURL,
			OSRSPathfinderURL: navigation.DefaultOSRSPathfinderURL,
			Attempts:          navigation.DefaultAttempts,
			RetryWaitMs:       int(navigation.DefaultRetryWait / time.Millisecond),
		},
		Telemetry: TelemetryConfig{
			HeartbeatSec:   10,
			ReconnectDelay: 5,
		},
		Log: LogConfig{Level: "info", Console: true},
	}
}

// Validate 校验配置，返回全部问题
func (c *EngineConfig) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if strings.TrimSpace(c.WindowTitle) == "" {
		add("window_title 不能为空")
	}
	if c.AssetsRoot == "" {
		add("assets_root 不能为空")
	}
	switch c.CaptureBackend {
	case "robotgo", "screenshot":
	default:
		add("capture_backend 未知: %q", c.CaptureBackend)
	}
	if _, err := motion.ParseStyle(c.Mouse.Style); err != nil {
		add("mouse.style: %v", err)
	}
	if _, err := motion.ParseSpeed(c.Mouse.Speed); err != nil {
		add("mouse.speed: %v", err)
	}
	if c.Mouse.StepDelayMs < 0 {
		add("mouse.step_delay_ms 不能为负: %d", c.Mouse.StepDelayMs)
	}
	if c.Walker.DestSide < 1 {
		add("walker.dest_side 至少为 1: %d", c.Walker.DestSide)
	}
	if c.Walker.MaxWaypointDist < 1 {
		add("walker.max_waypoint_dist 至少为 1: %d", c.Walker.MaxWaypointDist)
	}
	if c.Walker.Horizon < 1 {
		add("walker.horizon 至少为 1: %d", c.Walker.Horizon)
	}
	if c.PathService.Attempts < 1 {
		add("path_service.attempts 至少为 1: %d", c.PathService.Attempts)
	}
	if c.PathService.RetryWaitMs < 0 {
		add("path_service.retry_wait_ms 不能为负: %d", c.PathService.RetryWaitMs)
	}
	if u := c.Telemetry.URL; u != "" && !strings.HasPrefix(u, "ws://") && !strings.HasPrefix(u, "wss://") {
		add("telemetry.url 必须以 ws:// 或 wss:// 开头: %q", u)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error", "":
	default:
		add("log.level 未知: %q", c.Log.Level)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// ApplyLogging 按配置设置全局日志
func (c *EngineConfig) ApplyLogging() error {
	l := logger.Default()
	l.SetLevel(logger.ParseLevel(c.Log.Level))
	l.SetConsole(c.Log.Console)
	if c.Log.File != "" {
		if err := l.SetFile(true, c.Log.File); err != nil {
			return fmt.Errorf("打开日志文件失败: %w", err)
		}
	}
	return nil
}

// Manager 配置管理器
type Manager struct {
	configDir  string
	configFile string
	mu         sync.RWMutex
}

// NewManager 创建配置管理器，目录为 ~/.zoeysight
func NewManager() *Manager {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return NewManagerWithDir(filepath.Join(homeDir, ".zoeysight"))
}

// NewManagerWithDir 使用指定目录创建配置管理器
func NewManagerWithDir(configDir string) *Manager {
	return &Manager{
		configDir:  configDir,
		configFile: filepath.Join(configDir, "config.json"),
	}
}

// NewManagerWithFile 使用指定配置文件
func NewManagerWithFile(path string) *Manager {
	return &Manager{
		configDir:  filepath.Dir(path),
		configFile: path,
	}
}

func (m *Manager) ensureDir() error {
	return os.MkdirAll(m.configDir, 0755)
}

// Load 加载配置，文件不存在时返回默认配置
//
// 文件中缺失的字段保留默认值。
func (m *Manager) Load() (*EngineConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, err := os.Stat(m.configFile); os.IsNotExist(err) {
		return DefaultEngineConfig(), nil
	}

	data, err := os.ReadFile(m.configFile)
	if err != nil {
		return DefaultEngineConfig(), fmt.Errorf("读取配置文件失败: %w", err)
	}

	config := DefaultEngineConfig()
	if err := sonic.Unmarshal(data, config); err != nil {
		return DefaultEngineConfig(), fmt.Errorf("解析配置文件失败: %w", err)
	}
	return config, nil
}

// Save 校验后保存配置
func (m *Manager) Save(config *EngineConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureDir(); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}

	data, err := sonic.ConfigStd.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	if err := os.WriteFile(m.configFile, data, 0600); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}
	return nil
}

// Clear 删除配置文件
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := os.Stat(m.configFile); os.IsNotExist(err) {
		return nil
	}
	return os.Remove(m.configFile)
}

// ConfigDir 配置目录
func (m *Manager) ConfigDir() string {
	return m.configDir
}

// ConfigFile 配置文件路径
func (m *Manager) ConfigFile() string {
	return m.configFile
}

// Exists 配置文件是否存在
func (m *Manager) Exists() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, err := os.Stat(m.configFile)
	return err == nil
}
