package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultEngineConfigIsValid(t *testing.T) {
	config := DefaultEngineConfig()
	if err := config.Validate(); err != nil {
		t.Fatalf("默认配置应通过校验: %v", err)
	}
	if config.PathService.Attempts != 5 || config.PathService.RetryWait().Seconds() != 1 {
		t.Errorf("默认重试策略 = %+v", config.PathService)
	}
	if config.Mouse.StepDelayMs != 10 {
		t.Errorf("默认步进间隔 = %d", config.Mouse.StepDelayMs)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*EngineConfig)
		field  string
	}{
		{"空窗口标题", func(c *EngineConfig) { c.WindowTitle = " " }, "window_title"},
		{"未知截图后端", func(c *EngineConfig) { c.CaptureBackend = "x11" }, "capture_backend"},
		{"未知鼠标风格", func(c *EngineConfig) { c.Mouse.Style = "linear" }, "mouse.style"},
		{"未知鼠标速度", func(c *EngineConfig) { c.Mouse.Speed = "warp" }, "mouse.speed"},
		{"终点边长为 0", func(c *EngineConfig) { c.Walker.DestSide = 0 }, "walker.dest_side"},
		{"重试次数为 0", func(c *EngineConfig) { c.PathService.Attempts = 0 }, "path_service.attempts"},
		{"推送地址协议错误", func(c *EngineConfig) { c.Telemetry.URL = "http://x" }, "telemetry.url"},
		{"未知日志级别", func(c *EngineConfig) { c.Log.Level = "trace" }, "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultEngineConfig()
			tt.mutate(config)
			err := config.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("期望 ErrInvalidConfig, 得到 %v", err)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("错误信息应包含 %s: %v", tt.field, err)
			}
		})
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	config := DefaultEngineConfig()
	config.WindowTitle = ""
	config.Walker.Horizon = 0
	err := config.Validate()
	if err == nil || !strings.Contains(err.Error(), "window_title") || !strings.Contains(err.Error(), "walker.horizon") {
		t.Errorf("应同时报告两个问题: %v", err)
	}
}

func TestManagerSaveAndLoad(t *testing.T) {
	manager := NewManagerWithDir(t.TempDir())

	if manager.Exists() {
		t.Error("初始时配置文件不应存在")
	}

	config := DefaultEngineConfig()
	config.WindowTitle = "RuneLite - zezima"
	config.Mouse.Style = "wind"
	config.Walker.DestSide = 3
	config.Telemetry.URL = "ws://127.0.0.1:9000/events"

	if err := manager.Save(config); err != nil {
		t.Fatalf("保存配置失败: %v", err)
	}
	if !manager.Exists() {
		t.Error("保存后配置文件应存在")
	}

	loaded, err := manager.Load()
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}
	if loaded.WindowTitle != config.WindowTitle || loaded.Mouse.Style != "wind" ||
		loaded.Walker.DestSide != 3 || loaded.Telemetry.URL != config.Telemetry.URL {
		t.Errorf("加载的配置 = %+v", loaded)
	}
}

func TestManagerSaveRejectsInvalid(t *testing.T) {
	manager := NewManagerWithDir(t.TempDir())
	config := DefaultEngineConfig()
	config.CaptureBackend = ""
	if err := manager.Save(config); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("期望 ErrInvalidConfig, 得到 %v", err)
	}
	if manager.Exists() {
		t.Error("校验失败时不应写入文件")
	}
}

func TestManagerLoadKeepsDefaultsForMissingFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "zoeysight.json")
	if err := os.WriteFile(path, []byte(`{"window_title":"OSRS","walker":{"dest_side":2}}`), 0600); err != nil {
		t.Fatal(err)
	}

	loaded, err := NewManagerWithFile(path).Load()
	if err != nil {
		t.Fatal(err)
	}
	if loaded.WindowTitle != "OSRS" || loaded.Walker.DestSide != 2 {
		t.Errorf("文件字段未生效: %+v", loaded)
	}
	if loaded.Walker.Horizon != 12 || loaded.PathService.Attempts != 5 {
		t.Errorf("缺失字段应保留默认值: %+v", loaded)
	}
}

func TestManagerLoadInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	manager := NewManagerWithDir(dir)
	if err := os.WriteFile(manager.ConfigFile(), []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	config, err := manager.Load()
	if err == nil {
		t.Error("无效 JSON 应返回错误")
	}
	if config == nil || config.WindowTitle != "RuneLite" {
		t.Errorf("出错时应返回默认配置, 得到 %+v", config)
	}
}

func TestManagerClear(t *testing.T) {
	manager := NewManagerWithDir(t.TempDir())
	if err := manager.Clear(); err != nil {
		t.Fatalf("清除不存在的配置不应报错: %v", err)
	}
	if err := manager.Save(DefaultEngineConfig()); err != nil {
		t.Fatal(err)
	}
	if err := manager.Clear(); err != nil {
		t.Fatal(err)
	}
	if manager.Exists() {
		t.Error("清除后配置文件不应存在")
	}
}
