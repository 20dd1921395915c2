// Package permissions 检查截屏与输入控制所需的系统权限
//
// 只有 macOS 需要显式授权，其他平台总是视为已授予。
package permissions

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zoeyai/zoeysight/internal/logger"
)

var log = logger.Module("permissions")

// ErrPermissionDenied 缺少系统权限
var ErrPermissionDenied = errors.New("缺少系统权限")

// Status 权限状态
type Status struct {
	// Input 辅助功能权限，用于控制鼠标与键盘
	Input bool `json:"input"`
	// Capture 屏幕录制权限，用于截屏
	Capture bool `json:"capture"`
}

// Granted 所有权限都已授予
func (s Status) Granted() bool { return s.Input && s.Capture }

// Missing 缺少的权限名称
func (s Status) Missing() []string {
	var out []string
	if !s.Input {
		out = append(out, "辅助功能")
	}
	if !s.Capture {
		out = append(out, "屏幕录制")
	}
	return out
}

// Instructions 授权指引，已全部授予时为空
func (s Status) Instructions() string {
	if s.Granted() {
		return ""
	}
	var b strings.Builder
	b.WriteString("需要授权以下权限才能正常工作:\n")
	for i, name := range s.Missing() {
		fmt.Fprintf(&b, "%d. %s: 系统设置 > 隐私与安全性 > %s\n", i+1, name, name)
	}
	b.WriteString("授权后需要重启应用才能生效。")
	return b.String()
}

// Checker 查询权限，prompt 为 true 时请求系统弹出授权对话框
type Checker func(prompt bool) Status

// Preflight 截屏与输入前的权限检查
//
// 先静默检查；有缺失时再请求一次系统授权对话框，仍缺失则返回
// 带授权指引的状态与 ErrPermissionDenied。新授予的权限通常要
// 重启进程才生效。
func Preflight() (Status, error) {
	return preflight(check)
}

func preflight(c Checker) (Status, error) {
	s := c(false)
	if s.Granted() {
		return s, nil
	}
	log.Warn("缺少权限: %s，请求系统授权", strings.Join(s.Missing(), ", "))
	s = c(true)
	return s, require(s)
}

func require(s Status) error {
	if s.Granted() {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrPermissionDenied, strings.Join(s.Missing(), ", "))
}
