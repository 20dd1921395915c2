// Package logger 提供统一的日志工具
//
// 底层使用 zerolog，控制台输出保持 "时间 | 级别 | 内容" 的格式，
// 各引擎包通过 Module 获取带 module 字段的子 logger。
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Level 日志级别
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// zerologLevel 转换为 zerolog 级别
func (l Level) zerologLevel() zerolog.Level {
	switch l {
	case DEBUG:
		return zerolog.DebugLevel
	case WARN:
		return zerolog.WarnLevel
	case ERROR:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// ParseLevel 解析日志级别字符串
func ParseLevel(s string) Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// sink 同一棵 logger 树共享的输出目标
type sink struct {
	mu       sync.RWMutex
	level    Level
	enabled  bool
	console  bool
	file     bool
	filePath string
	fileOut  *os.File
	out      io.Writer
}

// Write 实现 io.Writer，按当前配置转发
func (s *sink) Write(p []byte) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.out.Write(p)
}

func (s *sink) updateOutput() {
	var writers []io.Writer

	if s.console {
		writers = append(writers, newConsoleWriter(os.Stdout))
	}
	if s.file && s.fileOut != nil {
		writers = append(writers, newConsoleWriter(s.fileOut))
	}

	switch len(writers) {
	case 0:
		s.out = io.Discard
	case 1:
		s.out = writers[0]
	default:
		s.out = io.MultiWriter(writers...)
	}
}

// newConsoleWriter 创建 "15:04:05 | INFO  | msg" 格式的输出
func newConsoleWriter(w io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    true,
		TimeFormat: "15:04:05",
		FormatLevel: func(i interface{}) string {
			return fmt.Sprintf("| %-5s |", strings.ToUpper(fmt.Sprint(i)))
		},
	}
}

// Logger 日志记录器
type Logger struct {
	sink   *sink
	zl     zerolog.Logger
	module string
}

// 全局默认 logger
var defaultLogger = New()

// New 创建新的 Logger 实例
func New() *Logger {
	s := &sink{
		level:   INFO,
		enabled: true,
		console: true,
	}
	s.updateOutput()

	return &Logger{
		sink: s,
		zl:   zerolog.New(s).With().Timestamp().Logger(),
	}
}

// NewWithWriter 创建输出到指定 writer 的 Logger（测试与嵌入场景使用）
func NewWithWriter(w io.Writer) *Logger {
	s := &sink{
		level:   DEBUG,
		enabled: true,
		out:     w,
	}
	return &Logger{
		sink: s,
		zl:   zerolog.New(s).With().Timestamp().Logger(),
	}
}

// Default 获取默认 logger
func Default() *Logger {
	return defaultLogger
}

// Module 返回带 module 字段的子 logger，与父 logger 共享输出和级别
func (l *Logger) Module(name string) *Logger {
	return &Logger{
		sink:   l.sink,
		zl:     l.zl.With().Str("module", name).Logger(),
		module: name,
	}
}

// Zerolog 返回底层 zerolog.Logger，用于需要结构化字段的场景
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.zl
}

// SetLevel 设置日志级别
func (l *Logger) SetLevel(level Level) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.level = level
}

// GetLevel 获取日志级别
func (l *Logger) GetLevel() Level {
	l.sink.mu.RLock()
	defer l.sink.mu.RUnlock()
	return l.sink.level
}

// SetEnabled 设置是否启用日志
func (l *Logger) SetEnabled(enabled bool) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.enabled = enabled
}

// SetConsole 设置是否输出到控制台
func (l *Logger) SetConsole(enabled bool) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.console = enabled
	l.sink.updateOutput()
}

// SetFile 设置是否输出到文件
func (l *Logger) SetFile(enabled bool, path string) error {
	s := l.sink
	s.mu.Lock()
	defer s.mu.Unlock()

	// 关闭旧文件
	if s.fileOut != nil {
		s.fileOut.Close()
		s.fileOut = nil
	}

	s.file = enabled
	s.filePath = path

	if enabled && path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			s.updateOutput()
			return fmt.Errorf("无法打开日志文件: %w", err)
		}
		s.fileOut = f
	}

	s.updateOutput()
	return nil
}

// log 内部日志方法
func (l *Logger) log(level Level, format string, args ...interface{}) {
	l.sink.mu.RLock()
	skip := !l.sink.enabled || level < l.sink.level
	l.sink.mu.RUnlock()
	if skip {
		return
	}

	l.zl.WithLevel(level.zerologLevel()).Msgf(format, args...)
}

// Debug 输出 DEBUG 级别日志
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(DEBUG, format, args...)
}

// Info 输出 INFO 级别日志
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(INFO, format, args...)
}

// Warn 输出 WARN 级别日志
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(WARN, format, args...)
}

// Error 输出 ERROR 级别日志
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(ERROR, format, args...)
}

// LogEvent 记录带分类的事件日志
func (l *Logger) LogEvent(category string, ok bool, elapsedMs float64, detail string) {
	status := "OK"
	if !ok {
		status = "NG"
	}

	if ok {
		l.Info("%-4s | %s | %6.1fms | %s", category, status, elapsedMs, detail)
	} else {
		l.Error("%-4s | %s | %6.1fms | %s", category, status, elapsedMs, detail)
	}
}

// Close 关闭 logger，释放资源
func (l *Logger) Close() error {
	s := l.sink
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fileOut != nil {
		err := s.fileOut.Close()
		s.fileOut = nil
		s.file = false
		s.updateOutput()
		return err
	}
	return nil
}

// 包级别便捷函数
func Debug(format string, args ...interface{}) { defaultLogger.Debug(format, args...) }
func Info(format string, args ...interface{})  { defaultLogger.Info(format, args...) }
func Warn(format string, args ...interface{})  { defaultLogger.Warn(format, args...) }
func Error(format string, args ...interface{}) { defaultLogger.Error(format, args...) }
func Module(name string) *Logger               { return defaultLogger.Module(name) }
func LogEvent(category string, ok bool, elapsedMs float64, detail string) {
	defaultLogger.LogEvent(category, ok, elapsedMs, detail)
}
