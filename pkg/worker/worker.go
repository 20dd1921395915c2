// Package worker 在独立 goroutine 上运行自动化任务
//
// 同一时刻只允许一个任务持有鼠标与键盘。停止任务时先取消 context，
// 任务在下一次截图或移动的步骤边界返回；超过等待时限后仍会释放
// 所有按住的按键，保证输入状态一致。
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zoeyai/zoeysight/internal/logger"
	"github.com/zoeyai/zoeysight/pkg/telemetry"
)

var log = logger.Module("worker")

var (
	// ErrBusy 已有任务在运行
	ErrBusy = errors.New("已有任务在运行")
	// ErrUnknownTask 任务不存在
	ErrUnknownTask = errors.New("任务不存在")
	// ErrJoinTimeout 任务未在时限内退出
	ErrJoinTimeout = errors.New("等待任务退出超时")
)

// DefaultJoinTimeout 默认停止等待时限
const DefaultJoinTimeout = 5 * time.Second

// maxHistory 保留的已结束任务数
const maxHistory = 32

// Releaser 停止任务后释放输入状态
type Releaser interface {
	ReleaseAll() error
}

// TaskFunc 任务主体，需在 ctx 取消后尽快返回
type TaskFunc func(ctx context.Context, p *Progress) error

// PanicError 任务发生 panic
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("任务 panic: %v", e.Value)
}

// Info 任务快照
type Info struct {
	ID        string
	Name      string
	Status    string
	StartedAt time.Time
	Duration  time.Duration
	Err       error
}

type task struct {
	id        string
	name      string
	startedAt time.Time
	cancel    context.CancelFunc
	done      chan struct{}

	// 以下字段在 done 关闭后只读
	status   string
	err      error
	finished time.Time
}

func (t *task) info() Info {
	inf := Info{ID: t.id, Name: t.name, StartedAt: t.startedAt, Status: telemetry.StatusRunning}
	select {
	case <-t.done:
		inf.Status = t.status
		inf.Err = t.err
		inf.Duration = t.finished.Sub(t.startedAt)
	default:
		inf.Duration = time.Since(t.startedAt)
	}
	return inf
}

// Runner 单任务执行器
type Runner struct {
	input       Releaser
	reporter    telemetry.Reporter
	joinTimeout time.Duration

	mu      sync.Mutex
	current *task
	tasks   map[string]*task
	order   []string
}

// Option 执行器选项
type Option func(*Runner)

// WithReporter 任务事件推送目标
func WithReporter(r telemetry.Reporter) Option {
	return func(w *Runner) { w.reporter = r }
}

// WithJoinTimeout 停止任务时的等待时限
func WithJoinTimeout(d time.Duration) Option {
	return func(w *Runner) {
		if d > 0 {
			w.joinTimeout = d
		}
	}
}

// NewRunner 创建执行器，input 可为 nil
func NewRunner(input Releaser, opts ...Option) *Runner {
	w := &Runner{
		input:       input,
		joinTimeout: DefaultJoinTimeout,
		tasks:       make(map[string]*task),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start 启动任务并返回任务 ID
func (w *Runner) Start(ctx context.Context, name string, fn TaskFunc) (string, error) {
	w.mu.Lock()
	if w.current != nil {
		busy := w.current.id
		w.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrBusy, busy)
	}

	tctx, cancel := context.WithCancel(ctx)
	t := &task{
		id:        uuid.NewString(),
		name:      name,
		startedAt: time.Now(),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	w.current = t
	w.register(t)
	w.mu.Unlock()

	log.Info("[Task:%s] 开始执行 name=%s", t.id, name)
	w.publish(telemetry.Event{
		Type:   telemetry.TypeTaskStarted,
		TaskID: t.id,
		Name:   name,
		Status: telemetry.StatusRunning,
	})

	go w.run(tctx, t, fn)
	return t.id, nil
}

// Run 启动任务并等待结束
func (w *Runner) Run(ctx context.Context, name string, fn TaskFunc) error {
	id, err := w.Start(ctx, name, fn)
	if err != nil {
		return err
	}
	return w.Wait(id)
}

// register 需持有 w.mu
func (w *Runner) register(t *task) {
	w.tasks[t.id] = t
	w.order = append(w.order, t.id)
	for len(w.order) > maxHistory {
		oldest := w.tasks[w.order[0]]
		if oldest == w.current {
			break
		}
		delete(w.tasks, w.order[0])
		w.order = w.order[1:]
	}
}

func (w *Runner) run(ctx context.Context, t *task, fn TaskFunc) {
	var err error
	defer func() {
		t.cancel()
		w.release(t.id)
		w.finish(t, err)
	}()
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()

	err = fn(ctx, &Progress{runner: w, task: t})
}

func (w *Runner) finish(t *task, err error) {
	t.err = err
	t.status = classify(err)
	t.finished = time.Now()

	duration := t.finished.Sub(t.startedAt)
	ev := telemetry.Event{
		Type:       telemetry.TypeTaskFinished,
		TaskID:     t.id,
		Name:       t.name,
		Status:     t.status,
		DurationMs: duration.Milliseconds(),
	}
	if err != nil {
		ev.Message = err.Error()
		log.Warn("[Task:%s] 结束 status=%s duration=%v err=%v", t.id, t.status, duration, err)
	} else {
		log.Info("[Task:%s] 执行完成 duration=%v", t.id, duration)
	}
	w.publish(ev)
	log.LogEvent("task_"+t.name, err == nil, float64(duration.Microseconds())/1000, t.status)

	w.mu.Lock()
	if w.current == t {
		w.current = nil
	}
	w.mu.Unlock()
	close(t.done)
}

// classify 把任务错误归为终态
func classify(err error) string {
	switch {
	case err == nil:
		return telemetry.StatusSucceeded
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return telemetry.StatusCancelled
	default:
		return telemetry.StatusFailed
	}
}

func (w *Runner) release(id string) {
	if w.input == nil {
		return
	}
	if err := w.input.ReleaseAll(); err != nil {
		log.Warn("[Task:%s] 释放按键失败: %v", id, err)
	}
}

func (w *Runner) lookup(id string) (*task, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	t, ok := w.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, id)
	}
	return t, nil
}

// Cancel 请求取消任务，不等待退出
func (w *Runner) Cancel(id string) bool {
	t, err := w.lookup(id)
	if err != nil {
		return false
	}
	select {
	case <-t.done:
		return false
	default:
	}
	log.Info("[Task:%s] 请求取消", id)
	t.cancel()
	return true
}

// Stop 取消任务并在时限内等待退出
//
// 超时后释放所有按住的按键并返回 ErrJoinTimeout，任务 goroutine
// 会在下一个步骤边界自行退出。
func (w *Runner) Stop(id string) error {
	t, err := w.lookup(id)
	if err != nil {
		return err
	}
	t.cancel()

	timer := time.NewTimer(w.joinTimeout)
	defer timer.Stop()
	select {
	case <-t.done:
		return nil
	case <-timer.C:
		log.Error("[Task:%s] %v 内未退出", id, w.joinTimeout)
		w.release(id)
		return fmt.Errorf("%w: %s", ErrJoinTimeout, id)
	}
}

// StopCurrent 停止当前任务，没有任务时返回 nil
func (w *Runner) StopCurrent() error {
	w.mu.Lock()
	t := w.current
	w.mu.Unlock()
	if t == nil {
		return nil
	}
	return w.Stop(t.id)
}

// Wait 等待任务结束并返回其错误
func (w *Runner) Wait(id string) error {
	t, err := w.lookup(id)
	if err != nil {
		return err
	}
	<-t.done
	return t.err
}

// Task 查询任务快照
func (w *Runner) Task(id string) (Info, error) {
	t, err := w.lookup(id)
	if err != nil {
		return Info{}, err
	}
	return t.info(), nil
}

// Status 执行器状态，可直接作为心跳状态来源
func (w *Runner) Status() telemetry.AgentStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current == nil {
		return telemetry.AgentStatus{State: telemetry.StateIdle}
	}
	return telemetry.AgentStatus{
		State:         telemetry.StateBusy,
		CurrentTaskID: w.current.id,
		CurrentTask:   w.current.name,
		TaskStartedAt: w.current.startedAt.UnixMilli(),
	}
}

func (w *Runner) publish(ev telemetry.Event) {
	if w.reporter == nil {
		return
	}
	w.reporter.Publish(ev)
}

// Progress 任务内的进度上报
type Progress struct {
	runner *Runner
	task   *task
}

// TaskID 当前任务 ID
func (p *Progress) TaskID() string { return p.task.id }

// Report 上报进度，fraction 取值 [0, 1]
func (p *Progress) Report(fraction float64, format string, args ...any) {
	fraction = min(max(fraction, 0), 1)
	msg := fmt.Sprintf(format, args...)
	log.Debug("[Task:%s] %.0f%% %s", p.task.id, fraction*100, msg)
	p.runner.publish(telemetry.Event{
		Type:     telemetry.TypeTaskProgress,
		TaskID:   p.task.id,
		Name:     p.task.name,
		Status:   telemetry.StatusRunning,
		Progress: fraction,
		Message:  msg,
	})
}

// Attach 上报一张图片 (data URL)，例如任务截图
func (p *Progress) Attach(dataURL, format string, args ...any) {
	p.runner.publish(telemetry.Event{
		Type:    telemetry.TypeTaskProgress,
		TaskID:  p.task.id,
		Name:    p.task.name,
		Status:  telemetry.StatusRunning,
		Message: fmt.Sprintf(format, args...),
		Image:   dataURL,
	})
}
