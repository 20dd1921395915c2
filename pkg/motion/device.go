package motion

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/zoeyai/zoeysight/pkg/geometry"
)

// Button 鼠标按键
type Button string

const (
	ButtonLeft   Button = "left"
	ButtonRight  Button = "right"
	ButtonCenter Button = "center"
)

// Device 指针与键盘的输出端
//
// 实现需要允许相机旋转时两个 goroutine 同时调用 KeyToggle。
type Device interface {
	// Position 当前指针位置（屏幕坐标）
	Position() geometry.Point
	// MoveTo 把指针瞬移到 (x, y)
	MoveTo(x, y int)
	// Toggle 按下或抬起鼠标按键
	Toggle(button Button, down bool) error
	// KeyToggle 按下或抬起键盘按键
	KeyToggle(key string, down bool) error
	// Scroll 垂直滚动，正数向上
	Scroll(amount int)
	// TypeText 输入文字
	TypeText(text string)
}

// Tracked 记录当前按住的按键，停止时统一释放
type Tracked struct {
	Device

	mu      sync.Mutex
	keys    map[string]bool
	buttons map[Button]bool
}

// Track 包装设备以跟踪按住的按键
func Track(dev Device) *Tracked {
	return &Tracked{
		Device:  dev,
		keys:    make(map[string]bool),
		buttons: make(map[Button]bool),
	}
}

// Toggle 按下或抬起鼠标按键并记录状态
func (t *Tracked) Toggle(button Button, down bool) error {
	if err := t.Device.Toggle(button, down); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if down {
		t.buttons[button] = true
	} else {
		delete(t.buttons, button)
	}
	return nil
}

// KeyToggle 按下或抬起键盘按键并记录状态
func (t *Tracked) KeyToggle(key string, down bool) error {
	if err := t.Device.KeyToggle(key, down); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if down {
		t.keys[key] = true
	} else {
		delete(t.keys, key)
	}
	return nil
}

// Held 当前按住的键盘按键（排序后）
func (t *Tracked) Held() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	keys := make([]string, 0, len(t.keys))
	for k := range t.keys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ReleaseAll 抬起全部按住的按键
func (t *Tracked) ReleaseAll() error {
	t.mu.Lock()
	keys := make([]string, 0, len(t.keys))
	for k := range t.keys {
		keys = append(keys, k)
	}
	buttons := make([]Button, 0, len(t.buttons))
	for b := range t.buttons {
		buttons = append(buttons, b)
	}
	t.mu.Unlock()

	var errs []error
	for _, b := range buttons {
		if err := t.Toggle(b, false); err != nil {
			errs = append(errs, err)
		}
	}
	for _, k := range keys {
		if err := t.KeyToggle(k, false); err != nil {
			errs = append(errs, err)
		}
	}
	if n := len(keys) + len(buttons); n > 0 {
		log.Info("已释放 %d 个按住的按键", n)
	}
	return errors.Join(errs...)
}

// KeyTap 按下并抬起一个键
func KeyTap(dev Device, key string) error {
	if err := dev.KeyToggle(key, true); err != nil {
		return err
	}
	return dev.KeyToggle(key, false)
}

// sleepCtx 可取消的休眠
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
