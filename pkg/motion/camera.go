package motion

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/zoeyai/zoeysight/pkg/humanize"
)

var (
	// ErrNoRotation 水平和垂直旋转量都为 0
	ErrNoRotation = errors.New("相机旋转至少需要一个方向的非零角度")
	// ErrRotationRange 旋转角度超出范围
	ErrRotationRange = errors.New("相机旋转角度超出范围")
)

// 方向键按住时长与角度的换算
const (
	horizontalSecsPer360 = 3.5626031001
	verticalSecsPer90    = 1.75
)

// Camera 通过方向键旋转游戏相机
type Camera struct {
	dev   Device
	sleep func(ctx context.Context, d time.Duration) error
}

// NewCamera 创建相机控制
func NewCamera(dev Device) *Camera {
	return &Camera{dev: dev, sleep: sleepCtx}
}

// HoldDurations 计算水平、垂直旋转需要按住方向键的时长
func HoldDurations(horizontal, vertical float64) (h, v time.Duration) {
	h = seconds(horizontalSecsPer360 / 360 * math.Abs(horizontal))
	v = seconds(verticalSecsPer90 / 90 * math.Abs(vertical))
	return h, v
}

// MoveCamera 旋转相机
//
// horizontal 负数向左，范围 [-360, 360]；vertical 负数向下，范围 [-90, 90]。
// 两个方向同时旋转时，按住时间较长的键先开始，另一个键在一段随机延迟后开始，
// 两个按键都抬起后才返回。
func (c *Camera) MoveCamera(ctx context.Context, horizontal, vertical float64) error {
	if horizontal == 0 && vertical == 0 {
		return ErrNoRotation
	}
	if horizontal < -360 || horizontal > 360 {
		return fmt.Errorf("%w: 水平 %.1f 不在 [-360, 360]", ErrRotationRange, horizontal)
	}
	if vertical < -90 || vertical > 90 {
		return fmt.Errorf("%w: 垂直 %.1f 不在 [-90, 90]", ErrRotationRange, vertical)
	}

	holdH, holdV := HoldDurations(horizontal, vertical)
	keyH := "right"
	if horizontal < 0 {
		keyH = "left"
	}
	keyV := "up"
	if vertical < 0 {
		keyV = "down"
	}

	switch {
	case horizontal == 0:
		return c.hold(ctx, keyV, holdV)
	case vertical == 0:
		return c.hold(ctx, keyH, holdH)
	}

	first, firstHold, second, secondHold := keyV, holdV, keyH, holdH
	if holdH > holdV {
		first, firstHold, second, secondHold = keyH, holdH, keyV, holdV
	}
	delay := seconds(humanize.BiasedTruncNorm(0, max(holdH, holdV).Seconds(), false))

	// 先按下的键在独立 goroutine 中计时抬起，当前 goroutine 延迟后按住另一个键
	if err := c.dev.KeyToggle(first, true); err != nil {
		return fmt.Errorf("按下 %s 失败: %w", first, err)
	}
	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		firstErr = c.release(ctx, first, firstHold)
	}()

	secondErr := c.sleep(ctx, delay)
	if secondErr == nil {
		secondErr = c.hold(ctx, second, secondHold)
	}
	wg.Wait()
	if err := errors.Join(firstErr, secondErr); err != nil {
		return err
	}

	log.Debug("相机旋转 (%.1f, %.1f)", horizontal, vertical)
	return nil
}

// hold 按住方向键 d 时长，取消时也会抬起
func (c *Camera) hold(ctx context.Context, key string, d time.Duration) error {
	if err := c.dev.KeyToggle(key, true); err != nil {
		return fmt.Errorf("按下 %s 失败: %w", key, err)
	}
	return c.release(ctx, key, d)
}

// release 等待 d 后抬起按键
func (c *Camera) release(ctx context.Context, key string, d time.Duration) error {
	sleepErr := c.sleep(ctx, d)
	if err := c.dev.KeyToggle(key, false); err != nil {
		return fmt.Errorf("抬起 %s 失败: %w", key, err)
	}
	return sleepErr
}

// SearchWithCamera 随机转动相机寻找目标
//
// 水平 ±U(80, 100)°，垂直 ±U(20, 70)°。
func (c *Camera) SearchWithCamera(ctx context.Context) (theta, phi float64, err error) {
	theta = humanize.Pick(-1.0, 1.0) * humanize.Uniform(80, 100)
	phi = humanize.Pick(-1.0, 1.0) * humanize.Uniform(20, 70)
	err = c.MoveCamera(ctx, theta, phi)
	return theta, phi, err
}
