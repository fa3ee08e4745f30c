//go:build linux
// +build linux

package evloop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimerSingleShot(t *testing.T) {
	l, err := New()
	assert.Nil(t, err)

	var (
		count int
		delta time.Duration
	)
	start := time.Now()

	tm := NewTimer(l)
	err = tm.Start(func(*Timer) {
		count++
		delta = time.Since(start)
	}, 10*time.Millisecond, 0)
	assert.Nil(t, err)

	assert.Equal(t, 0, l.Run(RunDefault))
	assert.Equal(t, 1, count)
	assert.True(t, delta >= 10*time.Millisecond, "fired after %v", delta)

	tm.Close(nil)
	assert.Equal(t, 0, l.Run(RunDefault))
	assert.Nil(t, l.Close())
}

func TestTimerRepeatSlowCallback(t *testing.T) {
	l, err := New()
	assert.Nil(t, err)

	count := 0
	start := time.Now()

	tm := NewTimer(l)
	err = tm.Start(func(tm *Timer) {
		count++
		time.Sleep(5 * time.Millisecond)
		if count == 3 {
			tm.Stop()
		}
	}, time.Millisecond, time.Millisecond)
	assert.Nil(t, err)

	assert.Equal(t, 0, l.Run(RunDefault))

	// 回调拖慢循环时错过的周期被合并，不会积压补发
	assert.Equal(t, 3, count)
	assert.True(t, time.Since(start) >= 13*time.Millisecond)
	assert.Nil(t, l.Close())
}

func TestTimerZeroTimeoutFiresSameIteration(t *testing.T) {
	l, err := New()
	assert.Nil(t, err)

	fired := false

	prepare := NewPrepare(l)
	tm := NewTimer(l)
	assert.Nil(t, prepare.Start(func() {
		// prepare 阶段启动的零超时 timer 在本轮迭代末尾触发
		_ = tm.Start(func(*Timer) {
			fired = true
		}, 0, 0)
		prepare.Stop()
	}))

	l.Run(RunOnce)
	assert.True(t, fired)

	assert.Nil(t, l.Close())
}

func TestTimerSameExpiryOrder(t *testing.T) {
	l, err := New()
	assert.Nil(t, err)

	var order []int
	for i := 0; i < 10; i++ {
		i := i
		tm := NewTimer(l)
		assert.Nil(t, tm.Start(func(*Timer) {
			order = append(order, i)
		}, 5*time.Millisecond, 0))
	}

	assert.Equal(t, 0, l.Run(RunDefault))

	// 到期时间相同时按启动次序触发
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
	assert.Nil(t, l.Close())
}

func TestTimerAgain(t *testing.T) {
	l, err := New()
	assert.Nil(t, err)

	tm := NewTimer(l)
	assert.Equal(t, ErrNilCallback, tm.Again())

	count := 0
	assert.Nil(t, tm.Start(func(tm *Timer) {
		count++
		tm.Stop()
	}, time.Millisecond, 0))
	assert.Equal(t, ErrNoRepeat, tm.Again())

	tm.SetRepeat(2 * time.Millisecond)
	assert.Equal(t, 2*time.Millisecond, tm.Repeat())
	assert.Nil(t, tm.Again())

	assert.Equal(t, 0, l.Run(RunDefault))
	assert.Equal(t, 1, count)
	assert.Nil(t, l.Close())
}

func TestTimerStopRoundTrip(t *testing.T) {
	l, err := New()
	assert.Nil(t, err)

	tm := NewTimer(l)
	assert.Nil(t, tm.Start(func(*Timer) {}, time.Hour, 0))
	assert.True(t, tm.IsActive())
	assert.Equal(t, 1, l.timerHeap.Len())

	// 启动再停止后堆和存活计数回到原样
	tm.Stop()
	assert.False(t, tm.IsActive())
	assert.Equal(t, 0, l.timerHeap.Len())
	assert.Equal(t, 0, l.activeHandles)

	assert.Equal(t, 0, l.Run(RunDefault))
	assert.Nil(t, l.Close())
}
