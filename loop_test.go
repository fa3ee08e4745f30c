//go:build linux
// +build linux

package evloop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoopEmptyRunReturnsImmediately(t *testing.T) {
	l, err := New()
	assert.Nil(t, err)

	start := time.Now()
	assert.Equal(t, 0, l.Run(RunDefault))
	assert.True(t, time.Since(start) < 100*time.Millisecond)
	assert.Nil(t, l.Close())
}

func TestLoopPhaseOrder(t *testing.T) {
	l, err := New()
	assert.Nil(t, err)

	var order []string

	tm := NewTimer(l)
	assert.Nil(t, tm.Start(func(*Timer) {
		order = append(order, "timer")
	}, 0, 0))

	idle := NewIdle(l)
	assert.Nil(t, idle.Start(func() {
		order = append(order, "idle")
		idle.Stop()
	}))

	prepare := NewPrepare(l)
	assert.Nil(t, prepare.Start(func() {
		order = append(order, "prepare")
		prepare.Stop()
	}))

	check := NewCheck(l)
	assert.Nil(t, check.Start(func() {
		order = append(order, "check")
		check.Stop()
	}))

	// 占位 timer 给 poll 阶段一个有限的超时
	bound := NewTimer(l)
	assert.Nil(t, bound.Start(func(*Timer) {}, 2*time.Millisecond, 0))

	l.Run(RunOnce)

	assert.Equal(t, []string{"timer", "idle", "prepare", "check"}, order)
	assert.Nil(t, l.Close())
}

func TestLoopStop(t *testing.T) {
	l, err := New()
	assert.Nil(t, err)

	count := 0
	tm := NewTimer(l)
	assert.Nil(t, tm.Start(func(*Timer) {
		count++
		if count == 3 {
			l.Stop()
		}
	}, time.Millisecond, time.Millisecond))

	// timer 还在跑，Stop 提前退出时剩余工作非零
	assert.Equal(t, 1, l.Run(RunDefault))
	assert.Equal(t, 3, count)

	// stop 标记已被 Run 清掉，再次 Run 继续迭代
	assert.Nil(t, tm.Start(func(tm *Timer) {
		tm.Stop()
	}, time.Millisecond, 0))
	assert.Equal(t, 0, l.Run(RunDefault))

	assert.Nil(t, l.Close())
}

func TestLoopCloseBusy(t *testing.T) {
	l, err := New()
	assert.Nil(t, err)

	tm := NewTimer(l)
	assert.Nil(t, tm.Start(func(*Timer) {}, time.Hour, 0))

	assert.Equal(t, ErrLoopBusy, l.Close())

	tm.Stop()
	assert.Nil(t, l.Close())
}

func TestCloseDuringCallback(t *testing.T) {
	l, err := New()
	assert.Nil(t, err)

	var order []string
	iter := 0

	check := NewCheck(l)
	assert.Nil(t, check.Start(func() {
		iter++
	}))

	tm := NewTimer(l)
	second := NewIdle(l)
	assert.Nil(t, second.Start(func() {}))

	closedAt := 0
	assert.Nil(t, tm.Start(func(tm *Timer) {
		closedAt = iter
		// 回调里同时关闭自己和另一个句柄，
		// close 回调按 FIFO 在下一轮迭代送达
		tm.Close(func() {
			order = append(order, "timer")
		})
		second.Close(func() {
			order = append(order, "idle")
			check.Close(nil)
		})
	}, time.Millisecond, 0))

	assert.Equal(t, 0, l.Run(RunDefault))
	assert.Equal(t, []string{"timer", "idle"}, order)

	// close 回调晚于请求关闭的那轮迭代
	assert.True(t, iter > closedAt)
	assert.Nil(t, l.Close())
}

func TestLoopRunNoWait(t *testing.T) {
	l, err := New()
	assert.Nil(t, err)

	tm := NewTimer(l)
	assert.Nil(t, tm.Start(func(*Timer) {}, time.Hour, 0))

	start := time.Now()
	assert.Equal(t, 1, l.Run(RunNoWait))
	assert.True(t, time.Since(start) < 100*time.Millisecond)

	tm.Stop()
	assert.Nil(t, l.Close())
}

func TestLoopDoubleCloseHandlePanics(t *testing.T) {
	l, err := New()
	assert.Nil(t, err)

	tm := NewTimer(l)
	tm.Close(nil)

	assert.Panics(t, func() {
		tm.Close(nil)
	})

	assert.Equal(t, 0, l.Run(RunDefault))
	assert.Nil(t, l.Close())
}

func TestLoopTimeNonDecreasing(t *testing.T) {
	l, err := New()
	assert.Nil(t, err)

	var last uint64
	count := 0
	tm := NewTimer(l)
	assert.Nil(t, tm.Start(func(tm *Timer) {
		now := l.Now()
		assert.True(t, now >= last)
		last = now
		count++
		if count == 5 {
			tm.Stop()
		}
	}, time.Millisecond, time.Millisecond))

	assert.Equal(t, 0, l.Run(RunDefault))
	assert.Equal(t, 5, count)
	assert.Nil(t, l.Close())
}
