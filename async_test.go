//go:build linux
// +build linux

package evloop

import (
	"testing"
	"time"

	"github.com/Allenxuxu/toolkit/sync"
	"github.com/Allenxuxu/toolkit/sync/atomic"
	"github.com/stretchr/testify/assert"
)

func TestAsyncSendCoalesce(t *testing.T) {
	l, err := New()
	assert.Nil(t, err)

	var (
		sent  atomic.Int64
		calls int
	)

	var a *Async
	a, err = NewAsync(l, func() {
		calls++
		// 忙回调：压住 loop 让多次 Send 有机会合并
		time.Sleep(time.Millisecond)
		if sent.Get() == 100 {
			a.Close(nil)
		}
	})
	assert.Nil(t, err)

	go func() {
		for i := 0; i < 100; i++ {
			a.Send()
			sent.Add(1)
		}
		// 最后一次确保回调能看到最终状态
		a.Send()
	}()

	assert.Equal(t, 0, l.Run(RunDefault))

	assert.True(t, calls >= 1 && calls <= 101, "calls = %d", calls)
	assert.Equal(t, int64(100), sent.Get())
	assert.Nil(t, l.Close())
}

func TestQueueInLoop(t *testing.T) {
	l, err := New()
	assert.Nil(t, err)

	count := 0
	sw := sync.WaitGroupWrapper{}
	for i := 0; i < 10; i++ {
		sw.AddAndRun(func() {
			l.QueueInLoop(func() {
				count++
			})
		})
	}
	sw.Wait()

	// timer 把 loop 吊住一小段时间，任务都会在这期间执行
	tm := NewTimer(l)
	assert.Nil(t, tm.Start(func(*Timer) {}, 50*time.Millisecond, 0))

	assert.Equal(t, 0, l.Run(RunDefault))
	assert.Equal(t, 10, count)
	assert.Nil(t, l.Close())
}

func TestQueueInLoopFromCallback(t *testing.T) {
	l, err := New()
	assert.Nil(t, err)

	var order []string
	tm := NewTimer(l)
	assert.Nil(t, tm.Start(func(*Timer) {
		order = append(order, "timer")
		l.QueueInLoop(func() {
			order = append(order, "task")
		})
	}, time.Millisecond, 0))

	assert.Equal(t, 0, l.Run(RunDefault))
	assert.Equal(t, []string{"timer", "task"}, order)
	assert.Nil(t, l.Close())
}
