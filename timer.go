//go:build linux
// +build linux

package evloop

import (
	"errors"
	"time"

	"github.com/Allenxuxu/evloop/heap"
	"github.com/Allenxuxu/evloop/metrics"
)

var (
	ErrNilCallback = errors.New("callback is nil")
	ErrNoRepeat    = errors.New("timer has no repeat interval")
)

// Timer 单调时钟定时器句柄。到期时间相同的 timer
// 按启动次序触发。
type Timer struct {
	Handle

	node    heap.Node
	expiry  uint64 // 绝对到期时间，纳秒
	repeat  uint64 // 0 表示一次性
	startID uint64 // 同一到期时间的次序决胜
	cb      func(*Timer)
}

// NewTimer 创建 Timer
func NewTimer(l *Loop) *Timer {
	t := &Timer{}
	t.node.Value = t
	t.Handle.init(l, HandleTimer, t.Stop)
	return t
}

func timerLess(a, b *heap.Node) bool {
	x := a.Value.(*Timer)
	y := b.Value.(*Timer)

	if x.expiry < y.expiry {
		return true
	}
	if x.expiry > y.expiry {
		return false
	}
	return x.startID < y.startID
}

// Start 在 timeout 后触发 cb。repeat 非零则此后每隔 repeat 重复。
// 对已启动的 timer 调用等价于先 Stop 再 Start。
func (t *Timer) Start(cb func(*Timer), timeout, repeat time.Duration) error {
	if cb == nil {
		return ErrNilCallback
	}
	if t.IsClosing() {
		panic("evloop: start of closing handle")
	}
	if timeout < 0 {
		timeout = 0
	}
	if repeat < 0 {
		repeat = 0
	}

	t.Stop()

	t.cb = cb
	t.repeat = uint64(repeat)
	t.arm(t.loop.time + uint64(timeout))
	return nil
}

// Stop 停止 timer，幂等
func (t *Timer) Stop() {
	if !t.IsActive() {
		return
	}
	t.loop.timerHeap.Remove(&t.node, timerLess)
	t.Handle.stop()
}

// Again 按 repeat 间隔重新计时，只对 repeat 非零的 timer 有效
func (t *Timer) Again() error {
	if t.cb == nil {
		return ErrNilCallback
	}
	if t.repeat == 0 {
		return ErrNoRepeat
	}

	t.Stop()
	t.arm(t.loop.time + t.repeat)
	return nil
}

// SetRepeat 修改重复间隔，对当前已排定的这次触发不生效
func (t *Timer) SetRepeat(d time.Duration) {
	if d < 0 {
		d = 0
	}
	t.repeat = uint64(d)
}

// Repeat 返回重复间隔
func (t *Timer) Repeat() time.Duration {
	return time.Duration(t.repeat)
}

// arm 入堆并激活。timer 在堆内当且仅当处于启动状态。
func (t *Timer) arm(expiry uint64) {
	t.expiry = expiry
	t.loop.timerCounter++
	t.startID = t.loop.timerCounter
	t.loop.timerHeap.Insert(&t.node, timerLess)
	t.Handle.start()
}

// runTimers 触发所有到期的 timer。回调可以任意启停、
// 关闭其他 timer，堆在每次出堆后都处于一致状态。
func (l *Loop) runTimers() {
	for {
		min := l.timerHeap.Min()
		if min == nil {
			break
		}

		t := min.Value.(*Timer)
		if t.expiry > l.time {
			break
		}

		t.Stop()

		if t.repeat != 0 {
			// 只按整周期追赶：回调拖慢循环时错过的触发
			// 合并掉，不会连环补发
			next := t.expiry + t.repeat
			if next < l.time {
				next = l.time
			}
			t.arm(next)
		}

		if metrics.Enable.Get() {
			metrics.TimersFired.Inc()
		}

		t.cb(t)
	}
}
