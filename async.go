//go:build linux
// +build linux

package evloop

import (
	"github.com/Allenxuxu/evloop/log"
	"github.com/Allenxuxu/toolkit/sync/atomic"
	"golang.org/x/sys/unix"
)

// Async 跨协程唤醒句柄。Send 可以在任意协程调用，
// 回调总是在 loop 协程触发；回调触发前的多次 Send
// 合并为一次。
type Async struct {
	Handle

	pending *atomic.Bool
	cb      func()
}

// NewAsync 创建并启动 Async。创建本身必须在 loop 协程。
func NewAsync(l *Loop, cb func()) (*Async, error) {
	if cb == nil {
		return nil, ErrNilCallback
	}

	a := &Async{
		pending: atomic.New(false),
		cb:      cb,
	}
	a.Handle.init(l, HandleAsync, a.stopAsync)
	l.asyncs = append(l.asyncs, a)
	a.Handle.start()
	return a, nil
}

// Send 请求在 loop 协程触发一次回调。线程安全。
func (a *Async) Send() {
	if a.pending.CompareAndSwap(false, true) {
		a.loop.wakeupSend()
	}
}

func (a *Async) stopAsync() {
	for i, v := range a.loop.asyncs {
		if v == a {
			a.loop.asyncs = append(a.loop.asyncs[:i], a.loop.asyncs[i+1:]...)
			break
		}
	}
	a.Handle.stop()
}

var wakeBytes = []byte{1, 0, 0, 0, 0, 0, 0, 0}

// wakeupSend 写 eventfd 把 poll 从内核里唤醒。线程安全。
func (l *Loop) wakeupSend() {
	if _, err := unix.Write(l.wakeupFd, wakeBytes); err != nil && err != unix.EAGAIN {
		log.Error("wakeup write: ", err)
	}
}

// onWakeup eventfd 可读回调：清计数，执行跨协程任务，
// 再分发各 Async 句柄
func (l *Loop) onWakeup(_ *Loop, _ *ioWatcher, _ uint32) {
	var buf [8]byte
	if _, err := unix.Read(l.wakeupFd, buf[:]); err != nil && err != unix.EAGAIN {
		log.Error("wakeup read: ", err)
	}

	l.needWake.Set(true)
	l.runTasks()

	// 快照：回调里可能 Close 别的 Async
	l.asyncScratch = append(l.asyncScratch[:0], l.asyncs...)
	for _, a := range l.asyncScratch {
		if a.pending.CompareAndSwap(true, false) {
			if a.IsActive() {
				a.cb()
			}
		}
	}
}

var defaultTaskQueueSize = 1024

// QueueInLoop 把 f 排到 loop 协程执行。线程安全。
func (l *Loop) QueueInLoop(f func()) {
	if f == nil {
		return
	}

	l.mu.Lock()
	l.taskQueueW = append(l.taskQueueW, f)
	l.mu.Unlock()

	if l.needWake.CompareAndSwap(true, false) {
		l.wakeupSend()
	}
}

func (l *Loop) runTasks() {
	l.mu.Lock()
	l.taskQueueW, l.taskQueueR = l.taskQueueR, l.taskQueueW
	l.mu.Unlock()

	length := len(l.taskQueueR)
	for i := 0; i < length; i++ {
		l.taskQueueR[i]()
	}

	l.taskQueueR = l.taskQueueR[:0]
}

// Wakeup 踢一脚 poll，让阻塞中的 Run 立即进入下一阶段。线程安全。
func (l *Loop) Wakeup() {
	l.wakeupSend()
}
