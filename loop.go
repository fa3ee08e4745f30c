//go:build linux
// +build linux

package evloop

import (
	"errors"
	"math"
	"time"

	"github.com/Allenxuxu/evloop/heap"
	"github.com/Allenxuxu/evloop/metrics"
	"github.com/Allenxuxu/evloop/poller"
	"github.com/Allenxuxu/toolkit/sync/atomic"
	"github.com/Allenxuxu/toolkit/sync/spinlock"
	"github.com/eapache/queue"
	"golang.org/x/sys/unix"
)

// RunMode 控制 Run 的迭代方式
type RunMode int

const (
	// RunDefault 一直迭代到没有任何存活的句柄和请求
	RunDefault RunMode = iota
	// RunOnce 只迭代一次，poll 阶段允许阻塞
	RunOnce
	// RunNoWait 只迭代一次，poll 阶段不阻塞
	RunNoWait
)

var ErrLoopBusy = errors.New("loop still has active handles or requests")

// Loop 单协程事件循环。除注明线程安全的方法外，
// 所有操作（含各句柄的 Start/Stop/Close）都只允许在
// 运行 Run 的协程里调用。
type Loop struct {
	time uint64 // 缓存的单调时钟，纳秒
	poll *poller.Poller

	watchers []*ioWatcher // fd 稠密表
	nfds     int

	watcherQueue ioQueue
	pendingQueue ioQueue

	timerHeap    heap.Heap
	timerCounter uint64

	idleHandles    []*loopWatcher
	prepareHandles []*loopWatcher
	checkHandles   []*loopWatcher
	phaseScratch   []*loopWatcher

	closingHandles *queue.Queue // *Handle 的 FIFO

	activeHandles  int
	activeRequests int
	stopFlag       atomic.Bool

	pollEvents []unix.EpollEvent

	// 跨协程任务队列，双缓冲
	mu         spinlock.SpinLock
	needWake   *atomic.Bool
	taskQueueW []func()
	taskQueueR []func()

	wakeup       ioWatcher // 内部唤醒 eventfd 的 watcher
	wakeupFd     int
	asyncs       []*Async
	asyncScratch []*Async

	pool *workPool
	opts *Options
}

// New 创建 Loop
func New(opts ...Option) (*Loop, error) {
	p, err := poller.Create()
	if err != nil {
		return nil, err
	}

	l := &Loop{
		poll:           p,
		closingHandles: queue.New(),
		pollEvents:     make([]unix.EpollEvent, poller.WaitEvents),
		needWake:       atomic.New(true),
		taskQueueW:     make([]func(), 0, defaultTaskQueueSize),
		taskQueueR:     make([]func(), 0, defaultTaskQueueSize),
		opts:           newOptions(opts...),
	}
	l.watcherQueue.init()
	l.pendingQueue.init()
	l.updateTime()

	// 唤醒 eventfd 在创建时就注册进内核，
	// 这样只有 timer 的 loop 也能在 epoll 里休眠而不是空转
	r0, _, errno := unix.Syscall(unix.SYS_EVENTFD2, 0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC, 0)
	if errno != 0 {
		_ = p.Close()
		return nil, errno
	}
	l.wakeupFd = int(r0)
	l.wakeup.init(l.onWakeup, l.wakeupFd)
	l.ioStart(&l.wakeup, poller.ReadEvent)

	return l, nil
}

// Now 返回缓存的单调时钟，纳秒。只在各阶段边界刷新，
// 同一阶段内多次读取得到同一个值。
func (l *Loop) Now() uint64 {
	return l.time
}

// alive 还有工作没做完
func (l *Loop) alive() bool {
	if l.activeHandles > 0 || l.activeRequests > 0 || l.closingHandles.Length() > 0 {
		return true
	}

	// QueueInLoop 排进来但还没执行的任务也算剩余工作
	l.mu.Lock()
	n := len(l.taskQueueW)
	l.mu.Unlock()
	return n > 0
}

// Alive 线程不安全，调试用
func (l *Loop) Alive() bool {
	return l.alive()
}

// Run 驱动事件循环。返回非零表示退出时仍有剩余工作
// （RunOnce/RunNoWait 或 Stop 提前退出时可能发生）。
func (l *Loop) Run(mode RunMode) int {
	r := l.alive()
	if !r {
		l.updateTime()
	}

	for r && !l.stopFlag.Get() {
		// close 阶段只处理本轮迭代开始前就排队的句柄，
		// 回调里再关闭的句柄推迟到下一轮
		closing := l.closingHandles.Length()

		l.updateTime()
		l.runTimers()
		l.runPending()
		l.runPhase(&l.idleHandles)
		l.runPhase(&l.prepareHandles)

		timeout := 0
		if mode != RunNoWait {
			timeout = l.backendTimeout()
		}

		l.pollIO(timeout)
		l.runPhase(&l.checkHandles)
		l.runClosing(closing)

		// poll 可能因超时返回而没有任何 io 事件，
		// 这里把刚到期的 timer 也处理掉，零超时的 timer
		// 因此能在启动的同一轮迭代内触发
		l.updateTime()
		l.runTimers()

		if metrics.Enable.Get() {
			metrics.LoopIterations.Inc()
		}

		r = l.alive()
		if mode == RunOnce || mode == RunNoWait {
			break
		}
	}

	if l.stopFlag.Get() {
		l.stopFlag.Set(false)
	}

	if r {
		return 1
	}
	return 0
}

// Stop 请求 Run 在当前迭代结束后返回。幂等，线程安全；
// 从其他协程调用时配合 Wakeup 使用，否则要等 poll 自然醒来。
func (l *Loop) Stop() {
	l.stopFlag.Set(true)
}

// Close 释放 loop 持有的内核资源。
// 还有存活句柄或请求时拒绝关闭。
func (l *Loop) Close() error {
	if l.alive() {
		return ErrLoopBusy
	}

	if l.pool != nil {
		l.pool.close()
	}

	l.ioClose(&l.wakeup)
	_ = unix.Close(l.wakeupFd)
	return l.poll.Close()
}

// backendTimeout 计算 poll 阶段的阻塞时长（毫秒）。
// 0 表示只探测，-1 表示一直阻塞到有事件。
func (l *Loop) backendTimeout() int {
	if l.stopFlag.Get() {
		return 0
	}
	if l.activeHandles == 0 && l.activeRequests == 0 {
		return 0
	}
	if len(l.idleHandles) != 0 {
		return 0
	}
	if !l.pendingQueue.empty() {
		return 0
	}
	if l.closingHandles.Length() != 0 {
		return 0
	}
	return l.nextTimeout()
}

// nextTimeout 距离最近一个 timer 到期的毫秒数，向上取整
func (l *Loop) nextTimeout() int {
	min := l.timerHeap.Min()
	if min == nil {
		return -1
	}

	t := min.Value.(*Timer)
	if t.expiry <= l.time {
		return 0
	}

	ms := (t.expiry - l.time + 999999) / uint64(time.Millisecond)
	if ms > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(ms)
}

func (l *Loop) updateTime() {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		panic("evloop: clock_gettime: " + err.Error())
	}
	l.time = uint64(ts.Sec)*uint64(time.Second) + uint64(ts.Nsec)
}

// runPhase 执行一个句柄阶段。先做快照，回调里 Stop 掉的
// 句柄在投递前会被跳过
func (l *Loop) runPhase(q *[]*loopWatcher) {
	if len(*q) == 0 {
		return
	}

	l.phaseScratch = append(l.phaseScratch[:0], *q...)
	for _, w := range l.phaseScratch {
		if w.IsActive() {
			w.cb()
		}
	}
}

// runClosing 投递 close 回调，FIFO
func (l *Loop) runClosing(n int) {
	for i := 0; i < n; i++ {
		h := l.closingHandles.Remove().(*Handle)
		h.finishClose()
	}
}

func (l *Loop) addActiveHandle(delta int) {
	l.activeHandles += delta
	if metrics.Enable.Get() {
		metrics.ActiveHandles.Set(float64(l.activeHandles))
	}
}

// reqStart 请求从提交起计入存活数，loop 在回调投递前不会退出
func (l *Loop) reqStart() {
	l.activeRequests++
	if metrics.Enable.Get() {
		metrics.ActiveRequests.Set(float64(l.activeRequests))
	}
}

func (l *Loop) reqFinish() {
	l.activeRequests--
	if metrics.Enable.Get() {
		metrics.ActiveRequests.Set(float64(l.activeRequests))
	}
}
