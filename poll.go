//go:build linux
// +build linux

package evloop

import (
	"errors"

	"github.com/Allenxuxu/evloop/poller"
	"golang.org/x/sys/unix"
)

// PollEvent Poll 句柄的就绪事件位
type PollEvent uint32

const (
	// Readable fd 可读
	Readable PollEvent = 1 << iota
	// Writable fd 可写
	Writable
	// Disconnect 对端关闭了写方向
	Disconnect
	// EdgeTriggered 边缘触发模式：内核只在状态翻转时上报，
	// 回调里必须把 fd 读写到 EAGAIN 为止
	EdgeTriggered
)

func (e PollEvent) kernel() uint32 {
	var k uint32
	if e&Readable != 0 {
		k |= poller.ReadEvent
	}
	if e&Writable != 0 {
		k |= poller.WriteEvent
	}
	if e&Disconnect != 0 {
		k |= poller.RdhupEvent
	}
	if e&EdgeTriggered != 0 {
		k |= poller.EdgeEvent
	}
	return k
}

var ErrNilEvents = errors.New("no readiness events requested")

const pollAllEvents = poller.ReadEvent | poller.WriteEvent |
	poller.RdhupEvent | poller.EdgeEvent

// Poll 观察任意 fd 就绪状态的句柄。fd 归调用方所有，
// loop 不会替调用方关闭它。
type Poll struct {
	Handle

	w      ioWatcher
	events PollEvent
	cb     func(*Poll, PollEvent)
}

// NewPoll 创建 Poll 并把 fd 置为非阻塞
func NewPoll(l *Loop, fd int) (*Poll, error) {
	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, err
	}

	p := &Poll{}
	p.w.init(p.onEvents, fd)
	p.Handle.init(l, HandlePoll, p.closePoll)
	return p, nil
}

// Fd 返回观察的描述符
func (p *Poll) Fd() int {
	return p.w.fd
}

// Start 开始观察 events 指定的就绪状态。
// 对已启动的 Poll 调用等价于先 Stop 再 Start。
func (p *Poll) Start(events PollEvent, cb func(*Poll, PollEvent)) error {
	if cb == nil {
		return ErrNilCallback
	}
	if p.IsClosing() {
		panic("evloop: start of closing handle")
	}
	if events&(Readable|Writable|Disconnect) == 0 {
		return ErrNilEvents
	}

	p.Stop()

	p.events = events
	p.cb = cb
	p.loop.ioStart(&p.w, events.kernel())
	p.Handle.start()
	return nil
}

// Stop 停止观察，幂等。本轮迭代已经出队的事件
// 会看到句柄已停止而被丢弃。
func (p *Poll) Stop() {
	if !p.IsActive() {
		return
	}
	p.loop.ioStop(&p.w, pollAllEvents)
	p.Handle.stop()
}

func (p *Poll) closePoll() {
	p.Stop()
	p.loop.ioClose(&p.w)
}

func (p *Poll) onEvents(_ *Loop, _ *ioWatcher, revents uint32) {
	if !p.IsActive() {
		return
	}

	var events PollEvent
	if revents&(poller.ErrEvent|poller.HupEvent) != 0 {
		// 出错时按调用方关注的全部方向上报，
		// 随后的读写会拿到具体的 errno
		events |= p.events & (Readable | Writable)
	}
	if revents&poller.ReadEvent != 0 {
		events |= Readable
	}
	if revents&poller.WriteEvent != 0 {
		events |= Writable
	}
	if revents&poller.RdhupEvent != 0 {
		events |= Disconnect
	}

	events &= p.events
	if events != 0 {
		p.cb(p, events)
	}
}
