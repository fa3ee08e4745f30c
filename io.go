//go:build linux
// +build linux

package evloop

import (
	"github.com/Allenxuxu/evloop/poller"
)

type ioCallback func(l *Loop, w *ioWatcher, revents uint32)

// ioWatcher 内嵌在观察 fd 的句柄中。
// events 是内核当前生效的兴趣集，levents 是新请求的兴趣集，
// 两者在每次 poll 前统一同步；revents 暂存尚未投递的就绪位。
type ioWatcher struct {
	fd      int
	events  uint32
	levents uint32
	revents uint32
	cb      ioCallback

	watcherLink ioQueueNode // 待同步队列
	pendingLink ioQueueNode // 延迟事件队列
}

func (w *ioWatcher) init(cb ioCallback, fd int) {
	if fd < 0 {
		panic("evloop: io watcher with negative fd")
	}
	w.cb = cb
	w.fd = fd
	w.events = 0
	w.levents = 0
	w.revents = 0
	w.watcherLink.w = w
	w.pendingLink.w = w
}

// ioStart 追加兴趣位并把 watcher 记入 fd 表，等待下次 poll 前同步到内核。
// 对同一 (fd, mask) 幂等。只允许在 loop 协程调用。
func (l *Loop) ioStart(w *ioWatcher, events uint32) {
	if events == 0 {
		panic("evloop: io start with empty event mask")
	}

	w.levents |= events

	if w.fd >= len(l.watchers) {
		l.growWatchers(w.fd + 1)
	}

	if !w.watcherLink.queued() {
		l.watcherQueue.pushBack(&w.watcherLink)
	}

	if l.watchers[w.fd] == nil {
		l.watchers[w.fd] = w
		l.nfds++
	} else if l.watchers[w.fd] != w {
		panic("evloop: fd already watched by another watcher")
	}
}

// ioStop 清除兴趣位；全部清空后从待同步队列和 fd 表摘除。
// 内核侧的注册留给 poll 的 stale 事件处理或 ioClose 收拾。
func (l *Loop) ioStop(w *ioWatcher, events uint32) {
	if w.fd < 0 {
		return
	}

	w.levents &^= events

	if w.levents == 0 {
		if w.watcherLink.queued() {
			l.watcherQueue.remove(&w.watcherLink)
		}
		if l.watchers[w.fd] == w {
			l.watchers[w.fd] = nil
			l.nfds--
			w.events = 0
		}
	} else if !w.watcherLink.queued() {
		l.watcherQueue.pushBack(&w.watcherLink)
	}
}

// ioClose 彻底摘除 watcher，包括延迟事件和内核侧的注册
func (l *Loop) ioClose(w *ioWatcher) {
	l.ioStop(w, ^uint32(0))
	if w.pendingLink.queued() {
		l.pendingQueue.remove(&w.pendingLink)
	}
	w.revents = 0
	if w.fd >= 0 {
		// fd 可能已被调用方关闭，错误不影响正确性
		_ = l.poll.Del(w.fd)
	}
}

// ioFeed 把滞留的就绪位排入延迟事件队列，在下一次 pending 阶段投递
func (l *Loop) ioFeed(w *ioWatcher, events uint32) {
	w.revents |= events
	if !w.pendingLink.queued() {
		l.pendingQueue.pushBack(&w.pendingLink)
	}
}

// runPending 投递上一轮迭代积攒的延迟事件
func (l *Loop) runPending() {
	for !l.pendingQueue.empty() {
		w := l.pendingQueue.popFront().w

		events := w.revents & (w.levents | poller.ErrEvent | poller.HupEvent)
		w.revents &^= events
		if events != 0 {
			w.cb(l, w, events)
		}
	}
}

func (l *Loop) growWatchers(n int) {
	if n < 2*len(l.watchers) {
		n = 2 * len(l.watchers)
	}
	watchers := make([]*ioWatcher, n)
	copy(watchers, l.watchers)
	l.watchers = watchers
}

// ioQueueNode 侵入式双向链表节点，内嵌在 watcher 中避免分配。
// next 非空即表示在队列内。
type ioQueueNode struct {
	prev *ioQueueNode
	next *ioQueueNode
	w    *ioWatcher
}

func (n *ioQueueNode) queued() bool {
	return n.next != nil
}

// ioQueue 带哨兵的 FIFO 队列，迭代期间可以安全摘除任意节点
type ioQueue struct {
	head ioQueueNode
}

func (q *ioQueue) init() {
	q.head.prev = &q.head
	q.head.next = &q.head
}

func (q *ioQueue) empty() bool {
	return q.head.next == &q.head
}

func (q *ioQueue) pushBack(n *ioQueueNode) {
	n.prev = q.head.prev
	n.next = &q.head
	n.prev.next = n
	q.head.prev = n
}

func (q *ioQueue) popFront() *ioQueueNode {
	n := q.head.next
	q.remove(n)
	return n
}

func (q *ioQueue) remove(n *ioQueueNode) {
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev = nil
	n.next = nil
}
