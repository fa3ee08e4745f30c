//go:build linux
// +build linux

package evloop

import (
	"time"

	"github.com/Allenxuxu/evloop/metrics"
	"github.com/Allenxuxu/evloop/poller"
	"golang.org/x/sys/unix"
)

// pollIO 先把 watcher 的兴趣集同步进内核，再等待并分发就绪事件。
// timeout 毫秒，0 只探测，-1 一直阻塞。
func (l *Loop) pollIO(timeout int) {
	if l.nfds == 0 {
		if !l.watcherQueue.empty() {
			panic("evloop: watcher queued but no fds registered")
		}
		return
	}

	for !l.watcherQueue.empty() {
		w := l.watcherQueue.popFront().w
		if w.levents == 0 || w.fd < 0 {
			panic("evloop: corrupted watcher in queue")
		}

		add := w.events&^poller.EdgeEvent == 0
		wasEdge := w.events&poller.EdgeEvent != 0
		w.events = w.levents

		// 已经是边缘触发的描述符不必再动内核：注册时读写兴趣
		// 就都挂上了。滞留的就绪位与新请求的位求交后直接投递。
		if !add && wasEdge && w.events&poller.EdgeEvent != 0 {
			pending := w.levents & w.revents
			if pending != 0 {
				l.ioFeed(w, pending)
			}
			continue
		}

		// 大多数描述符的生命周期里读写都会被关注，边缘触发
		// 一次注册读写省掉后面的 MOD 调用
		events := w.levents
		if w.levents&poller.EdgeEvent != 0 {
			events = poller.ReadEvent | poller.WriteEvent | poller.EdgeEvent
		}

		var err error
		if add {
			err = l.poll.Add(w.fd, events)
		} else {
			err = l.poll.Mod(w.fd, events)
		}
		if err == nil {
			continue
		}
		if err != unix.EEXIST {
			panic("evloop: epoll_ctl: " + err.Error())
		}

		// fd 之前注册过（例如 dup2 落在了已知的 fd 上）。
		// 水平触发降级成 MOD 即可；边缘触发无从得知旧的触发
		// 模式，只能先删再加。
		if w.events&poller.EdgeEvent == 0 {
			err = l.poll.Mod(w.fd, events)
		} else {
			if err = l.poll.Del(w.fd); err == nil {
				err = l.poll.Add(w.fd, events)
			}
		}
		if err != nil {
			panic("evloop: epoll_ctl: " + err.Error())
		}
	}

	base := l.time

	for {
		n, err := l.poll.Wait(l.pollEvents, timeout)

		// 即便 timeout 为 0 也要刷新时钟：
		// 进程可能在系统调用里被内核重新调度过
		l.updateTime()

		if err != nil && err != unix.EINTR {
			panic("evloop: epoll_wait: " + err.Error())
		}

		if err == nil {
			if n == 0 {
				// 超时到期
				return
			}

			nevents := 0
			for i := 0; i < n; i++ {
				ev := &l.pollEvents[i]
				fd := int(ev.Fd)

				w := l.watchers[fd]
				if w == nil {
					// watcher 在事件提交后被停掉了，顺手从内核摘除。
					// 摘除失败说明 fd 已被关闭，忽略即可。
					_ = l.poll.Del(fd)
					continue
				}

				w.revents |= ev.Events

				// 边缘触发注册的是读写全集，
				// 投递前过滤掉 watcher 不关心的位
				pending := w.revents & (w.events | poller.ErrEvent | poller.HupEvent)
				if pending != 0 {
					w.revents &^= pending
					w.cb(l, w, pending)
					nevents++
				}
			}

			if nevents != 0 {
				if metrics.Enable.Get() {
					metrics.PollEvents.Add(float64(nevents))
				}
				return
			}
		}

		// 被信号打断，或者返回的事件全是 stale 的
		if timeout == 0 {
			return
		}
		if timeout == -1 {
			continue
		}

		// 用时钟差重算剩余超时后重试
		diff := int((l.time - base) / uint64(time.Millisecond))
		if diff >= timeout {
			return
		}
		timeout -= diff
		base = l.time
	}
}
