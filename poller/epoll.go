//go:build linux
// +build linux

package poller

import (
	"golang.org/x/sys/unix"
)

// 事件位与内核 epoll 位一致
const (
	ReadEvent  uint32 = unix.EPOLLIN | unix.EPOLLPRI
	WriteEvent uint32 = unix.EPOLLOUT
	ErrEvent   uint32 = unix.EPOLLERR
	HupEvent   uint32 = unix.EPOLLHUP
	RdhupEvent uint32 = unix.EPOLLRDHUP
	EdgeEvent  uint32 = unix.EPOLLET
)

// Poller 就绪事件多路复用器
type Poller struct {
	fd int
}

// Create 创建 Poller，fd 带 close-on-exec
func Create() (*Poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}

	return &Poller{fd: fd}, nil
}

// Fd 返回内核就绪接口的描述符
func (p *Poller) Fd() int {
	return p.fd
}

// Add 注册 fd 的兴趣集，user data 位置携带 fd 本身
func (p *Poller) Add(fd int, events uint32) error {
	return unix.EpollCtl(p.fd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{
		Events: events,
		Fd:     int32(fd),
	})
}

// Mod 修改 fd 的兴趣集
func (p *Poller) Mod(fd int, events uint32) error {
	return unix.EpollCtl(p.fd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{
		Events: events,
		Fd:     int32(fd),
	})
}

// Del 取消注册
func (p *Poller) Del(fd int) error {
	return unix.EpollCtl(p.fd, unix.EPOLL_CTL_DEL, fd, nil)
}

// Wait 等待一批就绪事件。msec 为 0 表示立即返回，-1 表示无限阻塞。
// 被信号打断时原样返回 unix.EINTR，重试策略由调用方决定。
func (p *Poller) Wait(events []unix.EpollEvent, msec int) (int, error) {
	n, err := unix.EpollWait(p.fd, events, msec)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Close 关闭描述符
func (p *Poller) Close() error {
	return unix.Close(p.fd)
}
