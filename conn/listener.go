//go:build linux
// +build linux

package conn

import (
	"errors"
	"net"
	"os"

	"github.com/Allenxuxu/evloop"
	"github.com/Allenxuxu/evloop/log"
	"github.com/libp2p/go-reuseport"
	"golang.org/x/sys/unix"
)

// handleConnFunc 处理新连接
type handleConnFunc func(fd int, sa unix.Sockaddr)

// listener 监听 TCP 连接，就绪事件由 loop 的 Poll 句柄驱动
type listener struct {
	file    *os.File
	fd      int
	handleC handleConnFunc
	ls      net.Listener
	poll    *evloop.Poll
}

// newListener 创建 listener，必须在 loop 协程调用
func newListener(loop *evloop.Loop, network, addr string, reusePort bool, handlerConn handleConnFunc) (*listener, error) {
	var ls net.Listener
	var err error
	if reusePort {
		ls, err = reuseport.Listen(network, addr)
	} else {
		ls, err = net.Listen(network, addr)
	}
	if err != nil {
		return nil, err
	}

	l, ok := ls.(*net.TCPListener)
	if !ok {
		return nil, errors.New("could not get file descriptor")
	}

	file, err := l.File()
	if err != nil {
		return nil, err
	}
	fd := int(file.Fd())

	p, err := evloop.NewPoll(loop, fd)
	if err != nil {
		return nil, err
	}

	lis := &listener{
		file:    file,
		fd:      fd,
		handleC: handlerConn,
		ls:      ls,
		poll:    p,
	}

	if err := p.Start(evloop.Readable, lis.handleEvent); err != nil {
		return nil, err
	}

	return lis, nil
}

func (l *listener) handleEvent(_ *evloop.Poll, events evloop.PollEvent) {
	if events&evloop.Readable == 0 {
		return
	}

	nfd, sa, err := unix.Accept(l.fd)
	if err != nil {
		if err != unix.EAGAIN {
			log.Error("accept:", err)
		}
		return
	}
	if err := unix.SetNonblock(nfd, true); err != nil {
		_ = unix.Close(nfd)
		log.Error("set nonblock:", err)
		return
	}

	l.handleC(nfd, sa)
}

// Addr 监听地址
func (l *listener) Addr() net.Addr {
	return l.ls.Addr()
}

// Close 关闭 listener，必须在 loop 协程调用
func (l *listener) Close() {
	l.poll.Close(func() {
		if err := l.ls.Close(); err != nil {
			log.Error("[listener] close error: ", err)
		}
	})
}
