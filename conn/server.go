//go:build linux
// +build linux

package conn

import (
	"errors"
	"net"
	"time"

	"github.com/Allenxuxu/evloop"
	"github.com/Allenxuxu/toolkit/sync/atomic"
	"github.com/RussellLuo/timingwheel"
	"golang.org/x/sys/unix"
)

// Handler Server 注册接口
type Handler interface {
	OnConnect(c *Connection)
	OnMessage(c *Connection, ctx interface{}, data []byte) []byte
	OnClose(c *Connection)
}

const packetSize = 0xFFFF

// Server 单 loop TCP server。所有连接由同一个事件循环驱动，
// 精确定时走 loop 的 timer，连接空闲回收走粗粒度的时间轮。
type Server struct {
	loop     *evloop.Loop
	ls       *listener
	callback Handler
	conns    map[int]*Connection
	numConns atomic.Int64
	packet   []byte
	running  atomic.Bool

	timingWheel *timingwheel.TimingWheel
	opts        *Options
}

// NewServer 创建 Server
func NewServer(handler Handler, opts ...Option) (server *Server, err error) {
	if handler == nil {
		return nil, errors.New("handler is nil")
	}

	server = new(Server)
	server.callback = handler
	server.opts = newOptions(opts...)
	server.conns = make(map[int]*Connection)
	server.packet = make([]byte, packetSize)
	server.timingWheel = timingwheel.NewTimingWheel(server.opts.tick, server.opts.wheelSize)

	server.loop, err = evloop.New()
	if err != nil {
		return nil, err
	}

	server.ls, err = newListener(server.loop, server.opts.Network, server.opts.Address,
		server.opts.ReusePort, server.handleNewConnection)
	if err != nil {
		_ = server.loop.Close()
		return nil, err
	}

	return
}

// RunAfter d 之后在时间轮上执行 f，线程安全
func (s *Server) RunAfter(d time.Duration, f func()) *timingwheel.Timer {
	return s.timingWheel.AfterFunc(d, f)
}

// RunEvery 每隔 d 在时间轮上执行 f，线程安全
func (s *Server) RunEvery(d time.Duration, f func()) *timingwheel.Timer {
	return s.timingWheel.ScheduleFunc(&everyScheduler{Interval: d}, f)
}

// Addr 监听地址
func (s *Server) Addr() net.Addr {
	return s.ls.Addr()
}

// ConnectionCount 当前连接数，线程安全
func (s *Server) ConnectionCount() int64 {
	return s.numConns.Get()
}

func (s *Server) handleNewConnection(fd int, sa unix.Sockaddr) {
	c, err := NewConnection(fd, s.loop, sa, s.opts.Protocol, s.timingWheel,
		s.opts.IdleTime, s.packet, s)
	if err != nil {
		_ = unix.Close(fd)
		return
	}

	s.conns[fd] = c
	s.numConns.Add(1)
	s.callback.OnConnect(c)
}

// OnMessage 内部转发给注册的 Handler
func (s *Server) OnMessage(c *Connection, ctx interface{}, data []byte) []byte {
	return s.callback.OnMessage(c, ctx, data)
}

// OnClose 内部转发给注册的 Handler
func (s *Server) OnClose(c *Connection) {
	delete(s.conns, c.fd)
	s.numConns.Add(-1)
	s.callback.OnClose(c)
}

// Start 启动 Server，阻塞到所有连接和 listener 关闭
func (s *Server) Start() {
	s.timingWheel.Start()
	s.running.Set(true)

	s.loop.Run(evloop.RunDefault)
	_ = s.loop.Close()
}

// Stop 关闭 Server，线程安全。关闭动作排到 loop 协程执行，
// 全部连接的 close 回调送达后 Start 自然返回。
func (s *Server) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}

	s.timingWheel.Stop()

	s.loop.QueueInLoop(func() {
		s.ls.Close()
		for _, c := range s.conns {
			_ = c.Close()
		}
	})
}

type everyScheduler struct {
	Interval time.Duration
}

func (s *everyScheduler) Next(prev time.Time) time.Time {
	return prev.Add(s.Interval)
}
