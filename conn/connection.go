//go:build linux
// +build linux

package conn

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/Allenxuxu/evloop"
	"github.com/Allenxuxu/evloop/log"
	"github.com/Allenxuxu/ringbuffer"
	"github.com/Allenxuxu/toolkit/sync/atomic"
	"github.com/RussellLuo/timingwheel"
	"golang.org/x/sys/unix"
)

// CallBack 连接事件回调
type CallBack interface {
	OnMessage(c *Connection, ctx interface{}, data []byte) []byte
	OnClose(c *Connection)
}

// Connection TCP 连接
type Connection struct {
	fd        int
	connected atomic.Bool
	poll      *evloop.Poll
	outBuffer *ringbuffer.RingBuffer // write buffer
	inBuffer  *ringbuffer.RingBuffer // read buffer
	callBack  CallBack
	loop      *evloop.Loop
	packet    []byte // 读散数据的临时缓冲区，同一 loop 上的连接共享
	peerAddr  string
	ctx       interface{}
	KeyValueContext

	idleTime    time.Duration
	activeTime  atomic.Int64
	timingWheel *timingwheel.TimingWheel

	protocol Protocol
}

var ErrConnectionClosed = errors.New("connection closed")

// NewConnection 创建 Connection，必须在 loop 协程调用
func NewConnection(fd int,
	loop *evloop.Loop,
	sa unix.Sockaddr,
	protocol Protocol,
	tw *timingwheel.TimingWheel,
	idleTime time.Duration,
	packet []byte,
	callBack CallBack) (*Connection, error) {
	p, err := evloop.NewPoll(loop, fd)
	if err != nil {
		return nil, err
	}

	conn := &Connection{
		fd:          fd,
		poll:        p,
		peerAddr:    sockAddrToString(sa),
		outBuffer:   ringbuffer.GetFromPool(),
		inBuffer:    ringbuffer.GetFromPool(),
		callBack:    callBack,
		loop:        loop,
		packet:      packet,
		idleTime:    idleTime,
		timingWheel: tw,
		protocol:    protocol,
	}
	conn.connected.Set(true)

	if err := p.Start(evloop.Readable, conn.handleEvent); err != nil {
		return nil, err
	}

	if conn.idleTime > 0 {
		_ = conn.activeTime.Swap(time.Now().Unix())
		conn.timingWheel.AfterFunc(conn.idleTime, conn.closeTimeoutConn())
	}

	return conn, nil
}

func (c *Connection) closeTimeoutConn() func() {
	return func() {
		now := time.Now()
		intervals := now.Sub(time.Unix(c.activeTime.Get(), 0))
		if intervals >= c.idleTime {
			_ = c.Close()
		} else if c.connected.Get() {
			c.timingWheel.AfterFunc(c.idleTime-intervals, c.closeTimeoutConn())
		}
	}
}

// Context 获取 Context
func (c *Connection) Context() interface{} {
	return c.ctx
}

// SetContext 设置 Context
func (c *Connection) SetContext(ctx interface{}) {
	c.ctx = ctx
}

// PeerAddr 获取客户端地址信息
func (c *Connection) PeerAddr() string {
	return c.peerAddr
}

// Connected 是否已连接
func (c *Connection) Connected() bool {
	return c.connected.Get()
}

// Send 发送数据，线程安全，数据在 loop 协程写出
func (c *Connection) Send(data []byte) error {
	if !c.connected.Get() {
		return ErrConnectionClosed
	}

	c.loop.QueueInLoop(func() {
		if c.connected.Get() {
			c.sendInLoop(c.protocol.Packet(c, data))
		}
	})
	return nil
}

// Close 关闭连接，线程安全
func (c *Connection) Close() error {
	if !c.connected.Get() {
		return ErrConnectionClosed
	}

	c.loop.QueueInLoop(func() {
		c.handleClose(c.fd)
	})
	return nil
}

// ShutdownWrite 关闭可写端，不再发送但继续接收
func (c *Connection) ShutdownWrite() error {
	return unix.Shutdown(c.fd, unix.SHUT_WR)
}

func (c *Connection) handleEvent(_ *evloop.Poll, events evloop.PollEvent) {
	if c.idleTime > 0 {
		_ = c.activeTime.Swap(time.Now().Unix())
	}

	if !c.outBuffer.IsEmpty() {
		if events&evloop.Writable != 0 {
			// 返回 true 表示连接已关闭
			if c.handleWrite(c.fd) {
				return
			}

			if c.outBuffer.IsEmpty() {
				c.outBuffer.Reset()
			}
		}
	} else if events&evloop.Readable != 0 {
		if c.handleRead(c.fd) {
			return
		}

		if c.inBuffer.IsEmpty() {
			c.inBuffer.Reset()
		}
	}
}

func (c *Connection) handlerProtocol(tmpBuffer *[]byte, buffer *ringbuffer.RingBuffer) {
	ctx, receivedData := c.protocol.UnPacket(c, buffer)
	for ctx != nil || len(receivedData) != 0 {
		sendData := c.callBack.OnMessage(c, ctx, receivedData)
		if sendData != nil {
			*tmpBuffer = append(*tmpBuffer, c.protocol.Packet(c, sendData)...)
		}

		ctx, receivedData = c.protocol.UnPacket(c, buffer)
	}
}

func (c *Connection) handleRead(fd int) (closed bool) {
	buf := c.packet
	n, err := unix.Read(fd, buf)
	if n == 0 || err != nil {
		if err != unix.EAGAIN {
			c.handleClose(fd)
			closed = true
		}
		return
	}

	_, _ = c.inBuffer.Write(buf[:n])
	buf = buf[:0]
	c.handlerProtocol(&buf, c.inBuffer)

	if len(buf) != 0 {
		closed = c.sendInLoop(buf)
	}
	return
}

func (c *Connection) handleWrite(fd int) (closed bool) {
	first, end := c.outBuffer.PeekAll()
	n, err := unix.Write(fd, first)
	if err != nil {
		if err == unix.EAGAIN {
			return
		}
		c.handleClose(fd)
		closed = true
		return
	}
	c.outBuffer.Retrieve(n)

	if n == len(first) && len(end) > 0 {
		n, err = unix.Write(fd, end)
		if err != nil {
			if err == unix.EAGAIN {
				return
			}
			c.handleClose(fd)
			closed = true
			return
		}
		c.outBuffer.Retrieve(n)
	}

	if c.outBuffer.IsEmpty() {
		if err := c.poll.Start(evloop.Readable, c.handleEvent); err != nil {
			log.Error("[enable read]", err)
		}
	}

	return
}

func (c *Connection) handleClose(fd int) {
	if c.connected.Get() {
		c.connected.Set(false)

		c.poll.Close(func() {
			if err := unix.Close(fd); err != nil {
				log.Error("[close fd]", err)
			}
		})

		c.callBack.OnClose(c)
		c.KeyValueContext.reset()

		ringbuffer.PutInPool(c.inBuffer)
		ringbuffer.PutInPool(c.outBuffer)
	}
}

func (c *Connection) sendInLoop(data []byte) (closed bool) {
	if len(data) == 0 {
		return
	}

	if !c.outBuffer.IsEmpty() {
		_, _ = c.outBuffer.Write(data)
	} else {
		n, err := unix.Write(c.fd, data)
		if err != nil && err != unix.EAGAIN {
			c.handleClose(c.fd)
			closed = true
			return
		}

		if n <= 0 {
			_, _ = c.outBuffer.Write(data)
		} else if n < len(data) {
			_, _ = c.outBuffer.Write(data[n:])
		}

		if !c.outBuffer.IsEmpty() {
			if err := c.poll.Start(evloop.Readable|evloop.Writable, c.handleEvent); err != nil {
				log.Error("[enable read write]", err)
			}
		}
	}

	return
}

func sockAddrToString(sa unix.Sockaddr) string {
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return net.JoinHostPort(net.IP(sa.Addr[:]).String(), strconv.Itoa(sa.Port))
	case *unix.SockaddrInet6:
		return net.JoinHostPort(net.IP(sa.Addr[:]).String(), strconv.Itoa(sa.Port))
	default:
		return fmt.Sprintf("(unknown - %T)", sa)
	}
}
