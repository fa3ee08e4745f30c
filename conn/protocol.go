package conn

import "github.com/Allenxuxu/ringbuffer"

// Protocol 自定义拆包封包
type Protocol interface {
	UnPacket(c *Connection, buffer *ringbuffer.RingBuffer) (interface{}, []byte)
	Packet(c *Connection, data []byte) []byte
}

// DefaultProtocol 透传，不做任何拆包封包
type DefaultProtocol struct{}

// UnPacket 把缓冲区里的数据原样取出
func (d *DefaultProtocol) UnPacket(c *Connection, buffer *ringbuffer.RingBuffer) (interface{}, []byte) {
	s, e := buffer.PeekAll()
	if len(e) > 0 {
		size := len(s) + len(e)
		data := make([]byte, size)
		copy(data, s)
		copy(data[len(s):], e)
		buffer.RetrieveAll()

		return nil, data
	} else if len(s) > 0 {
		buffer.Retrieve(len(s))

		return nil, s
	}

	return nil, nil
}

// Packet 原样发送
func (d *DefaultProtocol) Packet(c *Connection, data []byte) []byte {
	return data
}
