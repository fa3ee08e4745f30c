//go:build linux
// +build linux

package evloop

import (
	"context"
	"net"
)

// LookupIPAddr 在后台 worker 里做地址解析，
// 结果回到 loop 协程交给 cb。只允许在 loop 协程调用。
func (l *Loop) LookupIPAddr(host string, cb func(addrs []net.IPAddr, err error)) error {
	if cb == nil {
		return ErrNilCallback
	}

	var (
		addrs []net.IPAddr
		rerr  error
	)
	return l.QueueWork(func() {
		addrs, rerr = net.DefaultResolver.LookupIPAddr(context.Background(), host)
	}, func() {
		cb(addrs, rerr)
	})
}
