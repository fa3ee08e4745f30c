package conn

import "time"

// Options 服务配置
type Options struct {
	Network   string
	Address   string
	ReusePort bool
	IdleTime  time.Duration
	Protocol  Protocol

	tick      time.Duration
	wheelSize int64
}

// Option ...
type Option func(*Options)

func newOptions(opt ...Option) *Options {
	opts := Options{}

	for _, o := range opt {
		o(&opts)
	}

	if len(opts.Network) == 0 {
		opts.Network = "tcp"
	}
	if len(opts.Address) == 0 {
		opts.Address = ":1388"
	}
	if opts.tick == 0 {
		opts.tick = 1 * time.Millisecond
	}
	if opts.wheelSize == 0 {
		opts.wheelSize = 1000
	}
	if opts.Protocol == nil {
		opts.Protocol = &DefaultProtocol{}
	}

	return &opts
}

// ReusePort 设置 SO_REUSEPORT
func ReusePort(reusePort bool) Option {
	return func(o *Options) {
		o.ReusePort = reusePort
	}
}

// Network [tcp] 暂时只支持 tcp
func Network(n string) Option {
	return func(o *Options) {
		o.Network = n
	}
}

// Address server 监听地址
func Address(a string) Option {
	return func(o *Options) {
		o.Address = a
	}
}

// IdleTime 连接空闲超过 t 后关闭，0 表示不限制
func IdleTime(t time.Duration) Option {
	return func(o *Options) {
		o.IdleTime = t
	}
}

// CustomProtocol 自定义拆包封包
func CustomProtocol(p Protocol) Option {
	return func(o *Options) {
		o.Protocol = p
	}
}
