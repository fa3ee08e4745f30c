//go:build linux
// +build linux

package evloop

// Options loop 配置
type Options struct {
	// NumWorkers 后台 worker 协程数，服务阻塞类请求
	NumWorkers int
}

// Option ...
type Option func(*Options)

func newOptions(opt ...Option) *Options {
	opts := Options{}

	for _, o := range opt {
		o(&opts)
	}

	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}

	return &opts
}

// NumWorkers 设置后台 worker 协程数
func NumWorkers(n int) Option {
	return func(o *Options) {
		o.NumWorkers = n
	}
}
