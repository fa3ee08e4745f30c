//go:build linux
// +build linux

package evloop

import (
	"github.com/Allenxuxu/toolkit/sync"
)

// workPool 固定数量的后台 worker，执行会阻塞的一次性任务。
// 任务完成后通过 QueueInLoop 回到 loop 协程。
type workPool struct {
	tasks chan func()
	wg    sync.WaitGroupWrapper
}

func newWorkPool(workers, backlog int) *workPool {
	p := &workPool{
		tasks: make(chan func(), backlog),
	}
	for i := 0; i < workers; i++ {
		p.wg.AddAndRun(p.worker)
	}
	return p
}

func (p *workPool) worker() {
	for f := range p.tasks {
		f()
	}
}

func (p *workPool) submit(f func()) {
	p.tasks <- f
}

func (p *workPool) close() {
	close(p.tasks)
	p.wg.Wait()
}

const defaultWorkBacklog = 1024

func (l *Loop) poolInit() {
	if l.pool == nil {
		l.pool = newWorkPool(l.opts.NumWorkers, defaultWorkBacklog)
	}
}

// QueueWork 提交一个后台任务。work 在 worker 协程执行，
// after 回到 loop 协程触发；从提交起直到 after 被调用之前，
// 请求计入存活数，loop 不会退出。只允许在 loop 协程调用。
func (l *Loop) QueueWork(work func(), after func()) error {
	if work == nil {
		return ErrNilCallback
	}

	l.poolInit()
	l.reqStart()
	l.pool.submit(func() {
		work()
		l.QueueInLoop(func() {
			l.reqFinish()
			if after != nil {
				after()
			}
		})
	})
	return nil
}
