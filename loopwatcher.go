//go:build linux
// +build linux

package evloop

// loopWatcher Idle/Prepare/Check 的公共实现，
// 三种句柄只是挂在不同的阶段队列上
type loopWatcher struct {
	Handle

	cb    func()
	queue *[]*loopWatcher
}

// Start 挂入所属阶段，同一阶段内按启动次序触发。幂等。
func (w *loopWatcher) Start(cb func()) error {
	if cb == nil {
		return ErrNilCallback
	}
	if w.IsClosing() {
		panic("evloop: start of closing handle")
	}
	if w.IsActive() {
		return nil
	}

	w.cb = cb
	*w.queue = append(*w.queue, w)
	w.Handle.start()
	return nil
}

// Stop 从阶段队列摘除，幂等。本轮已快照的回调不会再触发。
func (w *loopWatcher) Stop() {
	if !w.IsActive() {
		return
	}

	q := *w.queue
	for i, v := range q {
		if v == w {
			*w.queue = append(q[:i], q[i+1:]...)
			break
		}
	}
	w.Handle.stop()
}

// Idle 每轮迭代 timer 与 pending 之后触发；
// 存在活跃的 Idle 时 poll 阶段不阻塞。
type Idle struct {
	loopWatcher
}

// NewIdle 创建 Idle
func NewIdle(l *Loop) *Idle {
	i := &Idle{}
	i.queue = &l.idleHandles
	i.Handle.init(l, HandleIdle, i.Stop)
	return i
}

// Prepare 每轮迭代进入 poll 之前触发
type Prepare struct {
	loopWatcher
}

// NewPrepare 创建 Prepare
func NewPrepare(l *Loop) *Prepare {
	p := &Prepare{}
	p.queue = &l.prepareHandles
	p.Handle.init(l, HandlePrepare, p.Stop)
	return p
}

// Check 每轮迭代 poll 之后触发
type Check struct {
	loopWatcher
}

// NewCheck 创建 Check
func NewCheck(l *Loop) *Check {
	c := &Check{}
	c.queue = &l.checkHandles
	c.Handle.init(l, HandleCheck, c.Stop)
	return c
}
