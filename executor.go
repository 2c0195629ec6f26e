package goble

import "sync"

// executor is the core's single-consumer dispatch queue: the Go stand-in
// for the "core executor" named throughout the concurrency model. Every
// OS callback — delivered on whatever thread or queue the backend uses
// (a D-Bus worker goroutine, a GCD queue, a WinRT apartment thread) —
// converts its payload into a closure and posts it here instead of
// touching façade-owned state (the seen-devices map, the GATT tree,
// callback tables) directly. One goroutine drains the queue in FIFO
// order, which is what gives notification delivery and detection-callback
// fan-out their ordering guarantees without requiring a lock on that
// state.
type executor struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []func()
	closed bool
}

func newExecutor() *executor {
	e := &executor{}
	e.cond = sync.NewCond(&e.mu)
	return e
}

// post enqueues fn for execution on the executor's goroutine. Safe to call
// from any goroutine, including after close (the closure is silently
// dropped, since there is nothing left to apply it to).
func (e *executor) post(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.queue = append(e.queue, fn)
	e.cond.Signal()
}

// run drains the queue until close is called and the queue empties. Call
// it once, in its own goroutine, for the executor's lifetime.
func (e *executor) run() {
	for {
		e.mu.Lock()
		for len(e.queue) == 0 && !e.closed {
			e.cond.Wait()
		}
		if len(e.queue) == 0 && e.closed {
			e.mu.Unlock()
			return
		}
		fn := e.queue[0]
		e.queue = e.queue[1:]
		e.mu.Unlock()
		fn()
	}
}

// close stops run once the queue drains. Pending closures still run
// before run returns.
func (e *executor) close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.cond.Broadcast()
}
