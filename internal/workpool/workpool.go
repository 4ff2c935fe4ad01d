// Package workpool provides the bounded worker pool the join executor fans
// sub-queries out on. One pool is meant to live for the whole process and be
// shared across projection helpers; Close joins all workers so no task can
// run after it returns.
package workpool

import (
	"sync"
)

// DefaultSize is the worker count of the process-wide shared pool.
const DefaultSize = 8

// Pool executes submitted tasks on a fixed set of workers.
type Pool struct {
	tasks chan func()
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// New starts a pool with the given number of workers.
func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{tasks: make(chan func())}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		task()
	}
}

// Go submits a task for execution, blocking while all workers are busy.
// Submitting to a closed pool runs the task inline on the caller: callers
// holding a pool handle across shutdown still make progress, just without
// parallelism. Tasks must not submit to the same pool.
func (p *Pool) Go(task func()) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		task()
		return
	}
	// The lock is held across the send so Close cannot close the channel
	// under a blocked submission.
	p.tasks <- task
	p.mu.Unlock()
}

// Close stops accepting tasks and blocks until every submitted task has
// finished.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()
	close(p.tasks)
	p.wg.Wait()
}

var (
	sharedOnce sync.Once
	shared     *Pool
)

// Shared returns the process-wide pool, creating it on first use.
// It is never closed; process exit reaps it.
func Shared() *Pool {
	sharedOnce.Do(func() { shared = New(DefaultSize) })
	return shared
}
