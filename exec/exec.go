// Package exec provides the execution contexts that futura futures
// dispatch their asynchronous callbacks on.
//
// The package deliberately knows nothing about scheduling beyond a
// single "submit one unit of work" capability. Callers that already
// own a worker pool adapt it with Func; everyone else gets a shared
// pool sized to the available parallelism.
package exec

import (
	"context"
	"log"
	"runtime"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/semaphore"

	"futura.dev/values"
)

// An Executor runs units of work submitted to it. Execute must not
// block on the completion of the task.
type Executor interface {
	Execute(task func())
}

// Func adapts a function to the Executor interface.
type Func func(task func())

func (f Func) Execute(task func()) { f(task) }

// Inline runs tasks synchronously on the calling goroutine. It is
// mainly useful in tests, where deterministic dispatch matters more
// than parallelism.
var Inline Executor = Func(func(task func()) { task() })

// Pool is a bounded executor: each task runs on its own goroutine, but
// at most size tasks run at once. Submission never blocks.
type Pool struct {
	// Logf is used to report panics recovered from submitted tasks.
	// If nil, log.Printf is used.
	Logf func(format string, args ...any)

	sem *semaphore.Weighted
}

// NewPool returns a Pool running at most size tasks concurrently.
// If size is zero, runtime.GOMAXPROCS(0) is used.
func NewPool(size int) *Pool {
	values.MaybeSet(&size, runtime.GOMAXPROCS(0))
	return &Pool{sem: semaphore.NewWeighted(int64(size))}
}

func (p *Pool) Execute(task func()) {
	go func() {
		if err := p.sem.Acquire(context.Background(), 1); err != nil {
			return // background context; cannot happen
		}
		defer p.sem.Release(1)
		defer p.recoverPanic()
		task()
	}()
}

func (p *Pool) recoverPanic() {
	v := recover()
	if v == nil {
		return
	}
	p.vlogf("exec: task panic: %v", v)
	lw := &lineWriter{Prefix: "exec: ", Logf: p.vlogf}
	lw.Write(debug.Stack()) // nolint: errcheck
	lw.Flush()              // nolint: errcheck
}

func (p *Pool) vlogf(format string, args ...any) {
	if p.Logf != nil {
		p.Logf(format, args...)
	} else {
		log.Printf(format, args...)
	}
}

var (
	poolOnce sync.Once
	pool     *Pool
)

// defaultPool is the lazily constructed process-wide pool used when no
// configuration names an executor.
func defaultPool() *Pool {
	poolOnce.Do(func() { pool = NewPool(0) })
	return pool
}
