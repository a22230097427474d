package future

import (
	"context"
	"time"

	"tailscale.com/logtail/backoff"
	"tailscale.com/types/logger"

	"futura.dev/exec"
)

// New returns a pending Future.
func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

var closedChan = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

// Completed returns a Future already completed with v.
func Completed[T any](v T) *Future[T] {
	return &Future[T]{state: stateDone, value: v, done: closedChan}
}

// CompletedEmpty returns a Future already completed with T's zero
// value.
func CompletedEmpty[T any]() *Future[T] {
	var zero T
	return Completed(zero)
}

// CompletedFunc returns a Future completed with fn's result, invoking
// fn on the calling goroutine.
func CompletedFunc[T any](fn func() T) *Future[T] {
	return Completed(fn())
}

// Failed returns a Future already failed with err.
func Failed[T any](err error) *Future[T] {
	if err == nil {
		err = errNilFailure
	}
	return &Future[T]{state: stateFailed, err: err, done: closedChan}
}

// TryComplete runs fn on the calling goroutine and returns a Future
// settled with its outcome. A panic in fn fails the Future.
func TryComplete[T any](fn func() (T, error)) *Future[T] {
	nf := New[T]()
	settleFrom(nf, fn)
	return nf
}

func settleFrom[T any](nf *Future[T], fn func() (T, error)) {
	if err := protect(func() {
		v, err := fn()
		if err != nil {
			nf.Fail(err)
			return
		}
		nf.Complete(v)
	}); err != nil {
		nf.Fail(err)
	}
}

// CompleteAsync returns a pending Future completed on the default
// executor with fn's result. The completion races the return; register
// callbacks before relying on them having run.
func CompleteAsync[T any](fn func() T) *Future[T] {
	return CompleteAsyncOn(nil, fn)
}

// CompleteAsyncOn is CompleteAsync on an explicit executor; a nil e
// falls back to exec.Default(). A panic in fn fails the Future rather
// than leaving it pending forever.
func CompleteAsyncOn[T any](e exec.Executor, fn func() T) *Future[T] {
	return TryCompleteAsyncOn(e, func() (T, error) { return fn(), nil })
}

// TryCompleteAsync is CompleteAsync for producers that can fail.
func TryCompleteAsync[T any](fn func() (T, error)) *Future[T] {
	return TryCompleteAsyncOn(nil, fn)
}

// TryCompleteAsyncOn is TryCompleteAsync on an explicit executor.
func TryCompleteAsyncOn[T any](e exec.Executor, fn func() (T, error)) *Future[T] {
	nf := New[T]()
	on(e).Execute(func() { settleFrom(nf, fn) })
	return nf
}

// Retry runs fn up to attempts times on the default executor, backing
// off between failures, and settles the returned Future with the first
// success or the last error. attempts < 1 is treated as 1.
func Retry[T any](attempts int, fn func() (T, error)) *Future[T] {
	return RetryOn(nil, attempts, fn)
}

// RetryOn is Retry on an explicit executor.
func RetryOn[T any](e exec.Executor, attempts int, fn func() (T, error)) *Future[T] {
	if attempts < 1 {
		attempts = 1
	}
	nf := New[T]()
	on(e).Execute(func() {
		bo := backoff.NewBackoff("future: retry", logger.Discard, 30*time.Second)
		var last error
		for i := 0; i < attempts; i++ {
			var (
				v    T
				ferr error
			)
			if perr := protect(func() { v, ferr = fn() }); perr != nil {
				ferr = perr
			}
			if ferr == nil {
				nf.Complete(v)
				return
			}
			last = ferr
			if i < attempts-1 {
				bo.BackOff(context.Background(), ferr)
			}
		}
		nf.Fail(last)
	})
	return nf
}
