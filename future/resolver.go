package future

import (
	"errors"
	"sync"

	"futura.dev/exec"
)

var errNoResolution = errors.New("future: resolver error was not provided")

// A Resolver is the producer-only view of a Future handed to the
// function passed to Resolve. The producer can settle immediately with
// Complete or Fail, or stage an outcome with SetValue or SetError and
// publish it later with Resolve or Reject.
type Resolver[T any] struct {
	f *Future[T]

	mu    sync.Mutex
	value T
	err   error
}

// Complete settles the underlying Future with v. It also stages v, so
// a later Resolve is a no-op rather than a zero-value publish.
func (r *Resolver[T]) Complete(v T) bool {
	r.SetValue(v)
	return r.f.Complete(v)
}

// Fail settles the underlying Future with err.
func (r *Resolver[T]) Fail(err error) bool {
	r.SetError(err)
	return r.f.Fail(err)
}

// SetValue stages v as the outcome a later Resolve will publish. It
// does not settle anything.
func (r *Resolver[T]) SetValue(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.value = v
}

// SetError stages err as the outcome a later Reject will publish.
func (r *Resolver[T]) SetError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Resolve completes the underlying Future with the staged value, T's
// zero value if none was staged.
func (r *Resolver[T]) Resolve() bool {
	r.mu.Lock()
	v := r.value
	r.mu.Unlock()
	return r.f.Complete(v)
}

// Reject fails the underlying Future with the staged error, or with a
// placeholder if none was staged.
func (r *Resolver[T]) Reject() bool {
	r.mu.Lock()
	err := r.err
	r.mu.Unlock()
	if err == nil {
		err = &ExecutionError{Cause: errNoResolution}
	}
	return r.f.Fail(err)
}

// Resolve runs fn on the calling goroutine with a producer view of a
// new Future and returns that Future. fn settles it through the
// Resolver, now or later; a panic in fn fails it.
func Resolve[T any](fn func(*Resolver[T])) *Future[T] {
	nf := New[T]()
	r := &Resolver[T]{f: nf}
	if err := protect(func() { fn(r) }); err != nil {
		nf.Fail(err)
	}
	return nf
}

// TryResolve is Resolve for producers that can fail: a non-nil
// returned error fails the Future, unless fn already settled it.
func TryResolve[T any](fn func(*Resolver[T]) error) *Future[T] {
	nf := New[T]()
	r := &Resolver[T]{f: nf}
	var ferr error
	if err := protect(func() { ferr = fn(r) }); err != nil {
		ferr = err
	}
	if ferr != nil {
		nf.Fail(ferr)
	}
	return nf
}

// ResolveAsync is Resolve with fn submitted to the default executor.
func ResolveAsync[T any](fn func(*Resolver[T])) *Future[T] {
	return ResolveAsyncOn(nil, fn)
}

// ResolveAsyncOn is ResolveAsync on an explicit executor; a nil e
// falls back to exec.Default().
func ResolveAsyncOn[T any](e exec.Executor, fn func(*Resolver[T])) *Future[T] {
	nf := New[T]()
	r := &Resolver[T]{f: nf}
	on(e).Execute(func() {
		if err := protect(func() { fn(r) }); err != nil {
			nf.Fail(err)
		}
	})
	return nf
}

// TryResolveAsync is TryResolve with fn submitted to the default
// executor.
func TryResolveAsync[T any](fn func(*Resolver[T]) error) *Future[T] {
	return TryResolveAsyncOn(nil, fn)
}

// TryResolveAsyncOn is TryResolveAsync on an explicit executor.
func TryResolveAsyncOn[T any](e exec.Executor, fn func(*Resolver[T]) error) *Future[T] {
	nf := New[T]()
	r := &Resolver[T]{f: nf}
	on(e).Execute(func() {
		var ferr error
		if err := protect(func() { ferr = fn(r) }); err != nil {
			ferr = err
		}
		if ferr != nil {
			nf.Fail(ferr)
		}
	})
	return nf
}
