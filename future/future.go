// Package future implements a single-assignment deferred value: a
// container that is eventually completed with a value or failed with
// an error, exactly once, possibly on a different goroutine than the
// ones observing it.
//
// A Future is observed three ways: blocking accessors (Get and
// friends), ordered callbacks (Then, Except, Result), and derived
// futures (Transform, Fallback, Chain, All, ...). Combinators never
// mutate their source; they register callbacks on it and settle a new
// Future.
//
// Asynchronous variants (ThenAsync, CompleteAsync, ...) submit the
// handler body to an executor resolved through futura.dev/exec.
package future

import (
	"fmt"
	"sync"
	"time"

	"futura.dev/exec"
)

const (
	statePending = iota
	stateDone
	stateFailed
)

// A Future is a deferred value of type T. The zero value is not
// usable; construct one with New or a package factory.
//
// Any number of goroutines may concurrently settle, read, and register
// callbacks on the same Future.
type Future[T any] struct {
	mu     sync.Mutex
	state  int
	value  T
	err    error
	done   chan struct{} // closed once, on settle
	onDone []func(T) error
	onFail []func(error)
}

// An Observer is the consumer-only, value-erased view of a Future:
// something whose settling can be watched. Every *Future[T] is an
// Observer; Chain, All and Join accept their inputs through it.
type Observer interface {
	observe(onDone func(), onFail func(error))
}

func (f *Future[T]) observe(onDone func(), onFail func(error)) {
	f.subscribe(func(T) error { onDone(); return nil })
	f.subscribeFail(onFail)
}

// Complete settles the Future with v. It reports whether this call won
// the settle: if the Future already settled, Complete does nothing and
// returns false.
//
// Callbacks run on the calling goroutine, after all blocked waiters
// have been released and outside the internal lock, so they may freely
// re-enter this or any other Future.
func (f *Future[T]) Complete(v T) bool {
	f.mu.Lock()
	if f.state != statePending {
		f.mu.Unlock()
		return false
	}
	f.value = v
	f.state = stateDone
	hs := f.onDone
	f.onDone = nil
	close(f.done)
	f.mu.Unlock()

	f.dispatchDone(hs, v)
	return true
}

// Fail settles the Future with err. It reports whether this call won
// the settle. A nil err is replaced with a placeholder error; the
// error slot of a failed Future is never nil.
func (f *Future[T]) Fail(err error) bool {
	if err == nil {
		err = errNilFailure
	}
	f.mu.Lock()
	if f.state != statePending {
		f.mu.Unlock()
		return false
	}
	f.err = err
	f.state = stateFailed
	hs := f.onFail
	f.onDone, f.onFail = nil, nil
	close(f.done)
	f.mu.Unlock()

	f.dispatchFail(hs, err)
	return true
}

// IsDone reports whether the Future has settled, successfully or not.
func (f *Future[T]) IsDone() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state != statePending
}

// IsFailed reports whether the Future settled in the failed state.
func (f *Future[T]) IsFailed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state == stateFailed
}

// dispatchDone runs success handlers in registration order, outside
// the lock. A handler error fails this Future and skips the rest of
// the dispatch.
func (f *Future[T]) dispatchDone(hs []func(T) error, v T) {
	for _, h := range hs {
		if err := runDone(h, v); err != nil {
			f.cascade(err)
			return
		}
	}
	f.mu.Lock()
	f.onFail = nil
	f.mu.Unlock()
}

// dispatchFail runs failure handlers in registration order, outside
// the lock. A failure handler that panics is swallowed: the Future is
// already failed and must not fail again.
func (f *Future[T]) dispatchFail(hs []func(error), err error) {
	for _, h := range hs {
		runFail(h, err)
	}
}

// cascade moves an already-completed Future to the failed state after
// one of its success handlers failed. This is the one exception to
// settle-exactly-once; a waiter that raced ahead may have observed the
// value.
func (f *Future[T]) cascade(err error) {
	f.mu.Lock()
	if f.state == stateFailed {
		f.mu.Unlock()
		return
	}
	var zero T
	f.value = zero
	f.err = err
	f.state = stateFailed
	hs := f.onFail
	f.onFail = nil
	f.mu.Unlock()

	f.dispatchFail(hs, err)
}

func runDone[T any](h func(T) error, v T) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = recovered(p)
		}
	}()
	return h(v)
}

func runFail(h func(error), err error) {
	defer func() { _ = recover() }()
	h(err)
}

func recovered(p any) error {
	if err, ok := p.(error); ok {
		return err
	}
	return fmt.Errorf("future: handler panic: %v", p)
}

// protect runs fn, converting a panic into a returned error.
func protect(fn func()) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = recovered(p)
		}
	}()
	fn()
	return nil
}

// subscribe appends a success handler, or runs it immediately on the
// calling goroutine if the Future has already completed.
func (f *Future[T]) subscribe(h func(T) error) {
	f.mu.Lock()
	if f.state == statePending {
		f.onDone = append(f.onDone, h)
		f.mu.Unlock()
		return
	}
	st, v := f.state, f.value
	f.mu.Unlock()
	if st == stateDone {
		if err := runDone(h, v); err != nil {
			f.cascade(err)
		}
	}
}

// subscribeFail is subscribe for the failure side.
func (f *Future[T]) subscribeFail(h func(error)) {
	f.mu.Lock()
	if f.state == statePending {
		f.onFail = append(f.onFail, h)
		f.mu.Unlock()
		return
	}
	st, err := f.state, f.err
	f.mu.Unlock()
	if st == stateFailed {
		runFail(h, err)
	}
}

// Then registers fn to be called with the completion value, in
// registration order. If the Future has already completed, fn runs
// immediately on the calling goroutine, before Then returns. A panic
// in fn fails this Future and skips the remaining success handlers of
// that dispatch; failure handlers then see the recovered error.
func (f *Future[T]) Then(fn func(T)) *Future[T] {
	f.subscribe(func(v T) error { fn(v); return nil })
	return f
}

// TryThen is Then for handlers that can fail: a non-nil returned error
// fails this Future the same way a panic in Then would.
func (f *Future[T]) TryThen(fn func(T) error) *Future[T] {
	f.subscribe(fn)
	return f
}

// Except registers fn to be called with the failure error. If the
// Future has already failed, fn runs immediately on the calling
// goroutine. A panic in fn is swallowed.
func (f *Future[T]) Except(fn func(error)) *Future[T] {
	f.subscribeFail(fn)
	return f
}

// TryExcept is Except for handlers that can fail; the returned error
// is discarded, mirroring how Except swallows panics.
func (f *Future[T]) TryExcept(fn func(error) error) *Future[T] {
	f.subscribeFail(func(err error) { fn(err) }) // nolint: errcheck
	return f
}

// Result registers fn for both outcomes. Exactly one invocation
// happens; err == nil discriminates success from failure (a Future may
// legitimately complete with T's zero value).
func (f *Future[T]) Result(fn func(v T, err error)) *Future[T] {
	f.subscribe(func(v T) error { fn(v, nil); return nil })
	f.subscribeFail(func(err error) {
		var zero T
		fn(zero, err)
	})
	return f
}

// ThenAsync is Then with fn submitted to an executor resolved through
// exec.Default instead of run inline. No ordering holds between two
// async handlers unless they share an executor that itself preserves
// order. A panic in fn is reported by the executor; it does not fail
// this Future.
func (f *Future[T]) ThenAsync(fn func(T)) *Future[T] {
	return f.ThenAsyncOn(nil, fn)
}

// ThenAsyncOn is ThenAsync on an explicit executor. A nil e falls back
// to exec.Default().
func (f *Future[T]) ThenAsyncOn(e exec.Executor, fn func(T)) *Future[T] {
	f.subscribe(func(v T) error {
		on(e).Execute(func() { fn(v) })
		return nil
	})
	return f
}

// ThenAsyncCtx is ThenAsync with an explicit context handle, resolved
// to an executor through exec.Default().
func (f *Future[T]) ThenAsyncCtx(ctx any, fn func(T)) *Future[T] {
	f.subscribe(func(v T) error {
		exec.Default().For(ctx).Execute(func() { fn(v) })
		return nil
	})
	return f
}

// ExceptAsync is Except with fn submitted to an executor resolved
// through exec.Default.
func (f *Future[T]) ExceptAsync(fn func(error)) *Future[T] {
	return f.ExceptAsyncOn(nil, fn)
}

// ExceptAsyncOn is ExceptAsync on an explicit executor.
func (f *Future[T]) ExceptAsyncOn(e exec.Executor, fn func(error)) *Future[T] {
	f.subscribeFail(func(err error) {
		on(e).Execute(func() { fn(err) })
	})
	return f
}

// ExceptAsyncCtx is ExceptAsync with an explicit context handle.
func (f *Future[T]) ExceptAsyncCtx(ctx any, fn func(error)) *Future[T] {
	f.subscribeFail(func(err error) {
		exec.Default().For(ctx).Execute(func() { fn(err) })
	})
	return f
}

// Get blocks until the Future settles and returns the completion
// value. Failure surfaces as an *ExecutionError wrapping the original
// error; errors.Unwrap reaches the cause.
func (f *Future[T]) Get() (T, error) {
	<-f.done
	return f.outcome()
}

// GetTimeout is Get bounded by d; d <= 0 waits forever. Expiry returns
// a *TimeoutError and leaves the Future untouched.
func (f *Future[T]) GetTimeout(d time.Duration) (T, error) {
	if err := f.wait(d); err != nil {
		var zero T
		return zero, err
	}
	return f.outcome()
}

// GetOrDefault blocks until the Future settles and returns the
// completion value, or def if it failed. It never returns an error.
func (f *Future[T]) GetOrDefault(def T) T {
	<-f.done
	v, err := f.outcome()
	if err != nil {
		return def
	}
	return v
}

// GetOrDefaultTimeout is GetOrDefault bounded by d. The only error it
// can return is a *TimeoutError.
func (f *Future[T]) GetOrDefaultTimeout(d time.Duration, def T) (T, error) {
	if err := f.wait(d); err != nil {
		var zero T
		return zero, err
	}
	v, err := f.outcome()
	if err != nil {
		return def, nil
	}
	return v, nil
}

// GetOrErr blocks until the Future settles; a failure is replaced with
// custom, discarding the original cause.
func (f *Future[T]) GetOrErr(custom error) (T, error) {
	<-f.done
	v, err := f.outcome()
	if err != nil {
		var zero T
		return zero, custom
	}
	return v, nil
}

// GetOrErrTimeout is GetOrErr bounded by d; both failure and expiry
// are replaced with custom.
func (f *Future[T]) GetOrErrTimeout(d time.Duration, custom error) (T, error) {
	var zero T
	if err := f.wait(d); err != nil {
		return zero, custom
	}
	v, err := f.outcome()
	if err != nil {
		return zero, custom
	}
	return v, nil
}

// GetNow returns the completion value if the Future has completed, and
// def otherwise. It never blocks.
func (f *Future[T]) GetNow(def T) T {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == stateDone {
		return f.value
	}
	return def
}

// MustGet blocks until the Future settles and panics if it failed.
func (f *Future[T]) MustGet() T {
	v, err := f.Get()
	if err != nil {
		panic(err)
	}
	return v
}

func (f *Future[T]) wait(d time.Duration) error {
	if d <= 0 {
		<-f.done
		return nil
	}
	select {
	case <-f.done:
		return nil
	default:
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-f.done:
		return nil
	case <-t.C:
		return &TimeoutError{Limit: d}
	}
}

func (f *Future[T]) outcome() (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == stateFailed {
		var zero T
		return zero, &ExecutionError{Cause: f.err}
	}
	return f.value, nil
}

func on(e exec.Executor) exec.Executor {
	if e != nil {
		return e
	}
	return exec.Default().For(nil)
}
