package future

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/exp/slices"
	"tailscale.com/util/multierr"
)

// Transform derives a Future completed with fn applied to f's value. A
// panic in fn fails the result; a failure of f passes through
// untouched, without invoking fn.
func Transform[T, U any](f *Future[T], fn func(T) U) *Future[U] {
	nf := New[U]()
	f.subscribe(func(v T) error {
		if err := protect(func() { nf.Complete(fn(v)) }); err != nil {
			nf.Fail(err)
		}
		return nil
	})
	f.subscribeFail(func(err error) { nf.Fail(err) })
	return nf
}

// TryTransform is Transform for mappings that can fail: a non-nil
// returned error fails the result.
func TryTransform[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	nf := New[U]()
	f.subscribe(func(v T) error {
		if err := protect(func() {
			u, err := fn(v)
			if err != nil {
				nf.Fail(err)
				return
			}
			nf.Complete(u)
		}); err != nil {
			nf.Fail(err)
		}
		return nil
	})
	f.subscribeFail(func(err error) { nf.Fail(err) })
	return nf
}

// TransformAsync derives a Future that settles with the outcome of the
// Future fn returns: one level of flattening. A panic in fn, a nil
// inner Future, or a failure of either level fails the result.
func TransformAsync[T, U any](f *Future[T], fn func(T) *Future[U]) *Future[U] {
	nf := New[U]()
	f.subscribe(func(v T) error {
		var inner *Future[U]
		if err := protect(func() { inner = fn(v) }); err != nil {
			nf.Fail(err)
			return nil
		}
		if inner == nil {
			nf.Fail(errors.New("future: transform returned a nil future"))
			return nil
		}
		inner.subscribe(func(u U) error { nf.Complete(u); return nil })
		inner.subscribeFail(func(err error) { nf.Fail(err) })
		return nil
	})
	f.subscribeFail(func(err error) { nf.Fail(err) })
	return nf
}

// To derives a Future of another type that completes with v once f
// completes; failures of f pass through.
func To[T, U any](f *Future[T], v U) *Future[U] {
	return ToFunc(f, func() U { return v })
}

// ToFunc is To with the replacement value computed at settle time. A
// panic in fn fails the result.
func ToFunc[T, U any](f *Future[T], fn func() U) *Future[U] {
	nf := New[U]()
	f.subscribe(func(T) error {
		if err := protect(func() { nf.Complete(fn()) }); err != nil {
			nf.Fail(err)
		}
		return nil
	})
	f.subscribeFail(func(err error) { nf.Fail(err) })
	return nf
}

// Cast derives a Future whose value is f's value asserted to type U. A
// value of any other dynamic type fails the result with a *CastError
// rather than panicking.
func Cast[U, T any](f *Future[T]) *Future[U] {
	nf := New[U]()
	f.subscribe(func(v T) error {
		u, ok := any(v).(U)
		if !ok {
			nf.Fail(&CastError{
				Expected: reflect.TypeOf((*U)(nil)).Elem().String(),
				Actual:   fmt.Sprintf("%T", v),
			})
			return nil
		}
		nf.Complete(u)
		return nil
	})
	f.subscribeFail(func(err error) { nf.Fail(err) })
	return nf
}

// Fallback derives a Future that never fails: success passes through
// unchanged and failure is replaced by v.
func (f *Future[T]) Fallback(v T) *Future[T] {
	nf := New[T]()
	f.subscribe(func(val T) error { nf.Complete(val); return nil })
	f.subscribeFail(func(error) { nf.Complete(v) })
	return nf
}

// FallbackFunc is Fallback with the substitute computed from the
// error. A panic in fn fails the result.
func (f *Future[T]) FallbackFunc(fn func(error) T) *Future[T] {
	nf := New[T]()
	f.subscribe(func(v T) error { nf.Complete(v); return nil })
	f.subscribeFail(func(err error) {
		if perr := protect(func() { nf.Complete(fn(err)) }); perr != nil {
			nf.Fail(perr)
		}
	})
	return nf
}

// Filter derives a Future that fails with errFn's error when pred
// rejects the completion value. An already-failed source passes its
// failure through unchanged, without invoking pred.
func (f *Future[T]) Filter(pred func(T) bool, errFn func() error) *Future[T] {
	nf := New[T]()
	f.subscribe(func(v T) error {
		if err := protect(func() {
			if pred(v) {
				nf.Complete(v)
			} else {
				nf.Fail(errFn())
			}
		}); err != nil {
			nf.Fail(err)
		}
		return nil
	})
	f.subscribeFail(func(err error) { nf.Fail(err) })
	return nf
}

// FilterDefault is Filter failing with ErrPredicateRejected.
func (f *Future[T]) FilterDefault(pred func(T) bool) *Future[T] {
	return f.Filter(pred, func() error { return ErrPredicateRejected })
}

// FailIf derives a Future that fails with the error fn returns, if
// any. When fn reports an error the result fails and nothing else
// happens; there is no completion afterward.
func (f *Future[T]) FailIf(fn func(T) error) *Future[T] {
	nf := New[T]()
	f.subscribe(func(v T) error {
		var ferr error
		if err := protect(func() { ferr = fn(v) }); err != nil {
			ferr = err
		}
		if ferr != nil {
			nf.Fail(ferr)
			return nil
		}
		nf.Complete(v)
		return nil
	})
	f.subscribeFail(func(err error) { nf.Fail(err) })
	return nf
}

// liveTimers counts deadline timers currently armed by Timeout. Tests
// use it to verify no timer outlives its race.
var liveTimers atomic.Int64

// Timeout derives a Future that settles with f's outcome if it arrives
// within d, and fails with a *TimeoutError otherwise. Whichever side
// loses the race releases the other's pending timer; no timer outlives
// the race.
func (f *Future[T]) Timeout(d time.Duration) *Future[T] {
	f.mu.Lock()
	st, v, err := f.state, f.value, f.err
	f.mu.Unlock()
	if st == stateDone {
		return Completed(v)
	}
	if st == stateFailed {
		return Failed[T](err)
	}

	nf := New[T]()
	liveTimers.Add(1)
	var once sync.Once
	release := func() { once.Do(func() { liveTimers.Add(-1) }) }
	timer := time.AfterFunc(d, func() {
		release()
		nf.Fail(&TimeoutError{Limit: d})
	})
	f.subscribe(func(v T) error {
		if timer.Stop() {
			release()
		}
		nf.Complete(v)
		return nil
	})
	f.subscribeFail(func(err error) {
		if timer.Stop() {
			release()
		}
		nf.Fail(err)
	})
	return nf
}

// Chain derives a Future that completes with f's own value, but only
// once other has also succeeded. other is not observed until f
// succeeds; a failure of either side fails the result, and a failure
// of f leaves other's eventual outcome irrelevant to it.
func (f *Future[T]) Chain(other Observer) *Future[T] {
	nf := New[T]()
	f.subscribe(func(v T) error {
		other.observe(
			func() { nf.Complete(v) },
			func(err error) { nf.Fail(err) },
		)
		return nil
	})
	f.subscribeFail(func(err error) { nf.Fail(err) })
	return nf
}

// Status derives a Future that always completes: with true if f
// completed, with false if it failed.
func (f *Future[T]) Status() *Future[bool] {
	nf := New[bool]()
	f.observe(
		func() { nf.Complete(true) },
		func(error) { nf.Complete(false) },
	)
	return nf
}

// Discard derives a value-free Future settling with f's outcome, for
// callers that only care whether f succeeded.
func (f *Future[T]) Discard() *Future[struct{}] {
	nf := New[struct{}]()
	f.observe(
		func() { nf.Complete(struct{}{}) },
		func(err error) { nf.Fail(err) },
	)
	return nf
}

// ThenRun derives a Future that runs task once f completes and then
// completes with f's value. A panic in task fails the result.
func (f *Future[T]) ThenRun(task func()) *Future[T] {
	return f.TryThenRun(func() error { task(); return nil })
}

// TryThenRun is ThenRun for tasks that can fail.
func (f *Future[T]) TryThenRun(task func() error) *Future[T] {
	nf := New[T]()
	f.subscribe(func(v T) error {
		var terr error
		if err := protect(func() { terr = task() }); err != nil {
			terr = err
		}
		if terr != nil {
			nf.Fail(terr)
			return nil
		}
		nf.Complete(v)
		return nil
	})
	f.subscribeFail(func(err error) { nf.Fail(err) })
	return nf
}

// Clone derives an independent Future mirroring f's outcome.
func (f *Future[T]) Clone() *Future[T] {
	nf := New[T]()
	f.subscribe(func(v T) error { nf.Complete(v); return nil })
	f.subscribeFail(func(err error) { nf.Fail(err) })
	return nf
}

// All returns a fan-in barrier: a Future that completes once every
// input has succeeded, and fails with the error of the first input
// observed to fail. The barrier settles exactly once even when several
// inputs fail concurrently. No inputs means immediate completion.
func All(fs ...Observer) *Future[struct{}] {
	nf := New[struct{}]()
	fs = slices.Clone(fs)
	if len(fs) == 0 {
		nf.Complete(struct{}{})
		return nf
	}
	var remaining atomic.Int64
	remaining.Store(int64(len(fs)))
	for _, f := range fs {
		f.observe(func() {
			if remaining.Add(-1) == 0 {
				nf.Complete(struct{}{})
			}
		}, func(err error) {
			nf.Fail(err)
		})
	}
	return nf
}

// Join waits for every input to settle, regardless of outcome. It
// completes once all inputs succeeded, and otherwise fails with all
// collected failures combined into one error.
func Join(fs ...Observer) *Future[struct{}] {
	nf := New[struct{}]()
	fs = slices.Clone(fs)
	if len(fs) == 0 {
		nf.Complete(struct{}{})
		return nf
	}
	var (
		mu        sync.Mutex
		remaining = len(fs)
		errs      []error
	)
	settle := func(err error) {
		mu.Lock()
		if err != nil {
			errs = append(errs, err)
		}
		remaining--
		last := remaining == 0
		collected := errs
		mu.Unlock()
		if !last {
			return
		}
		if len(collected) > 0 {
			nf.Fail(multierr.New(collected...))
		} else {
			nf.Complete(struct{}{})
		}
	}
	for _, f := range fs {
		f.observe(func() { settle(nil) }, settle)
	}
	return nf
}
