package future

import (
	"context"
	"errors"
)

// A Result pairs the two outcomes of a settled Future for transport
// over a channel. Exactly one of Value and Err is meaningful; Err ==
// nil discriminates.
type Result[T any] struct {
	Value T
	Err   error
}

// Unpack returns the result as an ordinary (value, error) pair.
func (r Result[T]) Unpack() (T, error) { return r.Value, r.Err }

// Done returns a channel closed when the Future settles, for use in
// select statements. The outcome is read afterward with GetNow or Get.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Chan returns a buffered channel that receives the Future's outcome
// once it settles and is then closed. The Err field carries the raw
// failure cause, not the *ExecutionError wrapper Get applies.
func (f *Future[T]) Chan() <-chan Result[T] {
	ch := make(chan Result[T], 1)
	f.subscribe(func(v T) error {
		ch <- Result[T]{Value: v}
		close(ch)
		return nil
	})
	f.subscribeFail(func(err error) {
		ch <- Result[T]{Err: err}
		close(ch)
	})
	return ch
}

// From returns a Future settled with the first Result received from
// ch. A channel closed without sending fails the Future.
func From[T any](ch <-chan Result[T]) *Future[T] {
	nf := New[T]()
	go func() {
		r, ok := <-ch
		if !ok {
			nf.Fail(errors.New("future: source channel closed"))
			return
		}
		if r.Err != nil {
			nf.Fail(r.Err)
			return
		}
		nf.Complete(r.Value)
	}()
	return nf
}

// WaitContext blocks until the Future settles or ctx is done,
// whichever comes first. Context expiry returns ctx.Err() and leaves
// the Future untouched.
func (f *Future[T]) WaitContext(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.outcome()
	default:
	}
	select {
	case <-f.done:
		return f.outcome()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
