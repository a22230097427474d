package future

import (
	"errors"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kr/pretty"
	"golang.org/x/sync/errgroup"
	"kr.dev/diff"
)

func TestTransform(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := New[int]()
		nf := Transform(f, strconv.Itoa)
		f.Complete(12)
		diff.Test(t, t.Errorf, nf.GetNow(""), "12")
	})
	t.Run("failure passes through", func(t *testing.T) {
		var called bool
		nf := Transform(Failed[int](errBoom), func(int) string {
			called = true
			return ""
		})
		diff.Test(t, t.Errorf, called, false)
		if !errors.Is(mustErr(nf.Get()), errBoom) {
			t.Error("failure not propagated")
		}
	})
	t.Run("panic fails result", func(t *testing.T) {
		nf := Transform(Completed(1), func(int) string { panic(errBoom) })
		diff.Test(t, t.Errorf, nf.IsFailed(), true)
	})
}

func TestTryTransform(t *testing.T) {
	nf := TryTransform(Completed("7"), strconv.Atoi)
	diff.Test(t, t.Errorf, nf.GetNow(-1), 7)

	bad := TryTransform(Completed("x"), strconv.Atoi)
	diff.Test(t, t.Errorf, bad.IsFailed(), true)
}

func TestTransformAsync(t *testing.T) {
	t.Run("flattens success", func(t *testing.T) {
		inner := New[string]()
		nf := TransformAsync(Completed(1), func(int) *Future[string] { return inner })
		diff.Test(t, t.Errorf, nf.IsDone(), false)
		inner.Complete("ok")
		diff.Test(t, t.Errorf, nf.GetNow(""), "ok")
	})
	t.Run("flattens failure", func(t *testing.T) {
		nf := TransformAsync(Completed(1), func(int) *Future[string] {
			return Failed[string](errBoom)
		})
		if !errors.Is(mustErr(nf.Get()), errBoom) {
			t.Error("inner failure not propagated")
		}
	})
	t.Run("nil inner", func(t *testing.T) {
		nf := TransformAsync(Completed(1), func(int) *Future[string] { return nil })
		diff.Test(t, t.Errorf, nf.IsFailed(), true)
	})
}

func TestToAndCast(t *testing.T) {
	t.Run("to", func(t *testing.T) {
		nf := To(Completed(1), "done")
		diff.Test(t, t.Errorf, nf.GetNow(""), "done")
	})
	t.Run("cast ok", func(t *testing.T) {
		f := Completed[any]("hello")
		diff.Test(t, t.Errorf, Cast[string](f).GetNow(""), "hello")
	})
	t.Run("cast mismatch", func(t *testing.T) {
		f := Completed[any](3)
		nf := Cast[string](f)
		var ce *CastError
		if !errors.As(mustErr(nf.Get()), &ce) {
			t.Fatalf("err = %v; want *CastError", mustErr(nf.Get()))
		}
		diff.Test(t, t.Errorf, ce.Expected, "string")
		diff.Test(t, t.Errorf, ce.Actual, "int")
	})
}

func TestFallback(t *testing.T) {
	diff.Test(t, t.Errorf, Failed[int](errBoom).Fallback(9).GetNow(-1), 9)
	diff.Test(t, t.Errorf, Completed(3).Fallback(9).GetNow(-1), 3)

	nf := Failed[int](errBoom).FallbackFunc(func(err error) int {
		diff.Test(t, t.Errorf, err, errBoom)
		return 7
	})
	diff.Test(t, t.Errorf, nf.GetNow(-1), 7)
}

func TestFilter(t *testing.T) {
	even := func(v int) bool { return v%2 == 0 }
	t.Run("accepted", func(t *testing.T) {
		diff.Test(t, t.Errorf, Completed(4).FilterDefault(even).GetNow(-1), 4)
	})
	t.Run("rejected", func(t *testing.T) {
		nf := Completed(3).FilterDefault(even)
		if !errors.Is(mustErr(nf.Get()), ErrPredicateRejected) {
			t.Error("rejection did not surface ErrPredicateRejected")
		}
	})
	t.Run("failure skips predicate", func(t *testing.T) {
		var called bool
		nf := Failed[int](errBoom).FilterDefault(func(int) bool {
			called = true
			return true
		})
		diff.Test(t, t.Errorf, called, false)
		if !errors.Is(mustErr(nf.Get()), errBoom) {
			t.Error("source failure not propagated")
		}
	})
}

func TestFailIf(t *testing.T) {
	t.Run("rejects", func(t *testing.T) {
		nf := Completed(3).FailIf(func(v int) error {
			if v%2 != 0 {
				return errBoom
			}
			return nil
		})
		diff.Test(t, t.Errorf, nf.IsFailed(), true)
		diff.Test(t, t.Errorf, nf.GetNow(-1), -1)
		if !errors.Is(mustErr(nf.Get()), errBoom) {
			t.Error("check error not propagated")
		}
	})
	t.Run("accepts", func(t *testing.T) {
		nf := Completed(4).FailIf(func(int) error { return nil })
		diff.Test(t, t.Errorf, nf.GetNow(-1), 4)
	})
	t.Run("source failure", func(t *testing.T) {
		nf := Failed[int](errBoom).FailIf(func(int) error { return nil })
		diff.Test(t, t.Errorf, nf.IsFailed(), true)
	})
}

func TestTimeout(t *testing.T) {
	t.Run("source wins", func(t *testing.T) {
		f := New[int]()
		nf := f.Timeout(time.Second)
		f.Complete(2)
		diff.Test(t, t.Errorf, nf.GetNow(-1), 2)
	})
	t.Run("deadline wins", func(t *testing.T) {
		f := New[int]()
		nf := f.Timeout(10 * time.Millisecond)
		_, err := nf.Get()
		var te *TimeoutError
		if !errors.As(err, &te) {
			t.Fatalf("err = %v; want *TimeoutError", err)
		}
		diff.Test(t, t.Errorf, te.Limit, 10*time.Millisecond)
		diff.Test(t, t.Errorf, f.IsDone(), false)
	})
	t.Run("settled source short-circuits", func(t *testing.T) {
		diff.Test(t, t.Errorf, Completed(5).Timeout(time.Nanosecond).GetNow(-1), 5)
		diff.Test(t, t.Errorf, Failed[int](errBoom).Timeout(time.Nanosecond).IsFailed(), true)
	})
	t.Run("no timer leaks", func(t *testing.T) {
		base := liveTimers.Load()
		var g errgroup.Group
		for i := 0; i < 50; i++ {
			f := New[int]()
			nf := f.Timeout(5 * time.Millisecond)
			g.Go(func() error {
				f.Complete(1)
				_, _ = nf.Get()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			t.Fatal(err)
		}
		deadline := time.Now().Add(time.Second)
		for liveTimers.Load() != base && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		diff.Test(t, t.Errorf, liveTimers.Load(), base)
	})
}

func TestChain(t *testing.T) {
	t.Run("keeps own value", func(t *testing.T) {
		f := Completed(1)
		other := New[string]()
		nf := f.Chain(other)
		diff.Test(t, t.Errorf, nf.IsDone(), false)
		other.Complete("ignored")
		diff.Test(t, t.Errorf, nf.GetNow(-1), 1)
	})
	t.Run("other failure", func(t *testing.T) {
		nf := Completed(1).Chain(Failed[string](errBoom))
		if !errors.Is(mustErr(nf.Get()), errBoom) {
			t.Error("chained failure not propagated")
		}
	})
	t.Run("source failure skips other", func(t *testing.T) {
		other := New[string]()
		nf := Failed[int](errBoom).Chain(other)
		diff.Test(t, t.Errorf, nf.IsFailed(), true)
	})
}

func TestStatusDiscard(t *testing.T) {
	diff.Test(t, t.Errorf, Completed(1).Status().GetNow(false), true)
	diff.Test(t, t.Errorf, Failed[int](errBoom).Status().GetOrDefault(true), false)

	diff.Test(t, t.Errorf, Completed(1).Discard().IsDone(), true)
	diff.Test(t, t.Errorf, Failed[int](errBoom).Discard().IsFailed(), true)
}

func TestThenRun(t *testing.T) {
	var ran bool
	nf := Completed(2).ThenRun(func() { ran = true })
	diff.Test(t, t.Errorf, ran, true)
	diff.Test(t, t.Errorf, nf.GetNow(-1), 2)

	bad := Completed(2).TryThenRun(func() error { return errBoom })
	diff.Test(t, t.Errorf, bad.IsFailed(), true)
}

func TestClone(t *testing.T) {
	f := New[int]()
	c := f.Clone()
	f.Complete(3)
	diff.Test(t, t.Errorf, c.GetNow(-1), 3)

	// The clone settles independently of later source handlers.
	c2 := f.Clone()
	c2.Then(func(int) { panic(errBoom) })
	diff.Test(t, t.Errorf, c2.IsFailed(), true)
	diff.Test(t, t.Errorf, f.IsFailed(), false)
}

func TestAll(t *testing.T) {
	t.Run("all succeed", func(t *testing.T) {
		a, b := New[int](), New[string]()
		nf := All(a, b)
		a.Complete(1)
		diff.Test(t, t.Errorf, nf.IsDone(), false)
		b.Complete("x")
		diff.Test(t, t.Errorf, nf.IsDone(), true)
		diff.Test(t, t.Errorf, nf.IsFailed(), false)
	})
	t.Run("empty", func(t *testing.T) {
		diff.Test(t, t.Errorf, All().IsDone(), true)
	})
	t.Run("first failure wins", func(t *testing.T) {
		a, b := New[int](), New[int]()
		nf := All(a, b)
		a.Fail(errBoom)
		if !errors.Is(mustErr(nf.Get()), errBoom) {
			t.Error("failure not propagated")
		}
		b.Complete(1) // late success must not revive the barrier
		diff.Test(t, t.Errorf, nf.IsFailed(), true)
	})
	t.Run("concurrent failures settle once", func(t *testing.T) {
		var fs []Observer
		var futs []*Future[int]
		for i := 0; i < 20; i++ {
			f := New[int]()
			fs = append(fs, f)
			futs = append(futs, f)
		}
		nf := All(fs...)
		var settles atomic.Int64
		nf.Except(func(error) { settles.Add(1) })
		var g errgroup.Group
		for _, f := range futs {
			f := f
			g.Go(func() error { f.Fail(errBoom); return nil })
		}
		if err := g.Wait(); err != nil {
			t.Fatal(err)
		}
		diff.Test(t, t.Errorf, settles.Load(), int64(1))
	})
}

func TestJoin(t *testing.T) {
	t.Run("waits for all outcomes", func(t *testing.T) {
		a, b := New[int](), New[int]()
		nf := Join(a, b)
		a.Fail(errBoom)
		diff.Test(t, t.Errorf, nf.IsDone(), false)
		b.Complete(1)
		diff.Test(t, t.Errorf, nf.IsFailed(), true)
	})
	t.Run("collects every failure", func(t *testing.T) {
		errOther := errors.New("other")
		nf := Join(Failed[int](errBoom), Failed[int](errOther), Completed(1))
		err := mustErr(nf.Get())
		t.Logf("combined: %s", pretty.Formatter(err))
		if !errors.Is(err, errBoom) || !errors.Is(err, errOther) {
			t.Errorf("combined error %v missing a cause", err)
		}
	})
	t.Run("all succeed", func(t *testing.T) {
		nf := Join(Completed(1), Completed(2))
		diff.Test(t, t.Errorf, nf.IsFailed(), false)
		diff.Test(t, t.Errorf, nf.IsDone(), true)
	})
}
