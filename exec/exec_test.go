package exec

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"kr.dev/diff"
)

func TestFunc(t *testing.T) {
	var ran bool
	Func(func(task func()) { task() }).Execute(func() { ran = true })
	diff.Test(t, t.Errorf, ran, true)
}

func TestInline(t *testing.T) {
	var order []int
	Inline.Execute(func() { order = append(order, 1) })
	order = append(order, 2)
	diff.Test(t, t.Errorf, order, []int{1, 2})
}

func TestPoolRunsTasks(t *testing.T) {
	p := NewPool(2)
	var (
		mu  sync.Mutex
		got []int
		wg  sync.WaitGroup
	)
	for i := 0; i < 10; i++ {
		i := i
		wg.Add(1)
		p.Execute(func() {
			defer wg.Done()
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}
	wg.Wait()
	diff.Test(t, t.Errorf, len(got), 10)
}

func TestPoolPanic(t *testing.T) {
	first := make(chan string, 1)
	p := NewPool(1)
	p.Logf = func(format string, args ...any) {
		select {
		case first <- fmt.Sprintf(format, args...):
		default:
		}
	}

	p.Execute(func() { panic("kaboom") })

	line := <-first
	if !strings.Contains(line, "task panic") || !strings.Contains(line, "kaboom") {
		t.Errorf("panic report %q missing the panic value", line)
	}
}

func TestNewPoolDefaultSize(t *testing.T) {
	p := NewPool(0)
	done := make(chan struct{})
	p.Execute(func() { close(done) })
	<-done
}
