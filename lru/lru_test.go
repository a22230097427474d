package lru

import (
	"testing"

	"kr.dev/diff"
)

func TestGetAdd(t *testing.T) {
	c := New[string, int](0)
	c.Add("a", 1)
	c.Add("b", 2)

	v, ok := c.Get("a")
	diff.Test(t, t.Errorf, ok, true)
	diff.Test(t, t.Errorf, v, 1)

	_, ok = c.Get("missing")
	diff.Test(t, t.Errorf, ok, false)
	diff.Test(t, t.Errorf, c.Len(), 2)
}

func TestAddReplaces(t *testing.T) {
	c := New[string, int](0)
	c.Add("a", 1)
	c.Add("a", 2)
	v, _ := c.Get("a")
	diff.Test(t, t.Errorf, v, 2)
	diff.Test(t, t.Errorf, c.Len(), 1)
}

func TestEvictOldest(t *testing.T) {
	var evicted []string
	c := New[string, int](2)
	c.OnEvicted = func(key string, _ int) { evicted = append(evicted, key) }

	c.Add("a", 1)
	c.Add("b", 2)
	c.Get("a") // refresh a; b is now oldest
	c.Add("c", 3)

	diff.Test(t, t.Errorf, evicted, []string{"b"})
	_, ok := c.Get("b")
	diff.Test(t, t.Errorf, ok, false)
	_, ok = c.Get("a")
	diff.Test(t, t.Errorf, ok, true)
}

func TestRemove(t *testing.T) {
	var evicted []string
	c := New[string, int](0)
	c.OnEvicted = func(key string, _ int) { evicted = append(evicted, key) }
	c.Add("a", 1)
	c.Remove("a")
	c.Remove("a") // no-op
	diff.Test(t, t.Errorf, evicted, []string{"a"})
	diff.Test(t, t.Errorf, c.Len(), 0)
}

func TestClear(t *testing.T) {
	var evicted int
	c := New[string, int](0)
	c.OnEvicted = func(string, int) { evicted++ }
	c.Add("a", 1)
	c.Add("b", 2)
	c.Clear()
	diff.Test(t, t.Errorf, evicted, 2)
	diff.Test(t, t.Errorf, c.Len(), 0)
}

func TestZeroValue(t *testing.T) {
	var c Cache[string, int]
	_, ok := c.Get("a")
	diff.Test(t, t.Errorf, ok, false)
	c.Add("a", 1)
	v, ok := c.Get("a")
	diff.Test(t, t.Errorf, ok, true)
	diff.Test(t, t.Errorf, v, 1)
}
