package cache

import (
	"errors"
	"testing"
)

func TestGetOrCreate(t *testing.T) {
	calls := 0
	c := New[string, int](0, nil)
	create := func() (int, error) {
		calls++
		return 42, nil
	}
	for i := 0; i < 3; i++ {
		v, err := c.GetOrCreate("gauss", create)
		if err != nil || v != 42 {
			t.Fatalf("GetOrCreate() = %d, %v", v, err)
		}
	}
	if calls != 1 {
		t.Errorf("create called %d times, want 1", calls)
	}
	s := c.Stats()
	if s.Hits != 2 || s.Misses != 1 || s.Len != 1 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestGetOrCreateError(t *testing.T) {
	errCompile := errors.New("compile failed")
	c := New[string, int](0, nil)
	if _, err := c.GetOrCreate("bad", func() (int, error) { return 0, errCompile }); !errors.Is(err, errCompile) {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if _, ok := c.Get("bad"); ok {
		t.Error("failed create was stored")
	}
}

func TestEvictionOrder(t *testing.T) {
	var evicted []string
	c := New[string, int](2, func(k string, _ int) { evicted = append(evicted, k) })
	mk := func(v int) func() (int, error) { return func() (int, error) { return v, nil } }

	_, _ = c.GetOrCreate("a", mk(1))
	_, _ = c.GetOrCreate("b", mk(2))
	c.Get("a") // b is now least recently used
	_, _ = c.GetOrCreate("c", mk(3))

	if len(evicted) != 1 || evicted[0] != "b" {
		t.Fatalf("evicted = %v, want [b]", evicted)
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a should survive")
	}
	if c.Stats().Evictions != 1 {
		t.Errorf("Evictions = %d", c.Stats().Evictions)
	}
}

func TestDeleteAndClear(t *testing.T) {
	released := map[string]int{}
	c := New[string, int](0, func(k string, v int) { released[k] = v })
	for i, k := range []string{"x", "y", "z"} {
		v := i
		_, _ = c.GetOrCreate(k, func() (int, error) { return v, nil })
	}
	if !c.Delete("y") || c.Delete("y") {
		t.Error("Delete should succeed once")
	}
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() = %d after Clear", c.Len())
	}
	if len(released) != 3 || released["z"] != 2 {
		t.Errorf("released = %v", released)
	}
}
