package cache

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCache(ttl time.Duration) (*Cache[string], *clock) {
	clk := &clock{t: time.Date(2023, 3, 15, 8, 0, 0, 0, time.UTC)}
	c := New[string](ttl)
	c.now = clk.now
	return c, clk
}

func TestCache_SetGet(t *testing.T) {
	c, _ := newTestCache(time.Minute)

	c.Set("key1", "value1")
	got, ok := c.Get("key1")
	if !ok {
		t.Fatal("Get('key1') should return true")
	}
	if got != "value1" {
		t.Errorf("Get('key1') = %v, want 'value1'", got)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("Get('missing') should return false")
	}
}

func TestCache_Expiry(t *testing.T) {
	c, clk := newTestCache(30 * time.Second)

	c.Set("key", "value")
	clk.advance(30 * time.Second)
	if _, ok := c.Get("key"); !ok {
		t.Fatal("key should be present until the TTL has passed")
	}

	clk.advance(time.Second)
	if _, ok := c.Get("key"); ok {
		t.Error("key should be expired after TTL")
	}
}

func TestCache_Cleanup(t *testing.T) {
	c, clk := newTestCache(time.Minute)

	c.Set("a", "1")
	c.Set("b", "2")
	clk.advance(2 * time.Minute)
	c.Set("c", "3")

	c.cleanup()

	if c.Len() != 1 {
		t.Fatalf("Len() = %d after cleanup, want 1", c.Len())
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("fresh entry 'c' should still be present")
	}
}

func TestCache_GetOrLoad(t *testing.T) {
	c, _ := newTestCache(time.Minute)

	calls := 0
	load := func() (string, error) {
		calls++
		return "loaded", nil
	}
	for i := 0; i < 3; i++ {
		v, err := c.GetOrLoad("k", load)
		if err != nil || v != "loaded" {
			t.Fatalf("GetOrLoad = %q, %v", v, err)
		}
	}
	if calls != 1 {
		t.Errorf("load called %d times, want 1", calls)
	}

	boom := errors.New("boom")
	if _, err := c.GetOrLoad("bad", func() (string, error) { return "", boom }); !errors.Is(err, boom) {
		t.Errorf("GetOrLoad error = %v, want boom", err)
	}
	if _, ok := c.Get("bad"); ok {
		t.Error("failed loads should not be cached")
	}
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New[int](time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			c.Set("key", n)
		}(i)
		go func() {
			defer wg.Done()
			c.Get("key")
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.cleanup()
	}()
	wg.Wait()

	if _, ok := c.Get("key"); !ok {
		t.Error("key should exist after concurrent writes")
	}
}
