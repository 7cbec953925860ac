package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func set[T any](c *LRU[T], key string, v T) {
	c.SetIf(c.Generation(), key, v)
}

func TestLRUEvictsOldest(t *testing.T) {
	c := NewLRU[int](2, time.Minute)
	set(c, "a", 1)
	set(c, "b", 2)
	c.Get("a")
	set(c, "c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("least recently used entry should be evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("a = %d,%v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("size = %d", c.Size())
	}
}

func TestLRUExpiry(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	c := NewLRU[string](10, time.Minute)
	c.now = func() time.Time { return now }

	set(c, "k", "v")
	set(c, "k2", "v")
	now = now.Add(2 * time.Minute)

	if _, ok := c.Get("k"); ok {
		t.Fatal("expired entry returned")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("CleanExpired removed %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Fatalf("size = %d", c.Size())
	}
}

func TestLRUPurgeStartsNewGeneration(t *testing.T) {
	c := NewLRU[int](10, time.Minute)
	set(c, "a", 1)
	before := c.Generation()
	c.Purge()

	if c.Size() != 0 {
		t.Fatalf("size after purge = %d", c.Size())
	}
	if c.SetIf(before, "a", 1) {
		t.Fatal("value from before the purge was stored")
	}
	if _, ok := c.Get("a"); ok {
		t.Fatal("stale value visible after purge")
	}
	if !c.SetIf(c.Generation(), "a", 3) {
		t.Fatal("current generation rejected")
	}
	if v, _ := c.Get("a"); v != 3 {
		t.Fatalf("cache unusable after purge, got %d", v)
	}
}

func TestLoaderCachesAndInvalidates(t *testing.T) {
	l := NewLoader[int](NewLRU[int](10, time.Minute))
	var calls int
	load := func() (int, error) {
		calls++
		return calls, nil
	}

	v1, _ := l.Get("sum", load)
	v2, _ := l.Get("sum", load)
	if v1 != 1 || v2 != 1 || calls != 1 {
		t.Fatalf("expected cached value, got %d %d after %d loads", v1, v2, calls)
	}

	l.Invalidate()
	v3, _ := l.Get("sum", load)
	if v3 != 2 {
		t.Fatalf("expected reload after invalidate, got %d", v3)
	}
}

func TestLoaderDoesNotCacheErrors(t *testing.T) {
	l := NewLoader[int](NewLRU[int](10, time.Minute))
	boom := errors.New("boom")
	if _, err := l.Get("k", func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	v, err := l.Get("k", func() (int, error) { return 5, nil })
	if err != nil || v != 5 {
		t.Fatalf("error must not be cached: %d %v", v, err)
	}
}

func TestLoaderCollapsesConcurrentLoads(t *testing.T) {
	l := NewLoader[int](NewLRU[int](10, time.Minute))
	var calls atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Get("k", func() (int, error) {
				calls.Add(1)
				<-release
				return 42, nil
			})
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Fatalf("expected a single load, got %d", n)
	}
}

func TestLoaderDropsLoadOverlappingInvalidate(t *testing.T) {
	l := NewLoader[int](NewLRU[int](10, time.Minute))
	v, _ := l.Get("k", func() (int, error) {
		l.Invalidate()
		return 1, nil
	})
	if v != 1 {
		t.Fatalf("caller should still get its value, got %d", v)
	}
	v, _ = l.Get("k", func() (int, error) { return 2, nil })
	if v != 2 {
		t.Fatalf("value loaded across an invalidate must not be cached, got %d", v)
	}
}

func TestManagerCleansRegisteredCaches(t *testing.T) {
	c := NewLRU[int](10, time.Millisecond)
	set(c, "a", 1)

	m := NewManager()
	m.Register(c)
	m.StartCleanup(5 * time.Millisecond)
	defer m.Stop()

	deadline := time.Now().Add(time.Second)
	for c.Size() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("expired entry was never cleaned")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// gatedLRU pauses SetIf until released, after the caller has already
// captured its generation.
type gatedLRU struct {
	*LRU[int]
	entered chan struct{}
	release chan struct{}
}

func (g *gatedLRU) SetIf(gen uint64, key string, v int) bool {
	g.entered <- struct{}{}
	<-g.release
	return g.LRU.SetIf(gen, key, v)
}

func TestLoaderInvalidateBeforeStoreWins(t *testing.T) {
	gated := &gatedLRU{
		LRU:     NewLRU[int](10, time.Minute),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	l := NewLoader[int](gated)

	done := make(chan int)
	go func() {
		v, _ := l.Get("sum", func() (int, error) { return 1, nil })
		done <- v
	}()
	<-gated.entered
	l.Invalidate()
	close(gated.release)
	if v := <-done; v != 1 {
		t.Fatalf("in-flight caller got %d, want 1", v)
	}

	go func() { <-gated.entered }()
	v, _ := l.Get("sum", func() (int, error) { return 2, nil })
	if v != 2 {
		t.Fatalf("value loaded before the invalidate survived it: got %d", v)
	}
}
