package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func TestGetAppliesLazyExpiry(t *testing.T) {
	clock := newClock()
	c := New[string](Options{Name: "test-lazy", TTL: time.Minute, Now: clock.Now})
	c.Set("k", "v")

	if got, ok := c.Get("k"); !ok || got != "v" {
		t.Fatalf("expected fresh hit, got %q ok=%v", got, ok)
	}

	clock.Advance(time.Minute)
	if !c.Stored("k") {
		t.Fatal("expired entry should still be physically stored before a read")
	}
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected expired entry to read as absent")
	}
	if c.Stored("k") {
		t.Fatal("expired entry should be evicted by the read")
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Evictions != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.HitRate() != 0.5 {
		t.Fatalf("hit rate = %v, want 0.5", stats.HitRate())
	}
}

func TestSetEvictsOldestInsertion(t *testing.T) {
	c := New[int](Options{Name: "test-bounded", MaxEntries: 2})
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 10)
	c.Set("c", 3)

	if c.Stored("b") {
		t.Fatal("expected b to be evicted as the oldest insertion")
	}
	if got, ok := c.Get("a"); !ok || got != 10 {
		t.Fatalf("expected overwritten a to survive, got %d ok=%v", got, ok)
	}
	if keys := c.Keys(); len(keys) != 2 || keys[0] != "a" || keys[1] != "c" {
		t.Fatalf("unexpected insertion order %v", keys)
	}
}

func TestSweepRemovesExpired(t *testing.T) {
	clock := newClock()
	c := New[int](Options{Name: "test-sweep", TTL: time.Minute, Now: clock.Now})
	c.Set("old", 1)
	clock.Advance(45 * time.Second)
	c.Set("new", 2)
	clock.Advance(30 * time.Second)

	if removed := c.Sweep(); removed != 1 {
		t.Fatalf("Sweep removed %d, want 1", removed)
	}
	if c.Stored("old") || !c.Stored("new") {
		t.Fatal("sweep removed the wrong entry")
	}
}

func TestClear(t *testing.T) {
	c := New[int](Options{Name: "test-clear"})
	c.Set("a", 1)
	c.Set("b", 2)
	if n := c.Clear(); n != 2 {
		t.Fatalf("Clear returned %d, want 2", n)
	}
	if c.Len() != 0 {
		t.Fatalf("expected empty cache, got %d", c.Len())
	}
}

func TestGetOrLoadDeduplicatesConcurrentLoads(t *testing.T) {
	c := New[string](Options{Name: "test-flight", TTL: time.Hour})
	var calls atomic.Int32
	release := make(chan struct{})

	load := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "loaded", nil
	}

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, _, err := c.GetOrLoad(context.Background(), "key", load)
			if err != nil {
				t.Errorf("GetOrLoad returned error: %v", err)
			}
			results[i] = v
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("expected a single load, got %d", calls.Load())
	}
	for i, v := range results {
		if v != "loaded" {
			t.Fatalf("result[%d] = %q", i, v)
		}
	}
	if _, hit, _ := c.GetOrLoad(context.Background(), "key", load); !hit {
		t.Fatal("expected subsequent call to hit the cache")
	}
}

func TestGetOrLoadCancelledWaiterDoesNotFailOthers(t *testing.T) {
	c := New[string](Options{Name: "test-cancel", TTL: time.Hour})
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	var loadCtxErr atomic.Value

	load := func(ctx context.Context) (string, error) {
		calls.Add(1)
		close(started)
		<-release
		loadCtxErr.Store(fmt.Sprint(ctx.Err()))
		return "loaded", nil
	}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, _, err := c.GetOrLoad(ctxA, "key", load)
		errA <- err
	}()
	<-started

	type outcome struct {
		value string
		err   error
	}
	resB := make(chan outcome, 1)
	go func() {
		v, _, err := c.GetOrLoad(context.Background(), "key", load)
		resB <- outcome{v, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	if err := <-errA; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled waiter: expected context.Canceled, got %v", err)
	}
	close(release)

	got := <-resB
	if got.err != nil || got.value != "loaded" {
		t.Fatalf("other waiter: v=%q err=%v", got.value, got.err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single load, got %d", calls.Load())
	}
	if e := loadCtxErr.Load(); e != "<nil>" {
		t.Fatalf("shared load saw ctx error %v", e)
	}
	if !c.Stored("key") {
		t.Fatal("completed load should be cached")
	}
}

func TestGetOrLoadDoesNotCacheErrors(t *testing.T) {
	c := New[int](Options{Name: "test-errors", TTL: time.Hour})
	boom := errors.New("boom")
	if _, _, err := c.GetOrLoad(context.Background(), "k", func(context.Context) (int, error) {
		return 0, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected loader error, got %v", err)
	}
	if c.Stored("k") {
		t.Fatal("failed load must not be cached")
	}
	v, hit, err := c.GetOrLoad(context.Background(), "k", func(context.Context) (int, error) {
		return 7, nil
	})
	if err != nil || hit || v != 7 {
		t.Fatalf("unexpected second load v=%d hit=%v err=%v", v, hit, err)
	}
}

func TestRunSweeperStopsOnCancel(t *testing.T) {
	c := New[int](Options{Name: "test-runsweeper", TTL: time.Millisecond})
	c.Set("a", 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.RunSweeper(ctx, 5*time.Millisecond)
		close(done)
	}()
	deadline := time.Now().Add(time.Second)
	for c.Stored("a") && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if c.Stored("a") {
		t.Fatal("expected sweeper to remove expired entry")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunSweeper did not stop after cancel")
	}
}
