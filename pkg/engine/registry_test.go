package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestAcquireSerializesSameContact(t *testing.T) {
	r := NewContactRegistry()

	release, ok := r.Acquire(context.Background(), "c1")
	if !ok {
		t.Fatalf("first acquire failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, ok := r.Acquire(ctx, "c1"); ok {
		t.Fatalf("second acquire should block until release")
	}

	release()
	release2, ok := r.Acquire(context.Background(), "c1")
	if !ok {
		t.Fatalf("acquire after release failed")
	}
	release2()
}

func TestAcquireAllowsDifferentContacts(t *testing.T) {
	r := NewContactRegistry()

	r1, ok := r.Acquire(context.Background(), "c1")
	if !ok {
		t.Fatalf("acquire c1 failed")
	}
	r2, ok := r.Acquire(context.Background(), "c2")
	if !ok {
		t.Fatalf("acquire c2 failed")
	}
	if got := r.InFlight(); got != 2 {
		t.Fatalf("expected 2 in flight, got %d", got)
	}
	r1()
	r2()
	if got := r.InFlight(); got != 0 {
		t.Fatalf("expected 0 in flight, got %d", got)
	}
}

func TestAcquireFailsWhileDraining(t *testing.T) {
	r := NewContactRegistry()
	r.SetDraining(true)
	if _, ok := r.Acquire(context.Background(), "c1"); ok {
		t.Fatalf("acquire should fail while draining")
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	r := NewContactRegistry()
	release, ok := r.Acquire(context.Background(), "c1")
	if !ok {
		t.Fatalf("acquire failed")
	}
	release()
	release()
	if got := r.InFlight(); got != 0 {
		t.Fatalf("expected 0 in flight after double release, got %d", got)
	}
}

func TestWaitForEmptyDrainsInFlight(t *testing.T) {
	r := NewContactRegistry()

	var wg sync.WaitGroup
	var done atomic.Bool
	for i := 0; i < 4; i++ {
		release, ok := r.Acquire(context.Background(), string(rune('a'+i)))
		if !ok {
			t.Fatalf("acquire %d failed", i)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			time.Sleep(20 * time.Millisecond)
			release()
		}()
	}

	r.SetDraining(true)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if !r.WaitForEmpty(ctx, 5*time.Millisecond) {
		t.Fatalf("drain did not complete")
	}
	done.Store(true)
	wg.Wait()
	if !done.Load() || r.InFlight() != 0 {
		t.Fatalf("expected empty registry, got %d in flight", r.InFlight())
	}
}
