package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// ContactRegistry serializes turns per contact. Two messages from the same
// contact are processed one at a time; different contacts run concurrently.
type ContactRegistry struct {
	locks    sync.Map
	inFlight atomic.Int64
	draining atomic.Bool
}

func NewContactRegistry() *ContactRegistry {
	return &ContactRegistry{}
}

// Acquire blocks until the contact's turn lock is free, then returns the
// release func. It fails once the registry is draining or the context ends.
func (r *ContactRegistry) Acquire(ctx context.Context, contactID string) (func(), bool) {
	if r.draining.Load() {
		return nil, false
	}
	v, _ := r.locks.LoadOrStore(contactID, make(chan struct{}, 1))
	ch := v.(chan struct{})
	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return nil, false
	}
	if r.draining.Load() {
		<-ch
		return nil, false
	}
	r.inFlight.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() {
			<-ch
			r.inFlight.Add(-1)
		})
	}, true
}

// InFlight reports how many turns are currently being processed.
func (r *ContactRegistry) InFlight() int64 {
	return r.inFlight.Load()
}

func (r *ContactRegistry) SetDraining(v bool) {
	r.draining.Store(v)
}

func (r *ContactRegistry) Draining() bool {
	return r.draining.Load()
}

// WaitForEmpty polls until no turns are in flight or the context expires.
func (r *ContactRegistry) WaitForEmpty(ctx context.Context, interval time.Duration) bool {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if r.InFlight() == 0 {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}
