package providers

import (
	"context"
	"sync/atomic"
)

// Gate bounds concurrent outbound requests to one backend. Acquire blocks
// until a slot frees or the context ends; every successful Acquire must be
// paired with a Release.
type Gate struct {
	slots    chan struct{}
	inFlight atomic.Int64
	waiting  atomic.Int64
}

// NewGate creates a gate with n slots (DefaultMaxConcurrent when n <= 0).
func NewGate(n int) *Gate {
	if n <= 0 {
		n = DefaultMaxConcurrent
	}
	return &Gate{slots: make(chan struct{}, n)}
}

// Acquire takes a slot, blocking until one is free.
func (g *Gate) Acquire(ctx context.Context) error {
	g.waiting.Add(1)
	defer g.waiting.Add(-1)
	select {
	case g.slots <- struct{}{}:
		g.inFlight.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire takes a slot without blocking.
func (g *Gate) TryAcquire() bool {
	select {
	case g.slots <- struct{}{}:
		g.inFlight.Add(1)
		return true
	default:
		return false
	}
}

// Release frees a slot taken by Acquire or TryAcquire.
func (g *Gate) Release() {
	g.inFlight.Add(-1)
	<-g.slots
}

// GateStatus is a point-in-time snapshot for the health surface.
type GateStatus struct {
	Capacity int   `json:"capacity"`
	InFlight int64 `json:"in_flight"`
	Waiting  int64 `json:"waiting"`
}

// Status reports current gate occupancy.
func (g *Gate) Status() GateStatus {
	return GateStatus{
		Capacity: cap(g.slots),
		InFlight: g.inFlight.Load(),
		Waiting:  g.waiting.Load(),
	}
}
