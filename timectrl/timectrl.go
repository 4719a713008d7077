package timectrl

import (
	"context"
	"sync"
	"time"
)

// SimClock is an interface for reading simulation time. Components and
// observers depend on this abstraction rather than the concrete controller
// type, which keeps them testable.
type SimClock interface {
	// Now returns the current simulation time.
	Now() time.Time
}

// Mode describes how the TimeController advances simulation time.
type Mode int

const (
	// RealTime advances one tick per elapsed wall-clock tick.
	RealTime Mode = iota
	// Accelerated advances as quickly as the caller can step.
	Accelerated
)

// TimeController paces a simulation run and notifies registered listeners
// whenever simulation time advances. It implements core.Pacer via Advance
// and SimClock via Now.
type TimeController struct {
	mu        sync.RWMutex
	StartTime time.Time
	Tick      time.Duration
	Mode      Mode

	// currentTime tracks the current simulation time. It is updated as
	// the controller advances.
	currentTime time.Time

	listeners []func(time.Time)
}

// NewTimeController constructs a controller.
func NewTimeController(start time.Time, tick time.Duration, mode Mode) *TimeController {
	return &TimeController{
		StartTime:   start,
		Tick:        tick,
		Mode:        mode,
		currentTime: start,
	}
}

// Now returns the current simulation time. Implements SimClock.
func (tc *TimeController) Now() time.Time {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.currentTime
}

// SetTime moves the controller to an arbitrary simulation time without
// firing listeners.
func (tc *TimeController) SetTime(at time.Time) {
	tc.mu.Lock()
	tc.currentTime = at
	tc.mu.Unlock()
}

// Reset rewinds the controller to its start time.
func (tc *TimeController) Reset() {
	tc.SetTime(tc.StartTime)
}

// AddListener registers a callback invoked on every advance.
func (tc *TimeController) AddListener(fn func(time.Time)) {
	tc.mu.Lock()
	tc.listeners = append(tc.listeners, fn)
	tc.mu.Unlock()
}

// Advance moves simulation time forward by one tick and returns the new
// time. In RealTime mode it first waits one wall-clock tick, honouring
// context cancellation; in Accelerated mode it returns immediately.
func (tc *TimeController) Advance(ctx context.Context) (time.Time, error) {
	if tc.Mode == RealTime {
		timer := time.NewTimer(tc.Tick)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return tc.Now(), ctx.Err()
		case <-timer.C:
		}
	}

	tc.mu.Lock()
	tc.currentTime = tc.currentTime.Add(tc.Tick)
	now := tc.currentTime
	listeners := tc.listeners
	tc.mu.Unlock()

	for _, fn := range listeners {
		fn(now)
	}
	return now, nil
}
