// Package timing provides the monotonic millisecond clock and the
// drift-correcting periodic sleeper used by every control loop.
package timing

import (
	"context"
	"fmt"
	"time"
)

var processStart = time.Now()

// MonotonicMS returns milliseconds elapsed on the monotonic clock since
// process start. All deadman and animation timing is expressed in this
// timebase so wall-clock jumps cannot trip the safety logic.
func MonotonicMS() int64 {
	return time.Since(processStart).Milliseconds()
}

// WallClockMS returns the current wall-clock time in Unix milliseconds.
// Used only for telemetry timestamps published on the bus.
func WallClockMS() int64 {
	return time.Now().UnixMilli()
}

// PeriodicSleeper sleeps between ticks of a fixed-rate loop, correcting
// for drift: each deadline is derived from the previous one, not from the
// wake-up time. When a tick overruns its period the deadline is reset to
// now instead of letting missed ticks pile up.
type PeriodicSleeper struct {
	period time.Duration
	next   time.Time
}

// NewPeriodicSleeper creates a sleeper ticking at the given rate.
func NewPeriodicSleeper(hz float64) (*PeriodicSleeper, error) {
	if hz <= 0 {
		return nil, fmt.Errorf("hz must be > 0, got %v", hz)
	}
	return &PeriodicSleeper{
		period: time.Duration(float64(time.Second) / hz),
		next:   time.Now(),
	}, nil
}

// Period returns the tick period.
func (s *PeriodicSleeper) Period() time.Duration {
	return s.period
}

// Sleep blocks until the next tick deadline or until ctx is cancelled.
// It returns false when ctx was cancelled, so loops can use it directly
// as their run condition.
func (s *PeriodicSleeper) Sleep(ctx context.Context) bool {
	s.next = s.next.Add(s.period)
	delay := time.Until(s.next)
	if delay <= 0 {
		s.next = time.Now()
		return ctx.Err() == nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
