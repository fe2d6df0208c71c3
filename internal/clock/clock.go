// Package clock abstracts time for the polling loops so tests can simulate
// many iterations without real delay.
package clock

import (
	"context"
	"time"
)

// Clock provides the current time and a cancellable sleep.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// Sleep blocks for d or until ctx is cancelled.
	// It returns false if the context was cancelled before the delay elapsed.
	Sleep(ctx context.Context, d time.Duration) bool
}

// Real is the wall-clock implementation of Clock.
type Real struct{}

// New returns a wall-clock Clock.
func New() Clock {
	return Real{}
}

// Now returns the current wall-clock time.
func (Real) Now() time.Time {
	return time.Now()
}

// Sleep blocks for d or until ctx is cancelled.
func (Real) Sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
