package controller

import (
	"context"
	"time"
)

const (
	// MinFrameInterval is the shortest pause between two frames.
	MinFrameInterval = 20 * time.Millisecond
	// MaxSleepSlice bounds how long a pacer sleeps before checking for
	// cancellation, and therefore how long stop and reset can take.
	MaxSleepSlice = 100 * time.Millisecond
)

// Pacer waits between frames. Wait must return early with ctx.Err() when ctx
// is cancelled.
type Pacer interface {
	Wait(ctx context.Context, d time.Duration) error
}

// SlicedPacer sleeps in slices of at most Slice (MaxSleepSlice when zero).
type SlicedPacer struct {
	Slice time.Duration
}

// Wait sleeps for d or until ctx is done.
func (p SlicedPacer) Wait(ctx context.Context, d time.Duration) error {
	slice := p.Slice
	if slice <= 0 {
		slice = MaxSleepSlice
	}
	deadline := time.Now().Add(d)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil
		}
		timer := time.NewTimer(min(remaining, slice))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// NoPacer does not wait between frames; runs are bounded by processing time.
type NoPacer struct{}

// Wait returns ctx.Err() immediately.
func (NoPacer) Wait(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

// FrameInterval returns the pause between displayed frames: one frame period
// at the slower of target and native rate, divided by the skip factor so that
// skipped frames pass quickly. The result is never below MinFrameInterval.
// A native rate <= 0 means unknown and is ignored.
func FrameInterval(target, native float64, skip int) time.Duration {
	rate := target
	if native > 0 && (rate <= 0 || native < rate) {
		rate = native
	}
	if rate <= 0 {
		return MinFrameInterval
	}
	if skip < 1 {
		skip = 1
	}
	interval := time.Duration(float64(time.Second) / rate / float64(skip))
	return max(interval, MinFrameInterval)
}
