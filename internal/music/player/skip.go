package player

import (
	"context"
	"time"
)

// Outcome tells why a playback window ended.
type Outcome int

const (
	OutcomeTimedOut Outcome = iota
	OutcomeSkipped
	OutcomeFinished
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeTimedOut:
		return "timed out"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFinished:
		return "finished"
	case OutcomeCancelled:
		return "cancelled"
	}
	return "unknown"
}

// SkipSignal is a single-slot hand-off from the skip command to the playback
// loop. It holds the ID of the user who asked for the most recent skip.
type SkipSignal struct {
	slot chan string
}

func NewSkipSignal() *SkipSignal {
	return &SkipSignal{slot: make(chan string, 1)}
}

// Request stores a skip, replacing any request nobody consumed yet.
func (s *SkipSignal) Request(userID string) {
	for {
		select {
		case s.slot <- userID:
			return
		default:
			s.drain()
		}
	}
}

// Pending reports whether a request sits in the slot.
func (s *SkipSignal) Pending() bool {
	return len(s.slot) > 0
}

// AwaitSkipOrTimeout races a skip request against d elapsing. The slot is
// emptied on entry, so a skip made before this window opened is ignored, and
// again on exit, so nothing carries over to the next window. finished may be
// nil; when it closes the window ends with OutcomeFinished. A non-positive d
// disables the timeout.
func (s *SkipSignal) AwaitSkipOrTimeout(ctx context.Context, d time.Duration, finished <-chan struct{}) (Outcome, string) {
	s.drain()
	defer s.drain()

	var timeout <-chan time.Time
	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case userID := <-s.slot:
		return OutcomeSkipped, userID
	case <-timeout:
		return OutcomeTimedOut, ""
	case <-finished:
		return OutcomeFinished, ""
	case <-ctx.Done():
		return OutcomeCancelled, ""
	}
}

func (s *SkipSignal) drain() {
	select {
	case <-s.slot:
	default:
	}
}
