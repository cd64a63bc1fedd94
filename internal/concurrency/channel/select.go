package channel

import (
	"context"
	"time"

	scmrt "github.com/cwbudde/scmcore/internal/runtime"
)

// Selector implements a fair select over a fixed set of channels: spec.md
// §8 invariant 6 requires that "in a long-running select loop with two
// always-ready branches, each branch is chosen infinitely often." A naive
// select that always tries branch 0 first would starve branch 1 whenever
// both are ready; Selector rotates its starting branch on every call so a
// branch that stays ready is chosen within n consecutive calls (n being
// the number of channels).
type Selector struct {
	channels []*Channel
	next     int
}

func NewSelector(channels ...*Channel) *Selector {
	return &Selector{channels: channels}
}

// Select returns the index and value of whichever branch it picks. Among
// currently-ready branches it picks round-robin starting from the branch
// after the last one chosen; if none are ready it waits for the first one
// to become ready (or ctx to end).
func (s *Selector) Select(ctx context.Context) (idx int, val scmrt.Value, ok bool, err error) {
	n := len(s.channels)
	if n == 0 {
		<-ctx.Done()
		return -1, nil, false, ctx.Err()
	}
	for {
		for i := 0; i < n; i++ {
			cand := (s.next + i) % n
			if v, ok := s.channels[cand].TryRecv(); ok {
				s.next = (cand + 1) % n
				return cand, v, true, nil
			}
		}
		// Nothing ready: wait briefly for any one channel's notifyRecv, then
		// retry the round-robin scan. A short poll interval keeps this
		// simple (no reflect.Select needed) while still being fair across
		// retries, since the scan always starts from s.next.
		select {
		case <-time.After(time.Millisecond):
		case <-ctx.Done():
			return -1, nil, false, ctx.Err()
		}
	}
}
