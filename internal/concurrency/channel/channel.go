// Package channel implements spec.md §4/§5's channel value kinds: bounded
// and unbounded MPSC channels, broadcast, and watch, plus a fair select over
// any mix of them. Bounded admission uses golang.org/x/sync/semaphore as the
// back-pressure gate (send blocks until a slot is released by a receive),
// matching SPEC_FULL.md's dependency-wiring table. Grounded on the teacher's
// internal/core/api_scheduler.go slot/waitQueue pattern, generalized from
// "API call slots" to general bounded channel capacity.
package channel

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	scmerrors "github.com/cwbudde/scmcore/internal/errors"
	scmrt "github.com/cwbudde/scmcore/internal/runtime"
)

// Channel is a single-producer/single-consumer-oriented MPSC queue of
// runtime.Value. Sends from one task to one receiver are FIFO per spec.md
// §5's ordering guarantee; multiple senders interleave but never reorder a
// single sender's own sequence, since each send fully completes (acquiring
// admission, if bounded, then enqueuing) before the next begins on that
// sender's task.
type Channel struct {
	mu     sync.Mutex
	buf    []scmrt.Value
	closed bool

	notifyRecv chan struct{} // signaled on each send/close, for waiting receivers
	notifySend chan struct{} // signaled on each recv/close, for waiting senders

	sem      *semaphore.Weighted // nil for unbounded channels
	capacity int
}

// NewBounded creates a channel with admission capped at capacity in-flight
// values; Send blocks (a suspension point, spec.md §5) once the channel
// holds capacity unreceived values.
func NewBounded(capacity int) *Channel {
	return &Channel{
		sem:        semaphore.NewWeighted(int64(capacity)),
		capacity:   capacity,
		notifyRecv: make(chan struct{}, 1),
		notifySend: make(chan struct{}, 1),
	}
}

// NewUnbounded creates a channel with no admission limit; Send never blocks
// on capacity (only Close prevents further sends).
func NewUnbounded() *Channel {
	return &Channel{notifyRecv: make(chan struct{}, 1), notifySend: make(chan struct{}, 1)}
}

func (c *Channel) Kind() string   { return "channel" }
func (c *Channel) String() string { return "#[channel]" }
func (c *Channel) Trace(visit func(scmrt.Value)) {
	c.mu.Lock()
	buf := append([]scmrt.Value(nil), c.buf...)
	c.mu.Unlock()
	for _, v := range buf {
		visit(v)
	}
}

func wake(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Send enqueues v, blocking until admission is available (bounded channels)
// or the channel is closed. It returns a Concurrency/closed error if the
// channel is already closed.
func (c *Channel) Send(ctx context.Context, v scmrt.Value) error {
	if c.sem != nil {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			return scmerrors.NewConcurrencyKind("timeout", "channel send: %v", err)
		}
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		if c.sem != nil {
			c.sem.Release(1)
		}
		return scmerrors.NewConcurrencyKind("closed", "send on closed channel")
	}
	c.buf = append(c.buf, v)
	c.mu.Unlock()
	wake(c.notifyRecv)
	return nil
}

// TrySend attempts a non-blocking send, returning ok=false if it would
// block (bounded channel at capacity) without waiting.
func (c *Channel) TrySend(v scmrt.Value) (ok bool, err error) {
	if c.sem != nil {
		if !c.sem.TryAcquire(1) {
			return false, nil
		}
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		if c.sem != nil {
			c.sem.Release(1)
		}
		return false, scmerrors.NewConcurrencyKind("closed", "send on closed channel")
	}
	c.buf = append(c.buf, v)
	c.mu.Unlock()
	wake(c.notifyRecv)
	return true, nil
}

// Recv dequeues the next value, blocking until one is available or the
// channel closes (returning ok=false once drained-and-closed).
func (c *Channel) Recv(ctx context.Context) (v scmrt.Value, ok bool, err error) {
	for {
		c.mu.Lock()
		if len(c.buf) > 0 {
			v = c.buf[0]
			c.buf = c.buf[1:]
			c.mu.Unlock()
			if c.sem != nil {
				c.sem.Release(1)
			}
			wake(c.notifySend)
			return v, true, nil
		}
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return nil, false, nil
		}
		select {
		case <-c.notifyRecv:
		case <-ctx.Done():
			return nil, false, scmerrors.NewConcurrencyKind("timeout", "channel recv: %v", ctx.Err())
		}
	}
}

// TryRecv attempts a non-blocking receive.
func (c *Channel) TryRecv() (v scmrt.Value, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.buf) == 0 {
		return nil, false
	}
	v = c.buf[0]
	c.buf = c.buf[1:]
	if c.sem != nil {
		c.sem.Release(1)
	}
	return v, true
}

// Close marks the channel closed; pending and future receives drain the
// remaining buffer, then report ok=false. Further sends fail.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	wake(c.notifyRecv)
	wake(c.notifySend)
}

func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buf)
}
