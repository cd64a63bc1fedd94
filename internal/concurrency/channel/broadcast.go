package channel

import (
	"context"
	"sync"

	scmrt "github.com/cwbudde/scmcore/internal/runtime"
)

// Broadcast fans out every sent value to all current subscribers. Each
// subscriber gets its own unbounded Channel; a slow subscriber cannot block
// others or the sender (spec.md doesn't mandate back-pressure for
// broadcast, only for the bounded point-to-point case).
type Broadcast struct {
	mu     sync.Mutex
	subs   []*Channel
	closed bool
}

func NewBroadcast() *Broadcast { return &Broadcast{} }

func (b *Broadcast) Kind() string   { return "broadcast-channel" }
func (b *Broadcast) String() string { return "#[broadcast-channel]" }
func (b *Broadcast) Trace(func(scmrt.Value)) {}

// Subscribe returns a new Channel that will receive every value Send
// delivers from this point forward.
func (b *Broadcast) Subscribe() *Channel {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := NewUnbounded()
	if b.closed {
		ch.Close()
		return ch
	}
	b.subs = append(b.subs, ch)
	return ch
}

// Send delivers v to every current subscriber.
func (b *Broadcast) Send(ctx context.Context, v scmrt.Value) error {
	b.mu.Lock()
	subs := append([]*Channel(nil), b.subs...)
	b.mu.Unlock()
	for _, s := range subs {
		if err := s.Send(ctx, v); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every subscriber channel and prevents new subscriptions from
// receiving further values.
func (b *Broadcast) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, s := range b.subs {
		s.Close()
	}
}

// Watch holds a single latest value; subscribers observe changes rather
// than a FIFO stream (classic watch-channel, useful as a cancellation
// token per spec.md §5: "cancellation tokens are ordinary values (typically
// a watch channel)").
type Watch struct {
	mu      sync.Mutex
	val     scmrt.Value
	version uint64
	changed chan struct{}
}

func NewWatch(initial scmrt.Value) *Watch {
	return &Watch{val: initial, changed: make(chan struct{})}
}

func (w *Watch) Kind() string   { return "watch-channel" }
func (w *Watch) String() string { return "#[watch-channel]" }
func (w *Watch) Trace(visit func(scmrt.Value)) {
	w.mu.Lock()
	v := w.val
	w.mu.Unlock()
	if v != nil {
		visit(v)
	}
}

// Set updates the watched value and wakes every waiter blocked in Changed.
func (w *Watch) Set(v scmrt.Value) {
	w.mu.Lock()
	w.val = v
	w.version++
	ch := w.changed
	w.changed = make(chan struct{})
	w.mu.Unlock()
	close(ch)
}

// Get returns the current value and its version.
func (w *Watch) Get() (scmrt.Value, uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.val, w.version
}

// Changed blocks until the watch's version advances past lastSeen, then
// returns the new value and version (or ctx's error on cancellation).
func (w *Watch) Changed(ctx context.Context, lastSeen uint64) (scmrt.Value, uint64, error) {
	for {
		w.mu.Lock()
		if w.version != lastSeen {
			v, ver := w.val, w.version
			w.mu.Unlock()
			return v, ver, nil
		}
		ch := w.changed
		w.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, lastSeen, ctx.Err()
		}
	}
}
