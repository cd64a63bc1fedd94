package scheduler

import "sync"

// Deque is a worker's double-ended task queue: the owner pushes and pops at
// the bottom (LIFO, cheap, uncontended in the common case); thieves pop from
// the top (FIFO relative to the owner, contended only against other
// thieves). Per spec.md §5: "each worker owns a double-ended queue
// (push/pop at bottom, steal from top); steals occur only when local work
// is exhausted."
//
// A production work-stealing deque (Chase-Lev) avoids locking the owner's
// fast path with atomic CAS and a growable ring buffer. This implementation
// uses a single mutex guarding a plain slice instead: the teacher codebase
// and the rest of the example pack have no lock-free deque to ground one on,
// and spec.md's non-goals exclude a production-grade optimizing runtime. The
// mutex is cheap under Go's scheduler and correct; it is the "no suitable
// third-party or pack-grounded lock-free implementation" case DESIGN.md
// records as a stdlib fallback.
type Deque struct {
	mu    sync.Mutex
	tasks []*Task
}

func NewDeque() *Deque {
	return &Deque{tasks: make([]*Task, 0, 64)}
}

// PushBottom adds t to the bottom (owner side).
func (d *Deque) PushBottom(t *Task) {
	d.mu.Lock()
	d.tasks = append(d.tasks, t)
	d.mu.Unlock()
}

// PopBottom removes and returns the bottom task (owner side), if any.
func (d *Deque) PopBottom() (*Task, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := len(d.tasks)
	if n == 0 {
		return nil, false
	}
	t := d.tasks[n-1]
	d.tasks = d.tasks[:n-1]
	return t, true
}

// StealTop removes and returns the top (oldest) task, if any. Called by
// other workers when their own deque and the injector are both empty.
func (d *Deque) StealTop() (*Task, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.tasks) == 0 {
		return nil, false
	}
	t := d.tasks[0]
	d.tasks = d.tasks[1:]
	return t, true
}

func (d *Deque) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tasks)
}
