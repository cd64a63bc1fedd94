package scheduler

import (
	"context"
	"testing"
	"time"

	scmrt "github.com/cwbudde/scmcore/internal/runtime"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSpawnAndAwait(t *testing.T) {
	p := New(Config{Workers: 4})
	defer p.Shutdown()

	task := p.Spawn(func(ctx context.Context) (scmrt.Value, error) {
		return scmrt.NewInteger(42), nil
	})
	v, err := task.Await(context.Background())
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if v.(*scmrt.Integer).V != 42 {
		t.Fatalf("got %v, want 42", v)
	}
}

func TestManyTasksStealing(t *testing.T) {
	p := New(Config{Workers: 2})
	defer p.Shutdown()

	const n = 200
	tasks := make([]*Task, n)
	for i := 0; i < n; i++ {
		i := i
		tasks[i] = p.Spawn(func(ctx context.Context) (scmrt.Value, error) {
			return scmrt.NewInteger(int64(i)), nil
		})
	}
	for i, task := range tasks {
		v, err := task.Await(context.Background())
		if err != nil {
			t.Fatalf("task %d: %v", i, err)
		}
		if v.(*scmrt.Integer).V != int64(i) {
			t.Fatalf("task %d: got %v", i, v)
		}
	}
}

func TestShutdownAfterAwaitCompletes(t *testing.T) {
	p := New(Config{Workers: 1})
	block := make(chan struct{})
	task := p.Spawn(func(ctx context.Context) (scmrt.Value, error) {
		<-block
		return scmrt.Unit, nil
	})
	// Fill the worker so the task above is running; give it a moment to start.
	time.Sleep(10 * time.Millisecond)
	close(block)
	if _, err := task.Await(context.Background()); err != nil {
		t.Fatalf("Await: %v", err)
	}
	p.Shutdown()
}

func TestDequeStealOrder(t *testing.T) {
	d := NewDeque()
	t1 := &Task{ID: 1}
	t2 := &Task{ID: 2}
	d.PushBottom(t1)
	d.PushBottom(t2)
	stolen, ok := d.StealTop()
	if !ok || stolen.ID != 1 {
		t.Fatalf("expected steal to take oldest task first, got %+v", stolen)
	}
	popped, ok := d.PopBottom()
	if !ok || popped.ID != 2 {
		t.Fatalf("expected pop to take newest remaining task, got %+v", popped)
	}
}
