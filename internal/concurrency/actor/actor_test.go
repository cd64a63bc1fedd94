package actor

import (
	"context"
	"testing"
	"time"

	"github.com/cwbudde/scmcore/internal/concurrency/scheduler"
	scmrt "github.com/cwbudde/scmcore/internal/runtime"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func echoBehavior(ctx context.Context, self *Ref, msg scmrt.Value) (scmrt.Value, error) {
	return msg, nil
}

func TestAskEchoActor(t *testing.T) {
	pool := scheduler.New(scheduler.Config{Workers: 2})
	defer pool.Shutdown()
	sys := NewSystem(pool)
	ref := sys.Spawn(nil, Resume, DefaultRestartBudget(), echoBehavior)

	f := ref.Ask(pool, scmrt.NewInteger(42), 5*time.Second)
	v, err := f.Await(context.Background())
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if v.(*scmrt.Integer).V != 42 {
		t.Fatalf("got %v, want 42", v)
	}
}

func TestAskStoppedActorTimesOut(t *testing.T) {
	pool := scheduler.New(scheduler.Config{Workers: 2})
	defer pool.Shutdown()
	sys := NewSystem(pool)
	ref := sys.Spawn(nil, Resume, DefaultRestartBudget(), echoBehavior)

	if err := ref.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
	// Give the actor's receive loop a moment to exit on the $stop message.
	time.Sleep(20 * time.Millisecond)

	f := ref.Ask(pool, scmrt.NewInteger(42), 10*time.Millisecond)
	_, err := f.Await(context.Background())
	if err == nil {
		t.Fatal("expected ask to a stopped actor to time out")
	}
}

func TestTellFireAndForget(t *testing.T) {
	pool := scheduler.New(scheduler.Config{Workers: 2})
	defer pool.Shutdown()
	sys := NewSystem(pool)

	received := make(chan scmrt.Value, 1)
	ref := sys.Spawn(nil, Resume, DefaultRestartBudget(), func(ctx context.Context, self *Ref, msg scmrt.Value) (scmrt.Value, error) {
		received <- msg
		return nil, nil
	})
	if err := ref.Tell(context.Background(), scmrt.NewInteger(7)); err != nil {
		t.Fatal(err)
	}
	select {
	case v := <-received:
		if v.(*scmrt.Integer).V != 7 {
			t.Fatalf("got %v", v)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for tell to be delivered")
	}
}

func TestPostStopRunsExactlyOnce(t *testing.T) {
	pool := scheduler.New(scheduler.Config{Workers: 2})
	defer pool.Shutdown()
	sys := NewSystem(pool)

	calls := 0
	done := make(chan struct{})
	ref := sys.Spawn(nil, Resume, DefaultRestartBudget(), echoBehavior)
	ref.OnPostStop(func() {
		calls++
		close(done)
	})
	_ = ref.Stop(context.Background())
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("post_stop never ran")
	}
	time.Sleep(10 * time.Millisecond)
	if calls != 1 {
		t.Fatalf("post_stop ran %d times, want 1", calls)
	}
	if !ref.Stopped() {
		t.Fatal("expected ref to report stopped")
	}
}

func TestRestartBudgetEscalatesAfterLimit(t *testing.T) {
	pool := scheduler.New(scheduler.Config{Workers: 2})
	defer pool.Shutdown()
	sys := NewSystem(pool)

	parent := sys.Spawn(nil, Restart, RestartBudget{Max: 2, Window: time.Minute}, echoBehavior)
	// withinBudget is exercised directly: two restarts allowed, third denied.
	if !parent.withinBudget() || !parent.withinBudget() {
		t.Fatal("expected first two restarts within budget")
	}
	if parent.withinBudget() {
		t.Fatal("expected third restart to exceed budget")
	}
}
