package future

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cwbudde/scmcore/internal/concurrency/scheduler"
	scmrt "github.com/cwbudde/scmcore/internal/runtime"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newPool(t *testing.T) *scheduler.Pool {
	p := scheduler.New(scheduler.Config{Workers: 4})
	t.Cleanup(p.Shutdown)
	return p
}

func TestResolvedAwait(t *testing.T) {
	f := Resolved(scmrt.NewInteger(7))
	v, err := f.Await(context.Background())
	if err != nil || v.(*scmrt.Integer).V != 7 {
		t.Fatalf("got %v, %v", v, err)
	}
}

func TestNewSettlesFromTask(t *testing.T) {
	p := newPool(t)
	f := New(p, func(ctx context.Context) (scmrt.Value, error) {
		return scmrt.NewInteger(9), nil
	})
	v, err := f.Await(context.Background())
	if err != nil || v.(*scmrt.Integer).V != 9 {
		t.Fatalf("got %v, %v", v, err)
	}
}

func TestRejectedPropagatesThroughMapAndThen(t *testing.T) {
	p := newPool(t)
	boom := errors.New("boom")
	f := Rejected(boom)
	mapped := f.Map(p, func(v scmrt.Value) (scmrt.Value, error) { return v, nil })
	if _, err := mapped.Await(context.Background()); err == nil {
		t.Fatal("expected Map to propagate rejection")
	}
	chained := f.Then(p, func(v scmrt.Value) *Future { return Resolved(v) })
	if _, err := chained.Await(context.Background()); err == nil {
		t.Fatal("expected Then to propagate rejection")
	}
}

func TestAllOrdersResults(t *testing.T) {
	futs := []*Future{Resolved(scmrt.NewInteger(1)), Resolved(scmrt.NewInteger(2)), Resolved(scmrt.NewInteger(3))}
	vals, err := All(context.Background(), futs)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range vals {
		if v.(*scmrt.Integer).V != int64(i+1) {
			t.Fatalf("index %d: got %v", i, v)
		}
	}
}

func TestTimeoutExpires(t *testing.T) {
	p := newPool(t)
	f := New(p, func(ctx context.Context) (scmrt.Value, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	_, err := f.Timeout(5 * time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestDelayResolvesAfterDuration(t *testing.T) {
	p := newPool(t)
	start := time.Now()
	f := Delay(p, scmrt.NewInteger(5), 10*time.Millisecond)
	v, err := f.Await(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Fatal("expected Delay to wait")
	}
	if v.(*scmrt.Integer).V != 5 {
		t.Fatalf("got %v", v)
	}
}
