package channel

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

func TestFIFOSingleSenderReceiver(t *testing.T) {
	ch := NewBounded(10)
	ctx := context.Background()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			if err := ch.Send(ctx, scmrt.NewInteger(int64(i))); err != nil {
				t.Error(err)
				return
			}
		}
		close(done)
	}()

	for i := 0; i < 100; i++ {
		v, ok, err := ch.Recv(ctx)
		if err != nil || !ok {
			t.Fatalf("recv %d: ok=%v err=%v", i, ok, err)
		}
		if v.(*scmrt.Integer).V != int64(i) {
			t.Fatalf("recv %d: got %v, want %d (FIFO violated)", i, v, i)
		}
	}
	<-done
}

func TestBoundedSendBlocksUntilReceive(t *testing.T) {
	ch := NewBounded(1)
	ctx := context.Background()
	if err := ch.Send(ctx, scmrt.NewInteger(1)); err != nil {
		t.Fatal(err)
	}
	sent := make(chan struct{})
	go func() {
		_ = ch.Send(ctx, scmrt.NewInteger(2))
		close(sent)
	}()
	select {
	case <-sent:
		t.Fatal("expected second send to block while channel at capacity")
	case <-time.After(20 * time.Millisecond):
	}
	if _, _, err := ch.Recv(ctx); err != nil {
		t.Fatal(err)
	}
	select {
	case <-sent:
	case <-time.After(time.Second):
		t.Fatal("expected second send to unblock after a receive")
	}
}

func TestCloseDrainsThenReportsClosed(t *testing.T) {
	ch := NewUnbounded()
	ctx := context.Background()
	_ = ch.Send(ctx, scmrt.NewInteger(1))
	ch.Close()
	v, ok, err := ch.Recv(ctx)
	if err != nil || !ok || v.(*scmrt.Integer).V != 1 {
		t.Fatalf("expected to drain buffered value after close, got %v %v %v", v, ok, err)
	}
	_, ok, err = ch.Recv(ctx)
	if err != nil || ok {
		t.Fatalf("expected closed+drained channel to report ok=false, got ok=%v err=%v", ok, err)
	}
	if err := ch.Send(ctx, scmrt.NewInteger(2)); err == nil {
		t.Fatal("expected send on closed channel to error")
	}
}

func TestBroadcastFansOutToAllSubscribers(t *testing.T) {
	b := NewBroadcast()
	ctx := context.Background()
	s1, s2 := b.Subscribe(), b.Subscribe()
	if err := b.Send(ctx, scmrt.NewInteger(7)); err != nil {
		t.Fatal(err)
	}
	for _, s := range []*Channel{s1, s2} {
		v, ok, err := s.Recv(ctx)
		if err != nil || !ok || v.(*scmrt.Integer).V != 7 {
			t.Fatalf("subscriber missed broadcast: %v %v %v", v, ok, err)
		}
	}
}

func TestWatchChangedWakesOnSet(t *testing.T) {
	w := NewWatch(scmrt.NewInteger(0))
	_, v0 := w.Get()
	go func() {
		time.Sleep(5 * time.Millisecond)
		w.Set(scmrt.NewInteger(1))
	}()
	val, ver, err := w.Changed(context.Background(), v0)
	if err != nil {
		t.Fatal(err)
	}
	if ver == v0 || val.(*scmrt.Integer).V != 1 {
		t.Fatalf("expected updated value, got %v ver=%d", val, ver)
	}
}

func TestSelectFairnessBothBranchesChosen(t *testing.T) {
	a, b := NewUnbounded(), NewUnbounded()
	ctx := context.Background()
	for i := 0; i < 20; i++ {
		_ = a.Send(ctx, scmrt.NewInteger(1))
		_ = b.Send(ctx, scmrt.NewInteger(2))
	}
	sel := NewSelector(a, b)
	counts := map[int]int{}
	for i := 0; i < 20; i++ {
		idx, _, ok, err := sel.Select(ctx)
		if err != nil || !ok {
			t.Fatalf("select %d: ok=%v err=%v", i, ok, err)
		}
		counts[idx]++
	}
	if counts[0] == 0 || counts[1] == 0 {
		t.Fatalf("expected both branches chosen at least once, got %v", counts)
	}
}
