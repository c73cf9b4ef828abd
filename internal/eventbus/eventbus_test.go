package eventbus

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type ping struct{ n int }
type pong struct{ s string }

func TestDispatchByType(t *testing.T) {
	b := New()
	var got []string
	SubscribeTo(b, func(_ context.Context, p ping) { got = append(got, "ping") })
	SubscribeTo(b, func(_ context.Context, p pong) { got = append(got, "pong:"+p.s) })

	b.emit(context.Background(), ping{n: 1})
	b.emit(context.Background(), pong{s: "a"})
	b.emit(context.Background(), 42)

	if diff := cmp.Diff([]string{"ping", "pong:a"}, got); diff != "" {
		t.Fatalf("dispatch mismatch (-want +got):\n%s", diff)
	}
}

func TestUnsubscribeRemovesOnlyItsHandler(t *testing.T) {
	b := New()
	var got []int
	handler := func(tag int) Handler[ping] {
		return func(_ context.Context, p ping) { got = append(got, tag*10+p.n) }
	}
	first := SubscribeTo(b, handler(1))
	SubscribeTo(b, handler(2))

	first()
	first()
	b.emit(context.Background(), ping{n: 3})

	if diff := cmp.Diff([]int{23}, got); diff != "" {
		t.Fatalf("handlers mismatch (-want +got):\n%s", diff)
	}
}

func TestUnsubscribeDuringDispatch(t *testing.T) {
	b := New()
	calls := 0
	var unsub func()
	unsub = SubscribeTo(b, func(_ context.Context, _ ping) {
		calls++
		unsub()
	})
	SubscribeTo(b, func(_ context.Context, _ ping) { calls++ })

	b.emit(context.Background(), ping{})
	b.emit(context.Background(), ping{})

	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestGlobalBus(t *testing.T) {
	var got []int
	Publish(context.Background(), ping{n: 1})
	if unsub := Subscribe(func(_ context.Context, p ping) { got = append(got, p.n) }); unsub == nil {
		t.Fatal("expected a no-op unsubscribe without a global bus")
	}

	Use(New())
	t.Cleanup(func() { Use(nil) })
	unsub := Subscribe(func(_ context.Context, p ping) { got = append(got, p.n) })
	Publish(context.Background(), ping{n: 2})
	unsub()
	Publish(context.Background(), ping{n: 3})

	if diff := cmp.Diff([]int{2}, got); diff != "" {
		t.Fatalf("global dispatch mismatch (-want +got):\n%s", diff)
	}
}
