package events

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

// fakeSubscriber delivers injected changes synchronously, one underlying
// subscription per Subscribe call.
type fakeSubscriber struct {
	handlers map[string][]func(Change)
	active   map[string][]context.Context
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{
		handlers: make(map[string][]func(Change)),
		active:   make(map[string][]context.Context),
	}
}

func (s *fakeSubscriber) Subscribe(ctx context.Context, channel string, handler func(Change)) error {
	s.handlers[channel] = append(s.handlers[channel], handler)
	s.active[channel] = append(s.active[channel], ctx)
	return nil
}

func (s *fakeSubscriber) emit(c Change) {
	for i, h := range s.handlers[Channel(c.Table)] {
		if s.active[Channel(c.Table)][i].Err() == nil {
			h(c)
		}
	}
}

func (s *fakeSubscriber) openCount(channel string) int {
	n := 0
	for _, ctx := range s.active[channel] {
		if ctx.Err() == nil {
			n++
		}
	}
	return n
}

func TestBusHandlersInvokedInRegistrationOrder(t *testing.T) {
	sub := newFakeSubscriber()
	bus := NewBus(sub, zap.NewNop())

	var order []string
	for _, name := range []string{"first", "second", "third"} {
		name := name
		_, err := bus.Subscribe(TablePosts, "", func(Change) {
			order = append(order, name)
		})
		if err != nil {
			t.Fatalf("subscribe: %v", err)
		}
	}

	// Three handlers on the same (table, filter) pair share one feed.
	if got := sub.openCount(Channel(TablePosts)); got != 1 {
		t.Fatalf("underlying feeds = %d, want 1", got)
	}

	sub.emit(Change{Table: TablePosts, Key: "p1", Op: OpInsert})

	want := []string{"first", "second", "third"}
	if len(order) != len(want) {
		t.Fatalf("invocations = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("invocations = %v, want %v", order, want)
		}
	}
}

func TestBusKeyFilter(t *testing.T) {
	sub := newFakeSubscriber()
	bus := NewBus(sub, zap.NewNop())

	var mine, all int
	_, _ = bus.Subscribe(TableWallets, "addr-A", func(Change) { mine++ })
	_, _ = bus.Subscribe(TableWallets, "", func(Change) { all++ })

	// Distinct (table, filter) pairs open distinct underlying feeds.
	if got := sub.openCount(Channel(TableWallets)); got != 2 {
		t.Fatalf("underlying feeds = %d, want 2", got)
	}

	sub.emit(Change{Table: TableWallets, Key: "addr-A", Op: OpUpdate})
	sub.emit(Change{Table: TableWallets, Key: "addr-B", Op: OpUpdate})

	if mine != 1 {
		t.Errorf("filtered handler invoked %d times, want 1", mine)
	}
	if all != 2 {
		t.Errorf("unfiltered handler invoked %d times, want 2", all)
	}
}

func TestBusUnsubscribeReleasesFeedOnLastDetach(t *testing.T) {
	sub := newFakeSubscriber()
	bus := NewBus(sub, zap.NewNop())

	var calls int
	un1, _ := bus.Subscribe(TableProfiles, "", func(Change) { calls++ })
	un2, _ := bus.Subscribe(TableProfiles, "", func(Change) { calls++ })

	un1()
	// Feed stays open while a handler remains.
	if got := sub.openCount(Channel(TableProfiles)); got != 1 {
		t.Fatalf("underlying feeds after first detach = %d, want 1", got)
	}

	sub.emit(Change{Table: TableProfiles, Key: "x", Op: OpUpdate})
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 (detached handler must not fire)", calls)
	}

	un2()
	if got := sub.openCount(Channel(TableProfiles)); got != 0 {
		t.Fatalf("underlying feeds after last detach = %d, want 0", got)
	}
	if bus.FeedCount() != 0 {
		t.Fatalf("bus still tracks %d feeds", bus.FeedCount())
	}

	sub.emit(Change{Table: TableProfiles, Key: "x", Op: OpUpdate})
	if calls != 1 {
		t.Fatalf("calls = %d after release, want 1", calls)
	}
}

func TestBusFeedSurvivesFirstSubscriberLeaving(t *testing.T) {
	sub := newFakeSubscriber()
	bus := NewBus(sub, zap.NewNop())

	// Two sessions share the table-wide posts feed. The first session
	// opened it, so this is the case where a feed's lifetime must not be
	// tied to the subscriber that happened to arrive first.
	var first, second int
	unFirst, _ := bus.Subscribe(TablePosts, "", func(Change) { first++ })
	_, _ = bus.Subscribe(TablePosts, "", func(Change) { second++ })

	sub.emit(Change{Table: TablePosts, Key: "p1", Op: OpInsert})
	if first != 1 || second != 1 {
		t.Fatalf("before detach: first = %d, second = %d, want 1, 1", first, second)
	}

	// First session disconnects: handler detaches, its request-scoped work
	// is cancelled. The remaining session must keep receiving.
	unFirst()

	sub.emit(Change{Table: TablePosts, Key: "p2", Op: OpInsert})
	if second != 2 {
		t.Fatalf("second received %d events after first left, want 2", second)
	}
	if got := sub.openCount(Channel(TablePosts)); got != 1 {
		t.Fatalf("underlying feeds = %d, want 1 (same feed, still open)", got)
	}
}

func TestBusCloseReleasesAllFeeds(t *testing.T) {
	sub := newFakeSubscriber()
	bus := NewBus(sub, zap.NewNop())

	calls := 0
	_, _ = bus.Subscribe(TablePosts, "", func(Change) { calls++ })
	_, _ = bus.Subscribe(TableWallets, "addr-A", func(Change) { calls++ })

	bus.Close()

	if bus.FeedCount() != 0 {
		t.Fatalf("bus still tracks %d feeds after close", bus.FeedCount())
	}
	if got := sub.openCount(Channel(TablePosts)) + sub.openCount(Channel(TableWallets)); got != 0 {
		t.Fatalf("underlying feeds open after close = %d, want 0", got)
	}

	sub.emit(Change{Table: TablePosts, Key: "p1", Op: OpInsert})
	if calls != 0 {
		t.Fatalf("calls = %d after close, want 0", calls)
	}
}

func TestBusHandlersTolerateNoNetChange(t *testing.T) {
	sub := newFakeSubscriber()
	bus := NewBus(sub, zap.NewNop())

	calls := 0
	_, _ = bus.Subscribe(TablePosts, "", func(Change) { calls++ })

	// Same signal twice: a round-trip write with no net change still signals.
	c := Change{Table: TablePosts, Key: "p1", Op: OpUpdate}
	sub.emit(c)
	sub.emit(c)

	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}
