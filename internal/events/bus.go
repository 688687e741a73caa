package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Handler receives a change signal. Handlers must be idempotent: a signal may
// arrive for a write that produced no net change, and re-querying is always
// the handler's job.
type Handler func(Change)

type feedKey struct {
	table     string
	keyFilter string // empty = whole table
}

type registration struct {
	id int
	fn Handler
}

type feed struct {
	cancel   context.CancelFunc
	handlers []registration // invoked in registration order
}

// Bus multiplexes change feeds. One underlying transport subscription is
// opened per distinct (table, keyFilter) pair and shared by every handler
// registered for that pair; the last handler to detach releases the feed.
type Bus struct {
	sub Subscriber
	log *zap.Logger

	// Feeds are shared, so their lifetime belongs to the bus, never to the
	// caller that happened to open one. baseCtx parents every feed context.
	baseCtx context.Context
	stop    context.CancelFunc

	mu     sync.Mutex
	feeds  map[feedKey]*feed
	nextID int
}

func NewBus(sub Subscriber, log *zap.Logger) *Bus {
	baseCtx, stop := context.WithCancel(context.Background())
	return &Bus{
		sub:     sub,
		log:     log,
		baseCtx: baseCtx,
		stop:    stop,
		feeds:   make(map[feedKey]*feed),
	}
}

// Subscribe registers handler for changes on table, optionally narrowed to a
// single record key. The returned function detaches the handler; the feed
// itself stays open until its last handler detaches or the bus closes.
func (b *Bus) Subscribe(table, keyFilter string, handler Handler) (func(), error) {
	fk := feedKey{table: table, keyFilter: keyFilter}

	b.mu.Lock()
	defer b.mu.Unlock()

	f, ok := b.feeds[fk]
	if !ok {
		feedCtx, cancel := context.WithCancel(b.baseCtx)
		f = &feed{cancel: cancel}
		if err := b.sub.Subscribe(feedCtx, Channel(table), func(c Change) {
			b.dispatch(fk, c)
		}); err != nil {
			cancel()
			return nil, err
		}
		b.feeds[fk] = f
		b.log.Debug("change feed opened",
			zap.String("table", table), zap.String("key_filter", keyFilter))
	}

	b.nextID++
	id := b.nextID
	f.handlers = append(f.handlers, registration{id: id, fn: handler})

	return func() { b.unsubscribe(fk, id) }, nil
}

func (b *Bus) dispatch(fk feedKey, c Change) {
	if fk.keyFilter != "" && c.Key != fk.keyFilter {
		return
	}

	b.mu.Lock()
	f, ok := b.feeds[fk]
	if !ok {
		b.mu.Unlock()
		return
	}
	handlers := make([]registration, len(f.handlers))
	copy(handlers, f.handlers)
	b.mu.Unlock()

	for _, h := range handlers {
		h.fn(c)
	}
}

func (b *Bus) unsubscribe(fk feedKey, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	f, ok := b.feeds[fk]
	if !ok {
		return
	}
	for i, h := range f.handlers {
		if h.id == id {
			f.handlers = append(f.handlers[:i], f.handlers[i+1:]...)
			break
		}
	}
	if len(f.handlers) == 0 {
		f.cancel()
		delete(b.feeds, fk)
		b.log.Debug("change feed released",
			zap.String("table", fk.table), zap.String("key_filter", fk.keyFilter))
	}
}

// Close releases every open feed. Handlers registered afterwards open feeds
// that are already cancelled, so Close is for process shutdown only.
func (b *Bus) Close() {
	b.stop()
	b.mu.Lock()
	defer b.mu.Unlock()
	for fk := range b.feeds {
		delete(b.feeds, fk)
	}
}

// FeedCount reports the number of open underlying feeds.
func (b *Bus) FeedCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.feeds)
}
