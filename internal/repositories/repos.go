// Package repositories is the mirror store gateway: typed point reads and
// writes against Postgres, one repo per table. It carries no business logic
// and offers no multi-record transactions; where a caller needs protection
// against concurrent writers it must use the conditional (compare-and-set)
// variants, which fail with ErrStale instead of overwriting.
//
// Every successful write raises a table-level change event through the
// publisher. The event carries only (table, key, op); consumers re-query.
package repositories

import (
	"context"
	"errors"

	"github.com/gorsocial/backend/internal/events"
	"go.uber.org/zap"
)

var (
	// ErrNotFound means no record exists for the given key.
	ErrNotFound = errors.New("record not found")
	// ErrStale means a conditional update observed a different record state
	// than the caller did; the caller must re-read before retrying.
	ErrStale = errors.New("record changed since last read")
)

// changeNotifier publishes table-level change events after writes. Publish
// failures are logged and swallowed: the write already happened and the
// full-refetch strategy tolerates missed signals on the next change.
type changeNotifier struct {
	publisher events.Publisher
	log       *zap.Logger
}

func (n *changeNotifier) notify(ctx context.Context, table, key, op string) {
	if n.publisher == nil {
		return
	}
	if err := n.publisher.Publish(ctx, events.Change{Table: table, Key: key, Op: op}); err != nil {
		n.log.Warn("failed to publish change event",
			zap.String("table", table), zap.String("key", key), zap.Error(err))
	}
}
