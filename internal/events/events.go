package events

import "context"

// Mirror tables that raise change events.
const (
	TableProfiles      = "profiles"
	TableWallets       = "wallets"
	TablePosts         = "posts"
	TableComments      = "comments"
	TableNotifications = "notifications"
	TableSettlements   = "settlements"
)

// Change operations.
const (
	OpInsert = "INSERT"
	OpUpdate = "UPDATE"
	OpDelete = "DELETE"
)

// Change signals that a record in Table changed. It deliberately carries no
// record data: consumers re-query whatever subset of state they own.
type Change struct {
	Table string `json:"table"`
	Key   string `json:"key"`
	Op    string `json:"op"`
}

// Channel returns the transport channel for a table's change feed.
func Channel(table string) string {
	return "changes:" + table
}

type Publisher interface {
	Publish(ctx context.Context, change Change) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, channel string, handler func(Change)) error
}
