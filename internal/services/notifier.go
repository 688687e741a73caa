package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/gorsocial/backend/internal/models"
	"go.uber.org/zap"
)

// Notifier appends recipient-addressed notification records. Delivery is
// best-effort: a failed insert is logged and swallowed so it can never roll
// back or block the action it accompanies.
type Notifier struct {
	store NotificationStore
	log   *zap.Logger
}

func NewNotifier(store NotificationStore, log *zap.Logger) *Notifier {
	return &Notifier{store: store, log: log}
}

// Notify records a notification for recipient. Self-actions are skipped: the
// guard is a correctness rule, not an optimization.
func (n *Notifier) Notify(ctx context.Context, recipient, sender, typ, message string, postID *uuid.UUID) {
	if recipient == sender {
		return
	}
	notification := &models.Notification{
		ID:               uuid.New(),
		RecipientAddress: recipient,
		SenderAddress:    sender,
		Type:             typ,
		Message:          message,
		PostID:           postID,
	}
	if err := n.store.Create(ctx, notification); err != nil {
		n.log.Warn("failed to record notification",
			zap.String("type", typ),
			zap.String("recipient", recipient),
			zap.Error(err),
		)
	}
}

func (n *Notifier) List(ctx context.Context, recipient string, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return n.store.ListByRecipient(ctx, recipient, limit)
}

func (n *Notifier) MarkRead(ctx context.Context, id uuid.UUID, recipient string) error {
	return n.store.MarkRead(ctx, id, recipient)
}
