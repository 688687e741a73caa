package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/gorsocial/backend/internal/events"
	"github.com/gorsocial/backend/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type NotificationRepo struct {
	pool *pgxpool.Pool
	changeNotifier
}

func NewNotificationRepo(pool *pgxpool.Pool, publisher events.Publisher, log *zap.Logger) *NotificationRepo {
	return &NotificationRepo{pool: pool, changeNotifier: changeNotifier{publisher: publisher, log: log}}
}

func (r *NotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO notifications (id, recipient_address, sender_address, type, message, post_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, n.ID, n.RecipientAddress, n.SenderAddress, n.Type, n.Message, n.PostID).Scan(&n.CreatedAt)
	if err != nil {
		return err
	}
	r.notify(ctx, events.TableNotifications, n.RecipientAddress, events.OpInsert)
	return nil
}

func (r *NotificationRepo) ListByRecipient(ctx context.Context, recipient string, limit int) ([]models.Notification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, recipient_address, sender_address, type, message, post_id, read, created_at
		FROM notifications
		WHERE recipient_address = $1 ORDER BY created_at DESC, id LIMIT $2
	`, recipient, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.RecipientAddress, &n.SenderAddress, &n.Type, &n.Message, &n.PostID, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

// MarkRead flips the read flag. Only the recipient may flip it, which the
// recipient predicate enforces at the store.
func (r *NotificationRepo) MarkRead(ctx context.Context, id uuid.UUID, recipient string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications SET read = true
		WHERE id = $1 AND recipient_address = $2
	`, id, recipient)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	r.notify(ctx, events.TableNotifications, recipient, events.OpUpdate)
	return nil
}
