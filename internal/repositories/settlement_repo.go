package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/gorsocial/backend/internal/events"
	"github.com/gorsocial/backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type SettlementRepo struct {
	pool *pgxpool.Pool
	changeNotifier
}

func NewSettlementRepo(pool *pgxpool.Pool, publisher events.Publisher, log *zap.Logger) *SettlementRepo {
	return &SettlementRepo{pool: pool, changeNotifier: changeNotifier{publisher: publisher, log: log}}
}

const settlementColumns = `id, operation, sender_address, target_address, amount, status, ledger_signature, failure_reason, created_at, updated_at`

func scanSettlement(row pgx.Row) (*models.Settlement, error) {
	var s models.Settlement
	err := row.Scan(&s.ID, &s.Operation, &s.SenderAddress, &s.TargetAddress, &s.Amount,
		&s.Status, &s.LedgerSignature, &s.FailureReason, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *SettlementRepo) Create(ctx context.Context, s *models.Settlement) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO settlements (id, operation, sender_address, target_address, amount, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, s.ID, s.Operation, s.SenderAddress, s.TargetAddress, s.Amount, s.Status).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return err
	}
	r.notify(ctx, events.TableSettlements, s.ID.String(), events.OpInsert)
	return nil
}

func (r *SettlementRepo) Get(ctx context.Context, id uuid.UUID) (*models.Settlement, error) {
	return scanSettlement(r.pool.QueryRow(ctx, `
		SELECT `+settlementColumns+` FROM settlements WHERE id = $1
	`, id))
}

// UpdateStatus moves an attempt from one status to another, conditionally on
// the current status so an interleaved writer surfaces as ErrStale.
func (r *SettlementRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string, ledgerSignature, failureReason *string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE settlements SET
			status = $3,
			ledger_signature = COALESCE($4, ledger_signature),
			failure_reason = COALESCE($5, failure_reason),
			updated_at = now()
		WHERE id = $1 AND status = $2
	`, id, from, to, ledgerSignature, failureReason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStale
	}
	r.notify(ctx, events.TableSettlements, id.String(), events.OpUpdate)
	return nil
}

func (r *SettlementRepo) ListByStatus(ctx context.Context, status string, limit int) ([]models.Settlement, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+settlementColumns+` FROM settlements
		WHERE status = $1 ORDER BY created_at DESC LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []models.Settlement{}
	for rows.Next() {
		s, err := scanSettlement(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}
