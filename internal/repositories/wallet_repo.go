package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorsocial/backend/internal/events"
	"github.com/gorsocial/backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type WalletRepo struct {
	pool *pgxpool.Pool
	changeNotifier
}

func NewWalletRepo(pool *pgxpool.Pool, publisher events.Publisher, log *zap.Logger) *WalletRepo {
	return &WalletRepo{pool: pool, changeNotifier: changeNotifier{publisher: publisher, log: log}}
}

func scanWallet(row pgx.Row) (*models.Wallet, error) {
	var w models.Wallet
	var holdings []byte
	err := row.Scan(&w.WalletAddress, &w.GorBalance, &holdings, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(holdings, &w.TicketsHolding); err != nil {
		return nil, fmt.Errorf("decode tickets_holding: %w", err)
	}
	return &w, nil
}

// Get returns the authoritative wallet row. Settlement prechecks must use
// this, never a cached copy.
func (r *WalletRepo) Get(ctx context.Context, address string) (*models.Wallet, error) {
	return scanWallet(r.pool.QueryRow(ctx, `
		SELECT wallet_address, gor_balance, tickets_holding, updated_at
		FROM wallets WHERE wallet_address = $1
	`, address))
}

// Ensure creates the wallet lazily on first monetary interaction.
func (r *WalletRepo) Ensure(ctx context.Context, address string) (*models.Wallet, error) {
	w, err := scanWallet(r.pool.QueryRow(ctx, `
		INSERT INTO wallets (wallet_address)
		VALUES ($1)
		ON CONFLICT (wallet_address) DO UPDATE SET wallet_address = EXCLUDED.wallet_address
		RETURNING wallet_address, gor_balance, tickets_holding, updated_at
	`, address))
	if err != nil {
		return nil, err
	}
	r.notify(ctx, events.TableWallets, address, events.OpInsert)
	return w, nil
}

// Credit adds amount to the mirrored balance, creating the wallet if needed.
func (r *WalletRepo) Credit(ctx context.Context, address string, amount int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO wallets (wallet_address, gor_balance)
		VALUES ($1, $2)
		ON CONFLICT (wallet_address) DO UPDATE SET
			gor_balance = wallets.gor_balance + EXCLUDED.gor_balance,
			updated_at = now()
	`, address, amount)
	if err != nil {
		return err
	}
	r.notify(ctx, events.TableWallets, address, events.OpUpdate)
	return nil
}

// DebitConditional subtracts amount only if the balance still equals the
// value the caller last observed. ErrStale on a concurrent write.
func (r *WalletRepo) DebitConditional(ctx context.Context, address string, observedBalance, amount int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE wallets SET gor_balance = gor_balance - $3, updated_at = now()
		WHERE wallet_address = $1 AND gor_balance = $2 AND gor_balance >= $3
	`, address, observedBalance, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStale
	}
	r.notify(ctx, events.TableWallets, address, events.OpUpdate)
	return nil
}

// ReplaceHoldingsConditional swaps the holding list only if it is unchanged
// since the caller read it. Zero-count entries must never be passed in.
func (r *WalletRepo) ReplaceHoldingsConditional(ctx context.Context, address string, observed, next []models.TicketHolding) error {
	observedJSON, err := marshalHoldings(observed)
	if err != nil {
		return err
	}
	nextJSON, err := marshalHoldings(next)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE wallets SET tickets_holding = $3::jsonb, updated_at = now()
		WHERE wallet_address = $1 AND tickets_holding = $2::jsonb
	`, address, observedJSON, nextJSON)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStale
	}
	r.notify(ctx, events.TableWallets, address, events.OpUpdate)
	return nil
}

// TotalBalance sums every mirrored balance. Used by conservation checks.
func (r *WalletRepo) TotalBalance(ctx context.Context) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(gor_balance), 0) FROM wallets`).Scan(&total)
	return total, err
}

func marshalHoldings(h []models.TicketHolding) ([]byte, error) {
	if h == nil {
		h = []models.TicketHolding{}
	}
	data, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("encode tickets_holding: %w", err)
	}
	return data, nil
}
