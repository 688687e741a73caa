package repositories

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NonceRepo stores single-use sign-in nonces. Nonces are not mirror state and
// raise no change events.
type NonceRepo struct {
	pool *pgxpool.Pool
}

func NewNonceRepo(pool *pgxpool.Pool) *NonceRepo {
	return &NonceRepo{pool: pool}
}

func (r *NonceRepo) Create(ctx context.Context, walletAddress string, ttl time.Duration) (string, error) {
	nonce := generateNonce(32)
	_, err := r.pool.Exec(ctx, `
		INSERT INTO auth_nonces (nonce, wallet_address, expires_at)
		VALUES ($1, $2, now() + $3::interval)
	`, nonce, walletAddress, ttl.String())
	if err != nil {
		return "", err
	}
	return nonce, nil
}

// Consume marks an unexpired nonce used. A second consume of the same nonce
// fails, which is the replay protection.
func (r *NonceRepo) Consume(ctx context.Context, nonce string) error {
	var n string
	err := r.pool.QueryRow(ctx, `
		UPDATE auth_nonces SET used = true
		WHERE nonce = $1 AND used = false AND expires_at > now()
		RETURNING nonce
	`, nonce).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func generateNonce(bytes int) string {
	b := make([]byte, bytes)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
