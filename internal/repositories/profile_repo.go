package repositories

import (
	"context"
	"errors"

	"github.com/gorsocial/backend/internal/events"
	"github.com/gorsocial/backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type ProfileRepo struct {
	pool *pgxpool.Pool
	changeNotifier
}

func NewProfileRepo(pool *pgxpool.Pool, publisher events.Publisher, log *zap.Logger) *ProfileRepo {
	return &ProfileRepo{pool: pool, changeNotifier: changeNotifier{publisher: publisher, log: log}}
}

const profileColumns = `wallet_address, username, bio, followers, following, blocked_users, tickets_earned, created_at`

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	err := row.Scan(&p.WalletAddress, &p.Username, &p.Bio, &p.Followers, &p.Following, &p.BlockedUsers, &p.TicketsEarned, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *ProfileRepo) Get(ctx context.Context, address string) (*models.Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx, `
		SELECT `+profileColumns+` FROM profiles WHERE wallet_address = $1
	`, address))
}

// Ensure creates the profile lazily with a generated default display name and
// returns the current row either way. Profiles are never deleted.
func (r *ProfileRepo) Ensure(ctx context.Context, address string) (*models.Profile, error) {
	p, err := scanProfile(r.pool.QueryRow(ctx, `
		INSERT INTO profiles (wallet_address, username)
		VALUES ($1, $2)
		ON CONFLICT (wallet_address) DO UPDATE SET wallet_address = EXCLUDED.wallet_address
		RETURNING `+profileColumns+`
	`, address, models.DefaultUsername(address)))
	if err != nil {
		return nil, err
	}
	r.notify(ctx, events.TableProfiles, address, events.OpInsert)
	return p, nil
}

func (r *ProfileRepo) UpdateInfo(ctx context.Context, address, username, bio string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE profiles SET username = $2, bio = $3 WHERE wallet_address = $1
	`, address, username, bio)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	r.notify(ctx, events.TableProfiles, address, events.OpUpdate)
	return nil
}

// AddFollowing appends target to address's following set. Guarded so a
// duplicate follow is a no-op; reports whether the set actually changed.
func (r *ProfileRepo) AddFollowing(ctx context.Context, address, target string) (bool, error) {
	return r.arrayAdd(ctx, "following", address, target)
}

func (r *ProfileRepo) RemoveFollowing(ctx context.Context, address, target string) (bool, error) {
	return r.arrayRemove(ctx, "following", address, target)
}

func (r *ProfileRepo) AddFollower(ctx context.Context, address, target string) (bool, error) {
	return r.arrayAdd(ctx, "followers", address, target)
}

func (r *ProfileRepo) RemoveFollower(ctx context.Context, address, target string) (bool, error) {
	return r.arrayRemove(ctx, "followers", address, target)
}

func (r *ProfileRepo) AddBlocked(ctx context.Context, address, target string) (bool, error) {
	return r.arrayAdd(ctx, "blocked_users", address, target)
}

func (r *ProfileRepo) RemoveBlocked(ctx context.Context, address, target string) (bool, error) {
	return r.arrayRemove(ctx, "blocked_users", address, target)
}

// arrayAdd and arrayRemove mutate a membership set in a single atomic
// statement so concurrent calls cannot lose each other's writes. column is
// always one of the fixed set names above, never caller input.
func (r *ProfileRepo) arrayAdd(ctx context.Context, column, address, member string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE profiles SET `+column+` = array_append(`+column+`, $2)
		WHERE wallet_address = $1 AND NOT `+column+` @> ARRAY[$2]
	`, address, member)
	if err != nil {
		return false, err
	}
	changed := tag.RowsAffected() > 0
	if changed {
		r.notify(ctx, events.TableProfiles, address, events.OpUpdate)
	}
	return changed, nil
}

func (r *ProfileRepo) arrayRemove(ctx context.Context, column, address, member string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE profiles SET `+column+` = array_remove(`+column+`, $2)
		WHERE wallet_address = $1 AND `+column+` @> ARRAY[$2]
	`, address, member)
	if err != nil {
		return false, err
	}
	changed := tag.RowsAffected() > 0
	if changed {
		r.notify(ctx, events.TableProfiles, address, events.OpUpdate)
	}
	return changed, nil
}

// AdjustTicketsEarned applies delta to tickets_earned, floored at zero, in a
// single atomic statement.
func (r *ProfileRepo) AdjustTicketsEarned(ctx context.Context, address string, delta int) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE profiles SET tickets_earned = GREATEST(tickets_earned + $2, 0)
		WHERE wallet_address = $1
	`, address, delta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	r.notify(ctx, events.TableProfiles, address, events.OpUpdate)
	return nil
}
