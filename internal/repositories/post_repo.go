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

type PostRepo struct {
	pool *pgxpool.Pool
	changeNotifier
}

func NewPostRepo(pool *pgxpool.Pool, publisher events.Publisher, log *zap.Logger) *PostRepo {
	return &PostRepo{pool: pool, changeNotifier: changeNotifier{publisher: publisher, log: log}}
}

const postColumns = `id, author_address, username, content, image_url, likes, reposts, likes_count, reposts_count, comments_count, created_at`

func scanPost(row pgx.Row) (*models.Post, error) {
	var p models.Post
	err := row.Scan(&p.ID, &p.AuthorAddress, &p.Username, &p.Content, &p.ImageURL,
		&p.Likes, &p.Reposts, &p.LikesCount, &p.RepostsCount, &p.CommentsCount, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PostRepo) Create(ctx context.Context, p *models.Post) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO posts (id, author_address, username, content, image_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, p.ID, p.AuthorAddress, p.Username, p.Content, p.ImageURL).Scan(&p.CreatedAt)
	if err != nil {
		return err
	}
	r.notify(ctx, events.TablePosts, p.ID.String(), events.OpInsert)
	return nil
}

func (r *PostRepo) Get(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	return scanPost(r.pool.QueryRow(ctx, `
		SELECT `+postColumns+` FROM posts WHERE id = $1
	`, id))
}

// List returns the newest posts first. Re-run with no intervening writes it
// returns an identical record set.
func (r *PostRepo) List(ctx context.Context, limit int) ([]models.Post, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+postColumns+` FROM posts ORDER BY created_at DESC, id LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPosts(rows)
}

func (r *PostRepo) ListByAuthor(ctx context.Context, author string, limit int) ([]models.Post, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+postColumns+` FROM posts
		WHERE author_address = $1 ORDER BY created_at DESC, id LIMIT $2
	`, author, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPosts(rows)
}

func collectPosts(rows pgx.Rows) ([]models.Post, error) {
	posts := []models.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

// Like adds address to the likes set and bumps the counter in one atomic
// statement, so likes_count always equals the set cardinality. A duplicate
// like changes nothing.
func (r *PostRepo) Like(ctx context.Context, id uuid.UUID, address string) (bool, error) {
	return r.setAdd(ctx, id, address, "likes", "likes_count")
}

func (r *PostRepo) Unlike(ctx context.Context, id uuid.UUID, address string) (bool, error) {
	return r.setRemove(ctx, id, address, "likes", "likes_count")
}

func (r *PostRepo) Repost(ctx context.Context, id uuid.UUID, address string) (bool, error) {
	return r.setAdd(ctx, id, address, "reposts", "reposts_count")
}

func (r *PostRepo) Unrepost(ctx context.Context, id uuid.UUID, address string) (bool, error) {
	return r.setRemove(ctx, id, address, "reposts", "reposts_count")
}

func (r *PostRepo) setAdd(ctx context.Context, id uuid.UUID, address, setCol, countCol string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE posts SET `+setCol+` = array_append(`+setCol+`, $2), `+countCol+` = `+countCol+` + 1
		WHERE id = $1 AND NOT `+setCol+` @> ARRAY[$2]
	`, id, address)
	if err != nil {
		return false, err
	}
	changed := tag.RowsAffected() > 0
	if changed {
		r.notify(ctx, events.TablePosts, id.String(), events.OpUpdate)
	}
	return changed, nil
}

func (r *PostRepo) setRemove(ctx context.Context, id uuid.UUID, address, setCol, countCol string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE posts SET `+setCol+` = array_remove(`+setCol+`, $2), `+countCol+` = `+countCol+` - 1
		WHERE id = $1 AND `+setCol+` @> ARRAY[$2]
	`, id, address)
	if err != nil {
		return false, err
	}
	changed := tag.RowsAffected() > 0
	if changed {
		r.notify(ctx, events.TablePosts, id.String(), events.OpUpdate)
	}
	return changed, nil
}

// IncrementComments bumps comments_count; comments live in their own table.
func (r *PostRepo) IncrementComments(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE posts SET comments_count = comments_count + 1 WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	r.notify(ctx, events.TablePosts, id.String(), events.OpUpdate)
	return nil
}

// PropagateUsername rewrites the denormalized author name on the author's
// posts after a profile edit.
func (r *PostRepo) PropagateUsername(ctx context.Context, author, username string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE posts SET username = $2 WHERE author_address = $1
	`, author, username)
	if err != nil {
		return err
	}
	r.notify(ctx, events.TablePosts, "", events.OpUpdate)
	return nil
}
