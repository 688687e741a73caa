package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/gorsocial/backend/internal/events"
	"github.com/gorsocial/backend/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type CommentRepo struct {
	pool *pgxpool.Pool
	changeNotifier
}

func NewCommentRepo(pool *pgxpool.Pool, publisher events.Publisher, log *zap.Logger) *CommentRepo {
	return &CommentRepo{pool: pool, changeNotifier: changeNotifier{publisher: publisher, log: log}}
}

func (r *CommentRepo) Create(ctx context.Context, c *models.Comment) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO comments (id, post_id, author_address, username, content)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, c.ID, c.PostID, c.AuthorAddress, c.Username, c.Content).Scan(&c.CreatedAt)
	if err != nil {
		return err
	}
	r.notify(ctx, events.TableComments, c.ID.String(), events.OpInsert)
	return nil
}

func (r *CommentRepo) ListByPost(ctx context.Context, postID uuid.UUID) ([]models.Comment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, post_id, author_address, username, content, created_at
		FROM comments WHERE post_id = $1 ORDER BY created_at, id
	`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorAddress, &c.Username, &c.Content, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}
