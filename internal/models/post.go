package models

import (
	"time"

	"github.com/google/uuid"
)

// Post is immutable except for like/repost/comment side effects and author
// username propagation. The denormalized counters must always equal the
// cardinality of their backing sets (comments are counted separately).
type Post struct {
	ID            uuid.UUID `json:"id"`
	AuthorAddress string    `json:"author_address"`
	Username      string    `json:"username"`
	Content       string    `json:"content"`
	ImageURL      *string   `json:"image_url,omitempty"`
	Likes         []string  `json:"likes"`
	Reposts       []string  `json:"reposts"`
	LikesCount    int       `json:"likes_count"`
	RepostsCount  int       `json:"reposts_count"`
	CommentsCount int       `json:"comments_count"`
	CreatedAt     time.Time `json:"created_at"`
}

func (p *Post) LikedBy(address string) bool {
	return contains(p.Likes, address)
}

func (p *Post) RepostedBy(address string) bool {
	return contains(p.Reposts, address)
}

type Comment struct {
	ID            uuid.UUID `json:"id"`
	PostID        uuid.UUID `json:"post_id"`
	AuthorAddress string    `json:"author_address"`
	Username      string    `json:"username"`
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"created_at"`
}
