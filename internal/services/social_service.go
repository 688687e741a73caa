package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/gorsocial/backend/internal/models"
	"go.uber.org/zap"
)

const defaultFeedLimit = 100

// SocialService handles the non-monetary mutations: posts, likes, reposts,
// comments, follows, blocks, profile edits. All writes go through the mirror
// gateway, which raises the change events connected clients refresh from.
type SocialService struct {
	profiles ProfileStore
	posts    PostStore
	comments CommentStore
	notifier *Notifier
	log      *zap.Logger
}

func NewSocialService(
	profiles ProfileStore,
	posts PostStore,
	comments CommentStore,
	notifier *Notifier,
	log *zap.Logger,
) *SocialService {
	return &SocialService{
		profiles: profiles,
		posts:    posts,
		comments: comments,
		notifier: notifier,
		log:      log,
	}
}

// EnsureProfile creates the profile lazily on first observed activity.
func (s *SocialService) EnsureProfile(ctx context.Context, address string) (*models.Profile, error) {
	return s.profiles.Ensure(ctx, address)
}

func (s *SocialService) GetProfile(ctx context.Context, address string) (*models.Profile, error) {
	return s.profiles.Get(ctx, address)
}

// UpdateProfile edits display name and bio, propagating the new name into
// the author's denormalized post rows.
func (s *SocialService) UpdateProfile(ctx context.Context, address, username, bio string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return validationErrorf("username must not be empty")
	}
	if err := s.profiles.UpdateInfo(ctx, address, username, bio); err != nil {
		return err
	}
	if err := s.posts.PropagateUsername(ctx, address, username); err != nil {
		// Post rows keep the stale name until the next edit; the profile
		// itself is already updated.
		s.log.Warn("failed to propagate username to posts",
			zap.String("address", address), zap.Error(err))
	}
	return nil
}

func (s *SocialService) Follow(ctx context.Context, follower, followee string) error {
	if follower == followee {
		return validationErrorf("cannot follow yourself")
	}
	if _, err := s.profiles.Ensure(ctx, follower); err != nil {
		return err
	}
	if _, err := s.profiles.Ensure(ctx, followee); err != nil {
		return err
	}

	changed, err := s.profiles.AddFollowing(ctx, follower, followee)
	if err != nil {
		return err
	}
	if _, err := s.profiles.AddFollower(ctx, followee, follower); err != nil {
		return err
	}
	// Exactly one notification per new follow edge; a repeated follow is a
	// no-op and stays silent.
	if changed {
		s.notifier.Notify(ctx, followee, follower,
			models.NotificationFollow, "You have a new follower", nil)
	}
	return nil
}

func (s *SocialService) Unfollow(ctx context.Context, follower, followee string) error {
	if follower == followee {
		return validationErrorf("cannot unfollow yourself")
	}
	if _, err := s.profiles.RemoveFollowing(ctx, follower, followee); err != nil {
		return err
	}
	if _, err := s.profiles.RemoveFollower(ctx, followee, follower); err != nil {
		return err
	}
	return nil
}

func (s *SocialService) Block(ctx context.Context, address, target string) error {
	if address == target {
		return validationErrorf("cannot block yourself")
	}
	if _, err := s.profiles.Ensure(ctx, address); err != nil {
		return err
	}
	_, err := s.profiles.AddBlocked(ctx, address, target)
	return err
}

func (s *SocialService) Unblock(ctx context.Context, address, target string) error {
	_, err := s.profiles.RemoveBlocked(ctx, address, target)
	return err
}

func (s *SocialService) CreatePost(ctx context.Context, author, content string, imageURL *string) (*models.Post, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, validationErrorf("post content must not be empty")
	}
	profile, err := s.profiles.Ensure(ctx, author)
	if err != nil {
		return nil, fmt.Errorf("ensure author profile: %w", err)
	}

	post := &models.Post{
		ID:            uuid.New(),
		AuthorAddress: author,
		Username:      profile.Username,
		Content:       content,
		ImageURL:      imageURL,
		Likes:         []string{},
		Reposts:       []string{},
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *SocialService) ListFeed(ctx context.Context, limit int) ([]models.Post, error) {
	if limit <= 0 || limit > 500 {
		limit = defaultFeedLimit
	}
	return s.posts.List(ctx, limit)
}

func (s *SocialService) ListByAuthor(ctx context.Context, author string, limit int) ([]models.Post, error) {
	if limit <= 0 || limit > 500 {
		limit = defaultFeedLimit
	}
	return s.posts.ListByAuthor(ctx, author, limit)
}

func (s *SocialService) GetPost(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	return s.posts.Get(ctx, id)
}

func (s *SocialService) Like(ctx context.Context, postID uuid.UUID, address string) error {
	_, err := s.posts.Like(ctx, postID, address)
	return err
}

func (s *SocialService) Unlike(ctx context.Context, postID uuid.UUID, address string) error {
	_, err := s.posts.Unlike(ctx, postID, address)
	return err
}

func (s *SocialService) Repost(ctx context.Context, postID uuid.UUID, address string) error {
	post, err := s.posts.Get(ctx, postID)
	if err != nil {
		return err
	}
	changed, err := s.posts.Repost(ctx, postID, address)
	if err != nil {
		return err
	}
	if changed {
		s.notifier.Notify(ctx, post.AuthorAddress, address,
			models.NotificationRepost, "Your post was reposted", &postID)
	}
	return nil
}

func (s *SocialService) Unrepost(ctx context.Context, postID uuid.UUID, address string) error {
	_, err := s.posts.Unrepost(ctx, postID, address)
	return err
}

// Comment appends a comment and bumps the parent's comments_count.
func (s *SocialService) Comment(ctx context.Context, postID uuid.UUID, author, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, validationErrorf("comment content must not be empty")
	}
	post, err := s.posts.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	profile, err := s.profiles.Ensure(ctx, author)
	if err != nil {
		return nil, fmt.Errorf("ensure author profile: %w", err)
	}

	comment := &models.Comment{
		ID:            uuid.New(),
		PostID:        postID,
		AuthorAddress: author,
		Username:      profile.Username,
		Content:       content,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	if err := s.posts.IncrementComments(ctx, postID); err != nil {
		s.log.Warn("failed to bump comments_count",
			zap.String("post_id", postID.String()), zap.Error(err))
	}
	s.notifier.Notify(ctx, post.AuthorAddress, author,
		models.NotificationComment, "New comment on your post", &postID)
	return comment, nil
}

func (s *SocialService) ListComments(ctx context.Context, postID uuid.UUID) ([]models.Comment, error) {
	return s.comments.ListByPost(ctx, postID)
}
