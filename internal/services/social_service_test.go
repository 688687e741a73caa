package services

import (
	"context"
	"errors"
	"testing"

	"github.com/gorsocial/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type socialFixture struct {
	service  *SocialService
	profiles *memProfiles
	posts    *memPosts
	comments *memComments
	notes    *memNotifications
}

func newSocialFixture() *socialFixture {
	profiles := newMemProfiles()
	posts := newMemPosts()
	comments := &memComments{}
	notes := &memNotifications{}
	log := zap.NewNop()

	return &socialFixture{
		service:  NewSocialService(profiles, posts, comments, NewNotifier(notes, log), log),
		profiles: profiles,
		posts:    posts,
		comments: comments,
		notes:    notes,
	}
}

func TestLikeCountTracksSetCardinality(t *testing.T) {
	f := newSocialFixture()
	ctx := context.Background()

	post, err := f.service.CreatePost(ctx, addrA, "hello", nil)
	require.NoError(t, err)

	require.NoError(t, f.service.Like(ctx, post.ID, addrB))
	got, _ := f.service.GetPost(ctx, post.ID)
	assert.Equal(t, 1, got.LikesCount)
	assert.Equal(t, []string{addrB}, got.Likes)

	// Double like is a no-op.
	require.NoError(t, f.service.Like(ctx, post.ID, addrB))
	got, _ = f.service.GetPost(ctx, post.ID)
	assert.Equal(t, 1, got.LikesCount)
	assert.Len(t, got.Likes, 1)

	require.NoError(t, f.service.Unlike(ctx, post.ID, addrB))
	got, _ = f.service.GetPost(ctx, post.ID)
	assert.Equal(t, 0, got.LikesCount)
	assert.Empty(t, got.Likes)

	// The counter always equals the set cardinality after arbitrary
	// like/unlike sequences by distinct addresses.
	for _, addr := range []string{addrA, addrB, addrC} {
		require.NoError(t, f.service.Like(ctx, post.ID, addr))
	}
	require.NoError(t, f.service.Unlike(ctx, post.ID, addrB))
	got, _ = f.service.GetPost(ctx, post.ID)
	assert.Equal(t, len(got.Likes), got.LikesCount)
	assert.Equal(t, 2, got.LikesCount)
}

func TestRepostNotifiesAuthorOnce(t *testing.T) {
	f := newSocialFixture()
	ctx := context.Background()

	post, err := f.service.CreatePost(ctx, addrA, "hello", nil)
	require.NoError(t, err)

	require.NoError(t, f.service.Repost(ctx, post.ID, addrB))
	require.NoError(t, f.service.Repost(ctx, post.ID, addrB)) // duplicate, silent

	got, _ := f.service.GetPost(ctx, post.ID)
	assert.Equal(t, 1, got.RepostsCount)
	assert.Len(t, f.notes.byType(addrA, models.NotificationRepost), 1)
}

func TestFollowScenario(t *testing.T) {
	f := newSocialFixture()
	ctx := context.Background()

	require.NoError(t, f.service.Follow(ctx, addrA, addrB))

	a, _ := f.profiles.Get(ctx, addrA)
	b, _ := f.profiles.Get(ctx, addrB)
	assert.Contains(t, a.Following, addrB)
	assert.Contains(t, b.Followers, addrA)
	assert.Len(t, f.notes.byType(addrB, models.NotificationFollow), 1)

	// Unfollow clears both sides and stays silent.
	require.NoError(t, f.service.Unfollow(ctx, addrA, addrB))
	a, _ = f.profiles.Get(ctx, addrA)
	b, _ = f.profiles.Get(ctx, addrB)
	assert.NotContains(t, a.Following, addrB)
	assert.NotContains(t, b.Followers, addrA)
	assert.Len(t, f.notes.byType(addrB, models.NotificationFollow), 1)

	assert.Error(t, f.service.Follow(ctx, addrA, addrA))
}

func TestCommentBumpsCounterAndNotifies(t *testing.T) {
	f := newSocialFixture()
	ctx := context.Background()

	post, err := f.service.CreatePost(ctx, addrA, "hello", nil)
	require.NoError(t, err)

	c, err := f.service.Comment(ctx, post.ID, addrB, "nice")
	require.NoError(t, err)
	assert.Equal(t, post.ID, c.PostID)

	got, _ := f.service.GetPost(ctx, post.ID)
	assert.Equal(t, 1, got.CommentsCount)

	list, err := f.service.ListComments(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "nice", list[0].Content)

	require.Len(t, f.notes.byType(addrA, models.NotificationComment), 1)
}

func TestSelfActionsNeverNotify(t *testing.T) {
	f := newSocialFixture()
	ctx := context.Background()

	post, err := f.service.CreatePost(ctx, addrA, "hello", nil)
	require.NoError(t, err)

	_, err = f.service.Comment(ctx, post.ID, addrA, "replying to myself")
	require.NoError(t, err)
	require.NoError(t, f.service.Repost(ctx, post.ID, addrA))

	assert.Empty(t, f.notes.rows, "self-actions must not produce notifications")
}

func TestNotificationFailureNeverBlocksPrimaryAction(t *testing.T) {
	f := newSocialFixture()
	f.notes.createErr = errors.New("notifications table unavailable")
	ctx := context.Background()

	post, err := f.service.CreatePost(ctx, addrA, "hello", nil)
	require.NoError(t, err)

	// The comment and the counter bump land even though the fanout failed.
	_, err = f.service.Comment(ctx, post.ID, addrB, "nice")
	require.NoError(t, err)
	got, _ := f.service.GetPost(ctx, post.ID)
	assert.Equal(t, 1, got.CommentsCount)
}

func TestCreatePostValidation(t *testing.T) {
	f := newSocialFixture()

	_, err := f.service.CreatePost(context.Background(), addrA, "   ", nil)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestLazyProfileGetsDefaultUsername(t *testing.T) {
	f := newSocialFixture()
	ctx := context.Background()

	post, err := f.service.CreatePost(ctx, addrA, "first", nil)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultUsername(addrA), post.Username)
}

func TestUpdateProfilePropagatesUsername(t *testing.T) {
	f := newSocialFixture()
	ctx := context.Background()

	post, err := f.service.CreatePost(ctx, addrA, "first", nil)
	require.NoError(t, err)

	require.NoError(t, f.service.UpdateProfile(ctx, addrA, "trashpanda", "raccoon things"))

	p, _ := f.profiles.Get(ctx, addrA)
	assert.Equal(t, "trashpanda", p.Username)
	assert.Equal(t, "raccoon things", p.Bio)

	got, _ := f.service.GetPost(ctx, post.ID)
	assert.Equal(t, "trashpanda", got.Username)

	err = f.service.UpdateProfile(ctx, addrA, "  ", "")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestNotifierMarkRead(t *testing.T) {
	f := newSocialFixture()
	ctx := context.Background()
	notifier := NewNotifier(f.notes, zap.NewNop())

	notifier.Notify(ctx, addrB, addrA, models.NotificationFollow, "You have a new follower", nil)
	list, err := notifier.List(ctx, addrB, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].Read)

	// Only the recipient may flip the read flag.
	require.Error(t, notifier.MarkRead(ctx, list[0].ID, addrC))
	require.NoError(t, notifier.MarkRead(ctx, list[0].ID, addrB))

	list, _ = notifier.List(ctx, addrB, 10)
	assert.True(t, list[0].Read)
}
