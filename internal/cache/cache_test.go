package cache

import (
	"testing"

	"github.com/google/uuid"
	"github.com/gorsocial/backend/internal/models"
)

func TestOptimisticPostSupersededNotDuplicated(t *testing.T) {
	c := NewClientCache()

	confirmed := models.Post{ID: uuid.New(), AuthorAddress: "A", Content: "old"}
	c.ReplacePosts([]models.Post{confirmed})

	optimistic := models.Post{ID: uuid.New(), AuthorAddress: "A", Content: "fresh"}
	c.AddOptimisticPost(optimistic)

	posts := c.Posts()
	if len(posts) != 2 {
		t.Fatalf("posts = %d, want 2 (optimistic rendered immediately)", len(posts))
	}
	if posts[0].ID != optimistic.ID {
		t.Error("optimistic post should render first")
	}

	// The refetch after the change signal includes the now-confirmed post.
	refetch := []models.Post{
		{ID: optimistic.ID, AuthorAddress: "A", Content: "fresh"},
		confirmed,
	}
	c.ReplacePosts(refetch)

	posts = c.Posts()
	if len(posts) != 2 {
		t.Fatalf("posts after refetch = %d, want 2 (no duplicate)", len(posts))
	}
	seen := map[uuid.UUID]int{}
	for _, p := range posts {
		seen[p.ID]++
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("post %s appears %d times", id, n)
		}
	}
}

func TestReplacePostsIsLastRefetchWins(t *testing.T) {
	c := NewClientCache()

	first := []models.Post{{ID: uuid.New(), Content: "a"}}
	second := []models.Post{{ID: uuid.New(), Content: "b"}, {ID: uuid.New(), Content: "c"}}

	c.ReplacePosts(first)
	c.ReplacePosts(second)

	posts := c.Posts()
	if len(posts) != 2 {
		t.Fatalf("posts = %d, want 2", len(posts))
	}
	if posts[0].Content != "b" {
		t.Errorf("posts[0].Content = %q, want %q", posts[0].Content, "b")
	}
}

func TestSnapshotsAreCopies(t *testing.T) {
	c := NewClientCache()
	c.ReplacePosts([]models.Post{{ID: uuid.New(), Content: "original"}})

	posts := c.Posts()
	posts[0].Content = "mutated"

	if got := c.Posts()[0].Content; got != "original" {
		t.Errorf("cache content = %q, external mutation leaked in", got)
	}
}

func TestWalletAndProfileUpdates(t *testing.T) {
	c := NewClientCache()

	if _, ok := c.Wallet(); ok {
		t.Error("empty cache reported a wallet")
	}

	c.ReplaceWallet(models.Wallet{WalletAddress: "A", GorBalance: 7})
	w, ok := c.Wallet()
	if !ok || w.GorBalance != 7 {
		t.Errorf("Wallet() = %+v, %v", w, ok)
	}

	c.ReplaceProfile(models.Profile{WalletAddress: "B", Username: "bee"})
	p, ok := c.Profile("B")
	if !ok || p.Username != "bee" {
		t.Errorf("Profile(B) = %+v, %v", p, ok)
	}
	if _, ok := c.Profile("missing"); ok {
		t.Error("Profile(missing) reported present")
	}
}
