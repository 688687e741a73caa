// Package cache holds a connected client's transient, advisory view of the
// mirror. It is never a source of truth: settlement prechecks re-read the
// authoritative rows. All mutation goes through the named update methods so
// the cache can be tested in isolation from network I/O.
package cache

import (
	"sync"

	"github.com/gorsocial/backend/internal/models"
)

// ClientCache is one client session's in-memory mirror. Refreshed by full
// re-query when the change bus signals, mutated optimistically on local user
// actions. Last refetch wins: optimistic entries are superseded wholesale by
// the next confirmed snapshot, never merged and never duplicated.
type ClientCache struct {
	mu            sync.RWMutex
	posts         []models.Post
	profiles      map[string]models.Profile
	wallet        *models.Wallet
	notifications []models.Notification
}

func NewClientCache() *ClientCache {
	return &ClientCache{profiles: make(map[string]models.Profile)}
}

// ReplacePosts installs a confirmed refetch result, discarding any
// optimistic entries.
func (c *ClientCache) ReplacePosts(posts []models.Post) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.posts = append([]models.Post{}, posts...)
}

// AddOptimisticPost surfaces a locally created post before the change-bus
// round trip completes. The entry survives only until the next ReplacePosts.
func (c *ClientCache) AddOptimisticPost(post models.Post) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.posts = append([]models.Post{post}, c.posts...)
}

func (c *ClientCache) Posts() []models.Post {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.Post{}, c.posts...)
}

func (c *ClientCache) ReplaceProfile(p models.Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profiles[p.WalletAddress] = p
}

func (c *ClientCache) Profile(address string) (models.Profile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.profiles[address]
	return p, ok
}

func (c *ClientCache) ReplaceWallet(w models.Wallet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wallet = &w
}

func (c *ClientCache) Wallet() (models.Wallet, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.wallet == nil {
		return models.Wallet{}, false
	}
	return *c.wallet, true
}

func (c *ClientCache) ReplaceNotifications(list []models.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifications = append([]models.Notification{}, list...)
}

func (c *ClientCache) Notifications() []models.Notification {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.Notification{}, c.notifications...)
}
