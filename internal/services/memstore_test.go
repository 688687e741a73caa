package services

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/gorsocial/backend/internal/models"
	"github.com/gorsocial/backend/internal/repositories"
)

// In-memory stores mirroring the gateway's semantics: point operations,
// conditional updates that fail with ErrStale, copies returned from reads.

type memProfiles struct {
	rows map[string]*models.Profile
}

func newMemProfiles() *memProfiles {
	return &memProfiles{rows: make(map[string]*models.Profile)}
}

func copyProfile(p *models.Profile) *models.Profile {
	cp := *p
	cp.Followers = append([]string{}, p.Followers...)
	cp.Following = append([]string{}, p.Following...)
	cp.BlockedUsers = append([]string{}, p.BlockedUsers...)
	return &cp
}

func (m *memProfiles) Get(_ context.Context, address string) (*models.Profile, error) {
	p, ok := m.rows[address]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return copyProfile(p), nil
}

func (m *memProfiles) Ensure(_ context.Context, address string) (*models.Profile, error) {
	p, ok := m.rows[address]
	if !ok {
		p = &models.Profile{
			WalletAddress: address,
			Username:      models.DefaultUsername(address),
			Followers:     []string{},
			Following:     []string{},
			BlockedUsers:  []string{},
			CreatedAt:     time.Now(),
		}
		m.rows[address] = p
	}
	return copyProfile(p), nil
}

func (m *memProfiles) UpdateInfo(_ context.Context, address, username, bio string) error {
	p, ok := m.rows[address]
	if !ok {
		return repositories.ErrNotFound
	}
	p.Username = username
	p.Bio = bio
	return nil
}

func (m *memProfiles) mutate(address string, fn func(*models.Profile) bool) (bool, error) {
	p, ok := m.rows[address]
	if !ok {
		return false, nil
	}
	return fn(p), nil
}

func addMember(list *[]string, member string) bool {
	for _, v := range *list {
		if v == member {
			return false
		}
	}
	*list = append(*list, member)
	return true
}

func removeMember(list *[]string, member string) bool {
	for i, v := range *list {
		if v == member {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return true
		}
	}
	return false
}

func (m *memProfiles) AddFollowing(_ context.Context, address, target string) (bool, error) {
	return m.mutate(address, func(p *models.Profile) bool { return addMember(&p.Following, target) })
}

func (m *memProfiles) RemoveFollowing(_ context.Context, address, target string) (bool, error) {
	return m.mutate(address, func(p *models.Profile) bool { return removeMember(&p.Following, target) })
}

func (m *memProfiles) AddFollower(_ context.Context, address, target string) (bool, error) {
	return m.mutate(address, func(p *models.Profile) bool { return addMember(&p.Followers, target) })
}

func (m *memProfiles) RemoveFollower(_ context.Context, address, target string) (bool, error) {
	return m.mutate(address, func(p *models.Profile) bool { return removeMember(&p.Followers, target) })
}

func (m *memProfiles) AddBlocked(_ context.Context, address, target string) (bool, error) {
	return m.mutate(address, func(p *models.Profile) bool { return addMember(&p.BlockedUsers, target) })
}

func (m *memProfiles) RemoveBlocked(_ context.Context, address, target string) (bool, error) {
	return m.mutate(address, func(p *models.Profile) bool { return removeMember(&p.BlockedUsers, target) })
}

func (m *memProfiles) AdjustTicketsEarned(_ context.Context, address string, delta int) error {
	p, ok := m.rows[address]
	if !ok {
		return repositories.ErrNotFound
	}
	p.TicketsEarned += delta
	if p.TicketsEarned < 0 {
		p.TicketsEarned = 0
	}
	return nil
}

type memWallets struct {
	rows map[string]*models.Wallet

	creditErr error // injected failure
	debitErr  error
}

func newMemWallets() *memWallets {
	return &memWallets{rows: make(map[string]*models.Wallet)}
}

func copyWallet(w *models.Wallet) *models.Wallet {
	cp := *w
	cp.TicketsHolding = append([]models.TicketHolding{}, w.TicketsHolding...)
	return &cp
}

func (m *memWallets) Get(_ context.Context, address string) (*models.Wallet, error) {
	w, ok := m.rows[address]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return copyWallet(w), nil
}

func (m *memWallets) Ensure(_ context.Context, address string) (*models.Wallet, error) {
	w, ok := m.rows[address]
	if !ok {
		w = &models.Wallet{WalletAddress: address, TicketsHolding: []models.TicketHolding{}}
		m.rows[address] = w
	}
	return copyWallet(w), nil
}

func (m *memWallets) Credit(_ context.Context, address string, amount int64) error {
	if m.creditErr != nil {
		return m.creditErr
	}
	w, ok := m.rows[address]
	if !ok {
		w = &models.Wallet{WalletAddress: address, TicketsHolding: []models.TicketHolding{}}
		m.rows[address] = w
	}
	w.GorBalance += amount
	return nil
}

func (m *memWallets) DebitConditional(_ context.Context, address string, observedBalance, amount int64) error {
	if m.debitErr != nil {
		return m.debitErr
	}
	w, ok := m.rows[address]
	if !ok {
		return repositories.ErrStale
	}
	if w.GorBalance != observedBalance || w.GorBalance < amount {
		return repositories.ErrStale
	}
	w.GorBalance -= amount
	return nil
}

func (m *memWallets) ReplaceHoldingsConditional(_ context.Context, address string, observed, next []models.TicketHolding) error {
	w, ok := m.rows[address]
	if !ok {
		return repositories.ErrStale
	}
	current, _ := json.Marshal(w.TicketsHolding)
	seen, _ := json.Marshal(observed)
	if string(current) != string(seen) {
		return repositories.ErrStale
	}
	w.TicketsHolding = append([]models.TicketHolding{}, next...)
	return nil
}

func (m *memWallets) total() int64 {
	var sum int64
	for _, w := range m.rows {
		sum += w.GorBalance
	}
	return sum
}

type memPosts struct {
	rows  map[uuid.UUID]*models.Post
	order []uuid.UUID
}

func newMemPosts() *memPosts {
	return &memPosts{rows: make(map[uuid.UUID]*models.Post)}
}

func copyPost(p *models.Post) *models.Post {
	cp := *p
	cp.Likes = append([]string{}, p.Likes...)
	cp.Reposts = append([]string{}, p.Reposts...)
	return &cp
}

func (m *memPosts) Create(_ context.Context, p *models.Post) error {
	p.CreatedAt = time.Now()
	m.rows[p.ID] = copyPost(p)
	m.order = append(m.order, p.ID)
	return nil
}

func (m *memPosts) Get(_ context.Context, id uuid.UUID) (*models.Post, error) {
	p, ok := m.rows[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return copyPost(p), nil
}

func (m *memPosts) List(_ context.Context, limit int) ([]models.Post, error) {
	out := []models.Post{}
	for i := len(m.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *copyPost(m.rows[m.order[i]]))
	}
	return out, nil
}

func (m *memPosts) ListByAuthor(_ context.Context, author string, limit int) ([]models.Post, error) {
	out := []models.Post{}
	for i := len(m.order) - 1; i >= 0 && len(out) < limit; i-- {
		if p := m.rows[m.order[i]]; p.AuthorAddress == author {
			out = append(out, *copyPost(p))
		}
	}
	return out, nil
}

func (m *memPosts) Like(_ context.Context, id uuid.UUID, address string) (bool, error) {
	p, ok := m.rows[id]
	if !ok {
		return false, nil
	}
	if addMember(&p.Likes, address) {
		p.LikesCount++
		return true, nil
	}
	return false, nil
}

func (m *memPosts) Unlike(_ context.Context, id uuid.UUID, address string) (bool, error) {
	p, ok := m.rows[id]
	if !ok {
		return false, nil
	}
	if removeMember(&p.Likes, address) {
		p.LikesCount--
		return true, nil
	}
	return false, nil
}

func (m *memPosts) Repost(_ context.Context, id uuid.UUID, address string) (bool, error) {
	p, ok := m.rows[id]
	if !ok {
		return false, nil
	}
	if addMember(&p.Reposts, address) {
		p.RepostsCount++
		return true, nil
	}
	return false, nil
}

func (m *memPosts) Unrepost(_ context.Context, id uuid.UUID, address string) (bool, error) {
	p, ok := m.rows[id]
	if !ok {
		return false, nil
	}
	if removeMember(&p.Reposts, address) {
		p.RepostsCount--
		return true, nil
	}
	return false, nil
}

func (m *memPosts) IncrementComments(_ context.Context, id uuid.UUID) error {
	p, ok := m.rows[id]
	if !ok {
		return repositories.ErrNotFound
	}
	p.CommentsCount++
	return nil
}

func (m *memPosts) PropagateUsername(_ context.Context, author, username string) error {
	for _, p := range m.rows {
		if p.AuthorAddress == author {
			p.Username = username
		}
	}
	return nil
}

type memComments struct {
	rows []models.Comment
}

func (m *memComments) Create(_ context.Context, c *models.Comment) error {
	c.CreatedAt = time.Now()
	m.rows = append(m.rows, *c)
	return nil
}

func (m *memComments) ListByPost(_ context.Context, postID uuid.UUID) ([]models.Comment, error) {
	out := []models.Comment{}
	for _, c := range m.rows {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	return out, nil
}

type memNotifications struct {
	rows      []models.Notification
	createErr error // injected failure
}

func (m *memNotifications) Create(_ context.Context, n *models.Notification) error {
	if m.createErr != nil {
		return m.createErr
	}
	n.CreatedAt = time.Now()
	m.rows = append(m.rows, *n)
	return nil
}

func (m *memNotifications) ListByRecipient(_ context.Context, recipient string, limit int) ([]models.Notification, error) {
	out := []models.Notification{}
	for i := len(m.rows) - 1; i >= 0 && len(out) < limit; i-- {
		if m.rows[i].RecipientAddress == recipient {
			out = append(out, m.rows[i])
		}
	}
	return out, nil
}

func (m *memNotifications) MarkRead(_ context.Context, id uuid.UUID, recipient string) error {
	for i := range m.rows {
		if m.rows[i].ID == id && m.rows[i].RecipientAddress == recipient {
			m.rows[i].Read = true
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (m *memNotifications) byType(recipient, typ string) []models.Notification {
	out := []models.Notification{}
	for _, n := range m.rows {
		if n.RecipientAddress == recipient && n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

type memSettlements struct {
	rows map[uuid.UUID]*models.Settlement
}

func newMemSettlements() *memSettlements {
	return &memSettlements{rows: make(map[uuid.UUID]*models.Settlement)}
}

func (m *memSettlements) Create(_ context.Context, s *models.Settlement) error {
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	cp := *s
	m.rows[s.ID] = &cp
	return nil
}

func (m *memSettlements) Get(_ context.Context, id uuid.UUID) (*models.Settlement, error) {
	s, ok := m.rows[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSettlements) UpdateStatus(_ context.Context, id uuid.UUID, from, to string, sig, reason *string) error {
	s, ok := m.rows[id]
	if !ok {
		return repositories.ErrStale
	}
	if s.Status != from {
		return repositories.ErrStale
	}
	s.Status = to
	if sig != nil {
		s.LedgerSignature = sig
	}
	if reason != nil {
		s.FailureReason = reason
	}
	s.UpdatedAt = time.Now()
	return nil
}

func (m *memSettlements) ListByStatus(_ context.Context, status string, limit int) ([]models.Settlement, error) {
	out := []models.Settlement{}
	for _, s := range m.rows {
		if s.Status == status {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// fakeLedger records transfers and optionally fails them.
type fakeLedger struct {
	transfers []ledgerTransfer
	err       error
}

type ledgerTransfer struct {
	dest   string
	amount uint64
}

func (f *fakeLedger) Transfer(_ context.Context, dest string, amount uint64) (solana.Signature, error) {
	if f.err != nil {
		return solana.Signature{}, f.err
	}
	f.transfers = append(f.transfers, ledgerTransfer{dest: dest, amount: amount})
	var sig solana.Signature
	sig[0] = byte(len(f.transfers))
	return sig, nil
}
