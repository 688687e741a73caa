package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/gorsocial/backend/internal/models"
)

// Store interfaces over the mirror gateway. Satisfied by the repositories
// package; narrowed here so services can be exercised against in-memory
// implementations.

type ProfileStore interface {
	Get(ctx context.Context, address string) (*models.Profile, error)
	Ensure(ctx context.Context, address string) (*models.Profile, error)
	UpdateInfo(ctx context.Context, address, username, bio string) error
	AddFollowing(ctx context.Context, address, target string) (bool, error)
	RemoveFollowing(ctx context.Context, address, target string) (bool, error)
	AddFollower(ctx context.Context, address, target string) (bool, error)
	RemoveFollower(ctx context.Context, address, target string) (bool, error)
	AddBlocked(ctx context.Context, address, target string) (bool, error)
	RemoveBlocked(ctx context.Context, address, target string) (bool, error)
	AdjustTicketsEarned(ctx context.Context, address string, delta int) error
}

type WalletStore interface {
	Get(ctx context.Context, address string) (*models.Wallet, error)
	Ensure(ctx context.Context, address string) (*models.Wallet, error)
	Credit(ctx context.Context, address string, amount int64) error
	DebitConditional(ctx context.Context, address string, observedBalance, amount int64) error
	ReplaceHoldingsConditional(ctx context.Context, address string, observed, next []models.TicketHolding) error
}

type PostStore interface {
	Create(ctx context.Context, p *models.Post) error
	Get(ctx context.Context, id uuid.UUID) (*models.Post, error)
	List(ctx context.Context, limit int) ([]models.Post, error)
	ListByAuthor(ctx context.Context, author string, limit int) ([]models.Post, error)
	Like(ctx context.Context, id uuid.UUID, address string) (bool, error)
	Unlike(ctx context.Context, id uuid.UUID, address string) (bool, error)
	Repost(ctx context.Context, id uuid.UUID, address string) (bool, error)
	Unrepost(ctx context.Context, id uuid.UUID, address string) (bool, error)
	IncrementComments(ctx context.Context, id uuid.UUID) error
	PropagateUsername(ctx context.Context, author, username string) error
}

type CommentStore interface {
	Create(ctx context.Context, c *models.Comment) error
	ListByPost(ctx context.Context, postID uuid.UUID) ([]models.Comment, error)
}

type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByRecipient(ctx context.Context, recipient string, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID, recipient string) error
}

type SettlementStore interface {
	Create(ctx context.Context, s *models.Settlement) error
	Get(ctx context.Context, id uuid.UUID) (*models.Settlement, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to string, ledgerSignature, failureReason *string) error
	ListByStatus(ctx context.Context, status string, limit int) ([]models.Settlement, error)
}

// LedgerClient submits a value transfer and blocks until confirmation.
type LedgerClient interface {
	Transfer(ctx context.Context, dest string, amount uint64) (solana.Signature, error)
}

// ValidationError rejects an action before any I/O toward the ledger.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a precondition failure the user can fix.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
