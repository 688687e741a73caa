package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/gorsocial/backend/internal/models"
	"github.com/gorsocial/backend/internal/repositories"
	"go.uber.org/zap"
)

// ticketPrice is the ledger amount of one access ticket, in token units.
const ticketPrice = 1

// SettlementService orchestrates monetary actions: it validates
// preconditions against the authoritative wallet row, drives the ledger
// client, and reconciles confirmed transfers into the mirror. A ledger
// failure aborts with no mirror delta; a mirror failure after confirmation
// leaves the attempt in the stuck status, which is recorded and surfaced but
// has no automated recovery.
type SettlementService struct {
	settlements SettlementStore
	wallets     WalletStore
	profiles    ProfileStore
	ledger      LedgerClient
	notifier    *Notifier
	metrics     *SettlementMetrics
	log         *zap.Logger
}

func NewSettlementService(
	settlements SettlementStore,
	wallets WalletStore,
	profiles ProfileStore,
	ledger LedgerClient,
	notifier *Notifier,
	metrics *SettlementMetrics,
	log *zap.Logger,
) *SettlementService {
	return &SettlementService{
		settlements: settlements,
		wallets:     wallets,
		profiles:    profiles,
		ledger:      ledger,
		notifier:    notifier,
		metrics:     metrics,
		log:         log,
	}
}

// transition validates and records a settlement status change. The row is
// the audit trail of the attempt; a failed bookkeeping write is logged but
// does not interrupt the money flow.
func (s *SettlementService) transition(ctx context.Context, att *models.Settlement, to string, signature, reason *string) {
	if !models.IsValidSettlementTransition(att.Status, to) {
		s.log.Error("illegal settlement transition",
			zap.String("id", att.ID.String()),
			zap.String("from", att.Status), zap.String("to", to))
		return
	}
	if err := s.settlements.UpdateStatus(ctx, att.ID, att.Status, to, signature, reason); err != nil {
		s.log.Warn("failed to record settlement transition",
			zap.String("id", att.ID.String()),
			zap.String("from", att.Status), zap.String("to", to),
			zap.Error(err))
	}
	att.Status = to
	if signature != nil {
		att.LedgerSignature = signature
	}
	if reason != nil {
		att.FailureReason = reason
	}
	if models.IsTerminalSettlementStatus(to) {
		s.metrics.Observe(att.Operation, to)
	}
}

func (s *SettlementService) abort(ctx context.Context, att *models.Settlement, err error) error {
	reason := err.Error()
	s.transition(ctx, att, models.SettlementStatusAborted, nil, &reason)
	return err
}

// markStuck records an attempt whose value already moved (on the ledger, or
// in an earlier mirror write) but whose remaining mirror writes failed.
// Operators reconcile these by hand; see the stuck sweep in cmd/worker.
func (s *SettlementService) markStuck(ctx context.Context, att *models.Settlement, err error) error {
	reason := err.Error()
	s.transition(ctx, att, models.SettlementStatusStuck, nil, &reason)
	s.log.Error("settlement stuck: value moved but mirror update incomplete",
		zap.String("id", att.ID.String()),
		zap.String("operation", att.Operation),
		zap.String("sender", att.SenderAddress),
		zap.String("target", att.TargetAddress),
		zap.Int64("amount", att.Amount),
		zap.Error(err),
	)
	return fmt.Errorf("settlement %s stuck: %w", att.ID, err)
}

func (s *SettlementService) begin(ctx context.Context, operation, sender, target string, amount int64) (*models.Settlement, error) {
	att := &models.Settlement{
		ID:            uuid.New(),
		Operation:     operation,
		SenderAddress: sender,
		TargetAddress: target,
		Amount:        amount,
		Status:        models.SettlementStatusInit,
	}
	if err := s.settlements.Create(ctx, att); err != nil {
		return nil, fmt.Errorf("record settlement attempt: %w", err)
	}
	return att, nil
}

// Tip transfers amount token units from sender to recipient on the ledger,
// then mirrors the movement into both wallets and notifies the recipient.
func (s *SettlementService) Tip(ctx context.Context, sender, recipient string, amount int64) (*models.Settlement, error) {
	att, err := s.begin(ctx, models.SettlementOpTip, sender, recipient, amount)
	if err != nil {
		return nil, err
	}

	// Prechecks happen before any ledger I/O; a failed precheck never
	// submits a transaction.
	if amount <= 0 {
		return att, s.abort(ctx, att, validationErrorf("tip amount must be positive, got %d", amount))
	}
	if recipient == sender {
		return att, s.abort(ctx, att, validationErrorf("cannot tip yourself"))
	}
	wallet, err := s.wallets.Ensure(ctx, sender)
	if err != nil {
		return att, s.abort(ctx, att, fmt.Errorf("read sender wallet: %w", err))
	}
	if wallet.GorBalance < amount {
		return att, s.abort(ctx, att, validationErrorf("insufficient balance: have %d, need %d", wallet.GorBalance, amount))
	}
	s.transition(ctx, att, models.SettlementStatusPrechecked, nil, nil)

	s.transition(ctx, att, models.SettlementStatusSubmitted, nil, nil)
	sig, err := s.ledger.Transfer(ctx, recipient, uint64(amount))
	if err != nil {
		return att, s.abort(ctx, att, fmt.Errorf("ledger transfer: %w", err))
	}
	sigStr := sig.String()
	s.transition(ctx, att, models.SettlementStatusConfirmed, &sigStr, nil)

	// Value has moved on-chain. Any mirror failure from here on is stuck,
	// not aborted.
	if err := s.debitWithRetry(ctx, sender, wallet.GorBalance, amount); err != nil {
		return att, s.markStuck(ctx, att, fmt.Errorf("debit sender mirror balance: %w", err))
	}
	if err := s.wallets.Credit(ctx, recipient, amount); err != nil {
		return att, s.markStuck(ctx, att, fmt.Errorf("credit recipient mirror balance: %w", err))
	}
	s.transition(ctx, att, models.SettlementStatusMirrored, nil, nil)

	s.notifier.Notify(ctx, recipient, sender,
		models.NotificationTip,
		fmt.Sprintf("You received a %d GOR tip", amount), nil)
	s.transition(ctx, att, models.SettlementStatusNotified, nil, nil)

	s.transition(ctx, att, models.SettlementStatusDone, nil, nil)
	s.log.Info("tip settled",
		zap.String("id", att.ID.String()),
		zap.String("sender", sender),
		zap.String("recipient", recipient),
		zap.Int64("amount", amount),
	)
	return att, nil
}

// BuyTicket transfers one ticket-unit to target on the ledger, then mirrors
// the purchase: buyer balance down, buyer holding entry up, target profile's
// tickets_earned up.
func (s *SettlementService) BuyTicket(ctx context.Context, buyer, target string) (*models.Settlement, error) {
	att, err := s.begin(ctx, models.SettlementOpBuyTicket, buyer, target, ticketPrice)
	if err != nil {
		return nil, err
	}

	if target == buyer {
		return att, s.abort(ctx, att, validationErrorf("cannot buy your own ticket"))
	}
	wallet, err := s.wallets.Ensure(ctx, buyer)
	if err != nil {
		return att, s.abort(ctx, att, fmt.Errorf("read buyer wallet: %w", err))
	}
	if wallet.GorBalance < ticketPrice {
		return att, s.abort(ctx, att, validationErrorf("insufficient balance: have %d, need %d", wallet.GorBalance, int64(ticketPrice)))
	}
	s.transition(ctx, att, models.SettlementStatusPrechecked, nil, nil)

	s.transition(ctx, att, models.SettlementStatusSubmitted, nil, nil)
	sig, err := s.ledger.Transfer(ctx, target, ticketPrice)
	if err != nil {
		return att, s.abort(ctx, att, fmt.Errorf("ledger transfer: %w", err))
	}
	sigStr := sig.String()
	s.transition(ctx, att, models.SettlementStatusConfirmed, &sigStr, nil)

	if err := s.debitWithRetry(ctx, buyer, wallet.GorBalance, ticketPrice); err != nil {
		return att, s.markStuck(ctx, att, fmt.Errorf("debit buyer mirror balance: %w", err))
	}

	// Target username is denormalized into the holding entry at buy time.
	targetProfile, err := s.profiles.Ensure(ctx, target)
	if err != nil {
		return att, s.markStuck(ctx, att, fmt.Errorf("read target profile: %w", err))
	}
	next := holdingsWithIncrement(wallet.TicketsHolding, target, targetProfile.Username)
	if err := s.wallets.ReplaceHoldingsConditional(ctx, buyer, wallet.TicketsHolding, next); err != nil {
		return att, s.markStuck(ctx, att, fmt.Errorf("update buyer holdings: %w", err))
	}
	if err := s.profiles.AdjustTicketsEarned(ctx, target, 1); err != nil {
		return att, s.markStuck(ctx, att, fmt.Errorf("increment target tickets_earned: %w", err))
	}
	s.transition(ctx, att, models.SettlementStatusMirrored, nil, nil)

	s.notifier.Notify(ctx, target, buyer,
		models.NotificationTicketBuy,
		fmt.Sprintf("%s bought your ticket", buyer), nil)
	s.transition(ctx, att, models.SettlementStatusNotified, nil, nil)

	s.transition(ctx, att, models.SettlementStatusDone, nil, nil)
	s.log.Info("ticket purchase settled",
		zap.String("id", att.ID.String()),
		zap.String("buyer", buyer),
		zap.String("target", target),
	)
	return att, nil
}

// SellTicket releases one held ticket for target. There is no counter-party
// ledger transaction: the unit is credited straight back to the seller's
// mirrored balance. Selling does not reverse the original on-chain transfer.
func (s *SettlementService) SellTicket(ctx context.Context, seller, target string) (*models.Settlement, error) {
	att, err := s.begin(ctx, models.SettlementOpSellTicket, seller, target, ticketPrice)
	if err != nil {
		return nil, err
	}

	wallet, err := s.wallets.Get(ctx, seller)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return att, s.abort(ctx, att, validationErrorf("no ticket held for %s", target))
		}
		return att, s.abort(ctx, att, fmt.Errorf("read seller wallet: %w", err))
	}
	holding := wallet.Holding(target)
	if holding == nil || holding.Count < 1 {
		return att, s.abort(ctx, att, validationErrorf("no ticket held for %s", target))
	}
	s.transition(ctx, att, models.SettlementStatusPrechecked, nil, nil)

	next := holdingsWithDecrement(wallet.TicketsHolding, target)
	if err := s.wallets.ReplaceHoldingsConditional(ctx, seller, wallet.TicketsHolding, next); err != nil {
		return att, s.abort(ctx, att, fmt.Errorf("update seller holdings: %w", err))
	}
	// The holding is gone from the mirror; a failure past this point is a
	// partial mutation, not a clean abort.
	if err := s.wallets.Credit(ctx, seller, ticketPrice); err != nil {
		return att, s.markStuck(ctx, att, fmt.Errorf("credit seller mirror balance: %w", err))
	}
	if err := s.profiles.AdjustTicketsEarned(ctx, target, -1); err != nil {
		return att, s.markStuck(ctx, att, fmt.Errorf("decrement target tickets_earned: %w", err))
	}
	s.transition(ctx, att, models.SettlementStatusMirrored, nil, nil)

	s.transition(ctx, att, models.SettlementStatusDone, nil, nil)
	s.log.Info("ticket sale settled",
		zap.String("id", att.ID.String()),
		zap.String("seller", seller),
		zap.String("target", target),
	)
	return att, nil
}

// debitWithRetry applies a conditional debit, re-reading the wallet when a
// concurrent writer moved the balance. The condition reduces, not
// eliminates, lost updates under concurrent settlement on the same wallet.
func (s *SettlementService) debitWithRetry(ctx context.Context, address string, observedBalance, amount int64) error {
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		err = s.wallets.DebitConditional(ctx, address, observedBalance, amount)
		if err == nil {
			return nil
		}
		wallet, readErr := s.wallets.Get(ctx, address)
		if readErr != nil {
			return readErr
		}
		observedBalance = wallet.GorBalance
	}
	return err
}

func holdingsWithIncrement(holdings []models.TicketHolding, target, username string) []models.TicketHolding {
	next := make([]models.TicketHolding, 0, len(holdings)+1)
	found := false
	for _, h := range holdings {
		if h.WalletAddress == target {
			h.Count++
			h.Username = username
			found = true
		}
		next = append(next, h)
	}
	if !found {
		next = append(next, models.TicketHolding{WalletAddress: target, Count: 1, Username: username})
	}
	return next
}

// holdingsWithDecrement drops the entry entirely when its count reaches
// zero; zero-count entries are never stored.
func holdingsWithDecrement(holdings []models.TicketHolding, target string) []models.TicketHolding {
	next := make([]models.TicketHolding, 0, len(holdings))
	for _, h := range holdings {
		if h.WalletAddress == target {
			h.Count--
			if h.Count <= 0 {
				continue
			}
		}
		next = append(next, h)
	}
	return next
}

// ListStuck surfaces attempts that confirmed on the ledger but never made it
// into the mirror.
func (s *SettlementService) ListStuck(ctx context.Context, limit int) ([]models.Settlement, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.settlements.ListByStatus(ctx, models.SettlementStatusStuck, limit)
}
