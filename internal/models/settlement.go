package models

import (
	"time"

	"github.com/google/uuid"
)

// Settlement operations
const (
	SettlementOpTip        = "tip"
	SettlementOpBuyTicket  = "buy_ticket"
	SettlementOpSellTicket = "sell_ticket"
)

// Settlement statuses
const (
	SettlementStatusInit       = "init"
	SettlementStatusPrechecked = "prechecked"
	SettlementStatusSubmitted  = "submitted"
	SettlementStatusConfirmed  = "confirmed"
	SettlementStatusMirrored   = "mirrored"
	SettlementStatusNotified   = "notified"
	SettlementStatusDone       = "done"
	SettlementStatusAborted    = "aborted" // precondition failure or ledger rejection, no mirror delta
	SettlementStatusStuck      = "stuck"   // value already moved but the mirror update is incomplete, no automated recovery
)

// Valid state transitions: from -> []to
var ValidSettlementTransitions = map[string][]string{
	SettlementStatusInit:       {SettlementStatusPrechecked, SettlementStatusAborted},
	SettlementStatusPrechecked: {SettlementStatusSubmitted, SettlementStatusMirrored, SettlementStatusAborted, SettlementStatusStuck},
	SettlementStatusSubmitted:  {SettlementStatusConfirmed, SettlementStatusAborted, SettlementStatusStuck},
	SettlementStatusConfirmed:  {SettlementStatusMirrored, SettlementStatusStuck},
	SettlementStatusMirrored:   {SettlementStatusNotified, SettlementStatusDone},
	SettlementStatusNotified:   {SettlementStatusDone},
	SettlementStatusDone:       {},
	SettlementStatusAborted:    {},
	SettlementStatusStuck:      {},
}

// IsValidSettlementTransition reports whether a settlement attempt may move
// from one status to another. sell_ticket skips the ledger leg, which is why
// prechecked -> mirrored is legal, and why prechecked -> stuck is: a sell
// that fails between its mirror writes has already mutated state.
func IsValidSettlementTransition(from, to string) bool {
	allowed, ok := ValidSettlementTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminalSettlementStatus reports whether no further transition exists.
func IsTerminalSettlementStatus(status string) bool {
	allowed, ok := ValidSettlementTransitions[status]
	return ok && len(allowed) == 0
}

// Settlement is one persisted settlement attempt.
type Settlement struct {
	ID              uuid.UUID `json:"id"`
	Operation       string    `json:"operation"`
	SenderAddress   string    `json:"sender_address"`
	TargetAddress   string    `json:"target_address"`
	Amount          int64     `json:"amount"`
	Status          string    `json:"status"`
	LedgerSignature *string   `json:"ledger_signature,omitempty"`
	FailureReason   *string   `json:"failure_reason,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
