package models

import "time"

// Wallet mirrors the application-level accounting for a wallet address.
// GorBalance is an off-chain unit count maintained by the settlement layer;
// it is not the on-chain account balance.
type Wallet struct {
	WalletAddress  string          `json:"wallet_address"`
	GorBalance     int64           `json:"gor_balance"` // never negative
	TicketsHolding []TicketHolding `json:"tickets_holding"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// TicketHolding is one entry in a wallet's holding list. Entries with a zero
// count are removed, never stored.
type TicketHolding struct {
	WalletAddress string `json:"wallet_address"` // profile the ticket grants access to
	Count         int    `json:"count"`
	Username      string `json:"username"` // denormalized at buy time
}

// Holding returns the entry for target, or nil.
func (w *Wallet) Holding(target string) *TicketHolding {
	for i := range w.TicketsHolding {
		if w.TicketsHolding[i].WalletAddress == target {
			return &w.TicketsHolding[i]
		}
	}
	return nil
}
