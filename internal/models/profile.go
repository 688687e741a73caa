package models

import "time"

// Profile is the social identity for a wallet address. Profiles are created
// lazily on first observed activity and never deleted.
type Profile struct {
	WalletAddress string    `json:"wallet_address"`
	Username      string    `json:"username"`
	Bio           string    `json:"bio"`
	Followers     []string  `json:"followers"`
	Following     []string  `json:"following"`
	BlockedUsers  []string  `json:"blocked_users"`
	TicketsEarned int       `json:"tickets_earned"` // never negative
	CreatedAt     time.Time `json:"created_at"`
}

// DefaultUsername derives the generated display name for a fresh profile.
func DefaultUsername(address string) string {
	if len(address) > 8 {
		return "gor_" + address[:8]
	}
	return "gor_" + address
}

func (p *Profile) IsFollowing(address string) bool {
	return contains(p.Following, address)
}

func (p *Profile) HasBlocked(address string) bool {
	return contains(p.BlockedUsers, address)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
