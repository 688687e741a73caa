package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification types
const (
	NotificationComment   = "comment"
	NotificationRepost    = "repost"
	NotificationFollow    = "follow"
	NotificationTip       = "tip"
	NotificationTicketBuy = "ticket_buy"
)

type Notification struct {
	ID               uuid.UUID  `json:"id"`
	RecipientAddress string     `json:"recipient_address"`
	SenderAddress    string     `json:"sender_address"`
	Type             string     `json:"type"`
	Message          string     `json:"message"`
	PostID           *uuid.UUID `json:"post_id,omitempty"`
	Read             bool       `json:"read"`
	CreatedAt        time.Time  `json:"created_at"`
}

func IsValidNotificationType(t string) bool {
	switch t {
	case NotificationComment, NotificationRepost, NotificationFollow,
		NotificationTip, NotificationTicketBuy:
		return true
	}
	return false
}
