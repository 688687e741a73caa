package dto

import "github.com/gorsocial/backend/internal/auth"

type NonceRequest struct {
	WalletAddress string `json:"wallet_address"`
}

type VerifyRequest struct {
	WalletAddress string     `json:"wallet_address"`
	Proof         auth.Proof `json:"proof"`
}

type UpdateProfileRequest struct {
	Username string `json:"username"`
	Bio      string `json:"bio"`
}

type CreatePostRequest struct {
	Content  string  `json:"content"`
	ImageURL *string `json:"image_url,omitempty"`
}

type CreateCommentRequest struct {
	Content string `json:"content"`
}

type TipRequest struct {
	Recipient string `json:"recipient"`
	Amount    int64  `json:"amount"`
}

type TicketRequest struct {
	Target string `json:"target"`
}
