package dto

import "github.com/gorsocial/backend/internal/models"

type NonceResponse struct {
	Nonce string `json:"nonce"`
}

type TokenResponse struct {
	Token         string `json:"token"`
	WalletAddress string `json:"wallet_address"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type UploadResponse struct {
	URL string `json:"url"`
}

// SettlementResponse reports the terminal state of a money-moving
// request together with the updated wallet snapshot, so clients can
// reconcile their optimistic state immediately.
type SettlementResponse struct {
	Settlement *models.Settlement `json:"settlement"`
	Wallet     *models.Wallet     `json:"wallet,omitempty"`
}
