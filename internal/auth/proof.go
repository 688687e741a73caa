package auth

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
)

// Proof is a wallet's claim over a server-issued nonce: the wallet signs the
// nonce with its ed25519 key. The wallet address is the base58 encoding of
// that public key, so no separate key registration exists.
type Proof struct {
	Nonce     string `json:"nonce"`
	Signature string `json:"signature"` // base58
}

// VerifyProof checks the signature over the nonce against the address's key.
func VerifyProof(address string, proof Proof) error {
	pub, err := base58.Decode(address)
	if err != nil {
		return fmt.Errorf("invalid wallet address: %w", err)
	}
	if len(pub) != ed25519.PublicKeySize {
		return fmt.Errorf("invalid wallet address: %d bytes, want %d", len(pub), ed25519.PublicKeySize)
	}

	sig, err := base58.Decode(proof.Signature)
	if err != nil {
		return fmt.Errorf("invalid signature encoding: %w", err)
	}
	if len(sig) != ed25519.SignatureSize {
		return fmt.Errorf("invalid signature: %d bytes, want %d", len(sig), ed25519.SignatureSize)
	}

	if !ed25519.Verify(ed25519.PublicKey(pub), []byte(proof.Nonce), sig) {
		return fmt.Errorf("signature does not match wallet address")
	}
	return nil
}
