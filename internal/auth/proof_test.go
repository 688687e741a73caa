package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/mr-tron/base58"
)

func signedProof(t *testing.T, nonce string) (string, Proof) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	sig := ed25519.Sign(priv, []byte(nonce))
	return base58.Encode(pub), Proof{Nonce: nonce, Signature: base58.Encode(sig)}
}

func TestVerifyProof(t *testing.T) {
	address, proof := signedProof(t, "nonce-123")

	if err := VerifyProof(address, proof); err != nil {
		t.Fatalf("valid proof rejected: %v", err)
	}
}

func TestVerifyProofRejectsTamperedNonce(t *testing.T) {
	address, proof := signedProof(t, "nonce-123")
	proof.Nonce = "nonce-456"

	if err := VerifyProof(address, proof); err == nil {
		t.Fatal("tampered nonce accepted")
	}
}

func TestVerifyProofRejectsWrongKey(t *testing.T) {
	_, proof := signedProof(t, "nonce-123")
	otherAddress, _ := signedProof(t, "nonce-123")

	if err := VerifyProof(otherAddress, proof); err == nil {
		t.Fatal("signature from a different key accepted")
	}
}

func TestVerifyProofRejectsGarbage(t *testing.T) {
	address, proof := signedProof(t, "nonce-123")

	tests := []struct {
		name    string
		address string
		proof   Proof
	}{
		{"bad address encoding", "not-base58-0OIl", proof},
		{"short address", base58.Encode([]byte{1, 2, 3}), proof},
		{"bad signature encoding", address, Proof{Nonce: proof.Nonce, Signature: "0OIl"}},
		{"short signature", address, Proof{Nonce: proof.Nonce, Signature: base58.Encode([]byte{1})}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := VerifyProof(tt.address, tt.proof); err == nil {
				t.Error("garbage input accepted")
			}
		})
	}
}

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWT("secret", "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	claims, err := ParseJWT("secret", token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.WalletAddress != "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM" {
		t.Errorf("wallet address = %q", claims.WalletAddress)
	}

	if _, err := ParseJWT("wrong-secret", token); err == nil {
		t.Error("token accepted with the wrong secret")
	}
}
