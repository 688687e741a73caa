package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// Error codes for failed transfers.
const (
	CodeRejected = "rejected" // signing declined, submission failed, or on-chain error
	CodeTimeout  = "timeout"  // confirmation not observed within the polling window
)

type LedgerError struct {
	Code string
	Err  error
}

func (e *LedgerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ledger %s: %v", e.Code, e.Err)
	}
	return "ledger " + e.Code
}

func (e *LedgerError) Unwrap() error { return e.Err }

// IsTimeout reports whether err is a LedgerError with the timeout code.
func IsTimeout(err error) bool {
	var le *LedgerError
	return errors.As(err, &le) && le.Code == CodeTimeout
}

type Config struct {
	RPCURL      string
	Mint        string // token mint, base58
	SignerKey   string // holder/fee-payer private key, base58
	ConfirmWait time.Duration
	PollEvery   time.Duration
	Logger      *zap.Logger
}

func (cfg *Config) Validate() error {
	if cfg.RPCURL == "" {
		return errors.New("ledger RPC URL is required")
	}
	if cfg.Mint == "" {
		return errors.New("token mint is required")
	}
	if cfg.SignerKey == "" {
		return errors.New("signer key is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Client submits SPL token transfers and waits for confirmation.
type Client struct {
	rpc         *rpc.Client
	mint        solana.PublicKey
	signer      solana.PrivateKey
	owner       solana.PublicKey
	confirmWait time.Duration
	pollEvery   time.Duration
	log         *zap.Logger

	// The holder's signing capability is a single-owner resource: only one
	// instruction may be in the act of being signed and submitted at a time.
	signMu sync.Mutex
}

func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("ledger config: %w", err)
	}

	mint, err := solana.PublicKeyFromBase58(cfg.Mint)
	if err != nil {
		return nil, fmt.Errorf("invalid mint address: %w", err)
	}
	signer, err := solana.PrivateKeyFromBase58(cfg.SignerKey)
	if err != nil {
		return nil, fmt.Errorf("invalid signer key: %w", err)
	}

	confirmWait := cfg.ConfirmWait
	if confirmWait <= 0 {
		confirmWait = 45 * time.Second
	}
	pollEvery := cfg.PollEvery
	if pollEvery <= 0 {
		pollEvery = 1500 * time.Millisecond
	}

	return &Client{
		rpc:         rpc.New(cfg.RPCURL),
		mint:        mint,
		signer:      signer,
		owner:       signer.PublicKey(),
		confirmWait: confirmWait,
		pollEvery:   pollEvery,
		log:         cfg.Logger,
	}, nil
}

// Owner returns the holder identity transfers are sent from.
func (c *Client) Owner() string {
	return c.owner.String()
}

// Transfer moves amount token units from the holder to dest and blocks until
// the network reports the transaction processed. The call can take seconds;
// run it off any latency-sensitive path.
func (c *Client) Transfer(ctx context.Context, dest string, amount uint64) (solana.Signature, error) {
	destOwner, err := solana.PublicKeyFromBase58(dest)
	if err != nil {
		return solana.Signature{}, &LedgerError{Code: CodeRejected, Err: fmt.Errorf("invalid destination address: %w", err)}
	}

	sourceATA, _, err := solana.FindAssociatedTokenAddress(c.owner, c.mint)
	if err != nil {
		return solana.Signature{}, &LedgerError{Code: CodeRejected, Err: fmt.Errorf("derive source token account: %w", err)}
	}
	destATA, _, err := solana.FindAssociatedTokenAddress(destOwner, c.mint)
	if err != nil {
		return solana.Signature{}, &LedgerError{Code: CodeRejected, Err: fmt.Errorf("derive destination token account: %w", err)}
	}

	sig, err := c.signAndSubmit(ctx, sourceATA, destATA, amount)
	if err != nil {
		return solana.Signature{}, err
	}

	c.log.Info("ledger transfer submitted",
		zap.String("signature", sig.String()),
		zap.String("dest", dest),
		zap.Uint64("amount", amount),
	)

	if err := c.awaitConfirmation(ctx, sig); err != nil {
		return sig, err
	}
	return sig, nil
}

func (c *Client) signAndSubmit(ctx context.Context, source, dest solana.PublicKey, amount uint64) (solana.Signature, error) {
	c.signMu.Lock()
	defer c.signMu.Unlock()

	recent, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Signature{}, &LedgerError{Code: CodeRejected, Err: fmt.Errorf("get latest blockhash: %w", err)}
	}

	inst := token.NewTransferInstruction(amount, source, dest, c.owner, nil).Build()

	tx, err := solana.NewTransaction(
		[]solana.Instruction{inst},
		recent.Value.Blockhash,
		solana.TransactionPayer(c.owner),
	)
	if err != nil {
		return solana.Signature{}, &LedgerError{Code: CodeRejected, Err: fmt.Errorf("build transaction: %w", err)}
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(c.owner) {
			return &c.signer
		}
		return nil
	})
	if err != nil {
		return solana.Signature{}, &LedgerError{Code: CodeRejected, Err: fmt.Errorf("sign transaction: %w", err)}
	}

	sig, err := c.rpc.SendTransaction(ctx, tx)
	if err != nil {
		return solana.Signature{}, &LedgerError{Code: CodeRejected, Err: fmt.Errorf("send transaction: %w", err)}
	}
	return sig, nil
}

func (c *Client) awaitConfirmation(ctx context.Context, sig solana.Signature) error {
	deadline := time.Now().Add(c.confirmWait)
	ticker := time.NewTicker(c.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return &LedgerError{Code: CodeTimeout, Err: ctx.Err()}
		case <-ticker.C:
		}

		out, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
		if err != nil {
			c.log.Debug("signature status poll failed", zap.Error(err))
		} else if len(out.Value) > 0 && out.Value[0] != nil {
			st := out.Value[0]
			if st.Err != nil {
				return &LedgerError{Code: CodeRejected, Err: fmt.Errorf("transaction failed on chain: %v", st.Err)}
			}
			switch st.ConfirmationStatus {
			case rpc.ConfirmationStatusProcessed, rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
				return nil
			}
		}

		if time.Now().After(deadline) {
			return &LedgerError{Code: CodeTimeout, Err: fmt.Errorf("no confirmation for %s within %s", sig, c.confirmWait)}
		}
	}
}
