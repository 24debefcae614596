package signer

import (
	"context"
	"fmt"
	"strings"

	"github.com/ggonzalez94/transfer-cli/internal/device"
	clierr "github.com/ggonzalez94/transfer-cli/internal/errors"
	"github.com/ggonzalez94/transfer-cli/internal/prompt"
	"github.com/ggonzalez94/transfer-cli/internal/rpc"
	"github.com/ggonzalez94/transfer-cli/internal/tx"
)

// Ledger signs on an attached hardware device at a caller-chosen derivation
// path. The signature request blocks until the operator confirms or rejects
// on the device; both rejection and disconnect are fatal for the run.
type Ledger struct {
	Deps Deps
	// Open connects to the device; defaults to device.Open.
	Open func(ctx context.Context) (device.Signer, error)

	SuppliedHDPath string

	dev    device.Signer
	hdPath string
}

func NewLedger(deps Deps, hdPath string) *Ledger {
	return &Ledger{Deps: deps, Open: device.Open, SuppliedHDPath: hdPath}
}

func (s *Ledger) Tag() string { return "ledger" }

func (s *Ledger) Label() string {
	return "Yes, I want to sign the transaction with Ledger device"
}

func (s *Ledger) Resolve(ctx context.Context, env Env, unsigned tx.Transaction) (tx.Transaction, error) {
	if env.Chain == nil {
		return tx.Transaction{}, clierr.New(clierr.CodeUsage, "Ledger signing needs a network connection; it is not available in offline mode")
	}

	hdPath, err := prompt.Resolve(s.Deps.Prompter, s.Deps.Out, s.SuppliedHDPath,
		"Enter seed phrase HD path", device.DefaultHDPath,
		func(input string) (string, error) {
			norm := strings.TrimSpace(input)
			if norm == "" {
				return "", clierr.New(clierr.CodeUsage, "HD path is empty")
			}
			return norm, nil
		})
	if err != nil {
		return tx.Transaction{}, err
	}
	s.hdPath = hdPath

	dev, err := s.Open(ctx)
	if err != nil {
		return tx.Transaction{}, err
	}
	s.dev = dev

	publicKey, err := dev.PublicKey(ctx, hdPath)
	if err != nil {
		return tx.Transaction{}, err
	}

	nonce, err := env.Chain.AccessKeyNonce(ctx, unsigned.SignerID, publicKey.String())
	if err != nil {
		return tx.Transaction{}, rpc.Unavailable("fetch access key nonce", err)
	}
	blockHash, err := env.Chain.LatestBlockHash(ctx)
	if err != nil {
		return tx.Transaction{}, rpc.Unavailable("fetch recent block hash", err)
	}

	unsigned.PublicKey = publicKey.Bytes()
	unsigned.Nonce = nonce + 1
	unsigned.BlockHash = blockHash
	s.Deps.Trail.Append("--ledger-path", hdPath)
	return unsigned, nil
}

func (s *Ledger) Sign(ctx context.Context, completed tx.Transaction) (*tx.Signed, error) {
	hash, err := completed.Hash()
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(s.Deps.Out, "Confirm the transaction on your Ledger device ...")
	sig, err := s.dev.Sign(ctx, s.hdPath, hash[:])
	if err != nil {
		return nil, err
	}
	return &tx.Signed{Transaction: completed, Signature: sig.Bytes()}, nil
}

var _ Strategy = (*Ledger)(nil)
