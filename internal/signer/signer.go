// Package signer implements the closed set of transaction signing strategies.
package signer

import (
	"context"

	"github.com/ggonzalez94/transfer-cli/internal/prompt"
	"github.com/ggonzalez94/transfer-cli/internal/tx"
)

// ChainReader is the live network surface a strategy may need to complete the
// skeleton. It is nil in offline mode.
type ChainReader interface {
	AccessKeyNonce(ctx context.Context, accountID, publicKey string) (uint64, error)
	LatestBlockHash(ctx context.Context) (tx.BlockHash, error)
}

// Env carries the run's resolved network state into a strategy.
type Env struct {
	Chain      ChainReader // nil when offline
	NetworkTag string      // empty when offline
}

// Strategy is one signing option. Resolve fills in the strategy-supplied
// skeleton fields (public key, nonce, recent block hash), prompting or
// reading flags as needed; Sign then produces the signed transaction.
// A nil Signed from Sign means no signature is produced and submission is
// skipped (the manual path).
type Strategy interface {
	Tag() string
	Label() string
	Resolve(ctx context.Context, env Env, unsigned tx.Transaction) (tx.Transaction, error)
	Sign(ctx context.Context, completed tx.Transaction) (*tx.Signed, error)
}

// Options renders the strategy menu in declared order.
func Options(strategies []Strategy) []prompt.Option {
	out := make([]prompt.Option, 0, len(strategies))
	for _, s := range strategies {
		out = append(out, prompt.Option{Tag: s.Tag(), Label: s.Label()})
	}
	return out
}
