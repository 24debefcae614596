package signer

import (
	"context"
	"strconv"

	"github.com/ggonzalez94/transfer-cli/internal/tx"
)

// Manual completes the skeleton from operator-supplied values but produces no
// signature: the encoded unsigned transaction is displayed for signing
// elsewhere, and submission is skipped.
type Manual struct {
	Deps Deps

	SuppliedPublicKey string
	SuppliedNonce     string
	SuppliedBlockHash string
}

func NewManual(deps Deps, publicKey, nonce, blockHash string) *Manual {
	return &Manual{
		Deps:              deps,
		SuppliedPublicKey: publicKey,
		SuppliedNonce:     nonce,
		SuppliedBlockHash: blockHash,
	}
}

func (s *Manual) Tag() string { return "manual" }

func (s *Manual) Label() string {
	return "No, I want to construct the transaction and sign it somewhere else"
}

func (s *Manual) Resolve(ctx context.Context, env Env, unsigned tx.Transaction) (tx.Transaction, error) {
	publicKey, err := s.Deps.resolvePublicKey(s.SuppliedPublicKey)
	if err != nil {
		return tx.Transaction{}, err
	}
	nonce, err := s.Deps.resolveNonce(s.SuppliedNonce, publicKey)
	if err != nil {
		return tx.Transaction{}, err
	}
	blockHash, err := s.Deps.resolveBlockHash(s.SuppliedBlockHash)
	if err != nil {
		return tx.Transaction{}, err
	}

	unsigned.PublicKey = publicKey.Bytes()
	unsigned.Nonce = nonce
	unsigned.BlockHash = blockHash
	s.Deps.Trail.Append(
		"--signer-public-key", publicKey.String(),
		"--nonce", strconv.FormatUint(nonce, 10),
		"--block-hash", blockHash.String(),
	)
	return unsigned, nil
}

func (s *Manual) Sign(ctx context.Context, completed tx.Transaction) (*tx.Signed, error) {
	return nil, nil
}

var _ Strategy = (*Manual)(nil)
