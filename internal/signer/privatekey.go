package signer

import (
	"context"
	"strconv"

	clierr "github.com/ggonzalez94/transfer-cli/internal/errors"
	"github.com/ggonzalez94/transfer-cli/internal/keys"
	"github.com/ggonzalez94/transfer-cli/internal/prompt"
	"github.com/ggonzalez94/transfer-cli/internal/tx"
)

// PrivateKey signs with key material supplied directly by the operator.
// Nonce and block hash are likewise supplied, never fetched, so the strategy
// works fully offline.
type PrivateKey struct {
	Deps Deps

	SuppliedPublicKey  string
	SuppliedPrivateKey string
	SuppliedNonce      string
	SuppliedBlockHash  string

	pair keys.KeyPair
}

func NewPrivateKey(deps Deps, publicKey, privateKey, nonce, blockHash string) *PrivateKey {
	return &PrivateKey{
		Deps:               deps,
		SuppliedPublicKey:  publicKey,
		SuppliedPrivateKey: privateKey,
		SuppliedNonce:      nonce,
		SuppliedBlockHash:  blockHash,
	}
}

func (s *PrivateKey) Tag() string { return "private-key" }

func (s *PrivateKey) Label() string {
	return "Yes, I want to sign the transaction with my private key"
}

func (s *PrivateKey) Resolve(ctx context.Context, env Env, unsigned tx.Transaction) (tx.Transaction, error) {
	publicKey, err := s.Deps.resolvePublicKey(s.SuppliedPublicKey)
	if err != nil {
		return tx.Transaction{}, err
	}

	pair, err := prompt.ResolveSecret(s.Deps.Prompter, s.Deps.Out, s.SuppliedPrivateKey,
		"Enter sender's private key",
		func(input string) (keys.KeyPair, error) {
			candidate, parseErr := keys.ParseSecretKey(input)
			if parseErr != nil {
				return keys.KeyPair{}, parseErr
			}
			if candidate.Public.String() != publicKey.String() {
				return keys.KeyPair{}, clierr.New(clierr.CodeBadKey, "private key does not match the supplied public key")
			}
			return candidate, nil
		})
	if err != nil {
		return tx.Transaction{}, err
	}
	s.pair = pair

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
		"--signer-private-key", pair.SecretString(),
		"--nonce", strconv.FormatUint(nonce, 10),
		"--block-hash", blockHash.String(),
	)
	return unsigned, nil
}

func (s *PrivateKey) Sign(ctx context.Context, completed tx.Transaction) (*tx.Signed, error) {
	hash, err := completed.Hash()
	if err != nil {
		return nil, err
	}
	sig := s.pair.Sign(hash[:])
	return &tx.Signed{Transaction: completed, Signature: sig.Bytes()}, nil
}

var _ Strategy = (*PrivateKey)(nil)
