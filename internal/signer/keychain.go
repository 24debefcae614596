package signer

import (
	"context"

	clierr "github.com/ggonzalez94/transfer-cli/internal/errors"
	"github.com/ggonzalez94/transfer-cli/internal/keys"
	"github.com/ggonzalez94/transfer-cli/internal/rpc"
	"github.com/ggonzalez94/transfer-cli/internal/tx"
)

// KeyLookup is the credential-store read surface the keychain strategy uses.
type KeyLookup interface {
	Get(accountID, network string) (keys.KeyPair, error)
}

// Keychain signs with a key held in the machine-local keystore, looked up by
// sender account and network. Nonce and block hash are fetched live, so this
// strategy requires an endpoint.
type Keychain struct {
	Deps Deps
	// OpenStore is called once during Resolve; the store is opened lazily so
	// offline and non-keychain runs never touch it.
	OpenStore func() (KeyLookup, error)

	pair keys.KeyPair
}

func NewKeychain(deps Deps, openStore func() (KeyLookup, error)) *Keychain {
	return &Keychain{Deps: deps, OpenStore: openStore}
}

func (s *Keychain) Tag() string { return "keychain" }

func (s *Keychain) Label() string {
	return "Yes, I want to sign the transaction with keychain"
}

func (s *Keychain) Resolve(ctx context.Context, env Env, unsigned tx.Transaction) (tx.Transaction, error) {
	if env.Chain == nil {
		return tx.Transaction{}, clierr.New(clierr.CodeUsage, "keychain signing needs a network connection; it is not available in offline mode")
	}

	store, err := s.OpenStore()
	if err != nil {
		return tx.Transaction{}, err
	}
	pair, err := store.Get(unsigned.SignerID, env.NetworkTag)
	if err != nil {
		return tx.Transaction{}, err
	}
	s.pair = pair

	nonce, err := env.Chain.AccessKeyNonce(ctx, unsigned.SignerID, pair.Public.String())
	if err != nil {
		return tx.Transaction{}, rpc.Unavailable("fetch access key nonce", err)
	}
	blockHash, err := env.Chain.LatestBlockHash(ctx)
	if err != nil {
		return tx.Transaction{}, rpc.Unavailable("fetch recent block hash", err)
	}

	unsigned.PublicKey = pair.Public.Bytes()
	unsigned.Nonce = nonce + 1
	unsigned.BlockHash = blockHash
	return unsigned, nil
}

func (s *Keychain) Sign(ctx context.Context, completed tx.Transaction) (*tx.Signed, error) {
	hash, err := completed.Hash()
	if err != nil {
		return nil, err
	}
	sig := s.pair.Sign(hash[:])
	return &tx.Signed{Transaction: completed, Signature: sig.Bytes()}, nil
}

var _ Strategy = (*Keychain)(nil)
