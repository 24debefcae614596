package signer

import (
	"bytes"
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/ggonzalez94/transfer-cli/internal/device"
	"github.com/ggonzalez94/transfer-cli/internal/echo"
	clierr "github.com/ggonzalez94/transfer-cli/internal/errors"
	"github.com/ggonzalez94/transfer-cli/internal/keys"
	"github.com/ggonzalez94/transfer-cli/internal/prompt"
	"github.com/ggonzalez94/transfer-cli/internal/tx"
)

type fakeChain struct {
	nonce     uint64
	blockHash tx.BlockHash
}

func (f *fakeChain) AccessKeyNonce(ctx context.Context, accountID, publicKey string) (uint64, error) {
	return f.nonce, nil
}

func (f *fakeChain) LatestBlockHash(ctx context.Context) (tx.BlockHash, error) {
	return f.blockHash, nil
}

type fakeStore struct {
	pair keys.KeyPair
	err  error
}

func (f *fakeStore) Get(accountID, network string) (keys.KeyPair, error) {
	if f.err != nil {
		return keys.KeyPair{}, f.err
	}
	return f.pair, nil
}

type fakeDevice struct {
	pair    keys.KeyPair
	signErr error
}

func (f *fakeDevice) PublicKey(ctx context.Context, hdPath string) (keys.PublicKey, error) {
	return f.pair.Public, nil
}

func (f *fakeDevice) Sign(ctx context.Context, hdPath string, message []byte) (keys.Signature, error) {
	if f.signErr != nil {
		return keys.Signature{}, f.signErr
	}
	return f.pair.Sign(message), nil
}

func testDeps(out *bytes.Buffer, p prompt.Prompter) (Deps, *echo.Trail) {
	trail := &echo.Trail{}
	return Deps{Prompter: p, Out: out, Trail: trail}, trail
}

func testSkeleton() tx.Transaction {
	unsigned := tx.Transaction{SignerID: "alice.testnet", ReceiverID: "bob.testnet"}
	return unsigned.AppendTransfer(big.NewInt(1000))
}

func testBlockHash() tx.BlockHash {
	var h tx.BlockHash
	for i := range h {
		h[i] = byte(i + 1)
	}
	return h
}

func mustGenerate(t *testing.T) keys.KeyPair {
	t.Helper()
	pair, err := keys.Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	return pair
}

func TestPrivateKeySuppliedOffline(t *testing.T) {
	pair := mustGenerate(t)
	out := &bytes.Buffer{}
	deps, trail := testDeps(out, nil)
	blockHash := testBlockHash()
	strategy := NewPrivateKey(deps, pair.Public.String(), pair.SecretString(), "7", blockHash.String())

	completed, err := strategy.Resolve(context.Background(), Env{}, testSkeleton())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if completed.Nonce != 7 || completed.BlockHash != blockHash {
		t.Fatalf("skeleton not completed: nonce=%d hash=%s", completed.Nonce, completed.BlockHash)
	}

	signed, err := strategy.Sign(context.Background(), completed)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	hash, err := completed.Hash()
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	sig, err := keys.SignatureFromBytes(signed.Signature)
	if err != nil {
		t.Fatalf("SignatureFromBytes failed: %v", err)
	}
	if !keys.Verify(pair.Public, hash[:], sig) {
		t.Fatal("signature must verify against the transaction hash")
	}

	tokens := strings.Join(trail.Tokens(), " ")
	for _, flag := range []string{"--signer-public-key", "--signer-private-key", "--nonce 7", "--block-hash"} {
		if !strings.Contains(tokens, flag) {
			t.Fatalf("echo trail missing %q: %s", flag, tokens)
		}
	}
}

func TestPrivateKeyMismatchNonInteractive(t *testing.T) {
	pair := mustGenerate(t)
	other := mustGenerate(t)
	out := &bytes.Buffer{}
	deps, _ := testDeps(out, nil)
	strategy := NewPrivateKey(deps, pair.Public.String(), other.SecretString(), "7", testBlockHash().String())

	_, err := strategy.Resolve(context.Background(), Env{}, testSkeleton())
	if err == nil {
		t.Fatal("mismatched key pair should fail")
	}
	cliErr, ok := clierr.As(err)
	if !ok || cliErr.Code != clierr.CodeBadKey {
		t.Fatalf("expected bad-key error, got %v", err)
	}
}

func TestPrivateKeyRepromptsOnMismatch(t *testing.T) {
	pair := mustGenerate(t)
	other := mustGenerate(t)
	out := &bytes.Buffer{}
	script := &prompt.Script{Answers: []string{pair.SecretString()}}
	deps, _ := testDeps(out, script)
	strategy := NewPrivateKey(deps, pair.Public.String(), other.SecretString(), "7", testBlockHash().String())

	completed, err := strategy.Resolve(context.Background(), Env{}, testSkeleton())
	if err != nil {
		t.Fatalf("Resolve should recover by prompting: %v", err)
	}
	if completed.Nonce != 7 {
		t.Fatalf("unexpected nonce: %d", completed.Nonce)
	}
	if !strings.Contains(out.String(), "does not match") {
		t.Fatalf("mismatch should be reported before re-prompting: %q", out.String())
	}
}

func TestManualProducesNoSignature(t *testing.T) {
	pair := mustGenerate(t)
	out := &bytes.Buffer{}
	deps, trail := testDeps(out, nil)
	strategy := NewManual(deps, pair.Public.String(), "12", testBlockHash().String())

	completed, err := strategy.Resolve(context.Background(), Env{}, testSkeleton())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if completed.Nonce != 12 {
		t.Fatalf("unexpected nonce: %d", completed.Nonce)
	}

	signed, err := strategy.Sign(context.Background(), completed)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if signed != nil {
		t.Fatal("manual strategy must not produce a signature")
	}

	tokens := strings.Join(trail.Tokens(), " ")
	if strings.Contains(tokens, "--signer-private-key") {
		t.Fatalf("manual echo must not carry secrets: %s", tokens)
	}
}

func TestKeychainRequiresEndpoint(t *testing.T) {
	out := &bytes.Buffer{}
	deps, _ := testDeps(out, nil)
	strategy := NewKeychain(deps, func() (KeyLookup, error) {
		t.Fatal("store must not be opened offline")
		return nil, nil
	})

	_, err := strategy.Resolve(context.Background(), Env{}, testSkeleton())
	if err == nil {
		t.Fatal("keychain must fail offline")
	}
	cliErr, ok := clierr.As(err)
	if !ok || cliErr.Code != clierr.CodeUsage {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestKeychainFetchesNonceAndBlockHash(t *testing.T) {
	pair := mustGenerate(t)
	out := &bytes.Buffer{}
	deps, _ := testDeps(out, nil)
	chain := &fakeChain{nonce: 41, blockHash: testBlockHash()}
	strategy := NewKeychain(deps, func() (KeyLookup, error) {
		return &fakeStore{pair: pair}, nil
	})

	completed, err := strategy.Resolve(context.Background(), Env{Chain: chain, NetworkTag: "testnet"}, testSkeleton())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if completed.Nonce != 42 {
		t.Fatalf("nonce should be incremented: %d", completed.Nonce)
	}
	if completed.BlockHash != chain.blockHash {
		t.Fatalf("unexpected block hash: %s", completed.BlockHash)
	}

	signed, err := strategy.Sign(context.Background(), completed)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	hash, _ := completed.Hash()
	sig, err := keys.SignatureFromBytes(signed.Signature)
	if err != nil {
		t.Fatalf("SignatureFromBytes failed: %v", err)
	}
	if !keys.Verify(pair.Public, hash[:], sig) {
		t.Fatal("signature must verify")
	}
}

func TestKeychainMissPropagates(t *testing.T) {
	out := &bytes.Buffer{}
	deps, _ := testDeps(out, nil)
	miss := clierr.New(clierr.CodeKeyNotFound, "no key found")
	strategy := NewKeychain(deps, func() (KeyLookup, error) {
		return &fakeStore{err: miss}, nil
	})

	_, err := strategy.Resolve(context.Background(), Env{Chain: &fakeChain{}, NetworkTag: "testnet"}, testSkeleton())
	cliErr, ok := clierr.As(err)
	if !ok || cliErr.Code != clierr.CodeKeyNotFound {
		t.Fatalf("expected key-not-found, got %v", err)
	}
}

func TestLedgerSignsOnDevice(t *testing.T) {
	pair := mustGenerate(t)
	out := &bytes.Buffer{}
	deps, trail := testDeps(out, nil)
	strategy := NewLedger(deps, device.DefaultHDPath)
	strategy.Open = func(ctx context.Context) (device.Signer, error) {
		return &fakeDevice{pair: pair}, nil
	}
	chain := &fakeChain{nonce: 10, blockHash: testBlockHash()}

	completed, err := strategy.Resolve(context.Background(), Env{Chain: chain, NetworkTag: "testnet"}, testSkeleton())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if completed.Nonce != 11 {
		t.Fatalf("nonce should be incremented: %d", completed.Nonce)
	}

	signed, err := strategy.Sign(context.Background(), completed)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	hash, _ := completed.Hash()
	sig, err := keys.SignatureFromBytes(signed.Signature)
	if err != nil {
		t.Fatalf("SignatureFromBytes failed: %v", err)
	}
	if !keys.Verify(pair.Public, hash[:], sig) {
		t.Fatal("signature must verify")
	}
	if !strings.Contains(out.String(), "Confirm the transaction on your Ledger device") {
		t.Fatalf("confirmation notice missing: %q", out.String())
	}
	if !strings.Contains(strings.Join(trail.Tokens(), " "), "--ledger-path") {
		t.Fatal("echo trail should record the HD path")
	}
}

func TestLedgerRejectionIsFatal(t *testing.T) {
	pair := mustGenerate(t)
	out := &bytes.Buffer{}
	deps, _ := testDeps(out, nil)
	strategy := NewLedger(deps, device.DefaultHDPath)
	strategy.Open = func(ctx context.Context) (device.Signer, error) {
		return &fakeDevice{pair: pair, signErr: device.ErrRejected("operator rejected the request")}, nil
	}
	chain := &fakeChain{nonce: 10, blockHash: testBlockHash()}

	completed, err := strategy.Resolve(context.Background(), Env{Chain: chain, NetworkTag: "testnet"}, testSkeleton())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	_, err = strategy.Sign(context.Background(), completed)
	cliErr, ok := clierr.As(err)
	if !ok || cliErr.Code != clierr.CodeDeviceRejected {
		t.Fatalf("expected device-rejected error, got %v", err)
	}
}

func TestLedgerRequiresEndpoint(t *testing.T) {
	out := &bytes.Buffer{}
	deps, _ := testDeps(out, nil)
	strategy := NewLedger(deps, device.DefaultHDPath)

	_, err := strategy.Resolve(context.Background(), Env{}, testSkeleton())
	cliErr, ok := clierr.As(err)
	if !ok || cliErr.Code != clierr.CodeUsage {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestOptionsOrder(t *testing.T) {
	out := &bytes.Buffer{}
	deps, _ := testDeps(out, nil)
	strategies := []Strategy{
		NewPrivateKey(deps, "", "", "", ""),
		NewKeychain(deps, nil),
		NewLedger(deps, ""),
		NewManual(deps, "", "", ""),
	}
	options := Options(strategies)
	want := []string{"private-key", "keychain", "ledger", "manual"}
	for i, tag := range want {
		if options[i].Tag != tag {
			t.Fatalf("option %d: got %s, want %s", i, options[i].Tag, tag)
		}
	}
}
