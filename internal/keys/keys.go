package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"

	clierr "github.com/ggonzalez94/transfer-cli/internal/errors"
)

const ed25519Prefix = "ed25519:"

// PublicKey is an ed25519 public key with the "ed25519:<base58>" text form.
type PublicKey struct {
	raw []byte
}

func (k PublicKey) Bytes() []byte {
	out := make([]byte, len(k.raw))
	copy(out, k.raw)
	return out
}

func (k PublicKey) IsZero() bool { return len(k.raw) == 0 }

func (k PublicKey) String() string {
	return ed25519Prefix + base58.Encode(k.raw)
}

// ImplicitAccountID derives the hex account id form of the key.
func (k PublicKey) ImplicitAccountID() string {
	return hex.EncodeToString(k.raw)
}

func ParsePublicKey(input string) (PublicKey, error) {
	norm := strings.TrimSpace(input)
	norm = strings.TrimPrefix(norm, ed25519Prefix)
	if norm == "" {
		return PublicKey{}, clierr.New(clierr.CodeBadKey, "empty public key")
	}
	raw := base58.Decode(norm)
	if len(raw) != ed25519.PublicKeySize {
		return PublicKey{}, clierr.New(clierr.CodeBadKey, "public key must be 32 base58-encoded bytes")
	}
	return PublicKey{raw: raw}, nil
}

// Signature is an ed25519 signature with the "ed25519:<base58>" text form.
type Signature struct {
	raw []byte
}

func (s Signature) Bytes() []byte {
	out := make([]byte, len(s.raw))
	copy(out, s.raw)
	return out
}

func (s Signature) String() string {
	return ed25519Prefix + base58.Encode(s.raw)
}

func SignatureFromBytes(raw []byte) (Signature, error) {
	if len(raw) != ed25519.SignatureSize {
		return Signature{}, clierr.New(clierr.CodeBadKey, "signature must be 64 bytes")
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return Signature{raw: out}, nil
}

// KeyPair holds an ed25519 signing key and its public half.
type KeyPair struct {
	Public PublicKey
	secret ed25519.PrivateKey
}

func (p KeyPair) Sign(message []byte) Signature {
	return Signature{raw: ed25519.Sign(p.secret, message)}
}

// SecretString renders the expanded secret key in "ed25519:<base58>" form.
func (p KeyPair) SecretString() string {
	return ed25519Prefix + base58.Encode(p.secret)
}

// ParseSecretKey accepts a 64-byte expanded ed25519 secret key in
// "ed25519:<base58>" form, as printed by SecretString and by key generation.
func ParseSecretKey(input string) (KeyPair, error) {
	norm := strings.TrimSpace(input)
	norm = strings.TrimPrefix(norm, ed25519Prefix)
	if norm == "" {
		return KeyPair{}, clierr.New(clierr.CodeBadKey, "empty private key")
	}
	raw := base58.Decode(norm)
	if len(raw) != ed25519.PrivateKeySize {
		return KeyPair{}, clierr.New(clierr.CodeBadKey, "private key must be 64 base58-encoded bytes")
	}
	secret := ed25519.PrivateKey(raw)
	public := secret.Public().(ed25519.PublicKey)
	return KeyPair{Public: PublicKey{raw: public}, secret: secret}, nil
}

func Generate() (KeyPair, error) {
	public, secret, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, clierr.Wrap(clierr.CodeInternal, "generate key pair", err)
	}
	return KeyPair{Public: PublicKey{raw: public}, secret: secret}, nil
}

func Verify(key PublicKey, message []byte, sig Signature) bool {
	if len(key.raw) != ed25519.PublicKeySize || len(sig.raw) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(key.raw), message, sig.raw)
}

// IsImplicitAccountID reports whether id is the 64-character lowercase hex
// form of a public key. Such accounts are valid before any on-chain state
// exists for them.
func IsImplicitAccountID(id string) bool {
	if len(id) != 64 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		default:
			return false
		}
	}
	return true
}
