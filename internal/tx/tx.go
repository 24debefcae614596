package tx

import (
	"crypto/sha256"
	"encoding/base64"
	"math/big"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/ethereum/go-ethereum/rlp"

	clierr "github.com/ggonzalez94/transfer-cli/internal/errors"
)

// BlockHash is a recent block hash in its 32-byte wire form. The text form is
// base58, as printed by RPC servers.
type BlockHash [32]byte

func (h BlockHash) String() string { return base58.Encode(h[:]) }

func (h BlockHash) IsZero() bool { return h == BlockHash{} }

func ParseBlockHash(input string) (BlockHash, error) {
	norm := strings.TrimSpace(input)
	if norm == "" {
		return BlockHash{}, clierr.New(clierr.CodeUsage, "empty block hash")
	}
	raw := base58.Decode(norm)
	if len(raw) != len(BlockHash{}) {
		return BlockHash{}, clierr.New(clierr.CodeUsage, "block hash must be 32 base58-encoded bytes")
	}
	var out BlockHash
	copy(out[:], raw)
	return out, nil
}

// TransferAction moves Deposit base units from signer to receiver.
type TransferAction struct {
	Deposit *big.Int
}

// Action is the closed action set. Exactly one variant is non-nil.
type Action struct {
	Transfer *TransferAction `rlp:"nil"`
}

// Transaction is the unsigned skeleton filled in stage order: SignerID by the
// sender stage, ReceiverID by the receiver stage, Actions by the amount stage.
// PublicKey, Nonce and BlockHash are supplied by the signing strategy.
type Transaction struct {
	SignerID   string
	PublicKey  []byte
	Nonce      uint64
	ReceiverID string
	BlockHash  BlockHash
	Actions    []Action
}

// AppendTransfer returns a copy of the skeleton with one Transfer action added.
func (t Transaction) AppendTransfer(deposit *big.Int) Transaction {
	actions := make([]Action, 0, len(t.Actions)+1)
	actions = append(actions, t.Actions...)
	actions = append(actions, Action{Transfer: &TransferAction{Deposit: new(big.Int).Set(deposit)}})
	t.Actions = actions
	return t
}

// ReadyToSign checks the invariant required before a signing strategy may
// consume the skeleton.
func (t Transaction) ReadyToSign() error {
	if strings.TrimSpace(t.SignerID) == "" {
		return clierr.New(clierr.CodeInternal, "transaction has no signer")
	}
	if strings.TrimSpace(t.ReceiverID) == "" {
		return clierr.New(clierr.CodeInternal, "transaction has no receiver")
	}
	if len(t.Actions) == 0 {
		return clierr.New(clierr.CodeInternal, "transaction has no actions")
	}
	return nil
}

func (t Transaction) Serialize() ([]byte, error) {
	buf, err := rlp.EncodeToBytes(t)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "serialize transaction", err)
	}
	return buf, nil
}

// Hash is the digest a signing strategy signs.
func (t Transaction) Hash() ([32]byte, error) {
	buf, err := t.Serialize()
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(buf), nil
}

func (t Transaction) Base64() (string, error) {
	buf, err := t.Serialize()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// Signed pairs the completed skeleton with its signature bytes.
type Signed struct {
	Transaction Transaction
	Signature   []byte
}

func (s Signed) Serialize() ([]byte, error) {
	buf, err := rlp.EncodeToBytes(s)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "serialize signed transaction", err)
	}
	return buf, nil
}

func (s Signed) Base64() (string, error) {
	buf, err := s.Serialize()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}
