package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net"
	"net/http"
	"strings"
	"time"

	clierr "github.com/ggonzalez94/transfer-cli/internal/errors"
	"github.com/ggonzalez94/transfer-cli/internal/tx"
	"github.com/ggonzalez94/transfer-cli/internal/version"
)

// Error is a transport or protocol failure from the RPC server. Timeout
// errors are the one class the submission engine retries.
type Error struct {
	Timeout bool
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func IsTimeout(err error) bool {
	var rpcErr *Error
	return errors.As(err, &rpcErr) && rpcErr.Timeout
}

// Client is a minimal JSON-RPC 2.0 client. All calls are blocking and carry a
// per-attempt timeout from the underlying HTTP client; the pipeline makes at
// most one call at a time.
type Client struct {
	httpClient *http.Client
	url        string
	userAgent  string
}

func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
		userAgent:  version.CLIName + "-cli/" + version.CLIVersion,
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params any, result any) error {
	payload, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: "transfer-cli", Method: method, Params: params})
	if err != nil {
		return &Error{Message: "encode RPC request", Cause: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return &Error{Message: "build RPC request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Timeout: isNetTimeout(err), Message: "RPC request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Message: "read RPC response", Cause: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{
			Timeout: resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusGatewayTimeout,
			Message: fmt.Sprintf("RPC server returned status %d", resp.StatusCode),
		}
	}

	var envelope rpcResponse
	if err := json.Unmarshal(buf, &envelope); err != nil {
		return &Error{Message: "decode RPC response", Cause: err}
	}
	if envelope.Error != nil {
		return &Error{
			Timeout: strings.Contains(string(envelope.Error.Data), "Timeout"),
			Message: fmt.Sprintf("RPC error: %s %s", envelope.Error.Message, strings.TrimSpace(string(envelope.Error.Data))),
		}
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, result); err != nil {
		return &Error{Message: "decode RPC result", Cause: err}
	}
	return nil
}

func isNetTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// AccountView is the account state returned by a view-account query.
type AccountView struct {
	AccountID string
	Amount    *big.Int
}

type accountResult struct {
	Amount      string `json:"amount"`
	ErrorString string `json:"error"`
}

// ViewAccount looks up current account state. A missing account is reported
// as (nil, nil), not an error; transport failures propagate.
func (c *Client) ViewAccount(ctx context.Context, accountID string) (*AccountView, error) {
	params := map[string]any{
		"request_type": "view_account",
		"finality":     "final",
		"account_id":   accountID,
	}
	var result accountResult
	if err := c.call(ctx, "query", params, &result); err != nil {
		if isUnknownAccount(err) {
			return nil, nil
		}
		return nil, err
	}
	if result.ErrorString != "" {
		if strings.Contains(result.ErrorString, "does not exist") {
			return nil, nil
		}
		return nil, &Error{Message: "view account: " + result.ErrorString}
	}
	amount, ok := new(big.Int).SetString(result.Amount, 10)
	if !ok {
		return nil, &Error{Message: "view account: unparseable balance " + result.Amount}
	}
	return &AccountView{AccountID: accountID, Amount: amount}, nil
}

func isUnknownAccount(err error) bool {
	var rpcErr *Error
	if !errors.As(err, &rpcErr) {
		return false
	}
	return strings.Contains(rpcErr.Message, "UNKNOWN_ACCOUNT") || strings.Contains(rpcErr.Message, "does not exist")
}

type accessKeyResult struct {
	Nonce       uint64 `json:"nonce"`
	ErrorString string `json:"error"`
}

// AccessKeyNonce returns the current nonce stored for the key. Strategies
// increment it by one for the next transaction.
func (c *Client) AccessKeyNonce(ctx context.Context, accountID, publicKey string) (uint64, error) {
	params := map[string]any{
		"request_type": "view_access_key",
		"finality":     "final",
		"account_id":   accountID,
		"public_key":   publicKey,
	}
	var result accessKeyResult
	if err := c.call(ctx, "query", params, &result); err != nil {
		return 0, err
	}
	if result.ErrorString != "" {
		return 0, &Error{Message: "view access key: " + result.ErrorString}
	}
	return result.Nonce, nil
}

type blockResult struct {
	Header struct {
		Hash   string `json:"hash"`
		Height uint64 `json:"height"`
	} `json:"header"`
}

// LatestBlockHash fetches the hash of the most recent final block.
func (c *Client) LatestBlockHash(ctx context.Context) (tx.BlockHash, error) {
	var result blockResult
	if err := c.call(ctx, "block", map[string]any{"finality": "final"}, &result); err != nil {
		return tx.BlockHash{}, err
	}
	hash, err := tx.ParseBlockHash(result.Header.Hash)
	if err != nil {
		return tx.BlockHash{}, &Error{Message: "block header hash", Cause: err}
	}
	return hash, nil
}

// ExecutionOutcome is the terminal commit result of a broadcast transaction.
type ExecutionOutcome struct {
	TransactionHash string          `json:"transaction_hash"`
	Status          json.RawMessage `json:"status"`
}

// BroadcastCommit submits the signed transaction and blocks until the server
// reports a terminal status for it. Retrying on timeouts is the caller's
// policy, not this client's.
func (c *Client) BroadcastCommit(ctx context.Context, signedBase64 string) (*ExecutionOutcome, error) {
	var result struct {
		Transaction struct {
			Hash string `json:"hash"`
		} `json:"transaction"`
		Status json.RawMessage `json:"status"`
	}
	if err := c.call(ctx, "broadcast_tx_commit", []string{signedBase64}, &result); err != nil {
		return nil, err
	}
	return &ExecutionOutcome{TransactionHash: result.Transaction.Hash, Status: result.Status}, nil
}

// Unavailable converts an RPC failure into the CLI error taxonomy for
// termination paths outside the submission engine.
func Unavailable(action string, err error) error {
	return clierr.Wrap(clierr.CodeUnavailable, action, err)
}
