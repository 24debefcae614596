// Package flow is the staged transaction-construction pipeline: network,
// sender, receiver, amount, signing and submission decisions resolved in
// order, each from supplied input or an interactive prompt.
package flow

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/ggonzalez94/transfer-cli/internal/echo"
	clierr "github.com/ggonzalez94/transfer-cli/internal/errors"
	"github.com/ggonzalez94/transfer-cli/internal/keys"
	"github.com/ggonzalez94/transfer-cli/internal/network"
	"github.com/ggonzalez94/transfer-cli/internal/prompt"
	"github.com/ggonzalez94/transfer-cli/internal/rpc"
	"github.com/ggonzalez94/transfer-cli/internal/signer"
	"github.com/ggonzalez94/transfer-cli/internal/submit"
	"github.com/ggonzalez94/transfer-cli/internal/token"
	"github.com/ggonzalez94/transfer-cli/internal/tx"
)

// RPC is the network surface the pipeline makes blocking, sequential calls
// against. Implemented by *rpc.Client; nil when offline.
type RPC interface {
	ViewAccount(ctx context.Context, accountID string) (*rpc.AccountView, error)
	AccessKeyNonce(ctx context.Context, accountID, publicKey string) (uint64, error)
	LatestBlockHash(ctx context.Context) (tx.BlockHash, error)
	BroadcastCommit(ctx context.Context, signedBase64 string) (*rpc.ExecutionOutcome, error)
}

// BuildContext is the state threaded between stages. A stage never mutates
// fields owned by an earlier stage.
type BuildContext struct {
	Endpoint *network.Endpoint // nil in offline mode
	SenderID string
}

// Supplied carries the caller's pre-resolved stage inputs. Empty fields are
// resolved interactively, or rejected in non-interactive mode.
type Supplied struct {
	Network  string
	URL      string
	Offline  bool
	Sender   string
	Receiver string
	Amount   string
	SignWith string
	Submit   string
}

// Pipeline wires the composer's collaborators. A nil Prompter runs the whole
// pipeline non-interactively.
type Pipeline struct {
	Out         io.Writer
	Prompter    prompt.Prompter
	Trail       *echo.Trail
	NetworkURLs map[string]string
	NewRPC      func(endpoint *network.Endpoint) RPC
	Strategies  []signer.Strategy
}

// Run executes every stage in order and returns the terminal outcome.
func (p *Pipeline) Run(ctx context.Context, in Supplied) (submit.Result, error) {
	bctx := BuildContext{}

	endpoint, err := p.resolveEndpoint(in)
	if err != nil {
		return submit.Result{}, err
	}
	bctx.Endpoint = endpoint

	var client RPC
	if endpoint != nil {
		client = p.NewRPC(endpoint)
	}

	sender, err := p.resolveSender(ctx, client, in.Sender)
	if err != nil {
		return submit.Result{}, err
	}
	bctx.SenderID = sender
	p.Trail.Append("--sender", sender)

	receiver, err := p.resolveReceiver(ctx, client, in.Receiver)
	if err != nil {
		return submit.Result{}, err
	}
	p.Trail.Append("--receiver", receiver)

	amount, err := p.resolveAmount(ctx, client, bctx.SenderID, in.Amount)
	if err != nil {
		return submit.Result{}, err
	}
	p.Trail.Append("--amount", amount.String())

	unsigned := tx.Transaction{SignerID: bctx.SenderID, ReceiverID: receiver}
	unsigned = unsigned.AppendTransfer(amount.Yocto())

	strategy, err := p.selectStrategy(in.SignWith)
	if err != nil {
		return submit.Result{}, err
	}
	p.Trail.Append("--sign-with", strategy.Tag())

	if err := unsigned.ReadyToSign(); err != nil {
		return submit.Result{}, err
	}
	env := signer.Env{}
	if endpoint != nil {
		env = signer.Env{Chain: client, NetworkTag: endpoint.Tag}
	}
	completed, err := strategy.Resolve(ctx, env, unsigned)
	if err != nil {
		return submit.Result{}, err
	}

	submitTag, err := p.selectSubmit(in.Submit, endpoint != nil)
	if err != nil {
		return submit.Result{}, err
	}
	p.Trail.Append("--submit", submitTag)

	signed, err := strategy.Sign(ctx, completed)
	if err != nil {
		return submit.Result{}, err
	}

	if signed == nil {
		// Manual path: nothing to submit regardless of the submit choice.
		encoded, err := completed.Base64()
		if err != nil {
			return submit.Result{}, err
		}
		return submit.Display(p.Out, encoded), nil
	}

	encoded, err := signed.Base64()
	if err != nil {
		return submit.Result{}, err
	}
	if submitTag == "send" {
		return submit.Send(ctx, p.Out, client, encoded)
	}
	return submit.Display(p.Out, encoded), nil
}

func (p *Pipeline) resolveEndpoint(in Supplied) (*network.Endpoint, error) {
	tag := strings.ToLower(strings.TrimSpace(in.Network))
	if in.Offline {
		tag = "offline"
	}
	if tag == "" && strings.TrimSpace(in.URL) != "" {
		tag = "custom"
	}

	options := make([]prompt.Option, 0, len(network.Names()))
	for _, n := range network.Names() {
		options = append(options, prompt.Option{Tag: n.Tag, Label: n.Label})
	}
	idx, err := prompt.ResolveChoice(p.Prompter, p.Out, tag, "Select NEAR protocol RPC server", options)
	if err != nil {
		return nil, err
	}

	switch options[idx].Tag {
	case "offline":
		p.Trail.Append("--offline")
		return nil, nil
	case "custom":
		endpoint, err := prompt.Resolve(p.Prompter, p.Out, in.URL,
			"What is the RPC endpoint?", "", network.ResolveCustom)
		if err != nil {
			return nil, err
		}
		p.Trail.Append("--network", "custom", "--url", endpoint.URL)
		return endpoint, nil
	default:
		endpoint, err := network.Resolve(options[idx].Tag, p.NetworkURLs)
		if err != nil {
			return nil, err
		}
		p.Trail.Append("--network", endpoint.Tag)
		return endpoint, nil
	}
}

var accountIDPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9._-]{0,62}[a-z0-9])?$`)

func parseAccountID(input string) (string, error) {
	id := strings.TrimSpace(input)
	if !accountIDPattern.MatchString(id) {
		return "", clierr.New(clierr.CodeUsage, fmt.Sprintf("<%s> is not a valid account ID", id))
	}
	return id, nil
}

func (p *Pipeline) resolveSender(ctx context.Context, client RPC, supplied string) (string, error) {
	return prompt.Resolve(p.Prompter, p.Out, supplied,
		"What is the account ID of the sender?", "",
		func(input string) (string, error) {
			id, err := parseAccountID(input)
			if err != nil {
				return "", err
			}
			if client == nil {
				return id, nil
			}
			view, err := client.ViewAccount(ctx, id)
			if err != nil {
				return "", rpc.Unavailable("look up account "+id, err)
			}
			if view == nil {
				return "", clierr.New(clierr.CodeAccountNotFound, fmt.Sprintf("Account <%s> doesn't exist", id))
			}
			return id, nil
		})
}

func (p *Pipeline) resolveReceiver(ctx context.Context, client RPC, supplied string) (string, error) {
	return prompt.Resolve(p.Prompter, p.Out, supplied,
		"What is the account ID of the receiver?", "",
		func(input string) (string, error) {
			id, err := parseAccountID(input)
			if err != nil {
				return "", err
			}
			if client == nil {
				return id, nil
			}
			view, err := client.ViewAccount(ctx, id)
			if err != nil {
				return "", rpc.Unavailable("look up account "+id, err)
			}
			if view == nil {
				// Implicit accounts are valid identifiers before any
				// on-chain state exists for them.
				if keys.IsImplicitAccountID(id) {
					return id, nil
				}
				return "", clierr.New(clierr.CodeAccountNotFound, fmt.Sprintf("Account <%s> doesn't exist", id))
			}
			return id, nil
		})
}

func (p *Pipeline) resolveAmount(ctx context.Context, client RPC, senderID, supplied string) (token.Balance, error) {
	balance := token.Zero()
	balanceKnown := false
	if client != nil {
		view, err := client.ViewAccount(ctx, senderID)
		if err != nil {
			return token.Balance{}, rpc.Unavailable("look up sender balance", err)
		}
		balanceKnown = true
		if view != nil {
			balance = token.FromYocto(view.Amount)
		}
	}

	initial := ""
	if balanceKnown {
		initial = balance.String()
	}
	return prompt.Resolve(p.Prompter, p.Out, supplied,
		"How many NEAR Tokens do you want to transfer? (example: 10NEAR or 0.5near or 10000yoctonear)", initial,
		func(input string) (token.Balance, error) {
			amount, err := token.Parse(input)
			if err != nil {
				return token.Balance{}, err
			}
			if balanceKnown && amount.Cmp(balance) > 0 {
				return token.Balance{}, clierr.New(clierr.CodeUsage,
					fmt.Sprintf("You need to enter a value of no more than %s", balance))
			}
			return amount, nil
		})
}

func (p *Pipeline) selectStrategy(supplied string) (signer.Strategy, error) {
	idx, err := prompt.ResolveChoice(p.Prompter, p.Out, supplied,
		"Would you like to sign the transaction?", signer.Options(p.Strategies))
	if err != nil {
		return nil, err
	}
	return p.Strategies[idx], nil
}

func (p *Pipeline) selectSubmit(supplied string, online bool) (string, error) {
	// Offline runs are display-only; Send is structurally absent from the
	// menu rather than rejected by validation.
	options := []prompt.Option{}
	if online {
		options = append(options, prompt.Option{Tag: "send", Label: "Send the transaction to the network"})
	}
	options = append(options, prompt.Option{Tag: "display", Label: "Display the transaction on screen"})

	if !online && strings.TrimSpace(supplied) == "" && p.Prompter == nil {
		return "display", nil
	}
	idx, err := prompt.ResolveChoice(p.Prompter, p.Out, supplied,
		"How would you like to proceed?", options)
	if err != nil {
		return "", err
	}
	return options[idx].Tag, nil
}
