package network

import (
	"fmt"
	"net/url"
	"strings"

	clierr "github.com/ggonzalez94/transfer-cli/internal/errors"
)

const (
	TestnetRPCURL = "https://rpc.testnet.near.org"
	MainnetRPCURL = "https://rpc.mainnet.near.org"
	BetanetRPCURL = "https://rpc.betanet.near.org"
)

// Endpoint is a resolved RPC server. A nil *Endpoint means offline mode.
type Endpoint struct {
	Tag string // testnet, mainnet, betanet, or custom
	URL string
}

func (e *Endpoint) IsCustom() bool { return e != nil && e.Tag == "custom" }

// Named is one entry of the fixed server menu, in declared order.
type Named struct {
	Tag   string
	Label string
	URL   string
}

// Names lists the selectable networks in menu order. The custom and offline
// entries carry no URL; custom resolves one separately, offline has none.
func Names() []Named {
	return []Named{
		{Tag: "testnet", Label: "Testnet", URL: TestnetRPCURL},
		{Tag: "mainnet", Label: "Mainnet", URL: MainnetRPCURL},
		{Tag: "betanet", Label: "Betanet", URL: BetanetRPCURL},
		{Tag: "custom", Label: "Custom server", URL: ""},
		{Tag: "offline", Label: "Offline (no RPC server)", URL: ""},
	}
}

// Resolve maps a network tag to its endpoint. The custom and offline tags are
// handled by the caller and are rejected here.
func Resolve(tag string, overrides map[string]string) (*Endpoint, error) {
	norm := strings.ToLower(strings.TrimSpace(tag))
	for _, n := range Names() {
		if n.Tag != norm || n.URL == "" {
			continue
		}
		rpcURL := n.URL
		if override, ok := overrides[n.Tag]; ok && strings.TrimSpace(override) != "" {
			rpcURL = strings.TrimSpace(override)
		}
		return &Endpoint{Tag: n.Tag, URL: rpcURL}, nil
	}
	return nil, clierr.New(clierr.CodeUsage, fmt.Sprintf("unknown network %q (expected testnet|mainnet|betanet|custom)", tag))
}

// ResolveCustom validates a user-supplied RPC URL syntactically. Reachability
// is not checked here; connection failures surface later as RPC errors.
func ResolveCustom(rawURL string) (*Endpoint, error) {
	norm := strings.TrimSpace(rawURL)
	if norm == "" {
		return nil, clierr.New(clierr.CodeUsage, "RPC endpoint URL is empty")
	}
	parsed, err := url.Parse(norm)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUsage, "parse RPC endpoint URL", err)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, clierr.New(clierr.CodeUsage, "RPC endpoint URL must use http or https")
	}
	if strings.TrimSpace(parsed.Hostname()) == "" {
		return nil, clierr.New(clierr.CodeUsage, "RPC endpoint URL has no host")
	}
	return &Endpoint{Tag: "custom", URL: norm}, nil
}
