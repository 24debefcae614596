package app

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ggonzalez94/transfer-cli/internal/config"
	"github.com/ggonzalez94/transfer-cli/internal/echo"
	clierr "github.com/ggonzalez94/transfer-cli/internal/errors"
	"github.com/ggonzalez94/transfer-cli/internal/flow"
	"github.com/ggonzalez94/transfer-cli/internal/keys"
	"github.com/ggonzalez94/transfer-cli/internal/keystore"
	"github.com/ggonzalez94/transfer-cli/internal/network"
	"github.com/ggonzalez94/transfer-cli/internal/prompt"
	"github.com/ggonzalez94/transfer-cli/internal/rpc"
	"github.com/ggonzalez94/transfer-cli/internal/signer"
	"github.com/ggonzalez94/transfer-cli/internal/token"
	"github.com/ggonzalez94/transfer-cli/internal/version"
)

type Runner struct {
	stdout   io.Writer
	stderr   io.Writer
	prompter prompt.Prompter
	now      func() time.Time
}

func NewRunner() *Runner {
	r := NewRunnerWithWriters(os.Stdout, os.Stderr)
	r.prompter = prompt.FromTerminal(r.stdout)
	return r
}

func NewRunnerWithWriters(stdout, stderr io.Writer) *Runner {
	return &Runner{
		stdout: stdout,
		stderr: stderr,
		now:    time.Now,
	}
}

// SetPrompter replaces the interactive prompt source. Tests install a
// scripted prompter here.
func (r *Runner) SetPrompter(p prompt.Prompter) { r.prompter = p }

type runtimeState struct {
	runner   *Runner
	flags    config.GlobalFlags
	settings config.Settings
	root     *cobra.Command
	keystore *keystore.Store
}

func (r *Runner) Run(args []string) int {
	state := &runtimeState{runner: r}
	root := state.newRootCommand()
	state.root = root
	root.SetArgs(args)
	root.SetOut(r.stdout)
	root.SetErr(r.stderr)
	root.SilenceUsage = true
	root.SilenceErrors = true

	err := root.Execute()
	err = normalizeRunError(err)
	if state.keystore != nil {
		_ = state.keystore.Close()
	}
	if err == nil {
		return 0
	}
	fmt.Fprintf(r.stderr, "Error: %s\n", err)
	return clierr.ExitCode(err)
}

func (s *runtimeState) newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   version.CLIName,
		Short: "NEAR token transfer construction CLI",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			settings, err := config.Load(s.flags)
			if err != nil {
				return clierr.Wrap(clierr.CodeUsage, "load configuration", err)
			}
			s.settings = settings
			return nil
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return clierr.Wrap(clierr.CodeUsage, "parse flags", err)
	})

	cmd.PersistentFlags().StringVar(&s.flags.ConfigPath, "config", "", "Path to config file")
	cmd.PersistentFlags().StringVar(&s.flags.Timeout, "timeout", "", "RPC request timeout per attempt")

	cmd.AddCommand(s.newSendCommand())
	cmd.AddCommand(s.newKeysCommand())
	cmd.AddCommand(s.newViewCommand())
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func newVersionCommand() *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print CLI version",
		Run: func(cmd *cobra.Command, args []string) {
			if long {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.Long())
				return
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.CLIVersion)
		},
	}
	cmd.Flags().BoolVar(&long, "long", false, "Print extended build metadata")
	return cmd
}

func (s *runtimeState) newSendCommand() *cobra.Command {
	var in flow.Supplied
	var noInput bool
	var signerPublicKey, signerPrivateKey, nonceArg, blockHashArg, ledgerPath string

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Construct, sign and deliver a token transfer",
		RunE: func(cmd *cobra.Command, args []string) error {
			prompter := s.runner.prompter
			if noInput {
				prompter = nil
			}
			trail := &echo.Trail{}
			deps := signer.Deps{Prompter: prompter, Out: s.runner.stdout, Trail: trail}
			pipeline := &flow.Pipeline{
				Out:         s.runner.stdout,
				Prompter:    prompter,
				Trail:       trail,
				NetworkURLs: s.settings.NetworkURLs,
				NewRPC: func(endpoint *network.Endpoint) flow.RPC {
					return rpc.NewClient(endpoint.URL, s.settings.Timeout)
				},
				Strategies: []signer.Strategy{
					signer.NewPrivateKey(deps, signerPublicKey, signerPrivateKey, nonceArg, blockHashArg),
					signer.NewKeychain(deps, s.openKeyLookup),
					signer.NewLedger(deps, ledgerPath),
					signer.NewManual(deps, signerPublicKey, nonceArg, blockHashArg),
				},
			}
			if _, err := pipeline.Run(cmd.Context(), in); err != nil {
				return err
			}
			fmt.Fprintf(s.runner.stdout, "\nYour console command:\n%s\n", trail.CommandLine(version.CLIName+" send"))
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Network, "network", "", "RPC network (testnet|mainnet|betanet|custom)")
	cmd.Flags().StringVar(&in.URL, "url", "", "RPC endpoint URL for the custom network")
	cmd.Flags().BoolVar(&in.Offline, "offline", false, "Construct the transaction without any network access")
	cmd.Flags().BoolVar(&noInput, "no-input", false, "Never prompt; fail when a required input is missing")
	cmd.Flags().StringVar(&in.Sender, "sender", "", "Sender account ID")
	cmd.Flags().StringVar(&in.Receiver, "receiver", "", "Receiver account ID")
	cmd.Flags().StringVar(&in.Amount, "amount", "", "Transfer amount (10NEAR, 0.5near or 10000yoctonear)")
	cmd.Flags().StringVar(&in.SignWith, "sign-with", "", "Signing strategy (private-key|keychain|ledger|manual)")
	cmd.Flags().StringVar(&signerPublicKey, "signer-public-key", "", "Sender public key (private-key and manual strategies)")
	cmd.Flags().StringVar(&signerPrivateKey, "signer-private-key", "", "Sender private key (private-key strategy)")
	cmd.Flags().StringVar(&nonceArg, "nonce", "", "Transaction nonce (private-key and manual strategies)")
	cmd.Flags().StringVar(&blockHashArg, "block-hash", "", "Recent block hash (private-key and manual strategies)")
	cmd.Flags().StringVar(&ledgerPath, "ledger-path", "", "Seed phrase HD path of the Ledger key")
	cmd.Flags().StringVar(&in.Submit, "submit", "", "Delivery of the signed transaction (send|display)")

	return cmd
}

func (s *runtimeState) newKeysCommand() *cobra.Command {
	root := &cobra.Command{Use: "keys", Short: "Manage the machine-local keystore"}

	var genNetwork, genAccount string
	var genSave bool
	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new ed25519 key pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			pair, err := keys.Generate()
			if err != nil {
				return err
			}
			fmt.Fprintf(s.runner.stdout, "Public key:          %s\n", pair.Public)
			fmt.Fprintf(s.runner.stdout, "Implicit account ID: %s\n", pair.Public.ImplicitAccountID())
			fmt.Fprintf(s.runner.stdout, "Secret key:          %s\n", pair.SecretString())
			if !genSave {
				return nil
			}
			account := strings.TrimSpace(genAccount)
			if account == "" {
				account = pair.Public.ImplicitAccountID()
			}
			return s.saveKey(account, genNetwork, pair)
		},
	}
	generateCmd.Flags().StringVar(&genNetwork, "network", "testnet", "Network the key is saved under")
	generateCmd.Flags().StringVar(&genAccount, "account", "", "Account ID the key is saved under (default: implicit account)")
	generateCmd.Flags().BoolVar(&genSave, "save", false, "Save the generated key in the keystore")

	var addNetwork, addAccount, addSecret string
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Store an existing secret key for an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(addAccount) == "" {
				return clierr.New(clierr.CodeUsage, "--account is required")
			}
			pair, err := prompt.ResolveSecret(s.runner.prompter, s.runner.stdout, addSecret,
				"Enter the secret key to store", keys.ParseSecretKey)
			if err != nil {
				return err
			}
			return s.saveKey(strings.TrimSpace(addAccount), addNetwork, pair)
		},
	}
	addCmd.Flags().StringVar(&addAccount, "account", "", "Account ID the key belongs to")
	addCmd.Flags().StringVar(&addNetwork, "network", "testnet", "Network the key is saved under")
	addCmd.Flags().StringVar(&addSecret, "secret-key", "", "Secret key (prompted without echo when omitted)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored access keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := s.openKeystore()
			if err != nil {
				return err
			}
			entries, err := store.List()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(s.runner.stdout, "The keystore is empty")
				return nil
			}
			for _, entry := range entries {
				fmt.Fprintf(s.runner.stdout, "%s (%s): %s added %s\n",
					entry.AccountID, entry.Network, entry.PublicKey, entry.AddedAt.UTC().Format(time.RFC3339))
			}
			return nil
		},
	}

	root.AddCommand(generateCmd)
	root.AddCommand(addCmd)
	root.AddCommand(listCmd)
	return root
}

func (s *runtimeState) newViewCommand() *cobra.Command {
	root := &cobra.Command{Use: "view", Short: "Read-only chain queries"}

	var acctNetwork, acctURL, acctAccount string
	accountCmd := &cobra.Command{
		Use:   "account",
		Short: "Show account state and balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(acctAccount) == "" {
				return clierr.New(clierr.CodeUsage, "--account is required")
			}
			client, endpoint, err := s.viewClient(acctNetwork, acctURL)
			if err != nil {
				return err
			}
			view, err := client.ViewAccount(cmd.Context(), acctAccount)
			if err != nil {
				return rpc.Unavailable("look up account "+acctAccount, err)
			}
			if view == nil {
				return clierr.New(clierr.CodeAccountNotFound, fmt.Sprintf("Account <%s> doesn't exist", acctAccount))
			}
			fmt.Fprintf(s.runner.stdout, "Account %s (%s)\n", view.AccountID, endpoint.Tag)
			fmt.Fprintf(s.runner.stdout, "Balance: %s\n", token.FromYocto(view.Amount))
			return nil
		},
	}
	accountCmd.Flags().StringVar(&acctAccount, "account", "", "Account ID to look up")
	accountCmd.Flags().StringVar(&acctNetwork, "network", "testnet", "RPC network")
	accountCmd.Flags().StringVar(&acctURL, "url", "", "Custom RPC endpoint URL")

	var nonceNetwork, nonceURL, nonceAccount, noncePublicKey string
	nonceCmd := &cobra.Command{
		Use:   "nonce",
		Short: "Show the stored nonce of an access key",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(nonceAccount) == "" {
				return clierr.New(clierr.CodeUsage, "--account is required")
			}
			if strings.TrimSpace(noncePublicKey) == "" {
				return clierr.New(clierr.CodeUsage, "--public-key is required")
			}
			client, _, err := s.viewClient(nonceNetwork, nonceURL)
			if err != nil {
				return err
			}
			nonce, err := client.AccessKeyNonce(cmd.Context(), nonceAccount, noncePublicKey)
			if err != nil {
				return rpc.Unavailable("look up access key nonce", err)
			}
			fmt.Fprintf(s.runner.stdout, "Stored nonce: %d\n", nonce)
			fmt.Fprintf(s.runner.stdout, "Next transaction nonce: %d\n", nonce+1)
			return nil
		},
	}
	nonceCmd.Flags().StringVar(&nonceAccount, "account", "", "Account ID the access key belongs to")
	nonceCmd.Flags().StringVar(&noncePublicKey, "public-key", "", "Access key public key (ed25519:...)")
	nonceCmd.Flags().StringVar(&nonceNetwork, "network", "testnet", "RPC network")
	nonceCmd.Flags().StringVar(&nonceURL, "url", "", "Custom RPC endpoint URL")

	var hashNetwork, hashURL string
	hashCmd := &cobra.Command{
		Use:   "recent-block-hash",
		Short: "Show the hash of the most recent final block",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := s.viewClient(hashNetwork, hashURL)
			if err != nil {
				return err
			}
			hash, err := client.LatestBlockHash(cmd.Context())
			if err != nil {
				return rpc.Unavailable("fetch recent block hash", err)
			}
			fmt.Fprintf(s.runner.stdout, "Recent block hash: %s\n", hash)
			return nil
		},
	}
	hashCmd.Flags().StringVar(&hashNetwork, "network", "testnet", "RPC network")
	hashCmd.Flags().StringVar(&hashURL, "url", "", "Custom RPC endpoint URL")

	root.AddCommand(accountCmd)
	root.AddCommand(nonceCmd)
	root.AddCommand(hashCmd)
	return root
}

func (s *runtimeState) viewClient(networkArg, urlArg string) (*rpc.Client, *network.Endpoint, error) {
	var endpoint *network.Endpoint
	var err error
	if strings.TrimSpace(urlArg) != "" {
		endpoint, err = network.ResolveCustom(urlArg)
	} else {
		endpoint, err = network.Resolve(networkArg, s.settings.NetworkURLs)
	}
	if err != nil {
		return nil, nil, err
	}
	return rpc.NewClient(endpoint.URL, s.settings.Timeout), endpoint, nil
}

func (s *runtimeState) saveKey(account, networkArg string, pair keys.KeyPair) error {
	tag := strings.ToLower(strings.TrimSpace(networkArg))
	if tag == "" {
		tag = "testnet"
	}
	store, err := s.openKeystore()
	if err != nil {
		return err
	}
	if err := store.Put(account, tag, pair); err != nil {
		return err
	}
	fmt.Fprintf(s.runner.stdout, "Saved key %s for %s on %s\n", pair.Public, account, tag)
	return nil
}

func (s *runtimeState) openKeystore() (*keystore.Store, error) {
	if s.keystore != nil {
		return s.keystore, nil
	}
	store, err := keystore.Open(s.settings.KeystorePath, s.settings.KeystoreLockPath)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "open keystore", err)
	}
	s.keystore = store
	return store, nil
}

func (s *runtimeState) openKeyLookup() (signer.KeyLookup, error) {
	store, err := s.openKeystore()
	if err != nil {
		return nil, err
	}
	return store, nil
}

func normalizeRunError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := clierr.As(err); ok {
		return err
	}
	if isLikelyUsageError(err) {
		return clierr.Wrap(clierr.CodeUsage, "invalid command input", err)
	}
	return clierr.Wrap(clierr.CodeInternal, "execute command", err)
}

func isLikelyUsageError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	patterns := []string{
		"unknown command",
		"unknown flag",
		"required flag(s)",
		"flag needs an argument",
		"invalid argument",
		"invalid args",
	}
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
