package app

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ggonzalez94/transfer-cli/internal/keys"
	"github.com/ggonzalez94/transfer-cli/internal/prompt"
	"github.com/ggonzalez94/transfer-cli/internal/tx"
)

func newTestRunner(t *testing.T) (*Runner, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	return NewRunnerWithWriters(stdout, stderr), stdout, stderr
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

func TestVersionCommand(t *testing.T) {
	runner, stdout, _ := newTestRunner(t)
	if code := runner.Run([]string{"version"}); code != 0 {
		t.Fatalf("unexpected exit code: %d", code)
	}
	if strings.TrimSpace(stdout.String()) != "0.1.0" {
		t.Fatalf("unexpected version output: %q", stdout.String())
	}
}

func TestSendOfflineNonInteractive(t *testing.T) {
	pair := mustGenerate(t)
	blockHash := testBlockHash()
	runner, stdout, stderr := newTestRunner(t)

	code := runner.Run([]string{
		"send", "--offline", "--no-input",
		"--sender", "alice.testnet",
		"--receiver", "bob.testnet",
		"--amount", "1NEAR",
		"--sign-with", "manual",
		"--signer-public-key", pair.Public.String(),
		"--nonce", "7",
		"--block-hash", blockHash.String(),
	})
	if code != 0 {
		t.Fatalf("unexpected exit code %d, stderr: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "Transaction serialized to base64:") {
		t.Fatalf("unsigned transaction not displayed: %q", stdout.String())
	}
	if !strings.Contains(stdout.String(), "Your console command:\ntransfer send --offline") {
		t.Fatalf("replay command missing: %q", stdout.String())
	}
}

func TestSendInteractiveOfflineRun(t *testing.T) {
	pair := mustGenerate(t)
	blockHash := testBlockHash()
	runner, stdout, stderr := newTestRunner(t)
	runner.SetPrompter(&prompt.Script{Answers: []string{
		"5", // Offline (no RPC server)
		"alice.testnet",
		"bob.testnet",
		"1 NEAR",
		"4", // sign somewhere else
		pair.Public.String(),
		"7",
		blockHash.String(),
		"1", // display is the only offline delivery
	}})

	if code := runner.Run([]string{"send"}); code != 0 {
		t.Fatalf("unexpected exit code %d, stderr: %s", code, stderr.String())
	}
	out := stdout.String()
	if !strings.Contains(out, "Transaction serialized to base64:") {
		t.Fatalf("unsigned transaction not displayed: %q", out)
	}
	for _, part := range []string{"--offline", "--sender alice.testnet", "--amount '1 NEAR'", "--sign-with manual", "--submit display"} {
		if !strings.Contains(out, part) {
			t.Fatalf("replay command missing %q: %s", part, out)
		}
	}
}

func TestSendMissingInputsNonInteractive(t *testing.T) {
	runner, _, stderr := newTestRunner(t)
	code := runner.Run([]string{"send", "--no-input"})
	if code != 2 {
		t.Fatalf("expected usage exit code 2, got %d", code)
	}
	if !strings.Contains(stderr.String(), "Error:") {
		t.Fatalf("error not reported: %q", stderr.String())
	}
}

func TestUnknownFlagIsUsageError(t *testing.T) {
	runner, _, _ := newTestRunner(t)
	if code := runner.Run([]string{"send", "--bogus"}); code != 2 {
		t.Fatalf("expected usage exit code 2, got %d", code)
	}
}

func TestKeysGenerateSaveAndList(t *testing.T) {
	runner, stdout, stderr := newTestRunner(t)
	code := runner.Run([]string{"keys", "generate", "--save", "--account", "alice.testnet", "--network", "testnet"})
	if code != 0 {
		t.Fatalf("unexpected exit code %d, stderr: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "Public key:") {
		t.Fatalf("generated key not printed: %q", stdout.String())
	}
	if !strings.Contains(stdout.String(), "Saved key") {
		t.Fatalf("save confirmation missing: %q", stdout.String())
	}

	stdout.Reset()
	if code := runner.Run([]string{"keys", "list"}); code != 0 {
		t.Fatalf("unexpected exit code: %d", code)
	}
	if !strings.Contains(stdout.String(), "alice.testnet (testnet): ed25519:") {
		t.Fatalf("stored key not listed: %q", stdout.String())
	}
}

func TestKeysAddRequiresAccount(t *testing.T) {
	runner, _, _ := newTestRunner(t)
	if code := runner.Run([]string{"keys", "add"}); code != 2 {
		t.Fatalf("expected usage exit code 2, got %d", code)
	}
}

func TestViewAccountRequiresAccount(t *testing.T) {
	runner, _, _ := newTestRunner(t)
	if code := runner.Run([]string{"view", "account"}); code != 2 {
		t.Fatalf("expected usage exit code 2, got %d", code)
	}
}
