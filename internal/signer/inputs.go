package signer

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ggonzalez94/transfer-cli/internal/echo"
	clierr "github.com/ggonzalez94/transfer-cli/internal/errors"
	"github.com/ggonzalez94/transfer-cli/internal/keys"
	"github.com/ggonzalez94/transfer-cli/internal/prompt"
	"github.com/ggonzalez94/transfer-cli/internal/tx"
)

// Deps is the prompting and echo surface the app wires into every strategy.
type Deps struct {
	Prompter prompt.Prompter
	Out      io.Writer
	Trail    *echo.Trail
}

func (d Deps) resolvePublicKey(supplied string) (keys.PublicKey, error) {
	return prompt.Resolve(d.Prompter, d.Out, supplied,
		"Enter sender's public key", "",
		func(input string) (keys.PublicKey, error) {
			key, err := keys.ParsePublicKey(input)
			if err != nil {
				return keys.PublicKey{}, err
			}
			return key, nil
		})
}

func (d Deps) resolveNonce(supplied string, publicKey keys.PublicKey) (uint64, error) {
	if strings.TrimSpace(supplied) == "" && d.Prompter != nil {
		fmt.Fprintf(d.Out, "Your public key: `%s`\n", publicKey)
	}
	return prompt.Resolve(d.Prompter, d.Out, supplied,
		"Enter transaction nonce for this public key (the stored access-key nonce incremented by 1; see `transfer view nonce`)", "",
		func(input string) (uint64, error) {
			n, err := strconv.ParseUint(strings.TrimSpace(input), 10, 64)
			if err != nil {
				return 0, clierr.New(clierr.CodeUsage, "nonce must be a non-negative integer")
			}
			return n, nil
		})
}

func (d Deps) resolveBlockHash(supplied string) (tx.BlockHash, error) {
	return prompt.Resolve(d.Prompter, d.Out, supplied,
		"Enter recent block hash (see `transfer view recent-block-hash`)", "",
		tx.ParseBlockHash)
}
