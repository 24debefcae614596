// Package echo records every resolved pipeline input so a fully interactive
// run can be replayed as an equivalent non-interactive command line.
package echo

import "strings"

// Trail is the ordered, append-only record of resolved stage inputs. One
// group of tokens is appended per stage, in stage order.
type Trail struct {
	groups [][]string
}

func (t *Trail) Append(tokens ...string) {
	if len(tokens) == 0 {
		return
	}
	group := make([]string, len(tokens))
	copy(group, tokens)
	t.groups = append(t.groups, group)
}

func (t *Trail) Tokens() []string {
	var out []string
	for _, group := range t.groups {
		out = append(out, group...)
	}
	return out
}

// CommandLine renders the replayable invocation, shell-quoted.
func (t *Trail) CommandLine(program string) string {
	parts := []string{program}
	for _, token := range t.Tokens() {
		parts = append(parts, Quote(token))
	}
	return strings.Join(parts, " ")
}

const plainChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_./:=+@%,"

// Quote wraps a token in single quotes when it contains characters a POSIX
// shell would interpret.
func Quote(token string) string {
	if token == "" {
		return "''"
	}
	plain := true
	for _, r := range token {
		if !strings.ContainsRune(plainChars, r) {
			plain = false
			break
		}
	}
	if plain {
		return token
	}
	return "'" + strings.ReplaceAll(token, "'", `'\''`) + "'"
}
