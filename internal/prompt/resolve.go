package prompt

import (
	"fmt"
	"io"
	"strings"

	clierr "github.com/ggonzalez94/transfer-cli/internal/errors"
)

// Option is one entry of a closed selection, used identically for menu
// rendering and for matching a supplied tag.
type Option struct {
	Tag   string
	Label string
}

// Recoverable reports whether a validation failure may be retried by
// re-prompting. External failures (transport, device, credential store)
// always propagate instead.
func Recoverable(err error) bool {
	cliErr, ok := clierr.As(err)
	if !ok {
		return false
	}
	switch cliErr.Code {
	case clierr.CodeUsage, clierr.CodeAccountNotFound, clierr.CodeBadKey:
		return true
	default:
		return false
	}
}

// Resolve applies the supplied-or-prompt rule every stage uses: a supplied
// value is validated and accepted; a recoverable validation failure falls
// back to prompting, or is a hard error when p is nil (non-interactive).
func Resolve[T any](p Prompter, out io.Writer, supplied, message, initial string, parse func(string) (T, error)) (T, error) {
	var zero T
	if strings.TrimSpace(supplied) != "" {
		value, err := parse(supplied)
		if err == nil {
			return value, nil
		}
		if !Recoverable(err) || p == nil {
			return zero, err
		}
		fmt.Fprintln(out, err.Error())
	} else if p == nil {
		return zero, clierr.New(clierr.CodeUsage, fmt.Sprintf("%s is required in non-interactive mode", message))
	}

	for {
		answer, err := p.Text(message, initial)
		if err != nil {
			return zero, err
		}
		value, err := parse(answer)
		if err == nil {
			return value, nil
		}
		if !Recoverable(err) {
			return zero, err
		}
		fmt.Fprintln(out, err.Error())
	}
}

// ResolveSecret is Resolve for values that must not be echoed when prompted.
func ResolveSecret[T any](p Prompter, out io.Writer, supplied, message string, parse func(string) (T, error)) (T, error) {
	var zero T
	if strings.TrimSpace(supplied) != "" {
		value, err := parse(supplied)
		if err == nil {
			return value, nil
		}
		if !Recoverable(err) || p == nil {
			return zero, err
		}
		fmt.Fprintln(out, err.Error())
	} else if p == nil {
		return zero, clierr.New(clierr.CodeUsage, fmt.Sprintf("%s is required in non-interactive mode", message))
	}

	for {
		answer, err := p.Secret(message)
		if err != nil {
			return zero, err
		}
		value, err := parse(answer)
		if err == nil {
			return value, nil
		}
		if !Recoverable(err) {
			return zero, err
		}
		fmt.Fprintln(out, err.Error())
	}
}

// ResolveChoice resolves one of a closed option set, from a supplied tag or
// from a menu prompt. Returns the option index.
func ResolveChoice(p Prompter, out io.Writer, supplied, message string, options []Option) (int, error) {
	if strings.TrimSpace(supplied) != "" {
		norm := strings.ToLower(strings.TrimSpace(supplied))
		for i, option := range options {
			if option.Tag == norm {
				return i, nil
			}
		}
		tags := make([]string, 0, len(options))
		for _, option := range options {
			tags = append(tags, option.Tag)
		}
		err := clierr.New(clierr.CodeUsage, fmt.Sprintf("unknown option %q (expected %s)", supplied, strings.Join(tags, "|")))
		if p == nil {
			return 0, err
		}
		fmt.Fprintln(out, err.Error())
	} else if p == nil {
		return 0, clierr.New(clierr.CodeUsage, fmt.Sprintf("%s: a selection is required in non-interactive mode", message))
	}

	labels := make([]string, 0, len(options))
	for _, option := range options {
		labels = append(labels, option.Label)
	}
	return p.Choice(message, labels)
}
