package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/term"

	clierr "github.com/ggonzalez94/transfer-cli/internal/errors"
)

// Prompter is the blocking prompt surface the pipeline suspends on. Every
// method waits for operator input; implementations are expected to eventually
// return in an interactive session.
type Prompter interface {
	// Text asks for a line of input. A non-empty initial value is shown as
	// the default and returned when the operator submits an empty line.
	Text(prompt, initial string) (string, error)
	// Secret asks for a line of input without echoing it.
	Secret(prompt string) (string, error)
	// Choice renders a numbered menu and returns the selected index.
	Choice(prompt string, options []string) (int, error)
}

// Stdio prompts on a reader/writer pair, normally stdin/stdout.
type Stdio struct {
	in  *bufio.Reader
	out io.Writer
}

func NewStdio(in io.Reader, out io.Writer) *Stdio {
	return &Stdio{in: bufio.NewReader(in), out: out}
}

func (s *Stdio) Text(prompt, initial string) (string, error) {
	for {
		if initial != "" {
			fmt.Fprintf(s.out, "%s [%s]: ", prompt, initial)
		} else {
			fmt.Fprintf(s.out, "%s: ", prompt)
		}
		line, err := s.in.ReadString('\n')
		if err != nil && line == "" {
			return "", clierr.Wrap(clierr.CodeUsage, "read input", err)
		}
		answer := strings.TrimSpace(line)
		if answer == "" {
			if initial != "" {
				return initial, nil
			}
			continue
		}
		return answer, nil
	}
}

func (s *Stdio) Secret(prompt string) (string, error) {
	fmt.Fprintf(s.out, "%s: ", prompt)
	buf, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(s.out)
	if err != nil {
		// No terminal attached; fall back to a plain read.
		line, readErr := s.in.ReadString('\n')
		if readErr != nil && line == "" {
			return "", clierr.Wrap(clierr.CodeUsage, "read secret input", readErr)
		}
		return strings.TrimSpace(line), nil
	}
	return strings.TrimSpace(string(buf)), nil
}

func (s *Stdio) Choice(prompt string, options []string) (int, error) {
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, prompt)
	for i, option := range options {
		fmt.Fprintf(s.out, "  %d) %s\n", i+1, option)
	}
	for {
		fmt.Fprintf(s.out, "Enter a number [1]: ")
		line, err := s.in.ReadString('\n')
		if err != nil && line == "" {
			return 0, clierr.Wrap(clierr.CodeUsage, "read menu selection", err)
		}
		answer := strings.TrimSpace(line)
		if answer == "" {
			return 0, nil
		}
		n, convErr := strconv.Atoi(answer)
		if convErr != nil || n < 1 || n > len(options) {
			fmt.Fprintf(s.out, "Please enter a number between 1 and %d\n", len(options))
			continue
		}
		return n - 1, nil
	}
}

var _ Prompter = (*Stdio)(nil)

// Script replays a fixed answer sequence. Choice answers may be the 1-based
// index or the option text. Used by tests and scripted runs.
type Script struct {
	Answers []string
	next    int
}

func (s *Script) take() (string, error) {
	if s.next >= len(s.Answers) {
		return "", clierr.New(clierr.CodeUsage, "prompt script exhausted")
	}
	answer := s.Answers[s.next]
	s.next++
	return answer, nil
}

func (s *Script) Text(prompt, initial string) (string, error) {
	answer, err := s.take()
	if err != nil {
		return "", err
	}
	if answer == "" && initial != "" {
		return initial, nil
	}
	return answer, nil
}

func (s *Script) Secret(prompt string) (string, error) {
	return s.take()
}

func (s *Script) Choice(prompt string, options []string) (int, error) {
	answer, err := s.take()
	if err != nil {
		return 0, err
	}
	if n, convErr := strconv.Atoi(answer); convErr == nil && n >= 1 && n <= len(options) {
		return n - 1, nil
	}
	for i, option := range options {
		if strings.EqualFold(option, answer) {
			return i, nil
		}
	}
	return 0, clierr.New(clierr.CodeUsage, fmt.Sprintf("scripted answer %q matches no menu option", answer))
}

var _ Prompter = (*Script)(nil)

// FromTerminal returns a stdin/stdout prompter, or nil when stdin is not a
// terminal. A nil Prompter puts the pipeline in non-interactive mode.
func FromTerminal(out io.Writer) Prompter {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil
	}
	return NewStdio(os.Stdin, out)
}
