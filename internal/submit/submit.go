// Package submit delivers a finished transaction: display it, or broadcast
// it and wait for a terminal commit status.
package submit

import (
	"context"
	"fmt"
	"io"

	"github.com/ggonzalez94/transfer-cli/internal/rpc"
)

// Outcome is the terminal state of a run.
type Outcome int

const (
	// Displayed means the transaction was printed and never sent.
	Displayed Outcome = iota
	// Committed means the network reported a terminal commit status.
	Committed
	// Suppressed means a broadcast error was already reported to the user
	// and the run completed with no result.
	Suppressed
)

func (o Outcome) String() string {
	switch o {
	case Displayed:
		return "displayed"
	case Committed:
		return "committed"
	case Suppressed:
		return "suppressed"
	default:
		return "unknown"
	}
}

// Result pairs the outcome with the execution report for committed runs.
type Result struct {
	Outcome   Outcome
	Execution *rpc.ExecutionOutcome
}

// Broadcaster submits a base64-encoded signed transaction and blocks until a
// terminal status, returning an *rpc.Error on failure.
type Broadcaster interface {
	BroadcastCommit(ctx context.Context, signedBase64 string) (*rpc.ExecutionOutcome, error)
}

// Display prints the encoded transaction and finishes without any network
// effect.
func Display(w io.Writer, encodedBase64 string) Result {
	fmt.Fprintf(w, "\nTransaction serialized to base64:\n%s\n", encodedBase64)
	return Result{Outcome: Displayed}
}

// Send broadcasts and blocks until commit. Timeout errors are retried
// indefinitely with no backoff, a notice per attempt; any other error is
// reported and the run completes with a suppressed outcome instead of
// failing.
func Send(ctx context.Context, w io.Writer, b Broadcaster, signedBase64 string) (Result, error) {
	fmt.Fprintln(w, "Transaction sent ...")
	for {
		if err := ctx.Err(); err != nil {
			fmt.Fprintf(w, "Broadcast cancelled: %v\n", err)
			return Result{Outcome: Suppressed}, nil
		}
		execution, err := b.BroadcastCommit(ctx, signedBase64)
		if err == nil {
			fmt.Fprintf(w, "Successful transaction <%s>\n", execution.TransactionHash)
			if len(execution.Status) > 0 {
				fmt.Fprintf(w, "Status: %s\n", execution.Status)
			}
			return Result{Outcome: Committed, Execution: execution}, nil
		}
		if rpc.IsTimeout(err) {
			fmt.Fprintln(w, "Timeout error transaction.\nPlease wait. The next try to send this transaction is happening right now ...")
			continue
		}
		fmt.Fprintf(w, "Error transaction: %v\n", err)
		return Result{Outcome: Suppressed}, nil
	}
}
