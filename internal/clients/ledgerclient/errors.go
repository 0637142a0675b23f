package ledgerclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/levelfi-io/referral-orchestrator/internal/types"
)

// Failure markers observed from EVM providers and from the ledger contract's
// revert strings. Matching happens here and nowhere else; call sites consume
// the typed result.
var failureMarkers = []struct {
	reason  types.FailureReason
	markers []string
}{
	{types.ReasonUserRejected, []string{
		"user denied",
		"user rejected",
		"request rejected",
	}},
	{types.ReasonInsufficientAllowance, []string{
		"insufficient allowance",
		"transfer amount exceeds allowance",
	}},
	{types.ReasonInsufficientFunds, []string{
		"insufficient funds",
		"insufficient balance",
		"transfer amount exceeds balance",
	}},
	{types.ReasonAlreadyDone, []string{
		"already registered",
		"already active",
		"already eligible",
		"already claimed",
		"already distributed",
	}},
	{types.ReasonPaused, []string{
		"pausable: paused",
		"contract is paused",
	}},
	{types.ReasonNetwork, []string{
		"connection refused",
		"connection reset",
		"i/o timeout",
		"no such host",
		"eof",
		"502 bad gateway",
		"503 service unavailable",
	}},
}

// ClassifyError converts a raw provider failure into the internal taxonomy.
// op names the ledger call for the wrapped message; the raw error stays
// attached for logs and is never shown to end users.
func ClassifyError(op string, err error) *types.Error {
	if err == nil {
		return nil
	}

	// already classified upstream
	var typed *types.Error
	if errors.As(err, &typed) {
		return typed
	}

	reason := classifyReason(err)
	return types.NewBlockchainError(
		reason,
		fmt.Sprintf("ledger call %s failed", op),
		err,
	)
}

func classifyReason(err error) types.FailureReason {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return types.ReasonNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return types.ReasonNetwork
	}

	msg := strings.ToLower(err.Error())
	for _, group := range failureMarkers {
		for _, marker := range group.markers {
			if strings.Contains(msg, marker) {
				return group.reason
			}
		}
	}
	return types.ReasonUnknown
}
