package orchestrator

import "github.com/levelfi-io/referral-orchestrator/internal/types"

// Failure is what an end user sees when a mutating action fails. Raw provider
// text never reaches this struct; it stays in the server-side logs.
type Failure struct {
	Reason          types.FailureReason
	Title           string
	Message         string
	SuggestedAction string
}

var failurePresentations = map[types.FailureReason]Failure{
	types.ReasonUserRejected: {
		Reason:          types.ReasonUserRejected,
		Title:           "Transaction cancelled",
		Message:         "The signature request was declined.",
		SuggestedAction: "Start the action again and approve the signature prompt.",
	},
	types.ReasonInsufficientFunds: {
		Reason:          types.ReasonInsufficientFunds,
		Title:           "Insufficient balance",
		Message:         "Your balance does not cover this action and its network fee.",
		SuggestedAction: "Top up your token balance and try again.",
	},
	types.ReasonInsufficientAllowance: {
		Reason:          types.ReasonInsufficientAllowance,
		Title:           "Spending approval missing",
		Message:         "The contract is not approved to spend the required amount.",
		SuggestedAction: "Approve the spending request first, then retry the action.",
	},
	types.ReasonAlreadyDone: {
		Reason:          types.ReasonAlreadyDone,
		Title:           "Already completed",
		Message:         "This action has already been performed for your account.",
		SuggestedAction: "Refresh the page to see your current status.",
	},
	types.ReasonPaused: {
		Reason:          types.ReasonPaused,
		Title:           "Temporarily unavailable",
		Message:         "The program is paused for maintenance.",
		SuggestedAction: "Try again later.",
	},
	types.ReasonNetwork: {
		Reason:          types.ReasonNetwork,
		Title:           "Network problem",
		Message:         "The network did not respond in time.",
		SuggestedAction: "Check your connection and try again.",
	},
	types.ReasonUnknown: {
		Reason:          types.ReasonUnknown,
		Title:           "Something went wrong",
		Message:         "The transaction could not be completed.",
		SuggestedAction: "Try again, and contact support if the problem persists.",
	},
}

// PresentFailure maps a classified error onto its user-facing triple.
// Unclassified errors fall back to the generic retry message.
func PresentFailure(err error) *Failure {
	failure, ok := failurePresentations[types.ReasonOf(err)]
	if !ok {
		failure = failurePresentations[types.ReasonUnknown]
	}
	return &failure
}
