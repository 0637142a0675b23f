package allowance

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/levelfi-io/referral-orchestrator/internal/clients/tokenclient"
	"github.com/levelfi-io/referral-orchestrator/internal/types"
)

// headroomFactor over-approves so an immediately subsequent action does not
// prompt for another signature.
const headroomFactor = 2

type Guard struct {
	token tokenclient.TokenInterface
}

func NewGuard(token tokenclient.TokenInterface) *Guard {
	return &Guard{token: token}
}

// EnsureAllowance reconciles the holder's spending permission with the
// required amount before any value-transferring write.
//
// Token permission semantics are adversarial to a naive "approve exactly
// what's needed" flow: some token implementations reject a non-zero to
// non-zero allowance change, and an approval can be dropped or reordered.
// Hence reset-then-approve-with-headroom, followed by a re-read of both
// balance and allowance after the approval is mined.
//
// Post-condition on success: balance >= required and allowance >= required.
func (g *Guard) EnsureAllowance(ctx context.Context, holder, spender common.Address, required *big.Int) error {
	if required == nil || required.Sign() <= 0 {
		return types.NewValidationError("required amount must be positive")
	}

	balance, err := g.token.BalanceOf(ctx, holder)
	if err != nil {
		return err
	}
	if balance.Cmp(required) < 0 {
		// no write attempted, the transfer would be doomed anyway
		return insufficientBalance(balance, required)
	}

	current, err := g.token.Allowance(ctx, holder, spender)
	if err != nil {
		return err
	}
	if current.Cmp(required) >= 0 {
		// saves a signature prompt
		return nil
	}

	if current.Sign() > 0 {
		if err := g.approveAndWait(ctx, spender, big.NewInt(0)); err != nil {
			return approvalFailed("failed to reset existing allowance", err)
		}
	}

	headroom := new(big.Int).Mul(required, big.NewInt(headroomFactor))
	if err := g.approveAndWait(ctx, spender, headroom); err != nil {
		return approvalFailed("failed to approve spending allowance", err)
	}

	// re-read both sides; a dropped or reordered approval surfaces here
	// rather than in the dependent value transfer
	balance, err = g.token.BalanceOf(ctx, holder)
	if err != nil {
		return err
	}
	if balance.Cmp(required) < 0 {
		return insufficientBalance(balance, required)
	}

	current, err = g.token.Allowance(ctx, holder, spender)
	if err != nil {
		return err
	}
	if current.Cmp(required) < 0 {
		return approvalFailed(
			fmt.Sprintf("allowance still insufficient after approval: have %s, need %s", current, required),
			nil,
		)
	}

	return nil
}

func (g *Guard) approveAndWait(ctx context.Context, spender common.Address, amount *big.Int) error {
	txHash, err := g.token.Approve(ctx, spender, amount)
	if err != nil {
		return err
	}

	log.Debug().
		Str("spender", spender.Hex()).
		Str("amount", amount.String()).
		Str("tx_hash", txHash.Hex()).
		Msg("waiting for approval to be mined")
	return g.token.WaitMined(ctx, txHash)
}

func insufficientBalance(have, need *big.Int) *types.Error {
	return &types.Error{
		Type:    types.ValidationError,
		Reason:  types.ReasonInsufficientFunds,
		Message: fmt.Sprintf("insufficient balance: have %s, need %s", have, need),
	}
}

func approvalFailed(msg string, err error) *types.Error {
	return &types.Error{
		Type:    types.BlockchainError,
		Reason:  types.ReasonInsufficientAllowance,
		Message: msg,
		Err:     err,
	}
}

// IsInsufficientBalance reports whether err is the guard's balance
// precondition failure.
func IsInsufficientBalance(err error) bool {
	return types.TypeOf(err) == types.ValidationError &&
		types.ReasonOf(err) == types.ReasonInsufficientFunds
}

// IsApprovalFailed reports whether err is a failed or ineffective approval.
func IsApprovalFailed(err error) bool {
	return types.TypeOf(err) == types.BlockchainError &&
		types.ReasonOf(err) == types.ReasonInsufficientAllowance
}
