package ledgerclient

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/levelfi-io/referral-orchestrator/internal/types"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		reason types.FailureReason
	}{
		{
			name:   "user rejected",
			err:    errors.New("MetaMask Tx Signature: User denied transaction signature"),
			reason: types.ReasonUserRejected,
		},
		{
			name:   "insufficient funds",
			err:    errors.New("insufficient funds for gas * price + value"),
			reason: types.ReasonInsufficientFunds,
		},
		{
			name:   "insufficient allowance",
			err:    errors.New("execution reverted: ERC20: insufficient allowance"),
			reason: types.ReasonInsufficientAllowance,
		},
		{
			name:   "allowance beats balance marker ordering",
			err:    errors.New("execution reverted: ERC20: transfer amount exceeds allowance"),
			reason: types.ReasonInsufficientAllowance,
		},
		{
			name:   "already done",
			err:    errors.New("execution reverted: already registered"),
			reason: types.ReasonAlreadyDone,
		},
		{
			name:   "paused",
			err:    errors.New("execution reverted: Pausable: paused"),
			reason: types.ReasonPaused,
		},
		{
			name:   "network",
			err:    errors.New("dial tcp 127.0.0.1:8545: connection refused"),
			reason: types.ReasonNetwork,
		},
		{
			name:   "context deadline",
			err:    context.DeadlineExceeded,
			reason: types.ReasonNetwork,
		},
		{
			name:   "unmatched",
			err:    errors.New("execution reverted: whatever the contract felt like"),
			reason: types.ReasonUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := ClassifyError("register", tt.err)
			require.NotNil(t, classified)
			assert.Equal(t, types.BlockchainError, classified.Type)
			assert.Equal(t, tt.reason, classified.Reason)
			// raw text stays wrapped, not in the outward message
			assert.NotContains(t, classified.Message, tt.err.Error())
			assert.ErrorIs(t, classified, classified.Err)
		})
	}
}

func TestClassifyError_Nil(t *testing.T) {
	assert.Nil(t, ClassifyError("register", nil))
}

func TestClassifyError_PassesThroughTyped(t *testing.T) {
	orig := types.NewNotFoundError("account not found")
	classified := ClassifyError("getUserInfo", fmt.Errorf("wrapped: %w", orig))
	assert.Equal(t, types.NotFoundError, classified.Type)
	assert.Same(t, orig, classified)
}
