package orchestrator

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/levelfi-io/referral-orchestrator/internal/clients/ledgerclient"
	"github.com/levelfi-io/referral-orchestrator/internal/types"
)

// TxHandle is the observable state of a single in-flight mutating action.
// One handle exists per logical action; it is discarded once the caller is
// done with it.
type TxHandle struct {
	account common.Address
	action  types.ActionType

	mu      sync.RWMutex
	state   types.TxState
	txHash  common.Hash
	receipt *ledgerclient.Receipt
	failure *Failure

	done chan struct{}
}

func newHandle(account common.Address, action types.ActionType) *TxHandle {
	return &TxHandle{
		account: account,
		action:  action,
		state:   types.TxIdle,
		done:    make(chan struct{}),
	}
}

func (h *TxHandle) Account() common.Address {
	return h.account
}

func (h *TxHandle) Action() types.ActionType {
	return h.action
}

func (h *TxHandle) State() types.TxState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

func (h *TxHandle) TxHash() common.Hash {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.txHash
}

func (h *TxHandle) Receipt() *ledgerclient.Receipt {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.receipt
}

// Failure returns the user-facing failure presentation, nil unless the handle
// is in the failed state.
func (h *TxHandle) Failure() *Failure {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.failure
}

// Done is closed when the handle reaches a terminal state.
func (h *TxHandle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the action reaches a terminal state or ctx is cancelled.
// Cancelling the wait does not withdraw a broadcast transaction.
func (h *TxHandle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *TxHandle) setState(state types.TxState) {
	h.mu.Lock()
	h.state = state
	h.mu.Unlock()
}

func (h *TxHandle) setPending(txHash common.Hash) {
	h.mu.Lock()
	h.state = types.TxPending
	h.txHash = txHash
	h.mu.Unlock()
}

func (h *TxHandle) finishConfirmed(receipt *ledgerclient.Receipt) {
	h.mu.Lock()
	h.state = types.TxConfirmed
	h.receipt = receipt
	h.mu.Unlock()
	close(h.done)
}

func (h *TxHandle) finishFailed(failure *Failure) {
	h.mu.Lock()
	h.state = types.TxFailed
	h.failure = failure
	h.mu.Unlock()
	close(h.done)
}
