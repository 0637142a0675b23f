package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/levelfi-io/referral-orchestrator/internal/clients/ledgerclient"
	"github.com/levelfi-io/referral-orchestrator/internal/observability/metrics"
	"github.com/levelfi-io/referral-orchestrator/internal/types"
)

// Action describes one mutating ledger call to drive through the lifecycle.
// Estimate is best-effort: its failure removes the fee safety buffer but does
// not abort the action. Broadcast covers signing and submission and returns
// the transaction hash.
type Action struct {
	Account   common.Address
	Type      types.ActionType
	Estimate  func(ctx context.Context) error
	Broadcast func(ctx context.Context) (common.Hash, error)
}

// Waiter blocks until a broadcast transaction is included. Implemented by the
// ledger client.
type Waiter interface {
	WaitMined(ctx context.Context, txHash common.Hash) (*ledgerclient.Receipt, error)
}

// Invalidator drops stale cached read views after a confirmed action.
type Invalidator interface {
	Invalidate(ctx context.Context, account common.Address, views ...types.ViewKey)
}

// Publisher forwards confirmed actions to downstream consumers. Optional.
type Publisher interface {
	PublishConfirmedAction(ctx context.Context, account common.Address, action types.ActionType, txHash common.Hash) error
}

type flightKey struct {
	account common.Address
	action  types.ActionType
}

// Orchestrator drives the estimate-sign-broadcast-confirm lifecycle of
// mutating actions and enforces a single in-flight action per
// (account, action type). Relying on a disabled button is not a guard; a
// bypassing caller hits the single-flight map instead.
type Orchestrator struct {
	waiter      Waiter
	invalidator Invalidator
	publisher   Publisher

	mu       sync.Mutex
	inFlight map[flightKey]struct{}
}

func New(waiter Waiter, invalidator Invalidator, publisher Publisher) *Orchestrator {
	return &Orchestrator{
		waiter:      waiter,
		invalidator: invalidator,
		publisher:   publisher,
		inFlight:    make(map[flightKey]struct{}),
	}
}

// Initiate starts the lifecycle of an action and returns its handle. The
// lifecycle continues in the background; observe it via the handle. A second
// initiation for the same (account, action type) while one is in flight is
// refused with ValidationError.
func (o *Orchestrator) Initiate(ctx context.Context, action Action) (*TxHandle, error) {
	key := flightKey{account: action.Account, action: action.Type}

	o.mu.Lock()
	if _, exists := o.inFlight[key]; exists {
		o.mu.Unlock()
		return nil, types.NewValidationError(
			"action %s is already in flight for account %s", action.Type, action.Account.Hex(),
		)
	}
	o.inFlight[key] = struct{}{}
	o.mu.Unlock()

	handle := newHandle(action.Account, action.Type)
	metrics.IncInFlightActions()

	go func() {
		defer func() {
			o.mu.Lock()
			delete(o.inFlight, key)
			o.mu.Unlock()
			metrics.DecInFlightActions()
		}()
		o.run(ctx, action, handle)
	}()

	return handle, nil
}

func (o *Orchestrator) run(ctx context.Context, action Action, handle *TxHandle) {
	logger := log.Ctx(ctx).With().
		Str("account", action.Account.Hex()).
		Str("action", action.Type.String()).
		Logger()

	handle.setState(types.TxEstimating)
	if action.Estimate != nil {
		if err := action.Estimate(ctx); err != nil {
			// estimation is best-effort, the action proceeds without the
			// safety buffer
			logger.Warn().Err(err).Msg("fee estimation failed, proceeding without buffer")
		}
	}

	handle.setState(types.TxSigning)
	txHash, err := action.Broadcast(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("broadcast failed")
		handle.finishFailed(PresentFailure(err))
		return
	}

	handle.setPending(txHash)
	logger.Info().Str("tx_hash", txHash.Hex()).Msg("transaction broadcast, awaiting inclusion")

	start := time.Now()
	receipt, err := o.waiter.WaitMined(ctx, txHash)
	metrics.RecordTxConfirmLatency(time.Since(start), action.Type.String(), err != nil)
	if err != nil {
		logger.Error().Err(err).Str("tx_hash", txHash.Hex()).Msg("confirmation failed")
		handle.finishFailed(PresentFailure(err))
		return
	}

	if o.invalidator != nil {
		o.invalidator.Invalidate(ctx, action.Account, ViewsFor(action.Type)...)
	}
	if o.publisher != nil {
		if err := o.publisher.PublishConfirmedAction(ctx, action.Account, action.Type, txHash); err != nil {
			// downstream consumers catch up from the ledger, the action
			// itself already succeeded
			logger.Warn().Err(err).Msg("failed to publish confirmed action")
			metrics.RecordQueuePublishError()
		}
	}

	handle.finishConfirmed(receipt)
	logger.Info().
		Str("tx_hash", txHash.Hex()).
		Uint64("block", receipt.BlockNumber).
		Msg("transaction confirmed")
}
