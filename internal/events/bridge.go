package events

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog/log"

	"github.com/levelfi-io/referral-orchestrator/internal/clients/ledgerclient"
	"github.com/levelfi-io/referral-orchestrator/internal/observability/metrics"
	"github.com/levelfi-io/referral-orchestrator/internal/types"
)

// LogBackend is the slice of the eth client the bridge needs. ethclient.Client
// satisfies it.
type LogBackend interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]gethtypes.Log, error)
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- gethtypes.Log) (ethereum.Subscription, error)
}

// Invalidator drops stale cached views. Implemented by the db view store.
type Invalidator interface {
	Invalidate(ctx context.Context, account common.Address, views ...types.ViewKey)
}

// Bridge tails the ledger's event stream and keeps cached views coherent
// with confirmed on-chain state. It prefers a websocket subscription and
// falls back to block-range polling when no subscription can be established.
type Bridge struct {
	backend      LogBackend
	ledger       ledgerclient.LedgerInterface
	bus          *Bus
	invalidator  Invalidator
	contract     common.Address
	pollInterval time.Duration

	quit      chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	lastBlock uint64
}

func NewBridge(
	backend LogBackend,
	ledger ledgerclient.LedgerInterface,
	bus *Bus,
	invalidator Invalidator,
	contract common.Address,
	pollInterval time.Duration,
) *Bridge {
	return &Bridge{
		backend:      backend,
		ledger:       ledger,
		bus:          bus,
		invalidator:  invalidator,
		contract:     contract,
		pollInterval: pollInterval,
		quit:         make(chan struct{}),
	}
}

func (b *Bridge) Start(ctx context.Context) error {
	head, err := b.backend.BlockNumber(ctx)
	if err != nil {
		return err
	}
	b.lastBlock = head

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.run(ctx)
	}()
	return nil
}

func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		close(b.quit)
	})
	b.wg.Wait()
}

func (b *Bridge) run(ctx context.Context) {
	for {
		select {
		case <-b.quit:
			return
		case <-ctx.Done():
			return
		default:
		}

		if err := b.streamLogs(ctx); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("log subscription unavailable, falling back to polling")
			b.pollLogs(ctx)
		}

		select {
		case <-b.quit:
			return
		case <-ctx.Done():
			return
		case <-time.After(b.pollInterval):
			// resubscribe attempt after the stream or poll loop exits
		}
	}
}

func (b *Bridge) query() ethereum.FilterQuery {
	return ethereum.FilterQuery{Addresses: []common.Address{b.contract}}
}

func (b *Bridge) streamLogs(ctx context.Context) error {
	logs := make(chan gethtypes.Log, 64)
	sub, err := b.backend.SubscribeFilterLogs(ctx, b.query(), logs)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	log.Ctx(ctx).Info().Str("contract", b.contract.Hex()).Msg("subscribed to ledger event stream")

	for {
		select {
		case <-b.quit:
			return nil
		case <-ctx.Done():
			return nil
		case err := <-sub.Err():
			return err
		case lg := <-logs:
			b.handleLog(ctx, lg)
		}
	}
}

// pollLogs runs one polling pass per interval until the bridge stops or a
// pass fails, at which point the caller retries subscription.
func (b *Bridge) pollLogs(ctx context.Context) {
	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.quit:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := b.pollOnce(ctx); err != nil {
				log.Ctx(ctx).Warn().Err(err).Msg("log polling pass failed")
				return
			}
		}
	}
}

func (b *Bridge) pollOnce(ctx context.Context) error {
	head, err := b.backend.BlockNumber(ctx)
	if err != nil {
		return err
	}
	if head <= b.lastBlock {
		return nil
	}

	q := b.query()
	q.FromBlock = new(big.Int).SetUint64(b.lastBlock + 1)
	q.ToBlock = new(big.Int).SetUint64(head)

	logs, err := b.backend.FilterLogs(ctx, q)
	if err != nil {
		return err
	}
	for _, lg := range logs {
		b.handleLog(ctx, lg)
	}
	b.lastBlock = head
	return nil
}

func (b *Bridge) handleLog(ctx context.Context, lg gethtypes.Log) {
	if lg.Removed || len(lg.Topics) == 0 {
		return
	}
	start := time.Now()

	contractABI := ledgerclient.LedgerABI()
	abiEvent, err := contractABI.EventByID(lg.Topics[0])
	if err != nil {
		// not an event we track
		return
	}

	evt := b.decode(ctx, abiEvent.Name, lg)
	if evt == nil {
		return
	}

	if evt.Account != (common.Address{}) {
		b.invalidator.Invalidate(ctx, evt.Account, ViewsFor(evt.Type)...)
	} else {
		// global events invalidate their views for every account
		b.invalidator.Invalidate(ctx, common.Address{}, ViewsFor(evt.Type)...)
	}
	b.bus.Emit(ctx, evt)

	metrics.RecordEventProcessingDuration(time.Since(start), evt.Type.String(), false)
}

// decode turns a raw log into a LedgerEvent. The ledger indexes accounts by
// numeric id in most events, so decoding resolves ids back to addresses; a
// failed lookup degrades the event to a global one instead of dropping it.
func (b *Bridge) decode(ctx context.Context, name string, lg gethtypes.Log) *LedgerEvent {
	evt := &LedgerEvent{
		Type:        types.EventType(name),
		BlockNumber: lg.BlockNumber,
		TxHash:      lg.TxHash,
	}

	switch evt.Type {
	case types.EventRegistration, types.EventActivation:
		if len(lg.Topics) < 2 {
			return nil
		}
		evt.UserID = topicUint64(lg.Topics[1])
		evt.Account = b.resolveID(ctx, evt.UserID)
	case types.EventLevelIncomePaid:
		if len(lg.Topics) < 3 {
			return nil
		}
		// the recipient's views are the stale ones
		evt.UserID = topicUint64(lg.Topics[2])
		evt.Account = b.resolveID(ctx, evt.UserID)
		if vals, err := ledgerclient.LedgerABI().Unpack(name, lg.Data); err == nil && len(vals) == 2 {
			if level, ok := vals[0].(*big.Int); ok {
				evt.Level = level.Uint64()
			}
			if amount, ok := vals[1].(*big.Int); ok {
				evt.Amount = amount.String()
			}
		}
	case types.EventPoolDistributed:
		// global, no single account
	case types.EventEligibleAdded, types.EventEligibleRemoved:
		if len(lg.Topics) < 2 {
			return nil
		}
		evt.Account = common.BytesToAddress(lg.Topics[1].Bytes())
	default:
		return nil
	}
	return evt
}

func (b *Bridge) resolveID(ctx context.Context, userID uint64) common.Address {
	addr, err := b.ledger.GetAddressByID(ctx, userID)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Uint64("user_id", userID).Msg("failed to resolve user id from event, treating as global")
		return common.Address{}
	}
	return addr
}

func topicUint64(topic common.Hash) uint64 {
	return new(big.Int).SetBytes(topic.Bytes()).Uint64()
}
