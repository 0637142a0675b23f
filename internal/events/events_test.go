package events

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/levelfi-io/referral-orchestrator/internal/clients/ledgerclient"
	"github.com/levelfi-io/referral-orchestrator/internal/types"
)

func TestViewsFor_EveryEventHasARow(t *testing.T) {
	all := []types.EventType{
		types.EventRegistration,
		types.EventActivation,
		types.EventLevelIncomePaid,
		types.EventPoolDistributed,
		types.EventEligibleAdded,
		types.EventEligibleRemoved,
	}
	for _, evt := range all {
		assert.NotEmptyf(t, ViewsFor(evt), "event %s invalidates nothing", evt)
	}
	assert.Empty(t, ViewsFor(types.EventType("bogus")))
}

func TestBus_DeliversToAllSubscribers(t *testing.T) {
	bus := NewBus()
	var got []string
	bus.Subscribe(func(_ context.Context, evt *LedgerEvent) {
		got = append(got, "first:"+evt.Type.String())
	})
	bus.Subscribe(func(_ context.Context, evt *LedgerEvent) {
		got = append(got, "second:"+evt.Type.String())
	})

	bus.Emit(context.Background(), &LedgerEvent{Type: types.EventActivation})

	assert.Equal(t, []string{"first:Activation", "second:Activation"}, got)
}

func TestBus_PanickingHandlerDoesNotStopDelivery(t *testing.T) {
	bus := NewBus()
	bus.Subscribe(func(_ context.Context, _ *LedgerEvent) {
		panic("boom")
	})
	delivered := false
	bus.Subscribe(func(_ context.Context, _ *LedgerEvent) {
		delivered = true
	})

	bus.Emit(context.Background(), &LedgerEvent{Type: types.EventRegistration})

	assert.True(t, delivered)
}

type recordingInvalidator struct {
	mu    sync.Mutex
	calls []invalidation
}

type invalidation struct {
	account common.Address
	views   []types.ViewKey
}

func (r *recordingInvalidator) Invalidate(_ context.Context, account common.Address, views ...types.ViewKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, invalidation{account: account, views: views})
}

func (r *recordingInvalidator) snapshot() []invalidation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]invalidation(nil), r.calls...)
}

type fakeLedger struct {
	ledgerclient.LedgerInterface

	addresses map[uint64]common.Address
}

func (f *fakeLedger) GetAddressByID(_ context.Context, userID uint64) (common.Address, error) {
	addr, ok := f.addresses[userID]
	if !ok {
		return common.Address{}, errors.New("unknown user id")
	}
	return addr, nil
}

// fakePollBackend has no websocket support, forcing the polling path. Logs
// queued before the first poll are returned once.
type fakePollBackend struct {
	mu   sync.Mutex
	head uint64
	logs []gethtypes.Log
}

func (f *fakePollBackend) BlockNumber(_ context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.head, nil
}

func (f *fakePollBackend) FilterLogs(_ context.Context, _ ethereum.FilterQuery) ([]gethtypes.Log, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.logs
	f.logs = nil
	return out, nil
}

func (f *fakePollBackend) SubscribeFilterLogs(_ context.Context, _ ethereum.FilterQuery, _ chan<- gethtypes.Log) (ethereum.Subscription, error) {
	return nil, errors.New("notifications not supported")
}

func (f *fakePollBackend) push(lg gethtypes.Log) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.head = lg.BlockNumber
	f.logs = append(f.logs, lg)
}

func eventTopic(name string) common.Hash {
	return ledgerclient.LedgerABI().Events[name].ID
}

func newBig(v uint64) *big.Int {
	return new(big.Int).SetUint64(v)
}

func TestBridge_PollingDecodesAndInvalidates(t *testing.T) {
	accountAddr := common.HexToAddress("0x3000000000000000000000000000000000000001")
	backend := &fakePollBackend{head: 100}
	ledger := &fakeLedger{addresses: map[uint64]common.Address{5: accountAddr}}
	bus := NewBus()
	invalidator := &recordingInvalidator{}

	var emitted []*LedgerEvent
	var emittedMu sync.Mutex
	bus.Subscribe(func(_ context.Context, evt *LedgerEvent) {
		emittedMu.Lock()
		emitted = append(emitted, evt)
		emittedMu.Unlock()
	})

	bridge := NewBridge(backend, ledger, bus, invalidator,
		common.HexToAddress("0x4000000000000000000000000000000000000001"), 10*time.Millisecond)
	require.NoError(t, bridge.Start(context.Background()))
	defer bridge.Stop()

	backend.push(gethtypes.Log{
		BlockNumber: 101,
		Topics:      []common.Hash{eventTopic("Activation"), common.BigToHash(newBig(5))},
	})

	require.Eventually(t, func() bool {
		return len(invalidator.snapshot()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	calls := invalidator.snapshot()
	assert.Equal(t, accountAddr, calls[0].account)
	assert.ElementsMatch(t, []types.ViewKey{types.ViewAccount, types.ViewReferrals}, calls[0].views)

	emittedMu.Lock()
	defer emittedMu.Unlock()
	require.Len(t, emitted, 1)
	assert.Equal(t, types.EventActivation, emitted[0].Type)
	assert.Equal(t, uint64(5), emitted[0].UserID)
}

func TestHandleLog_UnknownTopicIgnored(t *testing.T) {
	backend := &fakePollBackend{head: 100}
	ledger := &fakeLedger{addresses: map[uint64]common.Address{}}
	bus := NewBus()
	invalidator := &recordingInvalidator{}

	emitted := 0
	bus.Subscribe(func(_ context.Context, _ *LedgerEvent) { emitted++ })

	bridge := NewBridge(backend, ledger, bus, invalidator,
		common.HexToAddress("0x4000000000000000000000000000000000000001"), 10*time.Millisecond)

	bridge.handleLog(context.Background(), gethtypes.Log{
		BlockNumber: 101,
		Topics:      []common.Hash{common.HexToHash("0xdeadbeef")},
	})

	assert.Zero(t, emitted)
	assert.Empty(t, invalidator.snapshot())
}

func TestBridge_FailedIDLookupDegradesToGlobal(t *testing.T) {
	backend := &fakePollBackend{head: 100}
	ledger := &fakeLedger{addresses: map[uint64]common.Address{}}
	bus := NewBus()
	invalidator := &recordingInvalidator{}

	bridge := NewBridge(backend, ledger, bus, invalidator,
		common.HexToAddress("0x4000000000000000000000000000000000000001"), 10*time.Millisecond)
	require.NoError(t, bridge.Start(context.Background()))
	defer bridge.Stop()

	backend.push(gethtypes.Log{
		BlockNumber: 101,
		Topics:      []common.Hash{eventTopic("Activation"), common.BigToHash(newBig(99))},
	})

	require.Eventually(t, func() bool {
		return len(invalidator.snapshot()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, common.Address{}, invalidator.snapshot()[0].account)
}
