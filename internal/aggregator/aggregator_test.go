package aggregator

import (
	"context"
	"errors"
	"math/big"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/levelfi-io/referral-orchestrator/internal/clients/ledgerclient"
)

type fakeLedger struct {
	ledgerclient.LedgerInterface

	addresses  map[uint64]common.Address
	accounts   map[common.Address]*ledgerclient.Account
	children   map[common.Address][]uint64
	capability ledgerclient.CapabilityVersion

	batchIncome    [ledgerclient.NumLevels]ledgerclient.LevelIncome
	perLevelIncome map[int]ledgerclient.LevelIncome

	directErr     error
	capabilityErr error
	accountErrFor map[common.Address]error

	addressCalls atomic.Int64
}

func (f *fakeLedger) GetDirectReferralIDs(_ context.Context, account common.Address) ([]uint64, error) {
	if f.directErr != nil {
		return nil, f.directErr
	}
	return f.children[account], nil
}

func (f *fakeLedger) GetAddressByID(_ context.Context, userID uint64) (common.Address, error) {
	f.addressCalls.Add(1)
	addr, ok := f.addresses[userID]
	if !ok {
		return common.Address{}, errors.New("unknown user id")
	}
	return addr, nil
}

func (f *fakeLedger) GetAccount(_ context.Context, account common.Address) (*ledgerclient.Account, error) {
	if err := f.accountErrFor[account]; err != nil {
		return nil, err
	}
	acct, ok := f.accounts[account]
	if !ok {
		return nil, errors.New("unknown account")
	}
	return acct, nil
}

func (f *fakeLedger) Capability(_ context.Context) (ledgerclient.CapabilityVersion, error) {
	if f.capabilityErr != nil {
		return ledgerclient.CapabilityUnknown, f.capabilityErr
	}
	return f.capability, nil
}

func (f *fakeLedger) GetAllLevelIncome(_ context.Context, _ common.Address) ([ledgerclient.NumLevels]ledgerclient.LevelIncome, error) {
	return f.batchIncome, nil
}

func (f *fakeLedger) GetLevelIncome(_ context.Context, _ common.Address, level int) (ledgerclient.LevelIncome, error) {
	li, ok := f.perLevelIncome[level]
	if !ok {
		return ledgerclient.LevelIncome{}, errors.New("read failed")
	}
	return li, nil
}

var (
	rootAddr   = common.HexToAddress("0x1000000000000000000000000000000000000001")
	child2Addr = common.HexToAddress("0x1000000000000000000000000000000000000002")
	child3Addr = common.HexToAddress("0x1000000000000000000000000000000000000003")
	child4Addr = common.HexToAddress("0x1000000000000000000000000000000000000004")
)

func newTreeLedger() *fakeLedger {
	ledger := &fakeLedger{
		addresses: map[uint64]common.Address{
			2: child2Addr,
			3: child3Addr,
			4: child4Addr,
		},
		accounts: map[common.Address]*ledgerclient.Account{
			child2Addr: {UserID: 2, Address: child2Addr, Name: "alice", IsActive: true, DirectReferrals: 1, TotalEarned: big.NewInt(500)},
			child3Addr: {UserID: 3, Address: child3Addr, Name: "bob", IsActive: false, DirectReferrals: 0, TotalEarned: big.NewInt(0)},
			child4Addr: {UserID: 4, Address: child4Addr, Name: "carol", IsActive: true, DirectReferrals: 0, TotalEarned: big.NewInt(100)},
		},
		children: map[common.Address][]uint64{
			rootAddr:   {2, 3},
			child2Addr: {4},
		},
		capability: ledgerclient.CapabilityV2,
	}
	for i := range ledger.batchIncome {
		ledger.batchIncome[i] = ledgerclient.ZeroLevelIncome()
	}
	return ledger
}

func TestGetReferralView_ZeroReferralsShortCircuits(t *testing.T) {
	ledger := &fakeLedger{children: map[common.Address][]uint64{}}
	a := New(ledger, 4)

	view := a.GetReferralView(context.Background(), rootAddr)

	require.NotNil(t, view)
	assert.Empty(t, view.Direct)
	assert.Equal(t, uint64(0), view.Team.TotalMembers)
	assert.Zero(t, view.Team.TotalIncome.Sign())
	// leaf answer must not trigger any per-child reads
	assert.Equal(t, int64(0), ledger.addressCalls.Load())
}

func TestGetReferralView_TopLevelFailureReturnsZeroView(t *testing.T) {
	ledger := &fakeLedger{directErr: errors.New("rpc down")}
	a := New(ledger, 4)

	view := a.GetReferralView(context.Background(), rootAddr)

	require.NotNil(t, view)
	assert.Empty(t, view.Direct)
	for _, stat := range view.ByLevel {
		assert.Equal(t, uint64(0), stat.Count)
		assert.Zero(t, stat.Income.Sign())
	}
}

func TestGetReferralView_WalksTreeWithBatchedIncome(t *testing.T) {
	ledger := newTreeLedger()
	ledger.batchIncome[0] = ledgerclient.NewLevelIncome(big.NewInt(300), big.NewInt(100))
	ledger.batchIncome[1] = ledgerclient.NewLevelIncome(big.NewInt(50), big.NewInt(0))
	for i := 2; i < ledgerclient.NumLevels; i++ {
		ledger.batchIncome[i] = ledgerclient.ZeroLevelIncome()
	}

	a := New(ledger, 4)
	view := a.GetReferralView(context.Background(), rootAddr)

	require.Len(t, view.Direct, 2)
	names := []string{view.Direct[0].Name, view.Direct[1].Name}
	assert.ElementsMatch(t, []string{"alice", "bob"}, names)

	assert.Equal(t, uint64(2), view.ByLevel[0].Count)
	assert.Equal(t, uint64(1), view.ByLevel[1].Count)
	assert.Equal(t, uint64(0), view.ByLevel[2].Count)
	assert.Equal(t, big.NewInt(300), view.ByLevel[0].Income)
	assert.Equal(t, big.NewInt(50), view.ByLevel[1].Income)

	assert.Equal(t, uint64(3), view.Team.TotalMembers)
	assert.Equal(t, uint64(1), view.Team.ActiveDirects)
	assert.Equal(t, big.NewInt(350), view.Team.TotalIncome)
}

func TestGetReferralView_DropsUnreadableChild(t *testing.T) {
	ledger := newTreeLedger()
	ledger.accountErrFor = map[common.Address]error{child3Addr: errors.New("rpc timeout")}

	a := New(ledger, 4)
	view := a.GetReferralView(context.Background(), rootAddr)

	require.Len(t, view.Direct, 1)
	assert.Equal(t, "alice", view.Direct[0].Name)
	// the unreadable child still counts at its own level
	assert.Equal(t, uint64(2), view.ByLevel[0].Count)
}

func TestGetReferralView_PerLevelIncomeFallback(t *testing.T) {
	ledger := newTreeLedger()
	ledger.capability = ledgerclient.CapabilityV1
	ledger.perLevelIncome = map[int]ledgerclient.LevelIncome{
		1: ledgerclient.NewLevelIncome(big.NewInt(200), big.NewInt(0)),
		2: ledgerclient.NewLevelIncome(big.NewInt(80), big.NewInt(20)),
	}
	for level := 3; level <= ledgerclient.NumLevels; level++ {
		ledger.perLevelIncome[level] = ledgerclient.ZeroLevelIncome()
	}

	a := New(ledger, 4)
	view := a.GetReferralView(context.Background(), rootAddr)

	assert.Equal(t, big.NewInt(200), view.ByLevel[0].Income)
	assert.Equal(t, big.NewInt(80), view.ByLevel[1].Income)
	assert.Equal(t, big.NewInt(280), view.Team.TotalIncome)
}

func TestGetReferralView_CapabilityFailureDegradesIncomeOnly(t *testing.T) {
	ledger := newTreeLedger()
	ledger.capabilityErr = errors.New("probe failed")

	a := New(ledger, 4)
	view := a.GetReferralView(context.Background(), rootAddr)

	// structure survives, income degrades
	require.Len(t, view.Direct, 2)
	assert.Equal(t, uint64(2), view.ByLevel[0].Count)
	for _, stat := range view.ByLevel {
		assert.Zero(t, stat.Income.Sign())
	}
}
