package eligibility

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/levelfi-io/referral-orchestrator/internal/clients/ledgerclient"
	"github.com/levelfi-io/referral-orchestrator/internal/types"
	"github.com/levelfi-io/referral-orchestrator/testutil"
)

type fakeLedger struct {
	ledgerclient.LedgerInterface

	accounts map[common.Address]*ledgerclient.Account
	eligible map[common.Address]bool

	addCalls    int
	removeCalls int
	waitCalls   int
}

func (f *fakeLedger) GetAccount(_ context.Context, account common.Address) (*ledgerclient.Account, error) {
	if acct, ok := f.accounts[account]; ok {
		return acct, nil
	}
	// unregistered addresses come back with a zero user id, not an error
	return &ledgerclient.Account{Address: account}, nil
}

func (f *fakeLedger) IsEligible(_ context.Context, account common.Address) (bool, error) {
	return f.eligible[account], nil
}

func (f *fakeLedger) GetEligibleUsers(_ context.Context) ([]common.Address, error) {
	var users []common.Address
	for addr, ok := range f.eligible {
		if ok {
			users = append(users, addr)
		}
	}
	return users, nil
}

func (f *fakeLedger) AddEligible(_ context.Context, account common.Address) (common.Hash, error) {
	f.addCalls++
	f.eligible[account] = true
	return common.HexToHash("0xaa"), nil
}

func (f *fakeLedger) RemoveEligible(_ context.Context, account common.Address) (common.Hash, error) {
	f.removeCalls++
	delete(f.eligible, account)
	return common.HexToHash("0xbb"), nil
}

func (f *fakeLedger) WaitMined(_ context.Context, txHash common.Hash) (*ledgerclient.Receipt, error) {
	f.waitCalls++
	return &ledgerclient.Receipt{TxHash: txHash, BlockNumber: 42, GasUsed: 21000, FeePaid: big.NewInt(1)}, nil
}

var (
	qualifiedAddr    = common.HexToAddress("0x2000000000000000000000000000000000000001")
	inactiveAddr     = common.HexToAddress("0x2000000000000000000000000000000000000002")
	thinAddr         = common.HexToAddress("0x2000000000000000000000000000000000000003")
	unregisteredAddr = common.HexToAddress("0x2000000000000000000000000000000000000004")
)

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		accounts: map[common.Address]*ledgerclient.Account{
			qualifiedAddr: {UserID: 7, Address: qualifiedAddr, IsActive: true, DirectReferrals: 12},
			inactiveAddr:  {UserID: 8, Address: inactiveAddr, IsActive: false, DirectReferrals: 12},
			thinAddr:      {UserID: 9, Address: thinAddr, IsActive: true, DirectReferrals: 3},
		},
		eligible: map[common.Address]bool{},
	}
}

func TestAdd_QualifiedAccount(t *testing.T) {
	ledger := newFakeLedger()
	admin := New(ledger, 10)

	res, err := admin.Add(context.Background(), qualifiedAddr)

	require.NoError(t, err)
	assert.False(t, res.AlreadyApplied)
	assert.NotEmpty(t, res.TxHash)
	require.NotNil(t, res.Receipt)
	assert.Equal(t, 1, ledger.addCalls)
	assert.Equal(t, 1, ledger.waitCalls)
}

func TestAdd_BelowThresholdSpendsNoGas(t *testing.T) {
	ledger := newFakeLedger()
	admin := New(ledger, 10)

	_, err := admin.Add(context.Background(), thinAddr)

	require.Error(t, err)
	assert.True(t, types.IsValidationError(err))
	assert.Contains(t, err.Error(), "at least 10 direct referrals (current: 3)")
	assert.Equal(t, 0, ledger.addCalls)
}

func TestAdd_InactiveAccountRejected(t *testing.T) {
	ledger := newFakeLedger()
	admin := New(ledger, 10)

	_, err := admin.Add(context.Background(), inactiveAddr)

	require.Error(t, err)
	assert.True(t, types.IsValidationError(err))
	assert.Equal(t, 0, ledger.addCalls)
}

func TestAdd_UnregisteredAccountNotFound(t *testing.T) {
	ledger := newFakeLedger()
	admin := New(ledger, 10)

	_, err := admin.Add(context.Background(), unregisteredAddr)

	require.Error(t, err)
	assert.True(t, types.IsNotFoundError(err))
	assert.Equal(t, 0, ledger.addCalls)
}

func TestAdd_AlreadyEligibleIsIdempotent(t *testing.T) {
	ledger := newFakeLedger()
	ledger.eligible[qualifiedAddr] = true
	admin := New(ledger, 10)

	res, err := admin.Add(context.Background(), qualifiedAddr)

	require.NoError(t, err)
	assert.True(t, res.AlreadyApplied)
	assert.Empty(t, res.TxHash)
	assert.Equal(t, 0, ledger.addCalls)
}

func TestRemove_MemberSucceeds(t *testing.T) {
	ledger := newFakeLedger()
	ledger.eligible[qualifiedAddr] = true
	admin := New(ledger, 10)

	res, err := admin.Remove(context.Background(), qualifiedAddr)

	require.NoError(t, err)
	assert.NotEmpty(t, res.TxHash)
	assert.Equal(t, 1, ledger.removeCalls)
}

// Add is idempotent but Remove is not: the asymmetry keeps a mistyped
// removal from silently succeeding.
func TestRemove_NonMemberIsNotFound(t *testing.T) {
	ledger := newFakeLedger()
	admin := New(ledger, 10)

	_, err := admin.Remove(context.Background(), qualifiedAddr)

	require.Error(t, err)
	assert.True(t, types.IsNotFoundError(err))
	assert.Equal(t, 0, ledger.removeCalls)
}

func TestCheck_ReportsThresholdWithoutMutating(t *testing.T) {
	ledger := newFakeLedger()
	admin := New(ledger, 10)

	check, err := admin.Check(context.Background(), thinAddr)

	require.NoError(t, err)
	assert.False(t, check.IsEligible)
	assert.True(t, check.IsActive)
	assert.Equal(t, uint64(3), check.DirectReferrals)
	assert.False(t, check.MeetsThreshold)
	assert.Equal(t, 0, ledger.addCalls)
}

func TestAdd_RandomQualifiedAccounts(t *testing.T) {
	ledger := newFakeLedger()
	admin := New(ledger, 10)

	for range 5 {
		acct := testutil.RandomAccount()
		acct.DirectReferrals = uint64(15)
		ledger.accounts[acct.Address] = acct

		_, err := admin.Add(context.Background(), acct.Address)
		require.NoError(t, err)
	}
	assert.Equal(t, 5, ledger.addCalls)
}

func TestList_ReturnsCurrentMembers(t *testing.T) {
	ledger := newFakeLedger()
	ledger.eligible[qualifiedAddr] = true
	ledger.eligible[inactiveAddr] = true
	admin := New(ledger, 10)

	users, err := admin.List(context.Background())

	require.NoError(t, err)
	assert.ElementsMatch(t, []common.Address{qualifiedAddr, inactiveAddr}, users)
}
