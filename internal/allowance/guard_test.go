package allowance

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	holder  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	spender = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

// fakeToken tracks approvals like a well-behaved ERC-20: an approval takes
// effect once its transaction is "mined".
type fakeToken struct {
	balance   *big.Int
	allowance *big.Int

	approveCalls []*big.Int
	dropApproval bool
	txCounter    int
}

func (f *fakeToken) BalanceOf(ctx context.Context, holder common.Address) (*big.Int, error) {
	return new(big.Int).Set(f.balance), nil
}

func (f *fakeToken) Allowance(ctx context.Context, holder, spender common.Address) (*big.Int, error) {
	return new(big.Int).Set(f.allowance), nil
}

func (f *fakeToken) Approve(ctx context.Context, spender common.Address, amount *big.Int) (common.Hash, error) {
	f.approveCalls = append(f.approveCalls, new(big.Int).Set(amount))
	if !f.dropApproval {
		f.allowance = new(big.Int).Set(amount)
	}
	f.txCounter++
	return common.BigToHash(big.NewInt(int64(f.txCounter))), nil
}

func (f *fakeToken) Decimals(ctx context.Context) (uint8, error) {
	return 18, nil
}

func (f *fakeToken) WaitMined(ctx context.Context, txHash common.Hash) error {
	return nil
}

func tokens(n int64) *big.Int {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	return new(big.Int).Mul(big.NewInt(n), scale)
}

func TestEnsureAllowance_InsufficientBalanceNoWrite(t *testing.T) {
	ctx := context.Background()
	token := &fakeToken{balance: tokens(10), allowance: big.NewInt(0)}
	guard := NewGuard(token)

	err := guard.EnsureAllowance(ctx, holder, spender, tokens(25))
	require.Error(t, err)
	assert.True(t, IsInsufficientBalance(err))
	// failed precondition must not spend a signature
	assert.Empty(t, token.approveCalls)
}

func TestEnsureAllowance_SufficientAllowanceIsNoop(t *testing.T) {
	ctx := context.Background()
	token := &fakeToken{balance: tokens(30), allowance: tokens(40)}
	guard := NewGuard(token)

	err := guard.EnsureAllowance(ctx, holder, spender, tokens(25))
	require.NoError(t, err)
	assert.Empty(t, token.approveCalls)
}

func TestEnsureAllowance_ApprovesWithHeadroom(t *testing.T) {
	ctx := context.Background()
	token := &fakeToken{balance: tokens(30), allowance: big.NewInt(0)}
	guard := NewGuard(token)

	err := guard.EnsureAllowance(ctx, holder, spender, tokens(25))
	require.NoError(t, err)

	// zero allowance skips the reset, single approve at 2x
	require.Len(t, token.approveCalls, 1)
	assert.Zero(t, token.approveCalls[0].Cmp(tokens(50)))

	// post-condition
	balance, _ := token.BalanceOf(ctx, holder)
	current, _ := token.Allowance(ctx, holder, spender)
	assert.True(t, balance.Cmp(tokens(25)) >= 0)
	assert.True(t, current.Cmp(tokens(25)) >= 0)
}

func TestEnsureAllowance_ResetsNonZeroAllowanceFirst(t *testing.T) {
	ctx := context.Background()
	token := &fakeToken{balance: tokens(30), allowance: tokens(5)}
	guard := NewGuard(token)

	err := guard.EnsureAllowance(ctx, holder, spender, tokens(25))
	require.NoError(t, err)

	require.Len(t, token.approveCalls, 2)
	assert.Zero(t, token.approveCalls[0].Sign())
	assert.Zero(t, token.approveCalls[1].Cmp(tokens(50)))
}

func TestEnsureAllowance_DroppedApprovalDetected(t *testing.T) {
	ctx := context.Background()
	token := &fakeToken{balance: tokens(30), allowance: big.NewInt(0), dropApproval: true}
	guard := NewGuard(token)

	err := guard.EnsureAllowance(ctx, holder, spender, tokens(25))
	require.Error(t, err)
	assert.True(t, IsApprovalFailed(err))
}

func TestEnsureAllowance_RejectsNonPositiveAmount(t *testing.T) {
	ctx := context.Background()
	guard := NewGuard(&fakeToken{balance: tokens(30), allowance: big.NewInt(0)})

	require.Error(t, guard.EnsureAllowance(ctx, holder, spender, big.NewInt(0)))
	require.Error(t, guard.EnsureAllowance(ctx, holder, spender, nil))
}
