package ledgerclient

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

type LedgerInterface interface {
	// reads
	GetAccount(ctx context.Context, account common.Address) (*Account, error)
	GetAddressByID(ctx context.Context, userID uint64) (common.Address, error)
	GetDirectReferralIDs(ctx context.Context, account common.Address) ([]uint64, error)
	GetLevelIncome(ctx context.Context, account common.Address, level int) (LevelIncome, error)
	GetAllLevelIncome(ctx context.Context, account common.Address) ([NumLevels]LevelIncome, error)
	GetEligibleUsers(ctx context.Context) ([]common.Address, error)
	IsEligible(ctx context.Context, account common.Address) (bool, error)
	GetDistributionCursor(ctx context.Context) (*DistributionCursor, error)
	GetPoolStats(ctx context.Context) (*PoolStats, error)
	GetAdminSummary(ctx context.Context) (*AdminSummary, error)
	IsPaused(ctx context.Context) (bool, error)
	Capability(ctx context.Context) (CapabilityVersion, error)

	// writes, broadcast only; use WaitMined for inclusion
	Register(ctx context.Context, sponsorID uint64, name, contact string) (common.Hash, error)
	Activate(ctx context.Context) (common.Hash, error)
	UpdateProfile(ctx context.Context, name, contact string) (common.Hash, error)
	WithdrawAll(ctx context.Context) (common.Hash, error)
	WithdrawLevel(ctx context.Context, level int) (common.Hash, error)
	WithdrawNonWorking(ctx context.Context) (common.Hash, error)
	ClaimPoolShare(ctx context.Context) (common.Hash, error)
	Pause(ctx context.Context) (common.Hash, error)
	Unpause(ctx context.Context) (common.Hash, error)
	DistributePool(ctx context.Context) (common.Hash, error)
	DistributePoolBatch(ctx context.Context) (common.Hash, error)
	AddEligible(ctx context.Context, account common.Address) (common.Hash, error)
	RemoveEligible(ctx context.Context, account common.Address) (common.Hash, error)
	UpdateDistributionPercentages(ctx context.Context, percentages []uint64) (common.Hash, error)
	UpdateReserveWallet(ctx context.Context, wallet common.Address) (common.Hash, error)
	TransferOwnership(ctx context.Context, newOwner common.Address) (common.Hash, error)
	MarkAchieverReward(ctx context.Context, account common.Address, level int) (common.Hash, error)

	WaitMined(ctx context.Context, txHash common.Hash) (*Receipt, error)
}
