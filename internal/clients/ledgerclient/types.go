package ledgerclient

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// NumLevels is the depth of the referral chain tracked by the ledger.
const NumLevels = 10

type Account struct {
	Address         common.Address
	UserID          uint64
	SponsorID       uint64
	IsActive        bool
	ActivatedAt     time.Time
	DirectReferrals uint64
	TotalEarned     *big.Int
	TotalWithdrawn  *big.Int
	AchieverLevel   uint8
	Name            string
	Contact         string
}

// Exists reports whether the ledger knows this address. The ledger returns a
// zero userId for unregistered addresses instead of reverting.
func (a *Account) Exists() bool {
	return a != nil && a.UserID != 0
}

type LevelIncome struct {
	Earned    *big.Int
	Withdrawn *big.Int
	Available *big.Int
}

// NewLevelIncome derives the available amount; the ledger only stores earned
// and withdrawn. Available never goes negative.
func NewLevelIncome(earned, withdrawn *big.Int) LevelIncome {
	available := new(big.Int).Sub(earned, withdrawn)
	if available.Sign() < 0 {
		available = big.NewInt(0)
	}
	return LevelIncome{Earned: earned, Withdrawn: withdrawn, Available: available}
}

// ZeroLevelIncome returns an all-zero record, used for absent levels and for
// the degraded aggregator result.
func ZeroLevelIncome() LevelIncome {
	return LevelIncome{
		Earned:    big.NewInt(0),
		Withdrawn: big.NewInt(0),
		Available: big.NewInt(0),
	}
}

// DistributionCursor is the ledger-owned progress pointer of a batched pool
// distribution. It is re-read after every call, never reconstructed locally.
type DistributionCursor struct {
	LastIndex     uint64
	TotalEligible uint64
	BatchSize     uint64
	IsComplete    bool
}

type PoolStats struct {
	Balance          *big.Int
	TotalDistributed *big.Int
	EligibleCount    uint64
}

type AdminSummary struct {
	TotalAccounts  uint64
	ActiveAccounts uint64
	EligibleCount  uint64
	PoolBalance    *big.Int
	Paused         bool
	Owner          common.Address
}

// Receipt is the confirmation summary returned for privileged writes.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
	FeePaid     *big.Int
}
