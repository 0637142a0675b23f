package eligibility

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/levelfi-io/referral-orchestrator/internal/clients/ledgerclient"
	"github.com/levelfi-io/referral-orchestrator/internal/observability/metrics"
	"github.com/levelfi-io/referral-orchestrator/internal/types"
)

// Administrator manages the pool-eligibility allow list. The list itself lives
// on the ledger; this layer enforces the business preconditions the ledger
// does not check before any gas is spent.
type Administrator struct {
	ledger             ledgerclient.LedgerInterface
	minDirectReferrals uint64
}

func New(ledger ledgerclient.LedgerInterface, minDirectReferrals uint64) *Administrator {
	return &Administrator{
		ledger:             ledger,
		minDirectReferrals: minDirectReferrals,
	}
}

type MembershipCheck struct {
	Address         common.Address `json:"address"`
	IsEligible      bool           `json:"isEligible"`
	IsActive        bool           `json:"isActive"`
	DirectReferrals uint64         `json:"directReferrals"`
	MeetsThreshold  bool           `json:"meetsRequirement"`
}

type ChangeResult struct {
	Address        common.Address        `json:"address"`
	AlreadyApplied bool                  `json:"alreadyApplied"`
	TxHash         string                `json:"txHash,omitempty"`
	Receipt        *ledgerclient.Receipt `json:"receipt,omitempty"`
}

func (a *Administrator) List(ctx context.Context) ([]common.Address, error) {
	users, err := a.ledger.GetEligibleUsers(ctx)
	if err != nil {
		return nil, err
	}
	metrics.RecordEligibleAccountsCount(len(users))
	return users, nil
}

func (a *Administrator) Check(ctx context.Context, account common.Address) (*MembershipCheck, error) {
	acct, err := a.ledger.GetAccount(ctx, account)
	if err != nil {
		return nil, err
	}
	if !acct.Exists() {
		return nil, types.NewNotFoundError("user not found")
	}

	eligible, err := a.ledger.IsEligible(ctx, account)
	if err != nil {
		return nil, err
	}

	return &MembershipCheck{
		Address:         account,
		IsEligible:      eligible,
		IsActive:        acct.IsActive,
		DirectReferrals: acct.DirectReferrals,
		MeetsThreshold:  acct.DirectReferrals >= a.minDirectReferrals,
	}, nil
}

// Add puts an account on the allow list. Preconditions run in a fixed order
// so the caller always sees the most fundamental failure first, and no
// transaction is broadcast unless every check passes. Adding an account that
// is already eligible is a no-op, not an error.
func (a *Administrator) Add(ctx context.Context, account common.Address) (*ChangeResult, error) {
	acct, err := a.ledger.GetAccount(ctx, account)
	if err != nil {
		return nil, err
	}
	if !acct.Exists() {
		return nil, types.NewNotFoundError("user not found")
	}
	if !acct.IsActive {
		return nil, types.NewValidationError("user account is not active")
	}
	if acct.DirectReferrals < a.minDirectReferrals {
		return nil, types.NewValidationError(
			"User must have at least %d direct referrals (current: %d)",
			a.minDirectReferrals, acct.DirectReferrals,
		)
	}

	eligible, err := a.ledger.IsEligible(ctx, account)
	if err != nil {
		return nil, err
	}
	if eligible {
		log.Ctx(ctx).Info().Str("account", account.Hex()).Msg("account already eligible, skipping write")
		return &ChangeResult{Address: account, AlreadyApplied: true}, nil
	}

	txHash, err := a.ledger.AddEligible(ctx, account)
	if err != nil {
		return nil, err
	}
	receipt, err := a.ledger.WaitMined(ctx, txHash)
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().
		Str("account", account.Hex()).
		Str("tx_hash", txHash.Hex()).
		Msg("account added to eligible list")

	return &ChangeResult{Address: account, TxHash: txHash.Hex(), Receipt: receipt}, nil
}

// Remove takes an account off the allow list. Unlike Add it is not
// idempotent: removing an account that is not on the list is reported as
// not found so a mistyped address does not silently succeed.
func (a *Administrator) Remove(ctx context.Context, account common.Address) (*ChangeResult, error) {
	eligible, err := a.ledger.IsEligible(ctx, account)
	if err != nil {
		return nil, err
	}
	if !eligible {
		return nil, types.NewNotFoundError("user is not in the eligible list")
	}

	txHash, err := a.ledger.RemoveEligible(ctx, account)
	if err != nil {
		return nil, err
	}
	receipt, err := a.ledger.WaitMined(ctx, txHash)
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().
		Str("account", account.Hex()).
		Str("tx_hash", txHash.Hex()).
		Msg("account removed from eligible list")

	return &ChangeResult{Address: account, TxHash: txHash.Hex(), Receipt: receipt}, nil
}
