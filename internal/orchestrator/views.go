package orchestrator

import "github.com/levelfi-io/referral-orchestrator/internal/types"

// actionViews declares, per action type, which cached read views a confirmed
// action invalidates. Declared, never inferred from the action's effects.
var actionViews = map[types.ActionType][]types.ViewKey{
	types.ActionRegister:          {types.ViewAccount, types.ViewReferrals},
	types.ActionActivate:          {types.ViewAccount, types.ViewReferrals},
	types.ActionUpdateProfile:     {types.ViewAccount},
	types.ActionWithdrawAll:       {types.ViewAccount, types.ViewLevelIncome, types.ViewTxHistory},
	types.ActionWithdrawLevel:     {types.ViewAccount, types.ViewLevelIncome, types.ViewTxHistory},
	types.ActionWithdrawNonWork:   {types.ViewAccount, types.ViewLevelIncome, types.ViewTxHistory},
	types.ActionClaimPoolShare:    {types.ViewAccount, types.ViewPoolStats, types.ViewTxHistory},
	types.ActionMarkAchiever:      {types.ViewAccount},
	types.ActionAddEligible:       {types.ViewEligibility, types.ViewPoolStats},
	types.ActionRemoveEligible:    {types.ViewEligibility, types.ViewPoolStats},
	types.ActionDistributePool:    {types.ViewPoolStats, types.ViewAccount, types.ViewTxHistory},
	types.ActionDistributeBatch:   {types.ViewPoolStats, types.ViewAccount, types.ViewTxHistory},
	types.ActionPause:             {types.ViewPoolStats},
	types.ActionUnpause:           {types.ViewPoolStats},
	types.ActionUpdatePercentages: {types.ViewPoolStats},
	types.ActionUpdateReserve:     {types.ViewPoolStats},
	types.ActionTransferOwnership: {types.ViewPoolStats},
}

// ViewsFor returns the declared view keys for an action type.
func ViewsFor(action types.ActionType) []types.ViewKey {
	return actionViews[action]
}
