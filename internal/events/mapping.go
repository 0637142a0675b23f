package events

import "github.com/levelfi-io/referral-orchestrator/internal/types"

// eventViews maps each ledger event to the cached views it makes stale. The
// table is static: adding an event type without a row here means confirmed
// on-chain changes would keep serving stale reads.
var eventViews = map[types.EventType][]types.ViewKey{
	types.EventRegistration:    {types.ViewAccount, types.ViewReferrals},
	types.EventActivation:      {types.ViewAccount, types.ViewReferrals},
	types.EventLevelIncomePaid: {types.ViewLevelIncome, types.ViewAccount, types.ViewTxHistory},
	types.EventPoolDistributed: {types.ViewPoolStats, types.ViewLevelIncome},
	types.EventEligibleAdded:   {types.ViewEligibility},
	types.EventEligibleRemoved: {types.ViewEligibility},
}

// ViewsFor returns the views invalidated by an event. Unknown events
// invalidate nothing.
func ViewsFor(eventType types.EventType) []types.ViewKey {
	return eventViews[eventType]
}
