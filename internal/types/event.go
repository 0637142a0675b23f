package types

type EventType string

func (e EventType) String() string {
	return string(e)
}

// Ledger-emitted event types the sync bridge subscribes to. The names match
// the event definitions in the referral ledger contract.
const (
	EventRegistration    EventType = "Registration"
	EventActivation      EventType = "Activation"
	EventLevelIncomePaid EventType = "LevelIncomePaid"
	EventPoolDistributed EventType = "PoolDistributed"
	EventEligibleAdded   EventType = "EligibleAdded"
	EventEligibleRemoved EventType = "EligibleRemoved"
)

// ViewKey identifies a cached read view that can be invalidated when a ledger
// event or a confirmed action makes it stale.
type ViewKey string

const (
	ViewAccount     ViewKey = "account"
	ViewLevelIncome ViewKey = "level-income"
	ViewReferrals   ViewKey = "referrals"
	ViewTxHistory   ViewKey = "tx-history"
	ViewPoolStats   ViewKey = "pool-stats"
	ViewEligibility ViewKey = "eligibility"
)

func (k ViewKey) String() string {
	return string(k)
}
