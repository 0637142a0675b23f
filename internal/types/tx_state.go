package types

// TxState is the observable lifecycle of a single mutating ledger action.
type TxState string

const (
	TxIdle       TxState = "idle"
	TxEstimating TxState = "estimating"
	TxSigning    TxState = "signing"
	TxPending    TxState = "pending"
	TxConfirmed  TxState = "confirmed"
	TxFailed     TxState = "failed"
)

func (s TxState) String() string {
	return string(s)
}

// Terminal reports whether the state admits no further transitions.
func (s TxState) Terminal() bool {
	return s == TxConfirmed || s == TxFailed
}

// ActionType names a logical user or admin action driven through the
// transaction orchestrator. At most one action per (account, action type) may
// be in flight.
type ActionType string

const (
	ActionRegister          ActionType = "register"
	ActionActivate          ActionType = "activate"
	ActionUpdateProfile     ActionType = "update-profile"
	ActionWithdrawAll       ActionType = "withdraw-all"
	ActionWithdrawLevel     ActionType = "withdraw-level"
	ActionWithdrawNonWork   ActionType = "withdraw-non-working"
	ActionClaimPoolShare    ActionType = "claim-pool-share"
	ActionMarkAchiever      ActionType = "mark-achiever-reward"
	ActionAddEligible       ActionType = "add-eligible"
	ActionRemoveEligible    ActionType = "remove-eligible"
	ActionDistributePool    ActionType = "distribute-pool"
	ActionDistributeBatch   ActionType = "distribute-pool-batch"
	ActionPause             ActionType = "pause"
	ActionUnpause           ActionType = "unpause"
	ActionUpdatePercentages ActionType = "update-distribution-percentages"
	ActionUpdateReserve     ActionType = "update-reserve-wallet"
	ActionTransferOwnership ActionType = "transfer-ownership"
)

func (a ActionType) String() string {
	return string(a)
}
