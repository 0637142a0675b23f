package model

import "time"

const (
	CachedViewCollection   = "cached_views"
	IncomeRecordCollection = "income_records"
)

// CachedView is one materialized read view for one account. The compound key
// (account, view) is the document id.
type CachedView struct {
	Account   string    `bson:"account"`
	View      string    `bson:"view"`
	Payload   []byte    `bson:"payload"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// IncomeRecord is one confirmed level-income payment observed on the ledger
// event stream.
type IncomeRecord struct {
	Account     string    `bson:"account"`
	UserID      uint64    `bson:"user_id"`
	Level       uint64    `bson:"level"`
	Amount      string    `bson:"amount"`
	TxHash      string    `bson:"tx_hash"`
	BlockNumber uint64    `bson:"block_number"`
	ReceivedAt  time.Time `bson:"received_at"`
}
