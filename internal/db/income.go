package db

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/levelfi-io/referral-orchestrator/internal/db/model"
	"github.com/levelfi-io/referral-orchestrator/internal/observability/metrics"
)

func (db *Database) SaveIncomeRecord(ctx context.Context, record *model.IncomeRecord) error {
	start := time.Now()
	if record.ReceivedAt.IsZero() {
		record.ReceivedAt = time.Now().UTC()
	}
	_, err := db.collection(model.IncomeRecordCollection).InsertOne(ctx, record)
	metrics.RecordDbLatency(time.Since(start), "SaveIncomeRecord", err != nil)
	return err
}

// GetIncomeRecords returns an account's level-income history, newest first.
func (db *Database) GetIncomeRecords(ctx context.Context, account common.Address, limit int64) ([]model.IncomeRecord, error) {
	start := time.Now()
	filter := bson.M{"account": viewKeyOf(account)}
	opts := options.Find().
		SetSort(bson.M{"block_number": -1}).
		SetLimit(limit)

	cursor, err := db.collection(model.IncomeRecordCollection).Find(ctx, filter, opts)
	if err != nil {
		metrics.RecordDbLatency(time.Since(start), "GetIncomeRecords", true)
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []model.IncomeRecord
	err = cursor.All(ctx, &records)
	metrics.RecordDbLatency(time.Since(start), "GetIncomeRecords", err != nil)
	if err != nil {
		return nil, err
	}
	return records, nil
}
