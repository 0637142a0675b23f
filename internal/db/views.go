package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/levelfi-io/referral-orchestrator/internal/db/model"
	"github.com/levelfi-io/referral-orchestrator/internal/observability/metrics"
	"github.com/levelfi-io/referral-orchestrator/internal/types"
)

func viewKeyOf(account common.Address) string {
	return account.Hex()
}

func (db *Database) SaveView(ctx context.Context, account common.Address, view types.ViewKey, payload []byte) error {
	start := time.Now()
	collection := db.collection(model.CachedViewCollection)

	doc := model.CachedView{
		Account:   viewKeyOf(account),
		View:      view.String(),
		Payload:   payload,
		UpdatedAt: time.Now().UTC(),
	}
	filter := bson.M{"account": doc.Account, "view": doc.View}
	update := bson.M{"$set": doc}

	_, err := collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	metrics.RecordDbLatency(time.Since(start), "SaveView", err != nil)
	return err
}

func (db *Database) GetView(ctx context.Context, account common.Address, view types.ViewKey) ([]byte, error) {
	start := time.Now()
	filter := bson.M{"account": viewKeyOf(account), "view": view.String()}
	res := db.collection(model.CachedViewCollection).FindOne(ctx, filter)

	var doc model.CachedView
	err := res.Decode(&doc)
	metrics.RecordDbLatency(time.Since(start), "GetView", err != nil)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{
				Key:     fmt.Sprintf("%s/%s", viewKeyOf(account), view),
				Message: "cached view not found",
			}
		}
		return nil, err
	}
	return doc.Payload, nil
}

// DeleteViews removes cached views. The zero account removes the given views
// for every account, which is how global ledger events are applied.
func (db *Database) DeleteViews(ctx context.Context, account common.Address, views ...types.ViewKey) error {
	if len(views) == 0 {
		return nil
	}
	start := time.Now()

	names := make([]string, len(views))
	for i, v := range views {
		names[i] = v.String()
	}
	filter := bson.M{"view": bson.M{"$in": names}}
	if account != (common.Address{}) {
		filter["account"] = viewKeyOf(account)
	}

	_, err := db.collection(model.CachedViewCollection).DeleteMany(ctx, filter)
	metrics.RecordDbLatency(time.Since(start), "DeleteViews", err != nil)
	return err
}

// Invalidate adapts DeleteViews to the fire-and-forget contract expected by
// the orchestrator and the event bridge: a failed delete is logged, not
// propagated, since serving a stale view beats failing the action.
func (db *Database) Invalidate(ctx context.Context, account common.Address, views ...types.ViewKey) {
	if err := db.DeleteViews(ctx, account, views...); err != nil {
		log.Ctx(ctx).Error().Err(err).
			Str("account", viewKeyOf(account)).
			Msg("failed to invalidate cached views")
		return
	}
	for _, v := range views {
		metrics.RecordViewInvalidation(v.String())
	}
}
