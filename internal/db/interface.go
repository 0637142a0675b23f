package db

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/levelfi-io/referral-orchestrator/internal/db/model"
	"github.com/levelfi-io/referral-orchestrator/internal/types"
)

type DbInterface interface {
	Ping(ctx context.Context) error
	Close(ctx context.Context) error

	SaveView(ctx context.Context, account common.Address, view types.ViewKey, payload []byte) error
	GetView(ctx context.Context, account common.Address, view types.ViewKey) ([]byte, error)
	DeleteViews(ctx context.Context, account common.Address, views ...types.ViewKey) error
	Invalidate(ctx context.Context, account common.Address, views ...types.ViewKey)

	SaveIncomeRecord(ctx context.Context, record *model.IncomeRecord) error
	GetIncomeRecords(ctx context.Context, account common.Address, limit int64) ([]model.IncomeRecord, error)
}
