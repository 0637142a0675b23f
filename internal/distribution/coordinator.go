package distribution

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/levelfi-io/referral-orchestrator/internal/clients/ledgerclient"
	"github.com/levelfi-io/referral-orchestrator/internal/observability/metrics"
	"github.com/levelfi-io/referral-orchestrator/internal/types"
)

// Coordinator drives pool distributions. The progress cursor lives on the
// ledger and is re-read after every on-chain call; the coordinator never
// reconstructs it locally, so a restarted process resumes exactly where the
// ledger says the cycle stands.
type Coordinator struct {
	ledger ledgerclient.LedgerInterface
}

func New(ledger ledgerclient.LedgerInterface) *Coordinator {
	return &Coordinator{ledger: ledger}
}

type BatchResult struct {
	StartIndex          uint64                `json:"startIndex"`
	EndIndex            uint64                `json:"endIndex"`
	DistributedThisCall uint64                `json:"distributedThisCall"`
	TotalEligible       uint64                `json:"totalEligible"`
	IsComplete          bool                  `json:"isComplete"`
	AlreadyComplete     bool                  `json:"alreadyComplete"`
	TxHash              string                `json:"txHash,omitempty"`
	Receipt             *ledgerclient.Receipt `json:"receipt,omitempty"`
}

type DirectResult struct {
	TxHash  string                `json:"txHash"`
	Receipt *ledgerclient.Receipt `json:"receipt"`
}

// Status returns the ledger's view of the current cycle.
func (c *Coordinator) Status(ctx context.Context) (*ledgerclient.DistributionCursor, error) {
	return c.ledger.GetDistributionCursor(ctx)
}

// AdvanceBatch performs one batched distribution call and reports how far the
// cursor moved. A call that lands exactly on the boundary and distributes to
// nobody is still a success: it is what flips the cycle to complete.
func (c *Coordinator) AdvanceBatch(ctx context.Context) (*BatchResult, error) {
	before, err := c.ledger.GetDistributionCursor(ctx)
	if err != nil {
		return nil, err
	}
	if before.IsComplete {
		log.Ctx(ctx).Info().Msg("distribution cycle already complete, nothing to advance")
		return &BatchResult{
			StartIndex:      before.LastIndex,
			EndIndex:        before.LastIndex,
			TotalEligible:   before.TotalEligible,
			IsComplete:      true,
			AlreadyComplete: true,
		}, nil
	}

	txHash, err := c.ledger.DistributePoolBatch(ctx)
	if err != nil {
		return nil, err
	}
	receipt, err := c.ledger.WaitMined(ctx, txHash)
	if err != nil {
		return nil, err
	}

	after, err := c.ledger.GetDistributionCursor(ctx)
	if err != nil {
		return nil, err
	}
	metrics.RecordDistributionCursorIndex(after.LastIndex)

	log.Ctx(ctx).Info().
		Uint64("from", before.LastIndex).
		Uint64("to", after.LastIndex).
		Uint64("total_eligible", after.TotalEligible).
		Bool("complete", after.IsComplete).
		Str("tx_hash", txHash.Hex()).
		Msg("advanced batched pool distribution")

	return &BatchResult{
		StartIndex:          before.LastIndex,
		EndIndex:            after.LastIndex,
		DistributedThisCall: after.LastIndex - before.LastIndex,
		TotalEligible:       after.TotalEligible,
		IsComplete:          after.IsComplete,
		TxHash:              txHash.Hex(),
		Receipt:             receipt,
	}, nil
}

// DistributeDirect runs the whole distribution in a single call. It refuses
// to run while a batched cycle is mid-flight: the two modes must not be mixed
// within one cycle or accounts could be paid twice.
func (c *Coordinator) DistributeDirect(ctx context.Context) (*DirectResult, error) {
	cursor, err := c.ledger.GetDistributionCursor(ctx)
	if err != nil {
		return nil, err
	}
	if cursor.LastIndex > 0 && !cursor.IsComplete {
		return nil, types.NewValidationError("a batched distribution cycle is in progress; finish it with batch calls first")
	}

	txHash, err := c.ledger.DistributePool(ctx)
	if err != nil {
		return nil, err
	}
	receipt, err := c.ledger.WaitMined(ctx, txHash)
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().Str("tx_hash", txHash.Hex()).Msg("distributed pool in direct mode")
	return &DirectResult{TxHash: txHash.Hex(), Receipt: receipt}, nil
}
