package aggregator

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	"github.com/levelfi-io/referral-orchestrator/internal/clients/ledgerclient"
)

type ChildSummary struct {
	UserID          uint64         `json:"userId"`
	Address         common.Address `json:"address"`
	Name            string         `json:"name"`
	IsActive        bool           `json:"isActive"`
	DirectReferrals uint64         `json:"directReferrals"`
	TotalEarned     *big.Int       `json:"totalEarned"`
	ActivatedAt     time.Time      `json:"activatedAt"`
}

type LevelStat struct {
	Count  uint64   `json:"count"`
	Income *big.Int `json:"income"`
}

type TeamStats struct {
	TotalMembers  uint64   `json:"totalMembers"`
	ActiveDirects uint64   `json:"activeDirects"`
	TotalIncome   *big.Int `json:"totalIncome"`
}

type ReferralView struct {
	Direct  []ChildSummary                    `json:"direct"`
	ByLevel [ledgerclient.NumLevels]LevelStat `json:"byLevel"`
	Team    TeamStats                         `json:"teamStats"`
}

// zeroView is the degraded result: the aggregator's contract is
// lossy-but-available, dependent computations never observe an error.
func zeroView() *ReferralView {
	view := &ReferralView{
		Direct: []ChildSummary{},
		Team:   TeamStats{TotalIncome: big.NewInt(0)},
	}
	for i := range view.ByLevel {
		view.ByLevel[i] = LevelStat{Income: big.NewInt(0)}
	}
	return view
}

// Aggregator reconstructs the 10-level referral and income view of an account
// from point reads. No indexer exists for the ledger; the tree is walked
// level by level with bounded fan-out.
type Aggregator struct {
	ledger ledgerclient.LedgerInterface
	fanout int
}

func New(ledger ledgerclient.LedgerInterface, fanout int) *Aggregator {
	return &Aggregator{ledger: ledger, fanout: fanout}
}

// GetReferralView returns the referral view for an account. It never fails:
// unrecoverable errors degrade to the all-zero structure, and individual
// unreadable children are dropped rather than failing the whole call.
func (a *Aggregator) GetReferralView(ctx context.Context, account common.Address) *ReferralView {
	logger := log.Ctx(ctx).With().Str("account", account.Hex()).Logger()

	directIDs, err := a.ledger.GetDirectReferralIDs(ctx, account)
	if err != nil {
		logger.Error().Err(err).Msg("failed to read direct referrals, returning zero view")
		return zeroView()
	}

	// leaf accounts answer without a single further round trip
	if len(directIDs) == 0 {
		return zeroView()
	}

	view := zeroView()
	view.Direct = a.fetchChildSummaries(ctx, directIDs)

	levelCounts := a.countLevels(ctx, directIDs)
	income := a.fetchLevelIncome(ctx, account)

	var totalMembers uint64
	totalIncome := big.NewInt(0)
	for i := range ledgerclient.NumLevels {
		view.ByLevel[i] = LevelStat{
			Count:  levelCounts[i],
			Income: income[i].Earned,
		}
		totalMembers += levelCounts[i]
		totalIncome.Add(totalIncome, income[i].Earned)
	}

	var activeDirects uint64
	for _, child := range view.Direct {
		if child.IsActive {
			activeDirects++
		}
	}

	view.Team = TeamStats{
		TotalMembers:  totalMembers,
		ActiveDirects: activeDirects,
		TotalIncome:   totalIncome,
	}
	return view
}

// fetchChildSummaries resolves each direct child concurrently. Children that
// cannot be read are dropped from the result set.
func (a *Aggregator) fetchChildSummaries(ctx context.Context, ids []uint64) []ChildSummary {
	p := pool.NewWithResults[*ChildSummary]().WithMaxGoroutines(a.fanout)
	for _, id := range ids {
		p.Go(func() *ChildSummary {
			summary, err := a.fetchChild(ctx, id)
			if err != nil {
				log.Ctx(ctx).Warn().Err(err).Uint64("user_id", id).Msg("dropping unreadable child from referral view")
				return nil
			}
			return summary
		})
	}

	results := p.Wait()
	summaries := make([]ChildSummary, 0, len(results))
	for _, r := range results {
		if r != nil {
			summaries = append(summaries, *r)
		}
	}
	return summaries
}

func (a *Aggregator) fetchChild(ctx context.Context, id uint64) (*ChildSummary, error) {
	addr, err := a.ledger.GetAddressByID(ctx, id)
	if err != nil {
		return nil, err
	}

	account, err := a.ledger.GetAccount(ctx, addr)
	if err != nil {
		return nil, err
	}

	return &ChildSummary{
		UserID:          account.UserID,
		Address:         account.Address,
		Name:            account.Name,
		IsActive:        account.IsActive,
		DirectReferrals: account.DirectReferrals,
		TotalEarned:     account.TotalEarned,
		ActivatedAt:     account.ActivatedAt,
	}, nil
}

// countLevels walks the tree breadth first, one ledger read per node, with
// bounded fan-out per level. A node that cannot be read contributes nothing
// below itself.
func (a *Aggregator) countLevels(ctx context.Context, directIDs []uint64) [ledgerclient.NumLevels]uint64 {
	var counts [ledgerclient.NumLevels]uint64

	frontier := directIDs
	for level := 0; level < ledgerclient.NumLevels && len(frontier) > 0; level++ {
		counts[level] = uint64(len(frontier))

		if level == ledgerclient.NumLevels-1 {
			break
		}

		p := pool.NewWithResults[[]uint64]().WithMaxGoroutines(a.fanout)
		for _, id := range frontier {
			p.Go(func() []uint64 {
				children, err := a.childIDs(ctx, id)
				if err != nil {
					log.Ctx(ctx).Warn().Err(err).Uint64("user_id", id).Msg("dropping unreadable subtree from level counts")
					return nil
				}
				return children
			})
		}

		var next []uint64
		for _, children := range p.Wait() {
			next = append(next, children...)
		}
		frontier = next
	}

	return counts
}

func (a *Aggregator) childIDs(ctx context.Context, id uint64) ([]uint64, error) {
	addr, err := a.ledger.GetAddressByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return a.ledger.GetDirectReferralIDs(ctx, addr)
}

// fetchLevelIncome selects the batched accessor on v2 ledgers and falls back
// to per-level point reads on v1. The capability is probed once by the
// client, not guessed per call.
func (a *Aggregator) fetchLevelIncome(ctx context.Context, account common.Address) [ledgerclient.NumLevels]ledgerclient.LevelIncome {
	var income [ledgerclient.NumLevels]ledgerclient.LevelIncome
	for i := range income {
		income[i] = ledgerclient.ZeroLevelIncome()
	}

	capability, err := a.ledger.Capability(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to probe ledger capability, level income degraded to zero")
		return income
	}

	if capability == ledgerclient.CapabilityV2 {
		batched, err := a.ledger.GetAllLevelIncome(ctx, account)
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("batched level income read failed, degraded to zero")
			return income
		}
		return batched
	}

	p := pool.NewWithResults[levelRead]().WithMaxGoroutines(a.fanout)
	for level := 1; level <= ledgerclient.NumLevels; level++ {
		p.Go(func() levelRead {
			li, err := a.ledger.GetLevelIncome(ctx, account, level)
			if err != nil {
				log.Ctx(ctx).Warn().Err(err).Int("level", level).Msg("level income read failed, level degraded to zero")
				return levelRead{level: level}
			}
			return levelRead{level: level, income: li, ok: true}
		})
	}

	for _, r := range p.Wait() {
		if r.ok {
			income[r.level-1] = r.income
		}
	}
	return income
}

type levelRead struct {
	level  int
	income ledgerclient.LevelIncome
	ok     bool
}
