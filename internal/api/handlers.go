package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/levelfi-io/referral-orchestrator/internal/aggregator"
	"github.com/levelfi-io/referral-orchestrator/internal/clients/ledgerclient"
	"github.com/levelfi-io/referral-orchestrator/internal/db"
	"github.com/levelfi-io/referral-orchestrator/internal/distribution"
	"github.com/levelfi-io/referral-orchestrator/internal/eligibility"
	"github.com/levelfi-io/referral-orchestrator/internal/orchestrator"
	"github.com/levelfi-io/referral-orchestrator/internal/types"
	"github.com/levelfi-io/referral-orchestrator/pkg"
)

const incomeHistoryLimit = 50

type Handler struct {
	ledger      ledgerclient.LedgerInterface
	admin       *eligibility.Administrator
	coordinator *distribution.Coordinator
	aggregator  *aggregator.Aggregator
	store       db.DbInterface
	orch        *orchestrator.Orchestrator
	// operator is the address the privileged signer submits from; pause and
	// unpause run through the orchestrator under this account.
	operator common.Address
}

func NewHandler(
	ledger ledgerclient.LedgerInterface,
	admin *eligibility.Administrator,
	coordinator *distribution.Coordinator,
	agg *aggregator.Aggregator,
	store db.DbInterface,
	orch *orchestrator.Orchestrator,
	operator common.Address,
) *Handler {
	return &Handler{
		ledger:      ledger,
		admin:       admin,
		coordinator: coordinator,
		aggregator:  agg,
		store:       store,
		orch:        orch,
		operator:    operator,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeData(w, map[string]string{"status": "ok"})
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	paused, err := h.ledger.IsPaused(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	capability, err := h.ledger.Capability(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeData(w, map[string]any{
		"paused":        paused,
		"ledgerVersion": int(capability),
	})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	summary, err := h.ledger.GetAdminSummary(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, summary)
}

func (h *Handler) ListEligible(w http.ResponseWriter, r *http.Request) {
	users, err := h.admin.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]string, len(users))
	for i, u := range users {
		out[i] = u.Hex()
	}
	writeData(w, map[string]any{"users": out, "count": len(out)})
}

func (h *Handler) CheckEligible(w http.ResponseWriter, r *http.Request) {
	account, ok := h.pathAddress(w, r)
	if !ok {
		return
	}
	check, err := h.admin.Check(r.Context(), account)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, check)
}

type addressRequest struct {
	Address string `json:"address"`
}

func (h *Handler) AddEligible(w http.ResponseWriter, r *http.Request) {
	account, ok := h.bodyAddress(w, r)
	if !ok {
		return
	}
	res, err := h.admin.Add(r.Context(), account)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, res)
}

func (h *Handler) RemoveEligible(w http.ResponseWriter, r *http.Request) {
	account, ok := h.bodyAddress(w, r)
	if !ok {
		return
	}
	res, err := h.admin.Remove(r.Context(), account)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, res)
}

type poolStatsView struct {
	Pool   *ledgerclient.PoolStats          `json:"pool"`
	Cursor *ledgerclient.DistributionCursor `json:"cursor"`
}

// PoolStats serves the global pool view through the cache: a hit skips the
// ledger entirely, a miss reads the ledger and repopulates. Invalidation on
// PoolDistributed events keeps the cache honest.
func (h *Handler) PoolStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if cached, err := h.store.GetView(ctx, common.Address{}, types.ViewPoolStats); err == nil {
		writeData(w, json.RawMessage(cached))
		return
	}

	stats, err := h.ledger.GetPoolStats(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cursor, err := h.ledger.GetDistributionCursor(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	view := poolStatsView{Pool: stats, Cursor: cursor}
	if payload, err := json.Marshal(view); err == nil {
		if err := h.store.SaveView(ctx, common.Address{}, types.ViewPoolStats, payload); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("failed to cache pool stats view")
		}
	}
	writeData(w, view)
}

type distributeRequest struct {
	Mode string `json:"mode"`
}

func (h *Handler) Distribute(w http.ResponseWriter, r *http.Request) {
	var req distributeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, types.NewValidationError("invalid request body"))
		return
	}

	switch req.Mode {
	case "batch":
		res, err := h.coordinator.AdvanceBatch(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, res)
	case "direct":
		res, err := h.coordinator.DistributeDirect(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, res)
	default:
		writeError(w, r, types.NewValidationError("mode must be %q or %q", "direct", "batch"))
	}
}

func (h *Handler) ReferralView(w http.ResponseWriter, r *http.Request) {
	account, ok := h.pathAddress(w, r)
	if !ok {
		return
	}
	writeData(w, h.aggregator.GetReferralView(r.Context(), account))
}

func (h *Handler) IncomeHistory(w http.ResponseWriter, r *http.Request) {
	account, ok := h.pathAddress(w, r)
	if !ok {
		return
	}
	records, err := h.store.GetIncomeRecords(r.Context(), account, incomeHistoryLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, map[string]any{"records": records, "count": len(records)})
}

func (h *Handler) Pause(w http.ResponseWriter, r *http.Request) {
	h.adminToggle(w, r, types.ActionPause, h.ledger.Pause)
}

func (h *Handler) Unpause(w http.ResponseWriter, r *http.Request) {
	h.adminToggle(w, r, types.ActionUnpause, h.ledger.Unpause)
}

// adminToggle drives pause/unpause through the full action lifecycle so the
// single-flight guard and view invalidation apply to them like any other
// mutating action.
func (h *Handler) adminToggle(w http.ResponseWriter, r *http.Request, action types.ActionType, broadcast func(ctx context.Context) (common.Hash, error)) {
	// the request context dies with the connection; the lifecycle must not
	ctx := context.WithoutCancel(r.Context())

	handle, err := h.orch.Initiate(ctx, orchestrator.Action{
		Account:   h.operator,
		Type:      action,
		Broadcast: broadcast,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := handle.Wait(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	if failure := handle.Failure(); failure != nil {
		writeError(w, r, types.NewErrorWithMsg(types.BlockchainError, failure.Message))
		return
	}

	receipt := handle.Receipt()
	writeData(w, map[string]any{"txHash": handle.TxHash().Hex(), "blockNumber": receipt.BlockNumber})
}

func (h *Handler) pathAddress(w http.ResponseWriter, r *http.Request) (common.Address, bool) {
	account, err := pkg.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, r, types.NewValidationError("invalid address format"))
		return common.Address{}, false
	}
	return account, true
}

func (h *Handler) bodyAddress(w http.ResponseWriter, r *http.Request) (common.Address, bool) {
	var req addressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, types.NewValidationError("invalid request body"))
		return common.Address{}, false
	}
	account, err := pkg.ParseAddress(req.Address)
	if err != nil {
		writeError(w, r, types.NewValidationError("invalid address format"))
		return common.Address{}, false
	}
	return account, true
}
