package ledgerclient

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog/log"

	"github.com/levelfi-io/referral-orchestrator/internal/config"
	"github.com/levelfi-io/referral-orchestrator/internal/observability/metrics"
	"github.com/levelfi-io/referral-orchestrator/internal/signer"
	"github.com/levelfi-io/referral-orchestrator/internal/types"
)

// EthBackend is the subset of the Ethereum RPC consumed by the ledger client.
// Satisfied by *ethclient.Client.
type EthBackend interface {
	signer.Backend
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
}

type LedgerClient struct {
	eth      EthBackend
	signer   *signer.Signer
	cfg      *config.LedgerConfig
	contract common.Address
	probe    capabilityProbe
}

var _ LedgerInterface = (*LedgerClient)(nil)

func NewLedgerClient(cfg *config.LedgerConfig, sig *signer.Signer) (*LedgerClient, error) {
	eth, err := ethclient.Dial(cfg.RPCAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial ledger rpc %s: %w", cfg.RPCAddr, err)
	}
	return NewLedgerClientWithBackend(cfg, eth, sig), nil
}

// NewLedgerClientWithBackend wires an externally constructed backend, used by
// tests and by callers sharing one RPC connection.
func NewLedgerClientWithBackend(cfg *config.LedgerConfig, eth EthBackend, sig *signer.Signer) *LedgerClient {
	return &LedgerClient{
		eth:      eth,
		signer:   sig,
		cfg:      cfg,
		contract: cfg.Contract(),
	}
}

// call packs a read accessor, executes it with retries on transient failures
// and unpacks the outputs. Every failure leaves this method already classified.
func (c *LedgerClient) call(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := ledgerABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", method, err)
	}

	start := time.Now()
	raw, err := clientCallWithRetry(func() ([]byte, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
		return c.eth.CallContract(callCtx, ethereum.CallMsg{
			To:   &c.contract,
			Data: data,
		}, nil)
	}, method, c.cfg)
	metrics.RecordLedgerClientLatency(time.Since(start), method, err != nil)
	if err != nil {
		return nil, ClassifyError(method, err)
	}

	out, err := ledgerABI.Unpack(method, raw)
	if err != nil {
		return nil, ClassifyError(method, fmt.Errorf("failed to unpack %s output: %w", method, err))
	}
	return out, nil
}

// submit packs a write method and broadcasts it through the shared signer.
// Submission is not retried: a rebroadcast of an already accepted transaction
// would burn a second nonce.
func (c *LedgerClient) submit(ctx context.Context, method string, args ...any) (common.Hash, error) {
	data, err := ledgerABI.Pack(method, args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack %s call: %w", method, err)
	}

	start := time.Now()
	txHash, err := c.signer.Submit(ctx, c.contract, data)
	metrics.RecordLedgerClientLatency(time.Since(start), method, err != nil)
	if err != nil {
		return common.Hash{}, ClassifyError(method, err)
	}
	return txHash, nil
}

func (c *LedgerClient) GetAccount(ctx context.Context, account common.Address) (*Account, error) {
	out, err := c.call(ctx, "getUserInfo", account)
	if err != nil {
		return nil, err
	}

	return &Account{
		Address:         account,
		UserID:          out[0].(*big.Int).Uint64(),
		SponsorID:       out[1].(*big.Int).Uint64(),
		IsActive:        out[2].(bool),
		ActivatedAt:     time.Unix(out[3].(*big.Int).Int64(), 0).UTC(),
		DirectReferrals: out[4].(*big.Int).Uint64(),
		TotalEarned:     out[5].(*big.Int),
		TotalWithdrawn:  out[6].(*big.Int),
		AchieverLevel:   out[7].(uint8),
		Name:            out[8].(string),
		Contact:         out[9].(string),
	}, nil
}

func (c *LedgerClient) GetAddressByID(ctx context.Context, userID uint64) (common.Address, error) {
	out, err := c.call(ctx, "addressById", new(big.Int).SetUint64(userID))
	if err != nil {
		return common.Address{}, err
	}
	return out[0].(common.Address), nil
}

func (c *LedgerClient) GetDirectReferralIDs(ctx context.Context, account common.Address) ([]uint64, error) {
	out, err := c.call(ctx, "getDirectReferrals", account)
	if err != nil {
		return nil, err
	}

	raw := out[0].([]*big.Int)
	ids := make([]uint64, len(raw))
	for i, id := range raw {
		ids[i] = id.Uint64()
	}
	return ids, nil
}

// GetLevelIncome reads a single level (1-based) via the v1 point accessor.
func (c *LedgerClient) GetLevelIncome(ctx context.Context, account common.Address, level int) (LevelIncome, error) {
	if level < 1 || level > NumLevels {
		return LevelIncome{}, types.NewValidationError("level must be between 1 and %d, got %d", NumLevels, level)
	}

	out, err := c.call(ctx, "getLevelIncome", account, big.NewInt(int64(level)))
	if err != nil {
		return LevelIncome{}, err
	}
	return NewLevelIncome(out[0].(*big.Int), out[1].(*big.Int)), nil
}

// GetAllLevelIncome reads all levels in one call. Only available on v2
// ledgers; callers select the accessor from Capability.
func (c *LedgerClient) GetAllLevelIncome(ctx context.Context, account common.Address) ([NumLevels]LevelIncome, error) {
	var result [NumLevels]LevelIncome

	out, err := c.call(ctx, "getAllLevelIncome", account)
	if err != nil {
		return result, err
	}

	earned := out[0].([NumLevels]*big.Int)
	withdrawn := out[1].([NumLevels]*big.Int)
	for i := range NumLevels {
		result[i] = NewLevelIncome(earned[i], withdrawn[i])
	}
	return result, nil
}

func (c *LedgerClient) GetEligibleUsers(ctx context.Context) ([]common.Address, error) {
	out, err := c.call(ctx, "getEligibleUsers")
	if err != nil {
		return nil, err
	}

	accounts := out[0].([]common.Address)
	metrics.RecordEligibleAccountsCount(len(accounts))
	return accounts, nil
}

func (c *LedgerClient) IsEligible(ctx context.Context, account common.Address) (bool, error) {
	out, err := c.call(ctx, "isEligible", account)
	if err != nil {
		return false, err
	}
	return out[0].(bool), nil
}

func (c *LedgerClient) GetDistributionCursor(ctx context.Context) (*DistributionCursor, error) {
	out, err := c.call(ctx, "getDistributionCursor")
	if err != nil {
		return nil, err
	}

	cursor := &DistributionCursor{
		LastIndex:     out[0].(*big.Int).Uint64(),
		TotalEligible: out[1].(*big.Int).Uint64(),
		BatchSize:     out[2].(*big.Int).Uint64(),
		IsComplete:    out[3].(bool),
	}
	metrics.RecordDistributionCursorIndex(cursor.LastIndex)
	return cursor, nil
}

func (c *LedgerClient) GetPoolStats(ctx context.Context) (*PoolStats, error) {
	out, err := c.call(ctx, "getPoolStats")
	if err != nil {
		return nil, err
	}

	return &PoolStats{
		Balance:          out[0].(*big.Int),
		TotalDistributed: out[1].(*big.Int),
		EligibleCount:    out[2].(*big.Int).Uint64(),
	}, nil
}

func (c *LedgerClient) GetAdminSummary(ctx context.Context) (*AdminSummary, error) {
	out, err := c.call(ctx, "getAdminSummary")
	if err != nil {
		return nil, err
	}

	return &AdminSummary{
		TotalAccounts:  out[0].(*big.Int).Uint64(),
		ActiveAccounts: out[1].(*big.Int).Uint64(),
		EligibleCount:  out[2].(*big.Int).Uint64(),
		PoolBalance:    out[3].(*big.Int),
		Paused:         out[4].(bool),
		Owner:          out[5].(common.Address),
	}, nil
}

func (c *LedgerClient) IsPaused(ctx context.Context) (bool, error) {
	out, err := c.call(ctx, "paused")
	if err != nil {
		return false, err
	}
	return out[0].(bool), nil
}

func (c *LedgerClient) Capability(ctx context.Context) (CapabilityVersion, error) {
	return c.probe.resolve(ctx, func(ctx context.Context) (uint64, error) {
		out, err := c.call(ctx, "interfaceVersion")
		if err != nil {
			return 0, err
		}
		return out[0].(*big.Int).Uint64(), nil
	})
}

func (c *LedgerClient) Register(ctx context.Context, sponsorID uint64, name, contact string) (common.Hash, error) {
	return c.submit(ctx, "register", new(big.Int).SetUint64(sponsorID), name, contact)
}

func (c *LedgerClient) Activate(ctx context.Context) (common.Hash, error) {
	return c.submit(ctx, "activate")
}

func (c *LedgerClient) UpdateProfile(ctx context.Context, name, contact string) (common.Hash, error) {
	return c.submit(ctx, "updateProfile", name, contact)
}

func (c *LedgerClient) WithdrawAll(ctx context.Context) (common.Hash, error) {
	return c.submit(ctx, "withdrawAll")
}

func (c *LedgerClient) WithdrawLevel(ctx context.Context, level int) (common.Hash, error) {
	if level < 1 || level > NumLevels {
		return common.Hash{}, types.NewValidationError("level must be between 1 and %d, got %d", NumLevels, level)
	}
	return c.submit(ctx, "withdrawLevel", big.NewInt(int64(level)))
}

func (c *LedgerClient) WithdrawNonWorking(ctx context.Context) (common.Hash, error) {
	return c.submit(ctx, "withdrawNonWorking")
}

func (c *LedgerClient) ClaimPoolShare(ctx context.Context) (common.Hash, error) {
	return c.submit(ctx, "claimPoolShare")
}

func (c *LedgerClient) Pause(ctx context.Context) (common.Hash, error) {
	return c.submit(ctx, "pause")
}

func (c *LedgerClient) Unpause(ctx context.Context) (common.Hash, error) {
	return c.submit(ctx, "unpause")
}

func (c *LedgerClient) DistributePool(ctx context.Context) (common.Hash, error) {
	return c.submit(ctx, "distributePool")
}

func (c *LedgerClient) DistributePoolBatch(ctx context.Context) (common.Hash, error) {
	return c.submit(ctx, "distributePoolBatch")
}

func (c *LedgerClient) AddEligible(ctx context.Context, account common.Address) (common.Hash, error) {
	return c.submit(ctx, "addEligible", account)
}

func (c *LedgerClient) RemoveEligible(ctx context.Context, account common.Address) (common.Hash, error) {
	return c.submit(ctx, "removeEligible", account)
}

func (c *LedgerClient) UpdateDistributionPercentages(ctx context.Context, percentages []uint64) (common.Hash, error) {
	converted := make([]*big.Int, len(percentages))
	for i, p := range percentages {
		converted[i] = new(big.Int).SetUint64(p)
	}
	return c.submit(ctx, "updateDistributionPercentages", converted)
}

func (c *LedgerClient) UpdateReserveWallet(ctx context.Context, wallet common.Address) (common.Hash, error) {
	return c.submit(ctx, "updateReserveWallet", wallet)
}

func (c *LedgerClient) TransferOwnership(ctx context.Context, newOwner common.Address) (common.Hash, error) {
	return c.submit(ctx, "transferOwnership", newOwner)
}

func (c *LedgerClient) MarkAchieverReward(ctx context.Context, account common.Address, level int) (common.Hash, error) {
	return c.submit(ctx, "markAchieverReward", account, big.NewInt(int64(level)))
}

// WaitMined polls for the receipt of a broadcast transaction until it is
// included or the configured confirmation timeout elapses. A timeout aborts
// only the wait; the transaction itself stays in flight.
func (c *LedgerClient) WaitMined(ctx context.Context, txHash common.Hash) (*Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, c.cfg.ConfirmTimeout)
	defer cancel()

	ticker := time.NewTicker(c.cfg.ConfirmPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.eth.TransactionReceipt(waitCtx, txHash)
		if err == nil && receipt != nil {
			if receipt.Status != gethtypes.ReceiptStatusSuccessful {
				return nil, types.NewBlockchainError(
					types.ReasonUnknown,
					fmt.Sprintf("transaction %s reverted", txHash.Hex()),
					fmt.Errorf("receipt status %d in block %d", receipt.Status, receipt.BlockNumber.Uint64()),
				)
			}

			feePaid := new(big.Int).Mul(
				new(big.Int).SetUint64(receipt.GasUsed),
				receipt.EffectiveGasPrice,
			)
			return &Receipt{
				TxHash:      txHash,
				BlockNumber: receipt.BlockNumber.Uint64(),
				GasUsed:     receipt.GasUsed,
				FeePaid:     feePaid,
			}, nil
		}
		if err != nil && !isReceiptPending(err) {
			log.Debug().Err(err).Str("tx_hash", txHash.Hex()).Msg("receipt poll failed, will retry")
		}

		select {
		case <-waitCtx.Done():
			return nil, types.NewBlockchainError(
				types.ReasonNetwork,
				fmt.Sprintf("timed out waiting for transaction %s", txHash.Hex()),
				waitCtx.Err(),
			)
		case <-ticker.C:
		}
	}
}

func isReceiptPending(err error) bool {
	return errors.Is(err, ethereum.NotFound)
}

func clientCallWithRetry(call retry.RetryableFuncWithData[[]byte], method string, cfg *config.LedgerConfig) ([]byte, error) {
	return retry.DoWithData(call,
		retry.Attempts(cfg.MaxRetryTimes),
		retry.Delay(cfg.RetryInterval),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			// reverts are deterministic, only transport faults are worth retrying
			return classifyReason(err) == types.ReasonNetwork
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Debug().
				Uint("attempt", n+1).
				Uint("max_attempts", cfg.MaxRetryTimes).
				Str("method", method).
				Err(err).
				Msg("failed to call the ledger contract")
		}))
}
