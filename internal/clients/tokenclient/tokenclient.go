package tokenclient

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/levelfi-io/referral-orchestrator/internal/clients/ledgerclient"
	"github.com/levelfi-io/referral-orchestrator/internal/config"
	"github.com/levelfi-io/referral-orchestrator/internal/observability/metrics"
	"github.com/levelfi-io/referral-orchestrator/internal/signer"
)

const erc20ABIJSON = `[
{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"holder","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"holder","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]}
]`

var erc20ABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		panic(err)
	}
	return parsed
}()

type TokenInterface interface {
	BalanceOf(ctx context.Context, holder common.Address) (*big.Int, error)
	Allowance(ctx context.Context, holder, spender common.Address) (*big.Int, error)
	Approve(ctx context.Context, spender common.Address, amount *big.Int) (common.Hash, error)
	// Decimals is read from the token once and cached; the scaling exponent
	// is never assumed.
	Decimals(ctx context.Context) (uint8, error)
	WaitMined(ctx context.Context, txHash common.Hash) error
}

type TokenClient struct {
	eth    ledgerclient.EthBackend
	signer *signer.Signer
	cfg    *config.LedgerConfig
	token  common.Address

	decimalsMu  sync.Mutex
	decimalsSet bool
	decimals    uint8
}

var _ TokenInterface = (*TokenClient)(nil)

func NewTokenClient(cfg *config.LedgerConfig, eth ledgerclient.EthBackend, sig *signer.Signer) *TokenClient {
	return &TokenClient{
		eth:    eth,
		signer: sig,
		cfg:    cfg,
		token:  cfg.Token(),
	}
}

func (c *TokenClient) call(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := erc20ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", method, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	raw, err := c.eth.CallContract(callCtx, ethereum.CallMsg{
		To:   &c.token,
		Data: data,
	}, nil)
	metrics.RecordTokenClientLatency(time.Since(start), method, err != nil)
	if err != nil {
		return nil, ledgerclient.ClassifyError(method, err)
	}

	out, err := erc20ABI.Unpack(method, raw)
	if err != nil {
		return nil, ledgerclient.ClassifyError(method, fmt.Errorf("failed to unpack %s output: %w", method, err))
	}
	return out, nil
}

func (c *TokenClient) BalanceOf(ctx context.Context, holder common.Address) (*big.Int, error) {
	out, err := c.call(ctx, "balanceOf", holder)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

func (c *TokenClient) Allowance(ctx context.Context, holder, spender common.Address) (*big.Int, error) {
	out, err := c.call(ctx, "allowance", holder, spender)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

func (c *TokenClient) Approve(ctx context.Context, spender common.Address, amount *big.Int) (common.Hash, error) {
	data, err := erc20ABI.Pack("approve", spender, amount)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack approve call: %w", err)
	}

	start := time.Now()
	txHash, err := c.signer.Submit(ctx, c.token, data)
	metrics.RecordTokenClientLatency(time.Since(start), "approve", err != nil)
	if err != nil {
		return common.Hash{}, ledgerclient.ClassifyError("approve", err)
	}

	log.Debug().
		Str("spender", spender.Hex()).
		Str("amount", amount.String()).
		Str("tx_hash", txHash.Hex()).
		Msg("broadcast approve")
	return txHash, nil
}

func (c *TokenClient) Decimals(ctx context.Context) (uint8, error) {
	c.decimalsMu.Lock()
	defer c.decimalsMu.Unlock()

	if c.decimalsSet {
		return c.decimals, nil
	}

	out, err := c.call(ctx, "decimals")
	if err != nil {
		// not cached, a transient failure should not pin a zero exponent
		return 0, err
	}

	c.decimals = out[0].(uint8)
	c.decimalsSet = true
	return c.decimals, nil
}

// WaitMined blocks until the approval transaction is included, with the same
// bounded polling as the ledger client.
func (c *TokenClient) WaitMined(ctx context.Context, txHash common.Hash) error {
	waitCtx, cancel := context.WithTimeout(ctx, c.cfg.ConfirmTimeout)
	defer cancel()

	ticker := time.NewTicker(c.cfg.ConfirmPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.eth.TransactionReceipt(waitCtx, txHash)
		if err == nil && receipt != nil {
			if receipt.Status != 1 {
				return ledgerclient.ClassifyError("approve",
					fmt.Errorf("approve transaction %s reverted", txHash.Hex()))
			}
			return nil
		}

		select {
		case <-waitCtx.Done():
			return ledgerclient.ClassifyError("approve",
				fmt.Errorf("timed out waiting for approve transaction %s: %w", txHash.Hex(), waitCtx.Err()))
		case <-ticker.C:
		}
	}
}
