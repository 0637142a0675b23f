package cli

import (
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/levelfi-io/referral-orchestrator/internal/clients/ledgerclient"
	"github.com/levelfi-io/referral-orchestrator/internal/clients/tokenclient"
	"github.com/levelfi-io/referral-orchestrator/internal/config"
	"github.com/levelfi-io/referral-orchestrator/internal/signer"
)

// ledgerStack is everything the admin commands share: one RPC connection, the
// privileged signer bound to it, and the contract clients.
type ledgerStack struct {
	cfg    *config.Config
	eth    *ethclient.Client
	signer *signer.Signer
	ledger *ledgerclient.LedgerClient
	token  *tokenclient.TokenClient
}

func buildLedgerStack() (*ledgerStack, error) {
	cfgPath := GetConfigPath()
	cfg, err := config.New(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("error while loading config file %s: %w", cfgPath, err)
	}

	eth, err := ethclient.Dial(cfg.Ledger.RPCAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial ledger rpc %s: %w", cfg.Ledger.RPCAddr, err)
	}

	sig, err := signer.New(cfg.Signer.PrivateKey, cfg.Signer.FeeBufferPercent, eth)
	if err != nil {
		return nil, fmt.Errorf("failed to create signer: %w", err)
	}

	return &ledgerStack{
		cfg:    cfg,
		eth:    eth,
		signer: sig,
		ledger: ledgerclient.NewLedgerClientWithBackend(&cfg.Ledger, eth, sig),
		token:  tokenclient.NewTokenClient(&cfg.Ledger, eth, sig),
	}, nil
}

func (s *ledgerStack) Close() {
	s.eth.Close()
}
