package config

import (
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type LedgerConfig struct {
	// RPCAddr is the HTTP(S) endpoint of the EVM node holding the ledger.
	RPCAddr string `mapstructure:"rpc-addr"`
	// WSAddr is the websocket endpoint used for event subscriptions. When
	// empty, the sync bridge falls back to log polling over RPCAddr.
	WSAddr          string        `mapstructure:"ws-addr"`
	ContractAddress string        `mapstructure:"contract-address"`
	TokenAddress    string        `mapstructure:"token-address"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxRetryTimes   uint          `mapstructure:"max-retry-times"`
	RetryInterval   time.Duration `mapstructure:"retry-interval"`
	// ConfirmTimeout bounds the wait for transaction inclusion. The ledger
	// itself never rejects a stalled wait, so the bound lives here.
	ConfirmTimeout      time.Duration `mapstructure:"confirm-timeout"`
	ConfirmPollInterval time.Duration `mapstructure:"confirm-poll-interval"`
	EventPollInterval   time.Duration `mapstructure:"event-poll-interval"`
	// ChildFanout caps concurrent per-child reads in the referral aggregator.
	ChildFanout int `mapstructure:"child-fanout"`
}

func (cfg *LedgerConfig) Validate() error {
	if cfg.RPCAddr == "" {
		return errors.New("ledger rpc-addr is required")
	}
	if !common.IsHexAddress(cfg.ContractAddress) {
		return errors.New("ledger contract-address must be a valid EVM address")
	}
	if !common.IsHexAddress(cfg.TokenAddress) {
		return errors.New("ledger token-address must be a valid EVM address")
	}
	if cfg.Timeout <= 0 {
		return errors.New("ledger timeout must be positive")
	}
	if cfg.MaxRetryTimes == 0 {
		return errors.New("ledger max-retry-times must be positive")
	}
	if cfg.RetryInterval <= 0 {
		return errors.New("ledger retry-interval must be positive")
	}
	if cfg.ConfirmTimeout <= 0 {
		return errors.New("ledger confirm-timeout must be positive")
	}
	if cfg.ConfirmPollInterval <= 0 {
		return errors.New("ledger confirm-poll-interval must be positive")
	}
	if cfg.EventPollInterval <= 0 {
		return errors.New("ledger event-poll-interval must be positive")
	}
	if cfg.ChildFanout <= 0 {
		return errors.New("ledger child-fanout must be positive")
	}
	return nil
}

func (cfg *LedgerConfig) Contract() common.Address {
	return common.HexToAddress(cfg.ContractAddress)
}

func (cfg *LedgerConfig) Token() common.Address {
	return common.HexToAddress(cfg.TokenAddress)
}
