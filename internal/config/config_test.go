package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Ledger: LedgerConfig{
			RPCAddr:             "http://localhost:8545",
			ContractAddress:     "0x52908400098527886E0F7030069857D2E4169EE7",
			TokenAddress:        "0x8617E340B3D01FA5F11F306F4090FD50E238070D",
			Timeout:             20 * time.Second,
			MaxRetryTimes:       3,
			RetryInterval:       time.Second,
			ConfirmTimeout:      2 * time.Minute,
			ConfirmPollInterval: 3 * time.Second,
			EventPollInterval:   10 * time.Second,
			ChildFanout:         8,
		},
		Signer: SignerConfig{
			PrivateKey:       "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80",
			FeeBufferPercent: 20,
		},
		Eligibility: EligibilityConfig{
			MinDirectReferrals: 10,
		},
		Db: DbConfig{
			Username: "test",
			Password: "test",
			Address:  "mongodb://localhost:27017",
			DbName:   "test",
		},
		HTTP: HTTPConfig{
			Host:          "0.0.0.0",
			Port:          8080,
			PathPrefix:    "/api/admin",
			RatePerMinute: 100,
			RateBurst:     10,
		},
		Metrics: MetricsConfig{
			Host: "0.0.0.0",
			Port: 2112,
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())
}

func TestConfig_OptionalQueue(t *testing.T) {
	cfg := validConfig()
	assert.Nil(t, cfg.Queue)
	require.NoError(t, cfg.Validate())

	cfg.Queue = &QueueConfig{Url: "amqp://localhost:5672"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exchange")

	cfg.Queue.Exchange = "referral.events"
	require.NoError(t, cfg.Validate())
}

func TestConfig_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *Config)
		errMsg string
	}{
		{
			name:   "missing rpc addr",
			mutate: func(cfg *Config) { cfg.Ledger.RPCAddr = "" },
			errMsg: "rpc-addr",
		},
		{
			name:   "bad contract address",
			mutate: func(cfg *Config) { cfg.Ledger.ContractAddress = "not-an-address" },
			errMsg: "contract-address",
		},
		{
			name:   "zero confirm timeout",
			mutate: func(cfg *Config) { cfg.Ledger.ConfirmTimeout = 0 },
			errMsg: "confirm-timeout",
		},
		{
			name:   "zero fanout",
			mutate: func(cfg *Config) { cfg.Ledger.ChildFanout = 0 },
			errMsg: "child-fanout",
		},
		{
			name:   "missing signer key",
			mutate: func(cfg *Config) { cfg.Signer.PrivateKey = "" },
			errMsg: "private-key",
		},
		{
			name:   "zero threshold",
			mutate: func(cfg *Config) { cfg.Eligibility.MinDirectReferrals = 0 },
			errMsg: "min-direct-referrals",
		},
		{
			name:   "prefix without slash",
			mutate: func(cfg *Config) { cfg.HTTP.PathPrefix = "api/admin" },
			errMsg: "path-prefix",
		},
		{
			name:   "bad metrics port",
			mutate: func(cfg *Config) { cfg.Metrics.Port = 0 },
			errMsg: "metrics port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
