package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Ledger      LedgerConfig      `mapstructure:"ledger"`
	Signer      SignerConfig      `mapstructure:"signer"`
	Eligibility EligibilityConfig `mapstructure:"eligibility"`
	Db          DbConfig          `mapstructure:"db"`
	HTTP        HTTPConfig        `mapstructure:"http"`
	Queue       *QueueConfig      `mapstructure:"queue"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

func (cfg *Config) Validate() error {
	if err := cfg.Ledger.Validate(); err != nil {
		return err
	}
	if err := cfg.Signer.Validate(); err != nil {
		return err
	}
	if err := cfg.Eligibility.Validate(); err != nil {
		return err
	}
	if err := cfg.Db.Validate(); err != nil {
		return err
	}
	if err := cfg.HTTP.Validate(); err != nil {
		return err
	}
	// queue is optional; the publisher is disabled when the section is absent
	if cfg.Queue != nil {
		if err := cfg.Queue.Validate(); err != nil {
			return err
		}
	}
	if err := cfg.Metrics.Validate(); err != nil {
		return err
	}
	return nil
}

// New returns a fully parsed configuration from the given file path.
// Environment variables override file values, e.g. LEDGER_RPC-ADDR.
func New(cfgFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(cfgFile)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
