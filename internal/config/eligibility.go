package config

import "errors"

type EligibilityConfig struct {
	// MinDirectReferrals is the referral-count threshold an active account
	// must reach before it can join the pool allow-list.
	MinDirectReferrals uint64 `mapstructure:"min-direct-referrals"`
}

func (cfg *EligibilityConfig) Validate() error {
	if cfg.MinDirectReferrals == 0 {
		return errors.New("eligibility min-direct-referrals must be positive")
	}
	return nil
}
