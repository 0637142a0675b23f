package config

import "errors"

type SignerConfig struct {
	// PrivateKey is the hex-encoded key of the shared privileged signer.
	// Prefer setting it via the SIGNER_PRIVATE-KEY environment variable.
	PrivateKey string `mapstructure:"private-key"`
	// FeeBufferPercent is added on top of the gas estimate before privileged
	// writes are submitted.
	FeeBufferPercent int64 `mapstructure:"fee-buffer-percent"`
}

func (cfg *SignerConfig) Validate() error {
	if cfg.PrivateKey == "" {
		return errors.New("signer private-key is required")
	}
	if cfg.FeeBufferPercent < 0 {
		return errors.New("signer fee-buffer-percent must not be negative")
	}
	return nil
}
