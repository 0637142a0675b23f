package config

import (
	"errors"
	"fmt"
	"strings"
)

type HTTPConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// PathPrefix is prepended to every admin route, e.g. "/api/admin".
	PathPrefix string `mapstructure:"path-prefix"`
	// APIKey guards the admin routes via the x-api-key header. Left empty,
	// no authentication is enforced.
	APIKey string `mapstructure:"api-key"`
	// RatePerMinute and RateBurst configure the per-caller token bucket.
	RatePerMinute int `mapstructure:"rate-per-minute"`
	RateBurst     int `mapstructure:"rate-burst"`
}

func (cfg *HTTPConfig) Validate() error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return errors.New("http port must be in range 1-65535")
	}
	if cfg.PathPrefix != "" && !strings.HasPrefix(cfg.PathPrefix, "/") {
		return errors.New("http path-prefix must start with /")
	}
	if cfg.RatePerMinute <= 0 {
		return errors.New("http rate-per-minute must be positive")
	}
	if cfg.RateBurst <= 0 {
		return errors.New("http rate-burst must be positive")
	}
	return nil
}

func (cfg *HTTPConfig) ListenAddr() string {
	return fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
}
