// Package config loads the Tally configuration from the environment.
package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/opensource-finance/tally/internal/domain"
)

// Prefix is the environment variable prefix, e.g. TALLY_SERVER_PORT.
const Prefix = "TALLY"

// Load builds the configuration for the tier named by TALLY_TIER and then
// applies any TALLY_* overrides on top of the tier defaults.
func Load() (*domain.Config, error) {
	cfg := domain.DefaultConfig()
	if domain.Tier(os.Getenv(Prefix+"_TIER")) == domain.TierPro {
		cfg = domain.ProConfig()
	}

	if err := envconfig.Process(Prefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if os.Getenv(Prefix+"_DEBUG") == "true" {
		cfg.Logging.Level = "debug"
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *domain.Config) error {
	switch cfg.Tier {
	case domain.TierCommunity, domain.TierPro:
	default:
		return fmt.Errorf("unsupported tier: %s", cfg.Tier)
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}
	if cfg.Calculator.ShareLimit > 0 && cfg.Calculator.ShareWindow <= 0 {
		return fmt.Errorf("share window must be positive when share limit is set")
	}
	return nil
}
