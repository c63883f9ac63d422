package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/vams/mailrisk/internal/adapters/virustotal"
	"github.com/vams/mailrisk/internal/config"
	"github.com/vams/mailrisk/internal/core"
)

// ReputationFactory creates the optional URL reputation client
type ReputationFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewReputationFactory creates a new reputation factory
func NewReputationFactory(cfg *config.Config, logger *zap.Logger) *ReputationFactory {
	return &ReputationFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateReputationClient creates a reputation client, or nil when lookups are
// disabled or no API key is configured. A nil client means the URL module
// scores on heuristics alone.
func (f *ReputationFactory) CreateReputationClient() (core.URLReputationClient, error) {
	repCfg, err := f.cfg.GetReputation()
	if err != nil {
		return nil, fmt.Errorf("invalid reputation config: %w", err)
	}
	if !repCfg.Enabled {
		return nil, nil
	}
	if repCfg.APIKey == "" {
		f.logger.Warn("Reputation lookups enabled but no API key configured, disabling")
		return nil, nil
	}

	return virustotal.NewClient(repCfg.APIKey, repCfg.Timeout, repCfg.MinInterval, f.logger), nil
}
