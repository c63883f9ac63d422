package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/vams/mailrisk/internal/adapters/history"
	"github.com/vams/mailrisk/internal/config"
	"github.com/vams/mailrisk/internal/core"
)

// HistoryFactory creates sender history stores based on configuration
type HistoryFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewHistoryFactory creates a new history factory
func NewHistoryFactory(cfg *config.Config, logger *zap.Logger) *HistoryFactory {
	return &HistoryFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateHistoryRepository creates a sender history store based on the configuration
func (f *HistoryFactory) CreateHistoryRepository() (core.SenderHistoryRepository, error) {
	historyCfg := f.cfg.GetHistory()

	switch historyCfg.Type {
	case "memory":
		return history.NewMemoryStore(f.logger), nil
	case "sqlite":
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(historyCfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return history.NewSQLiteStore(historyCfg.SQLitePath, f.logger)
	case "mysql":
		return history.NewMySQLStore(historyCfg.MySQLDSN, f.logger)
	default:
		return nil, fmt.Errorf("unsupported history store type: %s", historyCfg.Type)
	}
}
