package evaluators

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vams/mailrisk/internal/core"
)

// SenderConfig holds the sender-history scoring knobs.
type SenderConfig struct {
	MaxScore       int
	FirstSeenScore int
}

// DefaultSenderConfig returns the reference values.
func DefaultSenderConfig() SenderConfig {
	return SenderConfig{
		MaxScore:       10,
		FirstSeenScore: 5,
	}
}

// SenderEvaluator scores against persisted sender history. It is the only
// module with a side effect: every analyzed message records a sighting.
// Repeat sightings update the record without adding score; MessageCount and
// the timestamps are reserved for future velocity scoring.
type SenderEvaluator struct {
	cfg     SenderConfig
	history core.SenderHistoryRepository
	logger  *zap.Logger
}

// NewSenderEvaluator creates a new sender-history evaluator.
func NewSenderEvaluator(cfg SenderConfig, history core.SenderHistoryRepository, logger *zap.Logger) *SenderEvaluator {
	return &SenderEvaluator{cfg: cfg, history: history, logger: logger}
}

// Name implements core.Evaluator.
func (e *SenderEvaluator) Name() string { return "Sender History" }

// MaxScore implements core.Evaluator.
func (e *SenderEvaluator) MaxScore() int { return e.cfg.MaxScore }

// Evaluate implements core.Evaluator. A store failure degrades to no signal:
// losing a risk hint is safer than failing the whole scan.
func (e *SenderEvaluator) Evaluate(ctx context.Context, email *core.Email) core.ModuleResult {
	address := senderAddress(email.From)
	if address == "" {
		return core.ModuleResult{Module: e.Name(), Score: 0}
	}

	_, created, err := e.history.Upsert(ctx, address, time.Now())
	if err != nil {
		e.logger.Warn("Sender history unavailable, skipping history signal",
			zap.Error(err), zap.String("sender", address))
		return core.ModuleResult{Module: e.Name(), Score: 0}
	}

	if !created {
		return core.ModuleResult{Module: e.Name(), Score: 0}
	}

	score := e.cfg.FirstSeenScore
	if score > e.cfg.MaxScore {
		score = e.cfg.MaxScore
	}
	return core.ModuleResult{
		Module:   e.Name(),
		Score:    score,
		Findings: []string{fmt.Sprintf("First-time sender detected: %s", address)},
	}
}
