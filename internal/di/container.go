package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/vams/mailrisk/internal/config"
	"github.com/vams/mailrisk/internal/core"
	"github.com/vams/mailrisk/internal/evaluators"
	"github.com/vams/mailrisk/internal/factory"
	"github.com/vams/mailrisk/internal/logging"
	"github.com/vams/mailrisk/internal/parser"
	"github.com/vams/mailrisk/internal/ports"
	"github.com/vams/mailrisk/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register text processor and parser
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return nil, err
	}
	if err := container.Provide(parser.New); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewHistoryFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewReputationFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewTransportFactory); err != nil {
		return nil, err
	}

	// Register sender history repository
	if err := container.Provide(func(f *factory.HistoryFactory) (core.SenderHistoryRepository, error) {
		return f.CreateHistoryRepository()
	}); err != nil {
		return nil, err
	}

	// Register the optional URL reputation client
	if err := container.Provide(func(f *factory.ReputationFactory) (core.URLReputationClient, error) {
		return f.CreateReputationClient()
	}); err != nil {
		return nil, err
	}

	// Register the scoring modules, in aggregation order
	if err := container.Provide(func(
		history core.SenderHistoryRepository,
		reputation core.URLReputationClient,
		logger *zap.Logger,
	) []core.Evaluator {
		return []core.Evaluator{
			evaluators.NewAuthEvaluator(evaluators.DefaultAuthConfig(), logger),
			evaluators.NewURLEvaluator(evaluators.DefaultURLConfig(), reputation, logger),
			evaluators.NewContentEvaluator(evaluators.DefaultContentConfig(), logger),
			evaluators.NewAttachmentEvaluator(evaluators.DefaultAttachmentConfig()),
			evaluators.NewSenderEvaluator(evaluators.DefaultSenderConfig(), history, logger),
			evaluators.NewAnomalyEvaluator(evaluators.DefaultAnomalyConfig()),
		}
	}); err != nil {
		return nil, err
	}

	// Register the spam scorer
	if err := container.Provide(func(logger *zap.Logger) core.SpamScorer {
		return evaluators.NewSpamEvaluator(evaluators.DefaultSpamConfig(), logger)
	}); err != nil {
		return nil, err
	}

	// Register the analysis service
	if err := container.Provide(core.NewAnalysisService); err != nil {
		return nil, err
	}

	// Register the transport
	if err := container.Provide(func(f *factory.TransportFactory) (ports.Transport, error) {
		return f.CreateTransport()
	}); err != nil {
		return nil, err
	}

	return container, nil
}
