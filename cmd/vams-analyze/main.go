package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vams/mailrisk/internal/config"
	"github.com/vams/mailrisk/internal/core"
	"github.com/vams/mailrisk/internal/evaluators"
	"github.com/vams/mailrisk/internal/factory"
	"github.com/vams/mailrisk/internal/logging"
	"github.com/vams/mailrisk/internal/parser"
	"github.com/vams/mailrisk/internal/utils"
)

var (
	// History store flags
	historyType = flag.String("history", "memory", "Sender history store (memory, sqlite, mysql)")
	sqlitePath  = flag.String("sqlite-path", "", "SQLite database path for sender history")
	mysqlDSN    = flag.String("mysql-dsn", "", "MySQL DSN for sender history")

	// Reputation flags
	vtAPIKey = flag.String("vt-api-key", "", "VirusTotal API key (enables URL reputation lookups)")

	// Input flags
	inputFile  = flag.String("file", "", "Input message file (use stdin if not specified)")
	failOn     = flag.String("fail-on", "", "Exit with status 1 when the recommended action is at least this severe (REVIEW, QUARANTINE, VERIFY, BLOCK)")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog    = flag.Bool("json-log", false, "Output logs in JSON format")
	configFile = flag.String("config", "", "Path to config file (overrides command line flags)")
)

// actionRank orders recommended actions by severity for the -fail-on flag.
var actionRank = map[string]int{
	core.ActionAccept:     0,
	core.ActionReview:     1,
	core.ActionQuarantine: 2,
	core.ActionVerify:     3,
	core.ActionBlock:      4,
}

func main() {
	flag.Parse()

	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	var cfg *config.Config
	if *configFile != "" {
		cfg, err = config.New()
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.Error(err))
		}
		logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
	} else {
		cfg = createConfigFromFlags()
	}

	// Build the sender history store
	historyFactory := factory.NewHistoryFactory(cfg, logger)
	historyRepo, err := historyFactory.CreateHistoryRepository()
	if err != nil {
		logger.Fatal("Failed to create sender history store", zap.Error(err))
	}
	defer func() {
		if closer, ok := historyRepo.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				logger.Error("Failed to close history store", zap.Error(err))
			}
		}
	}()

	// Build the optional reputation client
	reputationFactory := factory.NewReputationFactory(cfg, logger)
	reputation, err := reputationFactory.CreateReputationClient()
	if err != nil {
		logger.Fatal("Failed to create reputation client", zap.Error(err))
	}

	// Assemble the analysis pipeline
	service := core.NewAnalysisService(
		[]core.Evaluator{
			evaluators.NewAuthEvaluator(evaluators.DefaultAuthConfig(), logger),
			evaluators.NewURLEvaluator(evaluators.DefaultURLConfig(), reputation, logger),
			evaluators.NewContentEvaluator(evaluators.DefaultContentConfig(), logger),
			evaluators.NewAttachmentEvaluator(evaluators.DefaultAttachmentConfig()),
			evaluators.NewSenderEvaluator(evaluators.DefaultSenderConfig(), historyRepo, logger),
			evaluators.NewAnomalyEvaluator(evaluators.DefaultAnomalyConfig()),
		},
		evaluators.NewSpamEvaluator(evaluators.DefaultSpamConfig(), logger),
		logger,
	)
	p := parser.New(logger, utils.NewTextProcessor(logger))

	// Read the message from file or stdin
	var raw []byte
	if *inputFile != "" {
		raw, err = os.ReadFile(*inputFile)
		if err != nil {
			logger.Fatal("Failed to read input file", zap.Error(err), zap.String("file", *inputFile))
		}
		logger.Info("Reading message from file", zap.String("file", *inputFile))
	} else {
		raw, err = io.ReadAll(os.Stdin)
		if err != nil {
			logger.Fatal("Failed to read stdin", zap.Error(err))
		}
		logger.Info("Reading message from stdin")
	}

	email, err := p.Parse(raw)
	if err != nil {
		logger.Fatal("Failed to parse message", zap.Error(err))
	}

	fmt.Printf("\n=== Message Summary ===\n")
	fmt.Printf("From: %s\n", email.From)
	fmt.Printf("To: %s\n", email.To)
	fmt.Printf("Subject: %s\n", email.Subject)
	fmt.Printf("URLs: %d\n", len(email.URLs))
	fmt.Printf("Attachments: %d\n", len(email.Attachments))
	fmt.Printf("\n")

	startTime := time.Now()
	verdict := service.Analyze(context.Background(), email)
	duration := time.Since(startTime)

	fmt.Printf("=== Results ===\n")
	fmt.Printf("Classification: %s\n", verdict.Classification)
	fmt.Printf("Phishing score: %d/100 (%s)\n", verdict.PhishingScore, verdict.PhishingLevel)
	fmt.Printf("Spam score: %d/100 (%s, probability %.2f)\n",
		verdict.SpamScore, verdict.SpamLevel, verdict.SpamProbability)
	fmt.Printf("Recommended action: %s (%s)\n", verdict.Recommendation.Action, verdict.Recommendation.Reason)
	fmt.Printf("Processing time: %v\n", duration)

	if len(verdict.PhishingFindings) > 0 {
		fmt.Printf("\n=== Phishing Findings ===\n")
		for _, finding := range verdict.PhishingFindings {
			fmt.Printf("  %s\n", finding)
		}
	}
	if len(verdict.SpamFindings) > 0 {
		fmt.Printf("\n=== Spam Findings ===\n")
		for _, finding := range verdict.SpamFindings {
			fmt.Printf("  %s\n", finding)
		}
	}

	if *failOn != "" {
		threshold, ok := actionRank[strings.ToUpper(*failOn)]
		if !ok {
			logger.Fatal("Unknown -fail-on action", zap.String("action", *failOn))
		}
		if actionRank[verdict.Recommendation.Action] >= threshold {
			os.Exit(1)
		}
	}
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags() *config.Config {
	v := config.NewEmptyViper()

	v.Set("history.type", *historyType)
	if *sqlitePath != "" {
		v.Set("history.sqlite_path", *sqlitePath)
	}
	if *mysqlDSN != "" {
		v.Set("history.mysql_dsn", *mysqlDSN)
	}

	if *vtAPIKey != "" {
		v.Set("reputation.enabled", true)
		v.Set("reputation.api_key", *vtAPIKey)
	}

	return config.NewFromViper(v)
}
