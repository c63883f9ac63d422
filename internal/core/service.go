package core

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SpamScorer is the independent spam pipeline. It runs over the same record
// as the phishing evaluators but carries its own 0-100 scale and thresholds.
type SpamScorer interface {
	EvaluateSpam(ctx context.Context, email *Email) SpamResult
}

// Aggregation constants.
const (
	MaxPhishingScore    = 100
	maxPhishingFindings = 20
)

// AnalysisService runs all scoring modules over a parsed email and combines
// their outputs into a single verdict.
type AnalysisService struct {
	evaluators []Evaluator
	spam       SpamScorer
	logger     *zap.Logger
}

// NewAnalysisService creates a new analysis service. The evaluator slice
// fixes the module order used for finding concatenation.
func NewAnalysisService(evaluators []Evaluator, spam SpamScorer, logger *zap.Logger) *AnalysisService {
	return &AnalysisService{
		evaluators: evaluators,
		spam:       spam,
		logger:     logger,
	}
}

// Analyze fans the email out to every module, waits for all results, and
// computes the aggregated verdict.
func (s *AnalysisService) Analyze(ctx context.Context, email *Email) *Verdict {
	results := make([]ModuleResult, len(s.evaluators))
	var spamResult SpamResult

	var wg sync.WaitGroup
	for i, ev := range s.evaluators {
		wg.Add(1)
		go func(i int, ev Evaluator) {
			defer wg.Done()
			results[i] = ev.Evaluate(ctx, email)
		}(i, ev)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		spamResult = s.spam.EvaluateSpam(ctx, email)
	}()
	wg.Wait()

	total := 0
	findings := make([]string, 0, maxPhishingFindings)
	for _, res := range results {
		total += res.Score
		findings = append(findings, res.Findings...)
	}
	if total > MaxPhishingScore {
		total = MaxPhishingScore
	}
	if len(findings) > maxPhishingFindings {
		findings = findings[:maxPhishingFindings]
	}

	classification := Classify(total, spamResult.Score)
	verdict := &Verdict{
		PhishingScore:    total,
		PhishingLevel:    PhishingLevel(total),
		PhishingFindings: findings,
		SpamScore:        spamResult.Score,
		SpamLevel:        spamResult.Level,
		SpamProbability:  spamResult.Probability,
		SpamFindings:     spamResult.Findings,
		Classification:   classification,
		Recommendation:   RecommendationFor(classification),
		Modules:          results,
		AnalyzedAt:       time.Now(),
	}

	s.logger.Info("Analysis complete",
		zap.String("classification", verdict.Classification),
		zap.Int("phishing_score", verdict.PhishingScore),
		zap.Int("spam_score", verdict.SpamScore),
		zap.String("sender", email.From))

	return verdict
}

// PhishingLevel maps an aggregated phishing score to a risk level.
func PhishingLevel(score int) string {
	switch {
	case score >= 70:
		return LevelCritical
	case score >= 50:
		return LevelHigh
	case score >= 30:
		return LevelMedium
	case score >= 10:
		return LevelLow
	default:
		return LevelMinimal
	}
}

// Classify merges the phishing and spam scores into the final classification.
// Phishing takes priority over spam.
func Classify(phishingScore, spamScore int) string {
	switch {
	case phishingScore >= 70:
		return ClassMaliciousPhishing
	case phishingScore >= 40:
		return ClassSuspiciousPhishing
	case spamScore >= 80:
		return ClassLikelySpam
	case spamScore >= 50:
		return ClassSuspiciousSpam
	default:
		return ClassLegitimate
	}
}

var recommendations = map[string]Recommendation{
	ClassMaliciousPhishing: {
		Action:   ActionBlock,
		Reason:   "High confidence phishing attempt detected",
		Severity: LevelCritical,
	},
	ClassSuspiciousPhishing: {
		Action:   ActionVerify,
		Reason:   "Phishing indicators detected - verify sender out-of-band",
		Severity: LevelHigh,
	},
	ClassLikelySpam: {
		Action:   ActionQuarantine,
		Reason:   "High probability of unsolicited marketing or spam",
		Severity: LevelMedium,
	},
	ClassSuspiciousSpam: {
		Action:   ActionReview,
		Reason:   "Possible spam - review before trusting",
		Severity: LevelMedium,
	},
	ClassLegitimate: {
		Action:   ActionAccept,
		Reason:   "No significant security concerns detected",
		Severity: LevelLow,
	},
}

// RecommendationFor returns the fixed action triple for a classification.
func RecommendationFor(classification string) Recommendation {
	return recommendations[classification]
}
