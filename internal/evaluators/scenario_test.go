package evaluators_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/vams/mailrisk/internal/core"
	"github.com/vams/mailrisk/internal/evaluators"
)

func newPipeline(history core.SenderHistoryRepository) *core.AnalysisService {
	logger := zap.NewNop()
	return core.NewAnalysisService(
		[]core.Evaluator{
			evaluators.NewAuthEvaluator(evaluators.DefaultAuthConfig(), logger),
			evaluators.NewURLEvaluator(evaluators.DefaultURLConfig(), nil, logger),
			evaluators.NewContentEvaluator(evaluators.DefaultContentConfig(), logger),
			evaluators.NewAttachmentEvaluator(evaluators.DefaultAttachmentConfig()),
			evaluators.NewSenderEvaluator(evaluators.DefaultSenderConfig(), history, logger),
			evaluators.NewAnomalyEvaluator(evaluators.DefaultAnomalyConfig()),
		},
		evaluators.NewSpamEvaluator(evaluators.DefaultSpamConfig(), logger),
		logger,
	)
}

// A bare message impersonating an executive from a throwaway domain must land
// in the critical band.
func TestScenarioExecutiveWireFraud(t *testing.T) {
	from := `"CEO Jane Doe" <ceo@secure-verify-pay.tk>`
	email := &core.Email{
		From:     from,
		Headers:  map[string]string{"From": from},
		BodyText: "Please verify your account immediately. I need an urgent wire transfer of $45,000 today.",
	}

	verdict := newPipeline(newFakeHistory()).Analyze(context.Background(), email)

	assert.GreaterOrEqual(t, verdict.PhishingScore, 70)
	assert.Equal(t, core.LevelCritical, verdict.PhishingLevel)
	assert.Equal(t, core.ClassMaliciousPhishing, verdict.Classification)
	assert.Equal(t, core.ActionBlock, verdict.Recommendation.Action)
}

// A routine internal message from a known sender must pass untouched.
func TestScenarioLegitimateMessage(t *testing.T) {
	history := newFakeHistory()
	history.records["alice@company.example"] = &core.SenderRecord{
		Address: "alice@company.example", MessageCount: 12,
	}

	from := "Alice <alice@company.example>"
	email := &core.Email{
		From:    from,
		To:      "bob@company.example",
		Subject: "Notes from the planning session",
		Date:    "Tue, 01 Jul 2025 14:00:00 +0000",
		Headers: map[string]string{
			"From": from, "To": "bob@company.example",
			"Subject":    "Notes from the planning session",
			"Date":       "Tue, 01 Jul 2025 14:00:00 +0000",
			"Message-Id": "<notes-123@company.example>",
			"Reply-To":   "alice@company.example",
		},
		BodyText: "Hi Bob, here are the notes from the planning session. Talk soon.",
	}

	verdict := newPipeline(history).Analyze(context.Background(), email)

	assert.Equal(t, 0, verdict.PhishingScore)
	assert.Equal(t, core.LevelMinimal, verdict.PhishingLevel)
	assert.Equal(t, core.ClassLegitimate, verdict.Classification)
	assert.Equal(t, core.ActionAccept, verdict.Recommendation.Action)
}

// The same message analyzed twice gives the same scores apart from the
// first-time sender signal consumed on the first pass.
func TestScenarioRepeatAnalysisOnlyLosesFirstSeenSignal(t *testing.T) {
	history := newFakeHistory()
	pipeline := newPipeline(history)
	from := "newsletter@updates.example"
	email := &core.Email{
		From:    from,
		To:      "reader@example.com",
		Subject: "Monthly report",
		Headers: map[string]string{
			"From": from, "To": "reader@example.com", "Subject": "Monthly report",
			"Date": "Tue, 01 Jul 2025 14:00:00 +0000", "Message-Id": "<m@updates.example>",
			"Reply-To": from,
		},
		Date:     "Tue, 01 Jul 2025 14:00:00 +0000",
		BodyText: "Here is the monthly report you asked about last week.",
	}

	first := pipeline.Analyze(context.Background(), email)
	second := pipeline.Analyze(context.Background(), email)

	assert.Equal(t, first.PhishingScore-5, second.PhishingScore)
	assert.Equal(t, first.SpamScore, second.SpamScore)
}
