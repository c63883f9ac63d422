package core_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/vams/mailrisk/internal/core"
)

// stubEvaluator returns a fixed result.
type stubEvaluator struct {
	name     string
	score    int
	findings []string
}

func (s stubEvaluator) Name() string     { return s.name }
func (s stubEvaluator) MaxScore() int    { return 100 }
func (s stubEvaluator) Evaluate(_ context.Context, _ *core.Email) core.ModuleResult {
	return core.ModuleResult{Module: s.name, Score: s.score, Findings: s.findings}
}

// stubSpam returns a fixed spam result.
type stubSpam struct {
	score int
}

func (s stubSpam) EvaluateSpam(_ context.Context, _ *core.Email) core.SpamResult {
	return core.SpamResult{
		Score:       s.score,
		Probability: float64(s.score) / 100.0,
	}
}

func analyze(scores []int, spamScore int) *core.Verdict {
	evs := make([]core.Evaluator, len(scores))
	for i, score := range scores {
		evs[i] = stubEvaluator{name: fmt.Sprintf("module-%d", i), score: score}
	}
	svc := core.NewAnalysisService(evs, stubSpam{score: spamScore}, zap.NewNop())
	return svc.Analyze(context.Background(), &core.Email{From: "a@example.com"})
}

func TestAnalyzeSumsModuleScores(t *testing.T) {
	v := analyze([]int{10, 20, 5}, 0)
	assert.Equal(t, 35, v.PhishingScore)
	assert.Equal(t, core.LevelMedium, v.PhishingLevel)
	assert.Len(t, v.Modules, 3)
}

func TestAnalyzeCapsTotalAtHundred(t *testing.T) {
	v := analyze([]int{50, 45, 40}, 0)
	assert.Equal(t, 100, v.PhishingScore)
}

func TestAnalyzeClassificationBoundaries(t *testing.T) {
	tests := []struct {
		phishing int
		spam     int
		class    string
		action   string
	}{
		{70, 0, core.ClassMaliciousPhishing, core.ActionBlock},
		{69, 0, core.ClassSuspiciousPhishing, core.ActionVerify},
		{40, 0, core.ClassSuspiciousPhishing, core.ActionVerify},
		{39, 80, core.ClassLikelySpam, core.ActionQuarantine},
		{0, 79, core.ClassSuspiciousSpam, core.ActionReview},
		{0, 50, core.ClassSuspiciousSpam, core.ActionReview},
		{39, 49, core.ClassLegitimate, core.ActionAccept},
		{0, 0, core.ClassLegitimate, core.ActionAccept},
	}
	for _, tt := range tests {
		v := analyze([]int{tt.phishing}, tt.spam)
		assert.Equal(t, tt.class, v.Classification, "phishing=%d spam=%d", tt.phishing, tt.spam)
		assert.Equal(t, tt.action, v.Recommendation.Action, "phishing=%d spam=%d", tt.phishing, tt.spam)
	}
}

func TestAnalyzeModuleOrderPreservedInFindings(t *testing.T) {
	evs := []core.Evaluator{
		stubEvaluator{name: "first", score: 1, findings: []string{"alpha"}},
		stubEvaluator{name: "second", score: 1, findings: []string{"beta", "gamma"}},
		stubEvaluator{name: "third", score: 1, findings: []string{"delta"}},
	}
	svc := core.NewAnalysisService(evs, stubSpam{}, zap.NewNop())
	v := svc.Analyze(context.Background(), &core.Email{})
	assert.Equal(t, []string{"alpha", "beta", "gamma", "delta"}, v.PhishingFindings)
}

func TestAnalyzeFindingsTruncatedToTwenty(t *testing.T) {
	findings := make([]string, 30)
	for i := range findings {
		findings[i] = fmt.Sprintf("finding-%d", i)
	}
	evs := []core.Evaluator{stubEvaluator{name: "noisy", score: 1, findings: findings}}
	svc := core.NewAnalysisService(evs, stubSpam{}, zap.NewNop())
	v := svc.Analyze(context.Background(), &core.Email{})
	assert.Len(t, v.PhishingFindings, 20)
	assert.Equal(t, "finding-0", v.PhishingFindings[0])
}

func TestPhishingLevels(t *testing.T) {
	tests := []struct {
		score int
		level string
	}{
		{100, core.LevelCritical},
		{70, core.LevelCritical},
		{69, core.LevelHigh},
		{50, core.LevelHigh},
		{49, core.LevelMedium},
		{30, core.LevelMedium},
		{29, core.LevelLow},
		{10, core.LevelLow},
		{9, core.LevelMinimal},
		{0, core.LevelMinimal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.level, core.PhishingLevel(tt.score), "score %d", tt.score)
	}
}

func TestRecommendationForEveryClassification(t *testing.T) {
	for _, class := range []string{
		core.ClassMaliciousPhishing,
		core.ClassSuspiciousPhishing,
		core.ClassLikelySpam,
		core.ClassSuspiciousSpam,
		core.ClassLegitimate,
	} {
		rec := core.RecommendationFor(class)
		assert.NotEmpty(t, rec.Action, class)
		assert.NotEmpty(t, rec.Reason, class)
		assert.NotEmpty(t, rec.Severity, class)
	}
}
