package evaluators_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vams/mailrisk/internal/core"
	"github.com/vams/mailrisk/internal/evaluators"
)

// fakeReputation answers IsMalicious from a fixed map and records lookups.
type fakeReputation struct {
	verdicts map[string]bool
	err      error
	calls    []string
}

func (f *fakeReputation) IsMalicious(_ context.Context, url string) (bool, error) {
	f.calls = append(f.calls, url)
	if f.err != nil {
		return false, f.err
	}
	return f.verdicts[url], nil
}

func newURLEvaluator(reputation core.URLReputationClient) *evaluators.URLEvaluator {
	return evaluators.NewURLEvaluator(evaluators.DefaultURLConfig(), reputation, zap.NewNop())
}

func TestURLNoURLs(t *testing.T) {
	res := newURLEvaluator(nil).Evaluate(context.Background(), &core.Email{})
	assert.Equal(t, 0, res.Score)
	assert.Equal(t, []string{"No URLs detected"}, res.Findings)
}

func TestURLHeuristics(t *testing.T) {
	tests := []struct {
		name  string
		url   string
		score int
		issue string
	}{
		{"suspicious TLD", "https://deals.example.xyz/offer", 8, "Suspicious TLD"},
		{"IP host", "http://192.168.10.20/login", 12, "IP-based URL"},
		{"shortener", "https://bit.ly/3xYz", 6, "Shortened URL"},
		{"typosquat", "https://www.amzaon-payments.example/checkout", 10, "Typosquatting"},
		{"unusual port", "https://example.com:4444/admin", 5, "Non-standard port"},
		{"deep subdomains", "https://a.b.c.d.example.com/", 4, "Excessive subdomain nesting"},
		{"homograph", "https://аpple.com/login", 10, "homograph"},
		{"embedded credentials", "user:pass@http://evil.example", 8, "embedded in URL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			email := &core.Email{URLs: []string{tt.url}}
			res := newURLEvaluator(nil).Evaluate(context.Background(), email)
			assert.Equal(t, tt.score, res.Score)
			require.NotEmpty(t, res.Findings)
			assert.Contains(t, res.Findings[0], "Detected 1 suspicious URLs")
			assert.Contains(t, res.Findings[1], tt.issue)
		})
	}
}

func TestURLScoreCappedAtModuleMax(t *testing.T) {
	email := &core.Email{URLs: []string{
		"http://10.0.0.1/a",
		"http://10.0.0.2/b",
		"http://10.0.0.3/c",
		"http://10.0.0.4/d",
	}}
	res := newURLEvaluator(nil).Evaluate(context.Background(), email)
	assert.Equal(t, 45, res.Score)
}

func TestURLReputationHit(t *testing.T) {
	rep := &fakeReputation{verdicts: map[string]bool{"https://safe-looking.example/path": true}}
	email := &core.Email{URLs: []string{"https://safe-looking.example/path"}}

	res := newURLEvaluator(rep).Evaluate(context.Background(), email)
	assert.Equal(t, 25, res.Score)
	require.Len(t, res.Findings, 1)
	assert.Contains(t, res.Findings[0], "Reputation service flagged URL")
}

func TestURLReputationOnlyChecksTopURLs(t *testing.T) {
	rep := &fakeReputation{verdicts: map[string]bool{}}
	email := &core.Email{URLs: []string{
		"https://one.example/a",
		"https://two.example/b",
		"https://three.example/c",
	}}

	newURLEvaluator(rep).Evaluate(context.Background(), email)
	assert.Equal(t, []string{"https://one.example/a", "https://two.example/b"}, rep.calls)
}

func TestURLReputationErrorDegradesToNoSignal(t *testing.T) {
	rep := &fakeReputation{err: errors.New("quota exceeded")}
	email := &core.Email{URLs: []string{"https://clean.example/"}}

	res := newURLEvaluator(rep).Evaluate(context.Background(), email)
	assert.Equal(t, 0, res.Score)
}

func TestURLReputationSkippedWhenLocalScoreAtCap(t *testing.T) {
	rep := &fakeReputation{verdicts: map[string]bool{}}
	email := &core.Email{URLs: []string{
		"http://10.0.0.1/a",
		"http://10.0.0.2/b",
		"http://10.0.0.3/c",
		"http://10.0.0.4/d",
	}}

	res := newURLEvaluator(rep).Evaluate(context.Background(), email)
	assert.Equal(t, 45, res.Score)
	assert.Empty(t, rep.calls)
}
