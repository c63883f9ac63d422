package evaluators_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/vams/mailrisk/internal/core"
	"github.com/vams/mailrisk/internal/evaluators"
)

func contentScore(t *testing.T, subject, body string) core.ModuleResult {
	t.Helper()
	ev := evaluators.NewContentEvaluator(evaluators.DefaultContentConfig(), zap.NewNop())
	return ev.Evaluate(context.Background(), &core.Email{Subject: subject, BodyText: body})
}

func TestContentNeutralTextScoresZero(t *testing.T) {
	res := contentScore(t, "Team offsite", "Looking forward to seeing everyone at the offsite next month.")
	assert.Equal(t, 0, res.Score)
	assert.Empty(t, res.Findings)
}

func TestContentUrgencyTiers(t *testing.T) {
	// Three distinct urgency keywords hit the top tier.
	res := contentScore(t, "", "This is urgent, a critical emergency.")
	assert.Equal(t, 15, res.Score)

	// Two keywords hit the lower tier.
	res = contentScore(t, "", "This is urgent, please reply immediately.")
	assert.Equal(t, 8, res.Score)
}

func TestContentCredentialHarvesting(t *testing.T) {
	res := contentScore(t, "", "Please verify your account and reset password today.")
	// Two credential keywords.
	assert.Equal(t, 18, res.Score)
	assert.Contains(t, res.Findings[0], "Credential harvesting")
}

func TestContentUrgencyAmplifiesFinancial(t *testing.T) {
	res := contentScore(t, "", "We need an urgent wire transfer before the deadline.")
	// Urgency tier 0 (single keyword) + financial 8 + combination bonus 5.
	assert.Equal(t, 13, res.Score)
	assert.Contains(t, res.Findings, "Combines urgency with suspicious request pattern")
}

func TestContentAuthorityPressure(t *testing.T) {
	res := contentScore(t, "", "An irs audit has been opened against you.")
	// Two authority keywords.
	assert.Equal(t, 16, res.Score)
}

func TestContentTypoTiers(t *testing.T) {
	res := contentScore(t, "", "Please confrim you will recieve the accomodate letter.")
	assert.Equal(t, 8, res.Score)

	res = contentScore(t, "", "Did you recieve my note?")
	assert.Equal(t, 3, res.Score)
}

func TestContentEmojiDensity(t *testing.T) {
	res := contentScore(t, "", strings.Repeat("\U0001F389", 11)+" party time")
	assert.Equal(t, 6, res.Score)

	res = contentScore(t, "", strings.Repeat("\U0001F389", 6)+" party time")
	assert.Equal(t, 2, res.Score)
}

func TestContentScoreCapped(t *testing.T) {
	body := "urgent critical emergency wire transfer invoice payment password " +
		"verify your account irs audit lawsuit malware detected virus found " +
		"your account your email your password"
	res := contentScore(t, "", body)
	assert.Equal(t, 40, res.Score)
}
