package evaluators_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vams/mailrisk/internal/core"
	"github.com/vams/mailrisk/internal/evaluators"
)

func anomalyScore(email *core.Email) core.ModuleResult {
	ev := evaluators.NewAnomalyEvaluator(evaluators.DefaultAnomalyConfig())
	return ev.Evaluate(context.Background(), email)
}

func fullHeaders(date string) map[string]string {
	return map[string]string{
		"From":    "alice@example.com",
		"To":      "bob@example.com",
		"Subject": "hi",
		"Date":    date,
	}
}

func TestAnomalyNightSendWindow(t *testing.T) {
	date := "Tue, 01 Jul 2025 03:15:00 +0000"
	email := &core.Email{Headers: fullHeaders(date), Date: date, Subject: "hi",
		BodyText: "A normal message body without anything strange in it."}

	res := anomalyScore(email)
	assert.Equal(t, 3, res.Score)
	assert.Contains(t, res.Findings[0], "Suspicious send time")
}

func TestAnomalyDaytimeSendScoresZero(t *testing.T) {
	date := "Tue, 01 Jul 2025 14:15:00 +0000"
	email := &core.Email{Headers: fullHeaders(date), Date: date, Subject: "hi",
		BodyText: "A normal message body without anything strange in it."}

	assert.Equal(t, 0, anomalyScore(email).Score)
}

func TestAnomalyLinkHeavyBody(t *testing.T) {
	words := strings.Repeat("word ", 25)
	links := strings.Repeat("http://x.example/a ", 8)
	date := "Tue, 01 Jul 2025 14:15:00 +0000"
	email := &core.Email{Headers: fullHeaders(date), Date: date, Subject: "hi",
		BodyText: words + links}

	res := anomalyScore(email)
	assert.Equal(t, 4, res.Score)
	assert.Contains(t, res.Findings[0], "Abnormal content distribution")
}

func TestAnomalyEncodingObfuscation(t *testing.T) {
	date := "Tue, 01 Jul 2025 14:15:00 +0000"
	email := &core.Email{Headers: fullHeaders(date), Date: date, Subject: "hi",
		BodyText: "see &#8203;this %41%42 blob QWxhZGRpbjpvcGVuIHNlc2FtZQ=="}

	res := anomalyScore(email)
	assert.Equal(t, 6, res.Score)
	assert.Contains(t, res.Findings[0], "Unusual character encoding")
}

func TestAnomalyMissingHeaders(t *testing.T) {
	email := &core.Email{
		Headers:  map[string]string{"From": "alice@example.com"},
		BodyText: "A normal message body without anything strange in it.",
	}

	res := anomalyScore(email)
	// To, Subject and Date are absent.
	assert.Equal(t, 6, res.Score)
	assert.Contains(t, res.Findings[0], "Malformed headers")
}
