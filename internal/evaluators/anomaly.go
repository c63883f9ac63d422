package evaluators

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/vams/mailrisk/internal/core"
)

var (
	hourPattern       = regexp.MustCompile(`(\d{1,2}):`)
	urlSchemePattern  = regexp.MustCompile(`https?://`)
	base64RunPattern  = regexp.MustCompile(`[A-Za-z0-9+/]{20,}={0,2}`)
	htmlEntityPattern = regexp.MustCompile(`&#\d{3,};`)
	percentHexPattern = regexp.MustCompile(`%[0-9a-fA-F]{2}`)
)

// AnomalyConfig holds the statistical anomaly thresholds.
type AnomalyConfig struct {
	MaxScore     int
	HeaderSubCap int
}

// DefaultAnomalyConfig returns the reference values.
func DefaultAnomalyConfig() AnomalyConfig {
	return AnomalyConfig{
		MaxScore:     30,
		HeaderSubCap: 8,
	}
}

// AnomalyEvaluator detects statistical oddities: send time, content density,
// encoding obfuscation, and missing critical headers.
type AnomalyEvaluator struct {
	cfg AnomalyConfig
}

// NewAnomalyEvaluator creates a new anomaly evaluator.
func NewAnomalyEvaluator(cfg AnomalyConfig) *AnomalyEvaluator {
	return &AnomalyEvaluator{cfg: cfg}
}

// Name implements core.Evaluator.
func (e *AnomalyEvaluator) Name() string { return "Statistical Anomalies" }

// MaxScore implements core.Evaluator.
func (e *AnomalyEvaluator) MaxScore() int { return e.cfg.MaxScore }

// Evaluate implements core.Evaluator.
func (e *AnomalyEvaluator) Evaluate(_ context.Context, email *core.Email) core.ModuleResult {
	score := 0
	var findings []string

	if s := timingScore(email.Date); s > 0 {
		score += s
		findings = append(findings, fmt.Sprintf("Suspicious send time detected: %d points", s))
	}
	if s := densityScore(email.Subject, email.Body()); s > 0 {
		score += s
		findings = append(findings, fmt.Sprintf("Abnormal content distribution: %d points", s))
	}
	if s := encodingScore(email.Body()); s > 0 {
		score += s
		findings = append(findings, "Unusual character encoding detected")
	}
	if s := e.headerScore(email); s > 0 {
		score += s
		findings = append(findings, fmt.Sprintf("Malformed headers: %d points", s))
	}

	if score > e.cfg.MaxScore {
		score = e.cfg.MaxScore
	}
	return core.ModuleResult{Module: e.Name(), Score: score, Findings: findings}
}

// timingScore flags messages sent in the 02:00-05:00 window.
func timingScore(date string) int {
	if date == "" {
		return 0
	}
	match := hourPattern.FindStringSubmatch(date)
	if match == nil {
		return 0
	}
	hour, err := strconv.Atoi(match[1])
	if err != nil {
		return 0
	}
	if hour >= 2 && hour <= 5 {
		return 3
	}
	return 0
}

// densityScore flags subject/body imbalance and link-heavy bodies.
func densityScore(subject, body string) int {
	score := 0
	if subject != "" && body != "" && len(subject) > int(float64(len(body))*0.8) {
		score += 2
	}
	urls := len(urlSchemePattern.FindAllString(body, -1))
	words := len(strings.Fields(body))
	if words > 20 && urls > words/5 {
		score += 4
	}
	return score
}

// encodingScore flags obfuscation tricks: base64 runs, numeric HTML
// entities, percent-hex sequences.
func encodingScore(body string) int {
	score := 0
	if base64RunPattern.MatchString(body) {
		score += 2
	}
	if htmlEntityPattern.MatchString(body) {
		score += 2
	}
	if percentHexPattern.MatchString(body) {
		score += 2
	}
	return score
}

// headerScore flags missing critical headers, up to a sub-ceiling.
func (e *AnomalyEvaluator) headerScore(email *core.Email) int {
	score := 0
	for _, header := range []string{"From", "To", "Subject", "Date"} {
		if !email.HasHeader(header) {
			score += 2
		}
	}
	if score > e.cfg.HeaderSubCap {
		score = e.cfg.HeaderSubCap
	}
	return score
}
