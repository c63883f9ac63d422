package core

import (
	"net/textproto"
	"time"
)

// Email is the parsed, in-memory representation of a message. It is built
// once by the parser and never mutated by the scoring modules; it holds no
// reference to the raw message bytes.
type Email struct {
	From        string
	To          string
	Cc          string
	Bcc         string
	Subject     string
	Date        string
	Headers     map[string]string
	BodyText    string
	BodyHTML    string
	URLs        []string
	Attachments []Attachment
}

// Attachment carries attachment metadata only; payload bytes are discarded
// during parsing.
type Attachment struct {
	Filename    string
	ContentType string
	SizeBytes   int
}

// Body returns the text used for content analysis: the plain-text part when
// present, otherwise the HTML part.
func (e *Email) Body() string {
	if e.BodyText != "" {
		return e.BodyText
	}
	return e.BodyHTML
}

// Header returns a header value by name, case-insensitively.
func (e *Email) Header(name string) string {
	return e.Headers[textproto.CanonicalMIMEHeaderKey(name)]
}

// HasHeader reports whether a header is present at all.
func (e *Email) HasHeader(name string) bool {
	_, ok := e.Headers[textproto.CanonicalMIMEHeaderKey(name)]
	return ok
}

// ModuleResult is the output of a single phishing scoring module.
type ModuleResult struct {
	Module   string
	Score    int
	Findings []string
}

// SpamResult is the output of the independent spam pipeline.
type SpamResult struct {
	Score       int
	Level       string
	Probability float64
	Findings    []string
}

// Recommendation is the action triple attached to a classification.
type Recommendation struct {
	Action   string
	Reason   string
	Severity string
}

// Verdict is the aggregated result of one analysis. Derived, never stored.
type Verdict struct {
	PhishingScore    int
	PhishingLevel    string
	PhishingFindings []string
	SpamScore        int
	SpamLevel        string
	SpamProbability  float64
	SpamFindings     []string
	Classification   string
	Recommendation   Recommendation
	Modules          []ModuleResult
	AnalyzedAt       time.Time
}

// SenderRecord tracks per-sender history, keyed by lowercase address. It is
// the only entity this service persists.
type SenderRecord struct {
	Address      string
	FirstSeen    time.Time
	LastSeen     time.Time
	MessageCount int
}

// Phishing risk levels.
const (
	LevelCritical = "CRITICAL"
	LevelHigh     = "HIGH"
	LevelMedium   = "MEDIUM"
	LevelLow      = "LOW"
	LevelMinimal  = "MINIMAL"
)

// Spam levels.
const (
	SpamLevelLikely     = "LIKELY_SPAM"
	SpamLevelSuspicious = "SUSPICIOUS"
	SpamLevelLowRisk    = "LOW_RISK"
	SpamLevelNotSpam    = "NOT_SPAM"
)

// Classifications, in priority order.
const (
	ClassMaliciousPhishing  = "MALICIOUS_PHISHING"
	ClassSuspiciousPhishing = "SUSPICIOUS_PHISHING"
	ClassLikelySpam         = "LIKELY_SPAM"
	ClassSuspiciousSpam     = "SUSPICIOUS_SPAM"
	ClassLegitimate         = "LEGITIMATE"
)

// Recommended actions.
const (
	ActionBlock      = "BLOCK"
	ActionVerify     = "VERIFY"
	ActionQuarantine = "QUARANTINE"
	ActionReview     = "REVIEW"
	ActionAccept     = "ACCEPT"
)
