package evaluators

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/vams/mailrisk/internal/core"
)

// ContentConfig holds the social-engineering keyword dictionaries and tier
// thresholds.
type ContentConfig struct {
	MaxScore            int
	UrgencyKeywords     []string
	FinancialKeywords   []string
	CredentialKeywords  []string
	AuthorityKeywords   []string
	PersonalIdentifiers []string
	QuidProQuoKeywords  []string
	ScarewareKeywords   []string
	TypoDictionary      []string
}

// DefaultContentConfig returns the reference dictionaries.
func DefaultContentConfig() ContentConfig {
	return ContentConfig{
		MaxScore: 40,
		UrgencyKeywords: []string{
			"urgent", "immediately", "action required", "suspend", "terminate",
			"expire", "critical", "warning", "emergency", "alert", "critical issue",
			"verify now", "confirm asap", "act immediately", "time sensitive",
			"only today", "limited availability", "respond now", "no delay",
		},
		FinancialKeywords: []string{
			"wire transfer", "bank details", "invoice", "payment", "account number",
			"routing number", "swift code", "iban", "credit card", "debit card",
			"bank account", "transfer funds", "money transfer", "payment processing",
			"refund", "reimbursement", "wire this amount",
		},
		CredentialKeywords: []string{
			"password", "verify your account", "click here to login", "confirm identity",
			"reset password", "update password", "authenticate", "verification needed",
			"security code", "confirm credentials", "sign in", "log in",
			"ssn", "social security", "id verification", "re-authenticate",
		},
		AuthorityKeywords: []string{
			"compliance", "audit", "investigation", "federal agent", "irs",
			"fraud department", "security team", "legal", "lawsuit",
			"court", "jail", "prison", "arrest", "subpoena", "attorney",
			"financial crimes", "money laundering", "sanctions",
		},
		PersonalIdentifiers: []string{
			"your account", "your email", "your password", "your information",
			"your transaction", "your order", "your bank", "your credit",
			"account 1234", "case #", "reference #", "transaction id",
		},
		QuidProQuoKeywords: []string{
			"help you", "assist you", "support you", "benefit you", "advantage you",
			"special offer", "gift", "bonus", "reward", "exclusive access",
			"free", "no cost", "refund", "compensation", "claim prize",
		},
		ScarewareKeywords: []string{
			"malware detected", "virus found", "system compromised", "unauthorized access",
			"suspicious activity", "unusual login", "security breach", "security risk",
			"update required", "update windows", "update your browser", "critical update",
			"your pc is at risk", "your device is infected", "threat detected",
		},
		TypoDictionary: []string{
			"clck", "clik", "chck", "veriffy", "verificaton",
			"confirmm", "confrim", "accout", "acount", "recieve", "occured",
			"shoudl", "neccessary", "accomodate", "desparate",
		},
	}
}

// ContentEvaluator detects psychological manipulation patterns in subject
// and body text.
type ContentEvaluator struct {
	cfg    ContentConfig
	logger *zap.Logger
}

// NewContentEvaluator creates a new content evaluator.
func NewContentEvaluator(cfg ContentConfig, logger *zap.Logger) *ContentEvaluator {
	return &ContentEvaluator{cfg: cfg, logger: logger}
}

// Name implements core.Evaluator.
func (e *ContentEvaluator) Name() string { return "Content & Social Engineering" }

// MaxScore implements core.Evaluator.
func (e *ContentEvaluator) MaxScore() int { return e.cfg.MaxScore }

// Evaluate implements core.Evaluator.
func (e *ContentEvaluator) Evaluate(_ context.Context, email *core.Email) core.ModuleResult {
	score := 0
	var findings []string
	body := email.Body()
	text := strings.ToLower(email.Subject + " " + body)

	urgency := countKeywords(text, e.cfg.UrgencyKeywords)
	switch {
	case urgency >= 3:
		score += 15
		findings = append(findings, fmt.Sprintf("Extreme urgency language (%d keywords)", urgency))
	case urgency == 2:
		score += 8
		findings = append(findings, "Multiple urgency keywords detected")
	}

	financial := countKeywords(text, e.cfg.FinancialKeywords)
	switch {
	case financial >= 2:
		score += 12
		findings = append(findings, fmt.Sprintf("Multiple financial transaction indicators (%d keywords)", financial))
	case financial == 1:
		score += 8
		findings = append(findings, "Financial transaction request detected")
	}

	credential := countKeywords(text, e.cfg.CredentialKeywords)
	switch {
	case credential >= 2:
		score += 18
		findings = append(findings, fmt.Sprintf("Credential harvesting attack detected (%d keywords)", credential))
	case credential == 1:
		score += 12
		findings = append(findings, "Login/credential verification request")
	}

	authority := countKeywords(text, e.cfg.AuthorityKeywords)
	switch {
	case authority >= 2:
		score += 16
		findings = append(findings, fmt.Sprintf("Authority impersonation (feds, courts, IRS): %d keywords", authority))
	case authority == 1:
		score += 8
		findings = append(findings, "Impersonates authority figure")
	}

	if personal := countKeywords(text, e.cfg.PersonalIdentifiers); personal >= 3 {
		score += 10
		findings = append(findings, fmt.Sprintf("Attempts to appear personalized with %d personal identifiers", personal))
	}

	if quid := countKeywords(text, e.cfg.QuidProQuoKeywords); quid >= 3 && urgency >= 1 {
		score += 12
		findings = append(findings, "Quid pro quo attack: Offers benefit in exchange for action")
	}

	scareware := countKeywords(text, e.cfg.ScarewareKeywords)
	switch {
	case scareware >= 2:
		score += 14
		findings = append(findings, fmt.Sprintf("Scareware/fear-based manipulation (%d keywords)", scareware))
	case scareware == 1:
		score += 6
		findings = append(findings, "Uses fear/security threat language")
	}

	// Urgency amplifies financial or credential/authority pressure.
	if urgency > 0 && (financial > 0 || credential > 0 || authority > 0) {
		score += 5
		findings = append(findings, "Combines urgency with suspicious request pattern")
	}

	if s := e.typoScore(body); s > 0 {
		score += s
		findings = append(findings, "Poor grammar/spelling indicates non-native or template phishing")
	}

	if s := emojiScore(body); s > 0 {
		score += s
		findings = append(findings, "Excessive emojis/unicode characters (phishing obfuscation)")
	}

	if score > e.cfg.MaxScore {
		score = e.cfg.MaxScore
	}
	return core.ModuleResult{Module: e.Name(), Score: score, Findings: findings}
}

// typoScore runs the fixed misspelling dictionary, tiered by hit count.
func (e *ContentEvaluator) typoScore(body string) int {
	hits := countKeywords(strings.ToLower(body), e.cfg.TypoDictionary)
	switch {
	case hits >= 3:
		return 8
	case hits >= 1:
		return 3
	default:
		return 0
	}
}

// emojiScore counts emoji and dingbat code points, tiered by density.
func emojiScore(body string) int {
	count := 0
	for _, r := range body {
		if (r >= 0x1F300 && r <= 0x1F9FF) || (r >= 0x2600 && r <= 0x27BF) {
			count++
		}
	}
	switch {
	case count > 10:
		return 6
	case count > 5:
		return 2
	default:
		return 0
	}
}
