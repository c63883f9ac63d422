package evaluators

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/vams/mailrisk/internal/core"
)

var (
	angleAddrPattern   = regexp.MustCompile(`<(.*?)>`)
	emailTokenPattern  = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	addressShapePattern = regexp.MustCompile(`^[^@]+@[^@]+\.[a-z]{2,}$`)
)

// ServiceCluster associates a vendor with the body keywords that suggest the
// message claims to come from it.
type ServiceCluster struct {
	Vendor   string
	Keywords []string
}

// AuthConfig holds the authentication and impersonation rule tables.
type AuthConfig struct {
	MaxScore          int
	AuthHeaderSubCap  int
	ReputationSubCap  int
	ExecutiveKeywords []string
	ServiceClusters   []ServiceCluster
	SpoofedPrefixes   []string
}

// DefaultAuthConfig returns the reference rule tables.
func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		MaxScore:         50,
		AuthHeaderSubCap: 15,
		ReputationSubCap: 8,
		ExecutiveKeywords: []string{
			"ceo", "cfo", "cto", "coo", "vp", "president", "director",
			"founder", "chairman", "managing director", "general counsel",
			"finance director", "chief", "executive", "owner", "partner",
			"general manager", "board member",
		},
		ServiceClusters: []ServiceCluster{
			{Vendor: "microsoft", Keywords: []string{"outlook", "office365", "sharepoint", "teams", "azure"}},
			{Vendor: "google", Keywords: []string{"gmail", "drive", "workspace", "analytics"}},
			{Vendor: "amazon", Keywords: []string{"aws", "amazon.com", "prime"}},
			{Vendor: "apple", Keywords: []string{"icloud", "itunes", "appstore"}},
			{Vendor: "paypal", Keywords: []string{"ebay", "checkout"}},
			{Vendor: "bank", Keywords: []string{"security", "verify", "update", "confirm"}},
		},
		SpoofedPrefixes: []string{
			"support-", "noreply-", "secure-", "verify-", "notify-",
			"billing-", "alert-", "admin-", "no-reply",
		},
	}
}

// AuthEvaluator detects failed authentication and sender impersonation.
type AuthEvaluator struct {
	cfg    AuthConfig
	logger *zap.Logger
}

// NewAuthEvaluator creates a new authentication evaluator.
func NewAuthEvaluator(cfg AuthConfig, logger *zap.Logger) *AuthEvaluator {
	return &AuthEvaluator{cfg: cfg, logger: logger}
}

// Name implements core.Evaluator.
func (e *AuthEvaluator) Name() string { return "Authentication & Impersonation" }

// MaxScore implements core.Evaluator.
func (e *AuthEvaluator) MaxScore() int { return e.cfg.MaxScore }

// Evaluate implements core.Evaluator.
func (e *AuthEvaluator) Evaluate(_ context.Context, email *core.Email) core.ModuleResult {
	score := 0
	var findings []string

	if s := e.checkAuthenticationHeaders(email); s > 0 {
		score += s
		findings = append(findings, fmt.Sprintf("Authentication failed: %d points", s))
	}

	if s, finding := e.checkDisplayNameSpoofing(email); s > 0 {
		score += s
		findings = append(findings, finding)
	}

	if s, finding := e.checkExecutiveImpersonation(email); s > 0 {
		score += s
		findings = append(findings, finding)
	}

	if s, finding := e.checkVendorImpersonation(email); s > 0 {
		score += s
		findings = append(findings, finding)
	}

	if s := e.checkDomainConsistency(email); s > 0 {
		score += s
		findings = append(findings, fmt.Sprintf("Domain inconsistency detected: %d points", s))
	}

	if s := e.checkReplyToRedirection(email); s > 0 {
		score += s
		findings = append(findings, "Reply-To address differs from sender (redirection risk)")
	}

	if s := e.checkReputationAnomalies(email); s > 0 {
		score += s
		findings = append(findings, fmt.Sprintf("Sender reputation issues: %d points", s))
	}

	if score > e.cfg.MaxScore {
		score = e.cfg.MaxScore
	}
	return core.ModuleResult{Module: e.Name(), Score: score, Findings: findings}
}

// checkAuthenticationHeaders scans Authentication-Results for failure
// substrings. Deliberately permissive: no structured parse of the RFC
// grammar.
func (e *AuthEvaluator) checkAuthenticationHeaders(email *core.Email) int {
	results := strings.ToLower(email.Header("Authentication-Results"))
	score := 0
	if strings.Contains(results, "spf=fail") || strings.Contains(results, "spf=softfail") {
		score += 8
	}
	if strings.Contains(results, "dkim=fail") {
		score += 8
	}
	if strings.Contains(results, "dmarc=fail") {
		score += 10
	}
	if score > e.cfg.AuthHeaderSubCap {
		score = e.cfg.AuthHeaderSubCap
	}
	return score
}

// checkDisplayNameSpoofing flags a display name that itself contains an
// email-looking token different from the actual angle-bracket address.
func (e *AuthEvaluator) checkDisplayNameSpoofing(email *core.Email) (int, string) {
	from := email.Header("From")
	match := angleAddrPattern.FindStringSubmatch(from)
	if match == nil {
		return 0, ""
	}
	actual := strings.ToLower(match[1])
	display := displayName(from)
	token := emailTokenPattern.FindString(strings.ToLower(display))
	if token != "" && token != actual {
		return 12, fmt.Sprintf("Display name contains mismatched address '%s' (actual sender %s)", token, actual)
	}
	return 0, ""
}

// checkExecutiveImpersonation flags executive titles in the display name.
// Only the first matching keyword counts.
func (e *AuthEvaluator) checkExecutiveImpersonation(email *core.Email) (int, string) {
	from := email.Header("From")
	match := angleAddrPattern.FindStringSubmatch(from)
	if match == nil {
		return 0, ""
	}
	actual := strings.ToLower(match[1])
	display := displayName(from)
	displayLower := strings.ToLower(display)

	for _, kw := range e.cfg.ExecutiveKeywords {
		if !strings.Contains(displayLower, kw) {
			continue
		}
		domain := ""
		if strings.Contains(actual, "@") {
			domain = strings.SplitN(actual, "@", 2)[1]
		}
		switch {
		case isSuspiciousDomain(domain):
			return 16, fmt.Sprintf("Executive Impersonation: '%s' with suspicious domain '%s'", display, domain)
		case !strings.Contains(actual, "@"):
			return 12, "Invalid sender format masquerading as executive"
		default:
			return 8, fmt.Sprintf("Potential executive impersonation: %s from external domain", kw)
		}
	}
	return 0, ""
}

// checkVendorImpersonation flags bodies that talk about a known vendor's
// services while the sender does not belong to that vendor.
func (e *AuthEvaluator) checkVendorImpersonation(email *core.Email) (int, string) {
	fromHeader := strings.ToLower(email.Header("From"))
	bodyLower := strings.ToLower(email.Body())
	sender := senderAddress(email.From)

	for _, cluster := range e.cfg.ServiceClusters {
		if countKeywords(bodyLower, cluster.Keywords) == 0 {
			continue
		}
		if strings.Contains(sender, cluster.Vendor) {
			continue // likely legitimate
		}
		for _, prefix := range e.cfg.SpoofedPrefixes {
			if strings.Contains(fromHeader, prefix) {
				return 14, fmt.Sprintf("Impersonates %s: Using spoofed sender pattern", cluster.Vendor)
			}
		}
		if strings.Contains(sender, "@") {
			domain := strings.SplitN(sender, "@", 2)[1]
			if !strings.HasPrefix(domain, strings.ReplaceAll(cluster.Vendor, " ", "")) {
				return 10, fmt.Sprintf("Mentions %s but sent from '%s'", cluster.Vendor, domain)
			}
		}
	}
	return 0, ""
}

// checkDomainConsistency compares the domains of From, Return-Path and
// Reply-To; every pairwise mismatch against From adds a fixed increment.
func (e *AuthEvaluator) checkDomainConsistency(email *core.Email) int {
	fromDomain := addressDomain(email.Header("From"))
	returnPath := addressDomain(email.Header("Return-Path"))
	replyTo := addressDomain(email.Header("Reply-To"))

	mismatches := 0
	if fromDomain != "" && returnPath != "" && fromDomain != returnPath {
		mismatches++
	}
	if fromDomain != "" && replyTo != "" && fromDomain != replyTo {
		mismatches++
	}
	return mismatches * 4
}

// checkReplyToRedirection flags a Reply-To that resolves to a different
// domain than From.
func (e *AuthEvaluator) checkReplyToRedirection(email *core.Email) int {
	from := email.Header("From")
	replyTo := email.Header("Reply-To")
	if from == "" || replyTo == "" || strings.EqualFold(from, replyTo) {
		return 0
	}
	fromDomain := addressDomain(from)
	replyDomain := addressDomain(replyTo)
	if fromDomain != "" && replyDomain != "" && fromDomain != replyDomain {
		return 6
	}
	return 0
}

// checkReputationAnomalies flags missing expected headers and malformed
// sender addresses, capped at a sub-ceiling.
func (e *AuthEvaluator) checkReputationAnomalies(email *core.Email) int {
	score := 0
	if !email.HasHeader("Message-ID") {
		score += 2
	}
	if !email.HasHeader("Date") {
		score += 2
	}
	if !email.HasHeader("Subject") {
		score += 2
	}
	if !addressShapePattern.MatchString(senderAddress(email.From)) {
		score += 3
	}
	if score > e.cfg.ReputationSubCap {
		score = e.cfg.ReputationSubCap
	}
	return score
}

// displayName returns the display-name part of a From header value.
func displayName(from string) string {
	name := strings.SplitN(from, "<", 2)[0]
	return strings.Trim(strings.TrimSpace(name), `"`)
}

// isSuspiciousDomain applies the low-trust domain heuristics: throwaway TLDs,
// hyphen abuse, unusual length, or a service-sounding prefix.
func isSuspiciousDomain(domain string) bool {
	if domain == "" {
		return false
	}
	switch {
	case strings.HasSuffix(domain, ".tk"), strings.HasSuffix(domain, ".ml"):
		return true
	case strings.Count(domain, "-") > 2:
		return true
	case strings.Contains(domain, "-") && len(strings.Split(domain, "-")) > 3:
		return true
	case len(domain) > 30:
		return true
	case strings.HasPrefix(domain, "mail-"), strings.HasPrefix(domain, "secure-"),
		strings.HasPrefix(domain, "verify-"), strings.HasPrefix(domain, "support-"):
		return true
	}
	return false
}
