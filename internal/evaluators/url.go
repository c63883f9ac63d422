package evaluators

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/vams/mailrisk/internal/core"
	"github.com/vams/mailrisk/internal/utils"
)

var ipHostPattern = regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}$`)

// TypoEntry maps a common misspelling to the brand it imitates.
type TypoEntry struct {
	Typo  string
	Brand string
}

// URLConfig holds the URL reputation rule tables.
type URLConfig struct {
	MaxScore       int
	MaxURLs        int
	SuspiciousTLDs []string
	Shorteners     []string
	Typosquats     []TypoEntry
	StandardPorts  []int

	// Reputation lookup bounds (only used when a client is wired in).
	ReputationMaxURLs int
	ReputationScore   int
}

// DefaultURLConfig returns the reference rule tables.
func DefaultURLConfig() URLConfig {
	return URLConfig{
		MaxScore: 45,
		MaxURLs:  15,
		SuspiciousTLDs: []string{
			".tk", ".ml", ".ga", ".cf", ".gq", ".xyz", ".top", ".work", ".date",
			".racing", ".webcam", ".download", ".science", ".click", ".space",
			".review", ".win", ".party", ".bid", ".faith", ".accountant",
		},
		Shorteners: []string{
			"bit.ly", "tinyurl.com", "short.link", "goo.gl", "ow.ly",
			"is.gd", "buff.ly", "adf.ly", "t.co", "ur1.ca",
		},
		Typosquats: []TypoEntry{
			{Typo: "amzaon", Brand: "amazon"},
			{Typo: "gogle", Brand: "google"},
			{Typo: "mircrosoft", Brand: "microsoft"},
			{Typo: "facbook", Brand: "facebook"},
			{Typo: "paypel", Brand: "paypal"},
		},
		StandardPorts:     []int{80, 443, 8080, 3000, 8443},
		ReputationMaxURLs: 2,
		ReputationScore:   25,
	}
}

// URLEvaluator scores the URLs found in the message body. An optional
// reputation client adds a best-effort external signal: lookup failures and a
// missing credential contribute nothing.
type URLEvaluator struct {
	cfg        URLConfig
	reputation core.URLReputationClient
	logger     *zap.Logger
}

// NewURLEvaluator creates a new URL evaluator. reputation may be nil.
func NewURLEvaluator(cfg URLConfig, reputation core.URLReputationClient, logger *zap.Logger) *URLEvaluator {
	return &URLEvaluator{cfg: cfg, reputation: reputation, logger: logger}
}

// Name implements core.Evaluator.
func (e *URLEvaluator) Name() string { return "URL Reputation" }

// MaxScore implements core.Evaluator.
func (e *URLEvaluator) MaxScore() int { return e.cfg.MaxScore }

// Evaluate implements core.Evaluator.
func (e *URLEvaluator) Evaluate(ctx context.Context, email *core.Email) core.ModuleResult {
	urls := email.URLs
	if len(urls) == 0 {
		return core.ModuleResult{Module: e.Name(), Score: 0, Findings: []string{"No URLs detected"}}
	}
	if len(urls) > e.cfg.MaxURLs {
		urls = urls[:e.cfg.MaxURLs]
	}

	score := 0
	type suspiciousURL struct {
		url    string
		issues []string
	}
	var suspicious []suspiciousURL

	for _, raw := range urls {
		urlScore, issues := e.scoreURL(raw)
		if urlScore > 0 {
			suspicious = append(suspicious, suspiciousURL{url: raw, issues: issues})
		}
		score += urlScore
	}

	var findings []string
	if len(suspicious) > 0 {
		findings = append(findings, fmt.Sprintf("Detected %d suspicious URLs", len(suspicious)))
		for i, sus := range suspicious {
			if i == 3 {
				break
			}
			findings = append(findings, fmt.Sprintf("• %s: %s",
				utils.TruncateDisplay(sus.url, 60), strings.Join(sus.issues, ", ")))
		}
	}

	// External lookups only run while local checks left headroom, and only
	// for the top few URLs. Errors degrade to "no signal".
	if e.reputation != nil && score < e.cfg.MaxScore {
		if s, finding := e.lookupReputation(ctx, urls); s > 0 {
			score += s
			findings = append(findings, finding)
		}
	}

	if score > e.cfg.MaxScore {
		score = e.cfg.MaxScore
	}
	return core.ModuleResult{Module: e.Name(), Score: score, Findings: findings}
}

// scoreURL evaluates the local heuristics for one URL. Checks are
// independent and additive.
func (e *URLEvaluator) scoreURL(raw string) (int, []string) {
	score := 0
	var issues []string
	lower := strings.ToLower(raw)
	parsed, parseErr := url.Parse(raw)
	host := ""
	if parseErr == nil {
		host = parsed.Hostname()
	}

	if e.hasSuspiciousTLD(host) {
		score += 8
		issues = append(issues, "Suspicious TLD")
	}
	if ipHostPattern.MatchString(host) {
		score += 12
		issues = append(issues, "IP-based URL")
	}
	if e.isShortened(lower) {
		score += 6
		issues = append(issues, "Shortened URL (hides real destination)")
	}
	for _, entry := range e.cfg.Typosquats {
		if strings.Contains(lower, entry.Typo) {
			score += 10
			issues = append(issues, fmt.Sprintf("Typosquatting: '%s' mimics '%s'", entry.Typo, entry.Brand))
			break
		}
	}
	if parseErr == nil && e.hasUnusualPort(parsed) {
		score += 5
		issues = append(issues, "Non-standard port number")
	}
	if strings.Count(host, ".") > 3 {
		score += 4
		issues = append(issues, "Excessive subdomain nesting")
	}
	if parseErr == nil && len(parsed.Path) > 200 {
		score += 4
		issues = append(issues, "Unusually long URL path (obfuscation)")
	}
	if hasHomographHost(host) {
		score += 10
		issues = append(issues, "Unicode/homograph attack in domain")
	}
	if hasEmbeddedCredentials(raw) {
		score += 8
		issues = append(issues, "Username/password embedded in URL")
	}
	return score, issues
}

func (e *URLEvaluator) hasSuspiciousTLD(host string) bool {
	lower := strings.ToLower(host)
	for _, tld := range e.cfg.SuspiciousTLDs {
		if strings.HasSuffix(lower, tld) {
			return true
		}
	}
	return false
}

func (e *URLEvaluator) isShortened(lowerURL string) bool {
	for _, shortener := range e.cfg.Shorteners {
		if strings.Contains(lowerURL, shortener) {
			return true
		}
	}
	return false
}

func (e *URLEvaluator) hasUnusualPort(parsed *url.URL) bool {
	portStr := parsed.Port()
	if portStr == "" {
		return false
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return false
	}
	for _, std := range e.cfg.StandardPorts {
		if port == std {
			return false
		}
	}
	return true
}

// lookupReputation queries the external service for the top-priority URLs,
// stopping on the first malicious verdict.
func (e *URLEvaluator) lookupReputation(ctx context.Context, urls []string) (int, string) {
	limit := e.cfg.ReputationMaxURLs
	if limit > len(urls) {
		limit = len(urls)
	}
	for _, raw := range urls[:limit] {
		if ctx.Err() != nil {
			return 0, ""
		}
		malicious, err := e.reputation.IsMalicious(ctx, raw)
		if err != nil {
			e.logger.Debug("URL reputation lookup failed", zap.Error(err), zap.String("url", raw))
			continue
		}
		if malicious {
			return e.cfg.ReputationScore,
				fmt.Sprintf("Reputation service flagged URL: %s", utils.TruncateDisplay(raw, 60))
		}
	}
	return 0, ""
}

// hasHomographHost reports non-ASCII hostnames, including compatibility
// characters that NFKC-normalize to a different string.
func hasHomographHost(host string) bool {
	if host == "" {
		return false
	}
	for _, r := range host {
		if r > 127 {
			return true
		}
	}
	return norm.NFKC.String(host) != host
}

// hasEmbeddedCredentials reports user:pass@ material placed before the
// scheme delimiter.
func hasEmbeddedCredentials(raw string) bool {
	at := strings.Index(raw, "@")
	scheme := strings.Index(raw, "://")
	return at >= 0 && scheme >= 0 && at < scheme
}
