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
	excessiveCapsPattern = regexp.MustCompile(`[A-Z]{10,}`)
	moneyPattern         = regexp.MustCompile(`\$\d+[\d,]*(?:\.\d+)?|usd|gbp|eur`)
	htmlTagPattern       = regexp.MustCompile(`<[^>]+>`)
	spamTLDPattern       = regexp.MustCompile(`\.(tk|ml|ga|cf|click|download|top|win)$`)
	bodyLinkPattern      = regexp.MustCompile(`https?://[^\s]+`)
)

// SpamCategory is a named keyword list. Order matters: subject matching
// stops at the first category with hits, and density ties break toward the
// earlier category.
type SpamCategory struct {
	Name     string
	Keywords []string
}

// SpamConfig holds the spam pipeline rule tables.
type SpamConfig struct {
	MaxScore         int
	MaxFindings      int
	Categories       []SpamCategory
	GenericGreetings []string
	FreeDomains      []string
	GenericNames     []string
	UrgencyMarkers   []string
	SuspiciousExts   []string
	FinancialNames   []string
	Shorteners       []string
}

// DefaultSpamConfig returns the reference tables.
func DefaultSpamConfig() SpamConfig {
	return SpamConfig{
		MaxScore:    100,
		MaxFindings: 10,
		Categories: []SpamCategory{
			{Name: "marketing", Keywords: []string{
				"unsubscribe", "marketing", "promotional", "deal", "offer",
				"discount", "save now", "limited time", "act now", "click here",
				"call now", "buy now", "order now", "exclusive offer", "special promotion",
			}},
			{Name: "newsletter", Keywords: []string{
				"newsletter", "mailing list", "subscribe", "weekly digest",
				"monthly report", "news update", "announcement", "bulletin",
				"publication", "journal",
			}},
			{Name: "advance_fee", Keywords: []string{
				"nigerian", "lottery", "inheritance", "claim your prize",
				"congratulations", "you won", "selected", "beneficiary",
				"advance fee", "processing fee", "update your account",
				"verify your identity", "confirm password",
			}},
			{Name: "bulk_greeting", Keywords: []string{
				"dear customer", "dear user", "dear member", "dear subscriber",
				"dear valued", "to whom it may concern", "dear friend",
			}},
		},
		GenericGreetings: []string{
			"dear customer", "dear user", "dear friend", "to whom it may concern",
			"dear valued", "dear sir/madam", "hello there",
		},
		FreeDomains: []string{
			"gmail.com", "yahoo.com", "hotmail.com", "outlook.com", "aol.com",
		},
		GenericNames: []string{
			"noreply", "support", "info", "contact", "admin", "notification",
		},
		UrgencyMarkers: []string{"!!!", "URGENT", "ACT NOW", "IMMEDIATELY", "ASAP"},
		SuspiciousExts: []string{".exe", ".scr", ".vbs", ".bat", ".cmd", ".com"},
		FinancialNames: []string{"invoice", "payment", "receipt", "bill"},
		Shorteners:     []string{"bit.ly", "tinyurl", "short.link", "goo.gl"},
	}
}

// SpamEvaluator is the independent spam pipeline. It scores on its own 0-100
// scale and produces the level and probability used by the final classifier.
type SpamEvaluator struct {
	cfg    SpamConfig
	logger *zap.Logger
}

// NewSpamEvaluator creates a new spam evaluator.
func NewSpamEvaluator(cfg SpamConfig, logger *zap.Logger) *SpamEvaluator {
	return &SpamEvaluator{cfg: cfg, logger: logger}
}

// EvaluateSpam implements core.SpamScorer.
func (e *SpamEvaluator) EvaluateSpam(_ context.Context, email *core.Email) core.SpamResult {
	score := 0
	var findings []string

	for _, check := range []func(*core.Email) (int, []string){
		e.analyzeSubject,
		e.analyzeBody,
		e.analyzeSender,
		e.analyzeStructure,
		e.analyzeLinks,
	} {
		s, f := check(email)
		score += s
		findings = append(findings, f...)
	}

	if score > e.cfg.MaxScore {
		score = e.cfg.MaxScore
	}
	if len(findings) > e.cfg.MaxFindings {
		findings = findings[:e.cfg.MaxFindings]
	}

	return core.SpamResult{
		Score:       score,
		Level:       SpamLevel(score),
		Probability: float64(score) / 100.0,
		Findings:    findings,
	}
}

// SpamLevel maps a spam score to its level.
func SpamLevel(score int) string {
	switch {
	case score >= 80:
		return core.SpamLevelLikely
	case score >= 50:
		return core.SpamLevelSuspicious
	case score >= 30:
		return core.SpamLevelLowRisk
	default:
		return core.SpamLevelNotSpam
	}
}

func (e *SpamEvaluator) analyzeSubject(email *core.Email) (int, []string) {
	subject := email.Subject
	if subject == "" {
		return 0, []string{"No subject line (suspicious)"}
	}

	score := 0
	var findings []string
	subjectLower := strings.ToLower(subject)

	// One category only: stop at the first with hits.
	for _, cat := range e.cfg.Categories {
		var matches []string
		for _, kw := range cat.Keywords {
			if strings.Contains(subjectLower, kw) {
				matches = append(matches, kw)
			}
		}
		if len(matches) > 0 {
			score += len(matches) * 3
			shown := matches
			if len(shown) > 3 {
				shown = shown[:3]
			}
			findings = append(findings, fmt.Sprintf("Subject contains %s keywords: %s", cat.Name, strings.Join(shown, ", ")))
			break
		}
	}

	if excessiveCapsPattern.MatchString(subject) {
		score += 5
		findings = append(findings, "Subject line uses excessive capitals")
	}

	subjectUpper := strings.ToUpper(subject)
	for _, marker := range e.cfg.UrgencyMarkers {
		if strings.Contains(subjectUpper, marker) {
			score += 8
			findings = append(findings, "Subject uses urgency manipulation tactics")
			break
		}
	}

	if strings.Count(subject, "?") > 2 {
		score += 3
		findings = append(findings, "Subject contains excessive question marks")
	}

	return score, findings
}

func (e *SpamEvaluator) analyzeBody(email *core.Email) (int, []string) {
	body := email.Body()
	if len(body) < 10 {
		return 0, nil
	}

	score := 0
	var findings []string
	bodyLower := strings.ToLower(body)
	words := strings.Fields(bodyLower)
	wordCount := len(words)

	// Keyword density: occurrences per category, dominant category scores.
	dominant, dominantCount := "", 0
	for _, cat := range e.cfg.Categories {
		count := 0
		for _, kw := range cat.Keywords {
			count += strings.Count(bodyLower, kw)
		}
		if count > dominantCount {
			dominant, dominantCount = cat.Name, count
		}
	}
	if dominantCount > 0 {
		add := dominantCount * 2
		if add > 25 {
			add = 25
		}
		score += add
		findings = append(findings, fmt.Sprintf("High density of %s keywords (%d occurrences)", dominant, dominantCount))
	}

	for _, greeting := range e.cfg.GenericGreetings {
		if strings.Contains(bodyLower, greeting) {
			score += 5
			findings = append(findings, "Uses generic greeting instead of personalization")
			break
		}
	}

	if money := moneyPattern.FindAllString(bodyLower, -1); len(money) > 0 {
		score += len(money) * 4
		findings = append(findings, fmt.Sprintf("Contains %d financial references", len(money)))
	}

	links := bodyLinkPattern.FindAllString(body, -1)
	if wordCount > 20 && len(links) > 0 {
		linkRatio := float64(len(links)) / (float64(wordCount) / 100.0)
		if linkRatio > 0.5 {
			score += 8
			findings = append(findings, fmt.Sprintf("High link density (%d links for %d words)", len(links), wordCount))
		}
	}

	if tags := len(htmlTagPattern.FindAllString(body, -1)); tags > 30 {
		score += 5
		findings = append(findings, fmt.Sprintf("Heavy HTML formatting (%d tags) - typical of marketing", tags))
	}

	if wordCount > 20 {
		if word, count := mostFrequentWord(words); count > wordCount*15/100 {
			score += 4
			findings = append(findings, fmt.Sprintf("Repetitive language ('%s' used %d times)", word, count))
		}
	}

	// Marketing content legally requires an opt-out.
	if e.anyCategoryKeyword(bodyLower) &&
		!strings.Contains(bodyLower, "unsubscribe") && !strings.Contains(bodyLower, "opt-out") {
		score += 3
		findings = append(findings, "Marketing content without unsubscribe link (CAN-SPAM violation)")
	}

	return score, findings
}

func (e *SpamEvaluator) analyzeSender(email *core.Email) (int, []string) {
	sender := email.From
	if sender == "" {
		return 0, nil
	}

	score := 0
	var findings []string
	senderLower := strings.ToLower(sender)
	address := senderAddress(sender)

	if strings.Contains(address, "@") {
		domain := strings.SplitN(address, "@", 2)[1]

		for _, free := range e.cfg.FreeDomains {
			if domain == free {
				score += 3
				findings = append(findings, fmt.Sprintf("Sender uses free email domain: %s", domain))
				break
			}
		}

		if spamTLDPattern.MatchString(domain) {
			score += 5
			findings = append(findings, fmt.Sprintf("Sender uses suspicious TLD: %s", domain))
		}

		for _, name := range e.cfg.GenericNames {
			if strings.Contains(senderLower, name) {
				score += 2
				findings = append(findings, "Generic sender identity")
				break
			}
		}
	}

	return score, findings
}

func (e *SpamEvaluator) analyzeStructure(email *core.Email) (int, []string) {
	score := 0
	var findings []string

	if email.From == "" {
		score += 5
		findings = append(findings, "Missing From header")
	}
	if email.To == "" {
		score += 3
		findings = append(findings, "BCC'd or missing recipient header")
	}

	if email.To != "" && (strings.Count(email.To, ",") > 10 || strings.Count(email.To, ";") > 10) {
		score += 8
		findings = append(findings, "Sent to many recipients (mass mailing)")
	}

	for _, att := range email.Attachments {
		filename := strings.ToLower(att.Filename)
		for _, ext := range e.cfg.SuspiciousExts {
			if strings.HasSuffix(filename, ext) {
				score += 10
				findings = append(findings, "Suspicious executable attachment")
				break
			}
		}
		for _, word := range e.cfg.FinancialNames {
			if strings.Contains(filename, word) {
				score += 3
				findings = append(findings, fmt.Sprintf("Financial document attachment: %s", filename))
				break
			}
		}
	}

	if !email.HasHeader("Reply-To") {
		score += 2
		findings = append(findings, "No Reply-To header")
	}

	return score, findings
}

func (e *SpamEvaluator) analyzeLinks(email *core.Email) (int, []string) {
	if len(email.URLs) == 0 {
		return 0, nil
	}

	score := 0
	var findings []string
	urls := email.URLs
	if len(urls) > 10 {
		urls = urls[:10]
	}

	for _, raw := range urls {
		lower := strings.ToLower(raw)
		if spamTLDPattern.MatchString(hostOf(lower)) {
			score += 4
			findings = append(findings, "URL uses suspicious TLD")
		}
		for _, shortener := range e.cfg.Shorteners {
			if strings.Contains(lower, shortener) {
				score += 3
				findings = append(findings, "Shortened URL detected")
				break
			}
		}
	}

	return score, findings
}

// anyCategoryKeyword reports whether any spam keyword from any category
// appears in the text.
func (e *SpamEvaluator) anyCategoryKeyword(textLower string) bool {
	for _, cat := range e.cfg.Categories {
		if countKeywords(textLower, cat.Keywords) > 0 {
			return true
		}
	}
	return false
}

// mostFrequentWord returns the most common word and its count; ties break
// toward the earliest occurrence.
func mostFrequentWord(words []string) (string, int) {
	freq := make(map[string]int, len(words))
	for _, w := range words {
		freq[w]++
	}
	best, bestCount := "", 0
	for _, w := range words {
		if freq[w] > bestCount {
			best, bestCount = w, freq[w]
		}
	}
	return best, bestCount
}

// hostOf extracts the host portion of a URL without a full parse.
func hostOf(raw string) string {
	rest := raw
	if i := strings.Index(rest, "://"); i >= 0 {
		rest = rest[i+3:]
	}
	for _, sep := range []string{"/", "?", "#", ":"} {
		if i := strings.Index(rest, sep); i >= 0 {
			rest = rest[:i]
		}
	}
	return rest
}
