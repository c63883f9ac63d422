package evaluators

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/vams/mailrisk/internal/core"
)

// AttachmentConfig holds the extension risk tables.
type AttachmentConfig struct {
	MaxScore            int
	DangerousExtensions []string
	MacroExtensions     []string
	BenignExtensions    []string
}

// DefaultAttachmentConfig returns the reference extension tables.
func DefaultAttachmentConfig() AttachmentConfig {
	return AttachmentConfig{
		MaxScore: 15,
		DangerousExtensions: []string{
			".exe", ".scr", ".bat", ".vbs", ".js", ".ps1", ".cmd", ".com", ".msi",
		},
		MacroExtensions: []string{".docm", ".xlsm", ".pptm"},
		BenignExtensions: []string{
			".pdf", ".doc", ".docx", ".xls", ".xlsx", ".txt",
		},
	}
}

// AttachmentEvaluator scores attachment metadata: executables, macro-enabled
// Office documents, and double-extension evasion.
type AttachmentEvaluator struct {
	cfg AttachmentConfig
}

// NewAttachmentEvaluator creates a new attachment evaluator.
func NewAttachmentEvaluator(cfg AttachmentConfig) *AttachmentEvaluator {
	return &AttachmentEvaluator{cfg: cfg}
}

// Name implements core.Evaluator.
func (e *AttachmentEvaluator) Name() string { return "Attachment Risk" }

// MaxScore implements core.Evaluator.
func (e *AttachmentEvaluator) MaxScore() int { return e.cfg.MaxScore }

// Evaluate implements core.Evaluator.
func (e *AttachmentEvaluator) Evaluate(_ context.Context, email *core.Email) core.ModuleResult {
	score := 0
	var findings []string

	for _, att := range email.Attachments {
		filename := strings.ToLower(att.Filename)
		if filename == "" {
			continue
		}

		ext := path.Ext(filename)
		if contains(e.cfg.DangerousExtensions, ext) {
			score += 15
			findings = append(findings, fmt.Sprintf("Dangerous file extension detected: %s", filename))
		}
		if contains(e.cfg.MacroExtensions, ext) {
			score += 12
			findings = append(findings, fmt.Sprintf("Macro-enabled Office file detected: %s", filename))
		}

		// invoice.pdf.exe style: a benign-looking extension hiding before
		// the real one.
		inner := path.Ext(strings.TrimSuffix(filename, ext))
		if inner != "" && contains(e.cfg.BenignExtensions, inner) {
			score += 10
			findings = append(findings, fmt.Sprintf("Double extension evasion detected: %s", filename))
		}
	}

	if score > e.cfg.MaxScore {
		score = e.cfg.MaxScore
	}
	return core.ModuleResult{Module: e.Name(), Score: score, Findings: findings}
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
