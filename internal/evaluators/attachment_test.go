package evaluators_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vams/mailrisk/internal/core"
	"github.com/vams/mailrisk/internal/evaluators"
)

func attachmentScore(filenames ...string) core.ModuleResult {
	ev := evaluators.NewAttachmentEvaluator(evaluators.DefaultAttachmentConfig())
	email := &core.Email{}
	for _, name := range filenames {
		email.Attachments = append(email.Attachments, core.Attachment{Filename: name})
	}
	return ev.Evaluate(context.Background(), email)
}

func TestAttachmentNoAttachments(t *testing.T) {
	res := attachmentScore()
	assert.Equal(t, 0, res.Score)
	assert.Empty(t, res.Findings)
}

func TestAttachmentBenignFiles(t *testing.T) {
	res := attachmentScore("photo.jpg", "report.pdf", "notes.txt")
	assert.Equal(t, 0, res.Score)
}

func TestAttachmentDangerousExtension(t *testing.T) {
	res := attachmentScore("setup.exe")
	assert.Equal(t, 15, res.Score)
	require.Len(t, res.Findings, 1)
	assert.Contains(t, res.Findings[0], "Dangerous file extension")
}

func TestAttachmentMacroEnabled(t *testing.T) {
	res := attachmentScore("budget.xlsm")
	assert.Equal(t, 12, res.Score)
	assert.Contains(t, res.Findings[0], "Macro-enabled Office file")
}

func TestAttachmentDoubleExtensionEvasion(t *testing.T) {
	res := attachmentScore("invoice.pdf.exe")
	// Dangerous extension plus double-extension evasion, capped at the module max.
	assert.Equal(t, 15, res.Score)
	require.Len(t, res.Findings, 2)
	assert.Contains(t, res.Findings[0], "Dangerous file extension")
	assert.Contains(t, res.Findings[1], "Double extension evasion")
}
