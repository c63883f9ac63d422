package core

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors surfaced to transports.
var (
	// ErrMalformedMessage indicates the raw bytes could not be parsed as an
	// email message. Mapped to a client error.
	ErrMalformedMessage = errors.New("malformed email message")

	// ErrInputTooLarge indicates the input exceeded the configured byte
	// ceiling. Checked before any parsing work.
	ErrInputTooLarge = errors.New("input too large")
)

// Evaluator is a single scoring module. Evaluators are stateless functions of
// the email record (the sender-history evaluator being the one exception with
// a repository side effect) and may run concurrently.
type Evaluator interface {
	// Name returns the module name used in result breakdowns.
	Name() string

	// MaxScore returns the module's score cap.
	MaxScore() int

	// Evaluate inspects the email and returns a bounded score plus findings.
	// Evaluators never fail the analysis: degraded signals score zero.
	Evaluate(ctx context.Context, email *Email) ModuleResult
}

// SenderHistoryRepository persists SenderRecord rows keyed by lowercase
// sender address.
type SenderHistoryRepository interface {
	// Get retrieves the record for an address, or nil when unseen.
	Get(ctx context.Context, address string) (*SenderRecord, error)

	// Upsert creates the record on first sight (count=1) or atomically bumps
	// LastSeen and MessageCount. It reports whether the record was created.
	// Concurrent upserts for the same address must not lose increments.
	Upsert(ctx context.Context, address string, now time.Time) (*SenderRecord, bool, error)
}

// URLReputationClient is an optional external lookup used by the URL module.
// Implementations must bound their own latency; callers treat any error as
// "no additional signal".
type URLReputationClient interface {
	// IsMalicious reports whether the reputation service flags the URL.
	IsMalicious(ctx context.Context, url string) (bool, error)
}
