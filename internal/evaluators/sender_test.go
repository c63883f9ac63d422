package evaluators_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/vams/mailrisk/internal/core"
	"github.com/vams/mailrisk/internal/evaluators"
)

// fakeHistory is an in-test sender history store.
type fakeHistory struct {
	records map[string]*core.SenderRecord
	err     error
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{records: make(map[string]*core.SenderRecord)}
}

func (f *fakeHistory) Get(_ context.Context, address string) (*core.SenderRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.records[address], nil
}

func (f *fakeHistory) Upsert(_ context.Context, address string, now time.Time) (*core.SenderRecord, bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}
	if rec, ok := f.records[address]; ok {
		rec.LastSeen = now
		rec.MessageCount++
		return rec, false, nil
	}
	rec := &core.SenderRecord{Address: address, FirstSeen: now, LastSeen: now, MessageCount: 1}
	f.records[address] = rec
	return rec, true, nil
}

func newSenderEvaluator(history core.SenderHistoryRepository) *evaluators.SenderEvaluator {
	return evaluators.NewSenderEvaluator(evaluators.DefaultSenderConfig(), history, zap.NewNop())
}

func TestSenderFirstTimeThenKnown(t *testing.T) {
	history := newFakeHistory()
	ev := newSenderEvaluator(history)
	email := &core.Email{From: "Alice <Alice@Example.com>"}

	res := ev.Evaluate(context.Background(), email)
	assert.Equal(t, 5, res.Score)
	assert.Contains(t, res.Findings[0], "First-time sender detected: alice@example.com")

	res = ev.Evaluate(context.Background(), email)
	assert.Equal(t, 0, res.Score)
	assert.Empty(t, res.Findings)

	// Both sightings recorded against the normalized address.
	rec, err := history.Get(context.Background(), "alice@example.com")
	assert.NoError(t, err)
	assert.Equal(t, 2, rec.MessageCount)
}

func TestSenderMissingFrom(t *testing.T) {
	res := newSenderEvaluator(newFakeHistory()).Evaluate(context.Background(), &core.Email{})
	assert.Equal(t, 0, res.Score)
}

func TestSenderStoreFailureDegradesToNoSignal(t *testing.T) {
	history := newFakeHistory()
	history.err = errors.New("connection refused")

	res := newSenderEvaluator(history).Evaluate(context.Background(), &core.Email{From: "a@example.com"})
	assert.Equal(t, 0, res.Score)
	assert.Empty(t, res.Findings)
}
