// Package history provides SenderRecord stores. The upsert is the hot path:
// it must be atomic per address so concurrent analyses of messages from the
// same sender never lose an increment.
package history

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vams/mailrisk/internal/core"
)

// MemoryStore is an in-memory implementation of the SenderHistoryRepository
// interface. Suitable for tests and single-process deployments.
type MemoryStore struct {
	records map[string]*core.SenderRecord
	mu      sync.Mutex
	logger  *zap.Logger
}

// NewMemoryStore creates a new in-memory sender history store.
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*core.SenderRecord),
		logger:  logger,
	}
}

// Get retrieves the record for an address, or nil when unseen.
func (s *MemoryStore) Get(_ context.Context, address string) (*core.SenderRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[address]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

// Upsert creates or increments the record for an address under the store
// lock.
func (s *MemoryStore) Upsert(_ context.Context, address string, now time.Time) (*core.SenderRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[address]
	if !ok {
		record = &core.SenderRecord{
			Address:      address,
			FirstSeen:    now,
			LastSeen:     now,
			MessageCount: 1,
		}
		s.records[address] = record
		copied := *record
		return &copied, true, nil
	}

	record.LastSeen = now
	record.MessageCount++
	copied := *record
	return &copied, false, nil
}
