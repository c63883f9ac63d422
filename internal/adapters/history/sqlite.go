package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/vams/mailrisk/internal/core"
)

// SQLiteStore is a SQLite implementation of the SenderHistoryRepository
// interface.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore opens (creating if necessary) a SQLite sender history
// database.
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS senders (
			address TEXT PRIMARY KEY,
			first_seen TIMESTAMP NOT NULL,
			last_seen TIMESTAMP NOT NULL,
			message_count INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create senders table: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Get retrieves the record for an address, or nil when unseen.
func (s *SQLiteStore) Get(ctx context.Context, address string) (*core.SenderRecord, error) {
	record := &core.SenderRecord{Address: address}
	var firstSeen, lastSeen string

	err := s.db.QueryRowContext(ctx, `
		SELECT first_seen, last_seen, message_count
		FROM senders
		WHERE address = ?
	`, address).Scan(&firstSeen, &lastSeen, &record.MessageCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query sender record: %w", err)
	}

	if record.FirstSeen, err = time.Parse(time.RFC3339, firstSeen); err != nil {
		return nil, fmt.Errorf("failed to parse first_seen timestamp: %w", err)
	}
	if record.LastSeen, err = time.Parse(time.RFC3339, lastSeen); err != nil {
		return nil, fmt.Errorf("failed to parse last_seen timestamp: %w", err)
	}
	return record, nil
}

// Upsert creates or increments the record in a single atomic statement;
// SQLite serializes the conflicting writes for the same key.
func (s *SQLiteStore) Upsert(ctx context.Context, address string, now time.Time) (*core.SenderRecord, bool, error) {
	stamp := now.Format(time.RFC3339)
	record := &core.SenderRecord{Address: address}
	var firstSeen, lastSeen string

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO senders (address, first_seen, last_seen, message_count)
		VALUES (?, ?, ?, 1)
		ON CONFLICT(address) DO UPDATE SET
			last_seen = excluded.last_seen,
			message_count = message_count + 1
		RETURNING first_seen, last_seen, message_count
	`, address, stamp, stamp).Scan(&firstSeen, &lastSeen, &record.MessageCount)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert sender record: %w", err)
	}

	if record.FirstSeen, err = time.Parse(time.RFC3339, firstSeen); err != nil {
		return nil, false, fmt.Errorf("failed to parse first_seen timestamp: %w", err)
	}
	if record.LastSeen, err = time.Parse(time.RFC3339, lastSeen); err != nil {
		return nil, false, fmt.Errorf("failed to parse last_seen timestamp: %w", err)
	}
	return record, record.MessageCount == 1, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
