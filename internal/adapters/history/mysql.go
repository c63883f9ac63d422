package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/vams/mailrisk/internal/core"
)

// MySQLStore is a MySQL implementation of the SenderHistoryRepository
// interface.
type MySQLStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMySQLStore connects to MySQL and ensures the senders table exists. The
// DSN should include parseTime=true.
func NewMySQLStore(dsn string, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS senders (
			address VARCHAR(320) PRIMARY KEY,
			first_seen DATETIME NOT NULL,
			last_seen DATETIME NOT NULL,
			message_count INT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create senders table: %w", err)
	}

	return &MySQLStore{db: db, logger: logger}, nil
}

// Get retrieves the record for an address, or nil when unseen.
func (s *MySQLStore) Get(ctx context.Context, address string) (*core.SenderRecord, error) {
	record := &core.SenderRecord{Address: address}
	err := s.db.QueryRowContext(ctx, `
		SELECT first_seen, last_seen, message_count
		FROM senders
		WHERE address = ?
	`, address).Scan(&record.FirstSeen, &record.LastSeen, &record.MessageCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query sender record: %w", err)
	}
	return record, nil
}

// Upsert creates or increments the record atomically. MySQL reports one
// affected row for an insert and two for an update of an existing row, which
// distinguishes first sight from a repeat.
func (s *MySQLStore) Upsert(ctx context.Context, address string, now time.Time) (*core.SenderRecord, bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO senders (address, first_seen, last_seen, message_count)
		VALUES (?, ?, ?, 1)
		ON DUPLICATE KEY UPDATE
			last_seen = VALUES(last_seen),
			message_count = message_count + 1
	`, address, now, now)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert sender record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	created := affected == 1

	record, err := s.Get(ctx, address)
	if err != nil {
		return nil, false, err
	}
	if record == nil {
		return nil, false, fmt.Errorf("sender record disappeared after upsert: %s", address)
	}
	return record, created, nil
}

// Close closes the database connection.
func (s *MySQLStore) Close() error {
	return s.db.Close()
}
