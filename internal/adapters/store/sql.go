package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mikey/threat-alert-engine/internal/core"
	"go.uber.org/zap"
)

// sqlStore holds the queries shared by the SQLite and MySQL stores. Times are
// stored as unix milliseconds so both dialects compare them the same way.
type sqlStore struct {
	db       *sql.DB
	dialect  string
	logger   *zap.Logger
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

func newSQLStore(db *sql.DB, dialect string, logger *zap.Logger, cleanupFreq time.Duration) *sqlStore {
	s := &sqlStore{
		db:      db,
		dialect: dialect,
		logger:  logger,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	if cleanupFreq > 0 {
		go runCleanup(s, cleanupFreq, s.stopCh, logger)
	}
	return s
}

// Save stores the record, replacing any record with the same ID
func (s *sqlStore) Save(ctx context.Context, record *core.AssessmentRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode assessment: %w", err)
	}

	var probability sql.NullFloat64
	if v, ok := record.Assessment.Probability.Value(); ok {
		probability = sql.NullFloat64{Float64: v, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		REPLACE INTO assessments (id, home_id, event_id, decision, probability, payload, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, record.ID, record.HomeID, record.EventID, record.Assessment.Decision.String(), probability,
		string(payload), record.CreatedAt.UnixMilli(), record.ExpiresAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert assessment: %w", err)
	}
	return nil
}

// Get returns a live record by ID
func (s *sqlStore) Get(ctx context.Context, id string) (*core.AssessmentRecord, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `
		SELECT payload FROM assessments
		WHERE id = ? AND expires_at > ?
	`, id, s.now().UnixMilli()).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query assessment: %w", err)
	}
	return decodeRecord(payload)
}

// ListByHome returns the newest live records for a home
func (s *sqlStore) ListByHome(ctx context.Context, homeID string, limit int) ([]*core.AssessmentRecord, error) {
	query := `
		SELECT payload FROM assessments
		WHERE home_id = ? AND expires_at > ?
		ORDER BY created_at DESC, id DESC`
	args := []any{homeID, s.now().UnixMilli()}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}
	defer rows.Close()

	out := make([]*core.AssessmentRecord, 0)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan assessment: %w", err)
		}
		record, err := decodeRecord(payload)
		if err != nil {
			s.logger.Warn("Skipping undecodable assessment", zap.String("home_id", homeID), zap.Error(err))
			continue
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assessments: %w", err)
	}
	return out, nil
}

// Cleanup removes expired records
func (s *sqlStore) Cleanup(ctx context.Context) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM assessments
		WHERE expires_at <= ?
	`, s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to clean up expired assessments: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		s.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		s.logger.Debug("Cleaned up expired assessments",
			zap.String("dialect", s.dialect),
			zap.Int64("expired_count", rowsAffected))
	}
	return nil
}

// Stop stops the background cleanup task and closes the database connection
func (s *sqlStore) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database", zap.String("dialect", s.dialect), zap.Error(err))
		}
	})
}

func decodeRecord(payload string) (*core.AssessmentRecord, error) {
	var record core.AssessmentRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return nil, fmt.Errorf("failed to decode assessment: %w", err)
	}
	return &record, nil
}

func execSchema(db *sql.DB, statements ...string) error {
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
