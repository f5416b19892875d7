package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteStore persists assessments in a SQLite database file
type SQLiteStore struct {
	*sqlStore
}

// NewSQLiteStore opens or creates the database at dbPath
func NewSQLiteStore(dbPath string, logger *zap.Logger, cleanupFreq time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	err = execSchema(db, `
		CREATE TABLE IF NOT EXISTS assessments (
			id TEXT PRIMARY KEY,
			home_id TEXT NOT NULL,
			event_id TEXT,
			decision TEXT NOT NULL,
			probability REAL,
			payload TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_assessments_home ON assessments(home_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_assessments_expires_at ON assessments(expires_at)`,
	)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{sqlStore: newSQLStore(db, "sqlite", logger, cleanupFreq)}, nil
}
