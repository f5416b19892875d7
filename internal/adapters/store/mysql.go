package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// MySQLStore persists assessments in MySQL
type MySQLStore struct {
	*sqlStore
}

// NewMySQLStore connects to dsn and creates the schema if needed
func NewMySQLStore(dsn string, logger *zap.Logger, cleanupFreq time.Duration) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	err = execSchema(db, `
		CREATE TABLE IF NOT EXISTS assessments (
			id CHAR(36) PRIMARY KEY,
			home_id VARCHAR(255) NOT NULL,
			event_id VARCHAR(255),
			decision VARCHAR(16) NOT NULL,
			probability DOUBLE NULL,
			payload MEDIUMTEXT NOT NULL,
			created_at BIGINT NOT NULL,
			expires_at BIGINT NOT NULL,
			INDEX idx_assessments_home (home_id, created_at),
			INDEX idx_assessments_expires_at (expires_at)
		)`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &MySQLStore{sqlStore: newSQLStore(db, "mysql", logger, cleanupFreq)}, nil
}
