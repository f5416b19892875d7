// Package store provides AssessmentRepository implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mikey/threat-alert-engine/internal/core"
	"go.uber.org/zap"
)

// MemoryStore keeps assessment records in process memory
type MemoryStore struct {
	records     map[string]*core.AssessmentRecord
	mu          sync.RWMutex
	logger      *zap.Logger
	cleanupFreq time.Duration
	now         func() time.Time
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// NewMemoryStore creates an in-memory store. A cleanupFreq of zero disables
// the background cleanup task.
func NewMemoryStore(logger *zap.Logger, cleanupFreq time.Duration) *MemoryStore {
	s := &MemoryStore{
		records:     make(map[string]*core.AssessmentRecord),
		logger:      logger,
		cleanupFreq: cleanupFreq,
		now:         time.Now,
		stopCh:      make(chan struct{}),
	}

	if cleanupFreq > 0 {
		go runCleanup(s, cleanupFreq, s.stopCh, logger)
	}

	return s
}

// Save stores a copy of the record
func (s *MemoryStore) Save(ctx context.Context, record *core.AssessmentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *record
	s.records[record.ID] = &stored
	return nil
}

// Get returns a live record by ID
func (s *MemoryStore) Get(ctx context.Context, id string) (*core.AssessmentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok || !s.now().Before(record.ExpiresAt) {
		return nil, core.ErrNotFound
	}
	out := *record
	return &out, nil
}

// ListByHome returns the newest live records for a home
func (s *MemoryStore) ListByHome(ctx context.Context, homeID string, limit int) ([]*core.AssessmentRecord, error) {
	s.mu.RLock()
	now := s.now()
	out := make([]*core.AssessmentRecord, 0)
	for _, record := range s.records {
		if record.HomeID == homeID && now.Before(record.ExpiresAt) {
			copied := *record
			out = append(out, &copied)
		}
	}
	s.mu.RUnlock()

	sortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Cleanup removes expired records
func (s *MemoryStore) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	expiredCount := 0
	for id, record := range s.records {
		if !now.Before(record.ExpiresAt) {
			delete(s.records, id)
			expiredCount++
		}
	}

	s.logger.Debug("Cleaned up expired assessments", zap.Int("expired_count", expiredCount))
	return nil
}

// Stop stops the background cleanup task
func (s *MemoryStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func sortNewestFirst(records []*core.AssessmentRecord) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID > records[j].ID
	})
}

type cleaner interface {
	Cleanup(ctx context.Context) error
}

// runCleanup calls Cleanup every freq until stopCh is closed
func runCleanup(c cleaner, freq time.Duration, stopCh <-chan struct{}, logger *zap.Logger) {
	ticker := time.NewTicker(freq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Cleanup(context.Background()); err != nil {
				logger.Error("Failed to clean up assessments", zap.Error(err))
			}
		case <-stopCh:
			return
		}
	}
}
