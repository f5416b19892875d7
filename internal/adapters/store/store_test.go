package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikey/threat-alert-engine/internal/core"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

var baseTime = time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC)

type repository interface {
	core.AssessmentRepository
	Stop()
}

type RepositorySuite struct {
	suite.Suite
	newStore func(t *testing.T, now func() time.Time) repository
	store    repository
	clock    time.Time
	ctx      context.Context
}

func (s *RepositorySuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = baseTime
	s.store = s.newStore(s.T(), func() time.Time { return s.clock })
}

func (s *RepositorySuite) TearDownTest() {
	s.store.Stop()
}

func record(id, home string, created time.Time, p float64) *core.AssessmentRecord {
	return &core.AssessmentRecord{
		ID:      id,
		HomeID:  home,
		EventID: "evt-" + id,
		Assessment: core.ThreatAssessment{
			Probability:  core.ProbabilityOf(p),
			Decision:     core.Classify(core.ProbabilityOf(p), core.DefaultThresholds()),
			LogOdds:      core.Logit(p),
			Contributing: []core.FactorWeight{{Factor: "entry_point", Weight: 1.1}},
		},
		UnknownFactors: []string{"custom_sensor"},
		CreatedAt:      created,
		ExpiresAt:      created.Add(time.Hour),
	}
}

func (s *RepositorySuite) TestSaveAndGet() {
	in := record("a1", "home-1", baseTime, 0.62)
	s.Require().NoError(s.store.Save(s.ctx, in))

	out, err := s.store.Get(s.ctx, "a1")
	s.Require().NoError(err)
	s.Equal("home-1", out.HomeID)
	s.Equal("evt-a1", out.EventID)
	s.Equal(core.DecisionCritical, out.Assessment.Decision)
	v, ok := out.Assessment.Probability.Value()
	s.True(ok)
	s.InDelta(0.62, v, 1e-12)
	s.Equal(in.Assessment.Contributing, out.Assessment.Contributing)
	s.Equal([]string{"custom_sensor"}, out.UnknownFactors)
	s.True(in.CreatedAt.Equal(out.CreatedAt))
}

func (s *RepositorySuite) TestUndefinedProbabilityRoundTrip() {
	in := record("u1", "home-1", baseTime, 0.5)
	in.Assessment.Probability = core.UndefinedProbability()
	in.Assessment.Decision = core.DecisionStandard
	in.Assessment.Discarded = []core.DiscardedTerm{{Factor: "behavior", Value: "NaN", Reason: core.DiscardNonFinite}}
	s.Require().NoError(s.store.Save(s.ctx, in))

	out, err := s.store.Get(s.ctx, "u1")
	s.Require().NoError(err)
	s.True(out.Assessment.Probability.IsUndefined())
	s.Equal(core.DecisionStandard, out.Assessment.Decision)
	s.Equal(in.Assessment.Discarded, out.Assessment.Discarded)
}

func (s *RepositorySuite) TestGetMissing() {
	_, err := s.store.Get(s.ctx, "nope")
	s.ErrorIs(err, core.ErrNotFound)
}

func (s *RepositorySuite) TestSaveReplaces() {
	s.Require().NoError(s.store.Save(s.ctx, record("r1", "home-1", baseTime, 0.1)))
	s.Require().NoError(s.store.Save(s.ctx, record("r1", "home-1", baseTime, 0.4)))

	out, err := s.store.Get(s.ctx, "r1")
	s.Require().NoError(err)
	s.Equal(core.DecisionElevated, out.Assessment.Decision)
}

func (s *RepositorySuite) TestListByHomeNewestFirst() {
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("h%d", i)
		s.Require().NoError(s.store.Save(s.ctx, record(id, "home-1", baseTime.Add(time.Duration(i)*time.Minute), 0.2)))
	}
	s.Require().NoError(s.store.Save(s.ctx, record("other", "home-2", baseTime, 0.2)))

	all, err := s.store.ListByHome(s.ctx, "home-1", 0)
	s.Require().NoError(err)
	s.Require().Len(all, 5)
	s.Equal("h4", all[0].ID)
	s.Equal("h0", all[4].ID)

	limited, err := s.store.ListByHome(s.ctx, "home-1", 2)
	s.Require().NoError(err)
	s.Require().Len(limited, 2)
	s.Equal("h4", limited[0].ID)
	s.Equal("h3", limited[1].ID)

	none, err := s.store.ListByHome(s.ctx, "home-3", 10)
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *RepositorySuite) TestExpiry() {
	s.Require().NoError(s.store.Save(s.ctx, record("old", "home-1", baseTime, 0.2)))
	s.Require().NoError(s.store.Save(s.ctx, record("new", "home-1", baseTime.Add(50*time.Minute), 0.2)))

	s.clock = baseTime.Add(61 * time.Minute)

	_, err := s.store.Get(s.ctx, "old")
	s.ErrorIs(err, core.ErrNotFound)

	list, err := s.store.ListByHome(s.ctx, "home-1", 0)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal("new", list[0].ID)

	s.Require().NoError(s.store.Cleanup(s.ctx))
	s.clock = baseTime
	_, err = s.store.Get(s.ctx, "old")
	s.ErrorIs(err, core.ErrNotFound, "cleanup should have deleted the expired record")
	_, err = s.store.Get(s.ctx, "new")
	s.NoError(err)
}

func TestMemoryStore(t *testing.T) {
	suite.Run(t, &RepositorySuite{
		newStore: func(t *testing.T, now func() time.Time) repository {
			s := NewMemoryStore(zap.NewNop(), 0)
			s.now = now
			return s
		},
	})
}

func TestSQLiteStore(t *testing.T) {
	suite.Run(t, &RepositorySuite{
		newStore: func(t *testing.T, now func() time.Time) repository {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "assessments.db"), zap.NewNop(), 0)
			require.NoError(t, err)
			s.now = now
			return s
		},
	})
}

func TestStopIsIdempotent(t *testing.T) {
	s := NewMemoryStore(zap.NewNop(), time.Millisecond)
	s.Stop()
	s.Stop()
}
