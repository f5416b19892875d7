// Package incident fuses consecutive events of the same tracked person into
// a single incident so that repeated sightings are scored together.
package incident

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/mikey/threat-alert-engine/internal/core"
	"github.com/mikey/threat-alert-engine/internal/factors"
	"go.uber.org/zap"
)

// Default fusion settings
const (
	DefaultTTL    = 180 * time.Second
	DefaultPosCap = 1.6
	DefaultNegCap = 3.0
)

// DefaultStrongestFactors are fused by keeping the value with the largest
// magnitude instead of averaging
var DefaultStrongestFactors = []string{
	factors.IdentityRecognition,
	factors.Presence,
	factors.DeliveryTokenValidity,
}

// Config controls incident grouping and fusion
type Config struct {
	TTL              time.Duration
	PosCap           float64
	NegCap           float64
	StrongestFactors []string
}

// DefaultConfig returns the stock fusion settings
func DefaultConfig() Config {
	return Config{
		TTL:              DefaultTTL,
		PosCap:           DefaultPosCap,
		NegCap:           DefaultNegCap,
		StrongestFactors: append([]string(nil), DefaultStrongestFactors...),
	}
}

type key struct {
	home  string
	track string
}

type incident struct {
	id        uint64
	trackID   string
	startedAt time.Time
	updatedAt time.Time
	events    int
	cameras   map[string]struct{}
	means     map[string]float64
	counts    map[string]int
	strongest map[string]float64
}

// Store keeps open incidents in memory. It is safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	cfg       Config
	strongest map[string]struct{}
	incidents map[key]*incident
	nextID    uint64
	logger    *zap.Logger
}

// NewStore creates an empty incident store
func NewStore(cfg Config, logger *zap.Logger) *Store {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.PosCap <= 0 {
		cfg.PosCap = DefaultPosCap
	}
	if cfg.NegCap <= 0 {
		cfg.NegCap = DefaultNegCap
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	strongest := make(map[string]struct{}, len(cfg.StrongestFactors))
	for _, name := range cfg.StrongestFactors {
		if n, ok := factors.Normalize(name); ok {
			strongest[n] = struct{}{}
		}
	}

	return &Store{
		cfg:       cfg,
		strongest: strongest,
		incidents: make(map[key]*incident),
		nextID:    1,
		logger:    logger,
	}
}

// Track adds the event's evidence to the incident for (homeID, trackID),
// opening a new incident when none is live, and returns the fused state.
// Non-finite weights and invalid factor names are ignored.
func (s *Store) Track(homeID, trackID, cameraID string, at time.Time, evidence core.Evidence) core.IncidentSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictLocked(at)

	k := key{home: homeID, track: trackID}
	inc, ok := s.incidents[k]
	if !ok {
		inc = &incident{
			id:        s.nextID,
			trackID:   trackID,
			startedAt: at,
			updatedAt: at,
			cameras:   make(map[string]struct{}),
			means:     make(map[string]float64),
			counts:    make(map[string]int),
			strongest: make(map[string]float64),
		}
		s.nextID++
		s.incidents[k] = inc
		s.logger.Debug("Opened incident",
			zap.Uint64("incident_id", inc.id),
			zap.String("home_id", homeID),
			zap.String("track_id", trackID))
	}

	s.addLocked(inc, cameraID, at, evidence)
	return s.summaryLocked(inc)
}

// Len returns the number of live incidents
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.incidents)
}

func (s *Store) evictLocked(now time.Time) {
	for k, inc := range s.incidents {
		if now.Sub(inc.updatedAt) > s.cfg.TTL {
			delete(s.incidents, k)
			s.logger.Debug("Closed stale incident",
				zap.Uint64("incident_id", inc.id),
				zap.String("home_id", k.home),
				zap.Int("events", inc.events))
		}
	}
}

func (s *Store) addLocked(inc *incident, cameraID string, at time.Time, evidence core.Evidence) {
	inc.events++
	if at.After(inc.updatedAt) {
		inc.updatedAt = at
	}
	if cameraID != "" {
		inc.cameras[cameraID] = struct{}{}
	}

	// merge duplicates within the event first so one sighting counts once
	perEvent := make(map[string]float64, len(evidence))
	for _, term := range evidence {
		name, ok := factors.Normalize(term.Factor)
		if !ok || math.IsNaN(term.Weight) || math.IsInf(term.Weight, 0) {
			continue
		}
		perEvent[name] += term.Weight
	}

	for name, w := range perEvent {
		if math.IsInf(w, 0) {
			w = math.Copysign(math.MaxFloat64, w)
		}
		if _, ok := s.strongest[name]; ok {
			if cur, seen := inc.strongest[name]; !seen || math.Abs(w) > math.Abs(cur) {
				inc.strongest[name] = w
			}
			continue
		}
		// running mean stays finite for finite inputs
		inc.counts[name]++
		n := float64(inc.counts[name])
		inc.means[name] += w/n - inc.means[name]/n
	}
}

func (s *Store) summaryLocked(inc *incident) core.IncidentSummary {
	fused := make(map[string]float64, len(inc.means)+len(inc.strongest))
	for name, mean := range inc.means {
		fused[name] = s.clamp(mean)
	}
	for name, w := range inc.strongest {
		fused[name] = s.clamp(w)
	}

	cameras := make([]string, 0, len(inc.cameras))
	for cam := range inc.cameras {
		cameras = append(cameras, cam)
	}
	sort.Strings(cameras)

	return core.IncidentSummary{
		ID:         inc.id,
		TrackID:    inc.trackID,
		EventCount: inc.events,
		Cameras:    cameras,
		StartedAt:  inc.startedAt,
		UpdatedAt:  inc.updatedAt,
		Fused:      core.EvidenceFromMap(fused),
	}
}

func (s *Store) clamp(w float64) float64 {
	return math.Max(-s.cfg.NegCap, math.Min(s.cfg.PosCap, w))
}
