package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mikey/threat-alert-engine/internal/factors"
	"github.com/mikey/threat-alert-engine/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchConcurrency bounds parallel assessments in AssessBatch
const DefaultBatchConcurrency = 8

// ServiceOptions carries the tunables of AlertService
type ServiceOptions struct {
	Mitigations      []Mitigation
	Reasoner         ReasonerConfig
	ReasonerEnabled  bool
	Retention        time.Duration
	BatchConcurrency int
	// Now overrides the clock, mainly for tests
	Now func() time.Time
}

// DefaultServiceOptions returns options with the stock catalogs
func DefaultServiceOptions() ServiceOptions {
	return ServiceOptions{
		Mitigations:      DefaultMitigations(),
		Reasoner:         DefaultReasonerConfig(),
		ReasonerEnabled:  true,
		Retention:        24 * time.Hour,
		BatchConcurrency: DefaultBatchConcurrency,
	}
}

// AlertService assesses security events and keeps an audit trail of the
// results. It is safe for concurrent use.
type AlertService struct {
	aggregator *Aggregator
	thresholds Thresholds
	repo       AssessmentRepository
	tracker    IncidentTracker
	catalog    *factors.Catalog
	logger     *zap.Logger
	metrics    *metrics.Metrics
	opts       ServiceOptions
}

// NewAlertService creates the service. repo and tracker may be nil to
// disable persistence and incident fusion.
func NewAlertService(
	aggregator *Aggregator,
	thresholds Thresholds,
	repo AssessmentRepository,
	tracker IncidentTracker,
	catalog *factors.Catalog,
	logger *zap.Logger,
	m *metrics.Metrics,
	opts ServiceOptions,
) (*AlertService, error) {
	if aggregator == nil {
		return nil, fmt.Errorf("alert service requires an aggregator")
	}
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if catalog == nil {
		catalog = factors.NewCatalog(nil, logger)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.BatchConcurrency <= 0 {
		opts.BatchConcurrency = DefaultBatchConcurrency
	}

	return &AlertService{
		aggregator: aggregator,
		thresholds: thresholds,
		repo:       repo,
		tracker:    tracker,
		catalog:    catalog,
		logger:     logger,
		metrics:    m,
		opts:       opts,
	}, nil
}

// Thresholds returns the configured severity bands
func (s *AlertService) Thresholds() Thresholds {
	return s.thresholds
}

// Aggregator returns the calibrated aggregator
func (s *AlertService) Aggregator() *Aggregator {
	return s.aggregator
}

// Assess scores one event. Malformed evidence never produces an error; the
// only error is a context that is already done.
func (s *AlertService) Assess(ctx context.Context, event *SecurityEvent) (*AssessmentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := s.opts.Now()

	observedAt := event.Timestamp
	if observedAt.IsZero() {
		observedAt = start
	}

	// the event on its own decides whether its evidence is usable at all
	own := s.aggregator.Aggregate(event.Evidence)
	scored := own

	var summary *IncidentSummary
	if s.tracker != nil && event.TrackID != "" && own.Defined() {
		valid := make(Evidence, 0, len(own.Contributing))
		for _, fw := range own.Contributing {
			valid = append(valid, EvidenceTerm{Factor: fw.Factor, Weight: fw.Weight})
		}
		inc := s.tracker.Track(event.HomeID, event.TrackID, event.CameraID, observedAt, valid)
		summary = &inc
		scored = s.aggregator.Aggregate(inc.Fused)
		scored.Discarded = own.Discarded
	}
	scored.Decision = Classify(scored.Probability, s.thresholds)

	record := &AssessmentRecord{
		ID:         uuid.NewString(),
		HomeID:     event.HomeID,
		EventID:    event.EventID,
		CameraID:   event.CameraID,
		Assessment: scored,
		Incident:   summary,
		CreatedAt:  start,
		ExpiresAt:  start.Add(s.opts.Retention),
	}

	if scored.Decision.AtLeast(DecisionStandard) {
		record.Counterfactual = SuggestDowngrades(scored, s.aggregator, s.thresholds, s.opts.Mitigations)
	}
	if s.opts.ReasonerEnabled && (scored.Decision == DecisionWait || scored.Decision == DecisionStandard) {
		record.Questions = RankQuestions(scored, s.aggregator, s.opts.Reasoner)
	}

	names := make([]string, 0, len(own.Contributing))
	for _, fw := range own.Contributing {
		names = append(names, fw.Factor)
	}
	record.UnknownFactors = s.catalog.Unknown(names)

	if s.repo != nil {
		if err := s.repo.Save(ctx, record); err != nil {
			s.metrics.IncrementStoreError("save")
			s.logger.Error("Failed to persist assessment",
				zap.String("assessment_id", record.ID),
				zap.String("home_id", record.HomeID),
				zap.Error(err))
		}
	}

	s.recordMetrics(record, own.Discarded, start)
	s.logAssessment(record)
	return record, nil
}

// AssessBatch assesses events in parallel and returns records in input order
func (s *AlertService) AssessBatch(ctx context.Context, events []*SecurityEvent) ([]*AssessmentRecord, error) {
	records := make([]*AssessmentRecord, len(events))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.BatchConcurrency)
	for i, event := range events {
		g.Go(func() error {
			record, err := s.Assess(gctx, event)
			if err != nil {
				return fmt.Errorf("event %d: %w", i, err)
			}
			records[i] = record
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

// Get returns a stored assessment
func (s *AlertService) Get(ctx context.Context, id string) (*AssessmentRecord, error) {
	if s.repo == nil {
		return nil, ErrNotFound
	}
	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ListByHome returns the newest assessments for a home
func (s *AlertService) ListByHome(ctx context.Context, homeID string, limit int) ([]*AssessmentRecord, error) {
	if s.repo == nil {
		return []*AssessmentRecord{}, nil
	}
	records, err := s.repo.ListByHome(ctx, homeID, limit)
	if err != nil {
		s.metrics.IncrementStoreError("list")
		return nil, fmt.Errorf("failed to list assessments for home %s: %w", homeID, err)
	}
	return records, nil
}

func (s *AlertService) recordMetrics(record *AssessmentRecord, discarded []DiscardedTerm, start time.Time) {
	s.metrics.IncrementDecision(record.Assessment.Decision.String())
	s.metrics.AddUnknownFactors(len(record.UnknownFactors))

	counts := make(map[DiscardReason]int, 2)
	for _, d := range discarded {
		counts[d.Reason]++
	}
	for reason, n := range counts {
		s.metrics.AddDiscarded(string(reason), n)
	}
	s.metrics.ObserveAssessLatency(s.opts.Now().Sub(start))
}

func (s *AlertService) logAssessment(record *AssessmentRecord) {
	a := record.Assessment
	fields := []zap.Field{
		zap.String("assessment_id", record.ID),
		zap.String("home_id", record.HomeID),
		zap.String("event_id", record.EventID),
		zap.Stringer("decision", a.Decision),
		zap.Stringer("probability", a.Probability),
		zap.Int("contributing", len(a.Contributing)),
	}
	if record.Incident != nil {
		fields = append(fields,
			zap.Uint64("incident_id", record.Incident.ID),
			zap.Int("incident_events", record.Incident.EventCount))
	}

	if len(a.Discarded) > 0 {
		s.logger.Warn("Discarded malformed evidence",
			zap.String("assessment_id", record.ID),
			zap.Int("discarded", len(a.Discarded)),
			zap.Bool("fail_safe", !a.Defined()))
	}

	if a.Decision.IsAlert() {
		s.logger.Info("Raised alert", fields...)
		return
	}
	s.logger.Debug("Assessed event", fields...)
}
