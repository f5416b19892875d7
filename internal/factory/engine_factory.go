package factory

import (
	"fmt"

	"github.com/mikey/threat-alert-engine/internal/config"
	"github.com/mikey/threat-alert-engine/internal/core"
	"github.com/mikey/threat-alert-engine/internal/incident"
	"go.uber.org/zap"
)

// EngineFactory creates the scoring components from configuration
type EngineFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewEngineFactory creates a new engine factory
func NewEngineFactory(cfg *config.Config, logger *zap.Logger) *EngineFactory {
	return &EngineFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateAggregator builds the calibrated aggregator
func (f *EngineFactory) CreateAggregator() (*core.Aggregator, error) {
	aggCfg, err := f.cfg.GetAggregator()
	if err != nil {
		return nil, fmt.Errorf("invalid aggregator configuration: %w", err)
	}

	f.logger.Info("Using calibration",
		zap.Float64("prior_logit", aggCfg.PriorLogit),
		zap.Float64("mean_logit", aggCfg.MeanLogit),
		zap.Float64("temperature", aggCfg.Temperature),
		zap.Float64("odds_cap", aggCfg.OddsCap))

	return core.NewAggregator(aggCfg)
}

// CreateThresholds loads and validates the severity bands
func (f *EngineFactory) CreateThresholds() (core.Thresholds, error) {
	t, err := f.cfg.GetThresholds()
	if err != nil {
		return core.Thresholds{}, err
	}

	f.logger.Info("Using severity bands",
		zap.Float64("critical", t.Critical),
		zap.Float64("elevated", t.Elevated),
		zap.Float64("alert", t.Alert),
		zap.Float64("wait", t.Wait),
		zap.Stringer("fail_safe", t.FailSafe))
	return t, nil
}

// CreateIncidentTracker returns the incident store, or nil when fusion is disabled
func (f *EngineFactory) CreateIncidentTracker() (core.IncidentTracker, error) {
	incCfg, err := f.cfg.GetIncident()
	if err != nil {
		return nil, fmt.Errorf("invalid incident configuration: %w", err)
	}
	if !incCfg.Enabled {
		f.logger.Info("Incident fusion disabled")
		return nil, nil
	}

	return incident.NewStore(incident.Config{
		TTL:              incCfg.TTL,
		PosCap:           incCfg.PosCap,
		NegCap:           incCfg.NegCap,
		StrongestFactors: incCfg.StrongestFactors,
	}, f.logger), nil
}

// CreateServiceOptions returns the alert service tunables
func (f *EngineFactory) CreateServiceOptions() (core.ServiceOptions, error) {
	storeCfg, err := f.cfg.GetStore()
	if err != nil {
		return core.ServiceOptions{}, err
	}

	opts := core.DefaultServiceOptions()
	opts.ReasonerEnabled = f.cfg.GetBool("reasoner.enabled")
	opts.Retention = storeCfg.Retention
	opts.BatchConcurrency = f.cfg.GetInt("service.batch_concurrency")
	return opts, nil
}
