package factory

import (
	"fmt"
	"os"

	"github.com/mikey/threat-alert-engine/internal/adapters/intake"
	"github.com/mikey/threat-alert-engine/internal/config"
	"github.com/mikey/threat-alert-engine/internal/core"
	"github.com/mikey/threat-alert-engine/internal/metrics"
	"github.com/mikey/threat-alert-engine/internal/ports"
	"go.uber.org/zap"
)

// IntakeFactory creates event intakes based on configuration
type IntakeFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *core.AlertService
	metrics *metrics.Metrics
}

// NewIntakeFactory creates a new intake factory
func NewIntakeFactory(cfg *config.Config, logger *zap.Logger, service *core.AlertService, m *metrics.Metrics) *IntakeFactory {
	return &IntakeFactory{
		cfg:     cfg,
		logger:  logger,
		service: service,
		metrics: m,
	}
}

// CreateEventIntake creates the intake selected by server.intake_type
func (f *IntakeFactory) CreateEventIntake() (ports.EventIntake, error) {
	intakeType := f.cfg.GetString("server.intake_type")

	switch intakeType {
	case "http":
		serverCfg, err := f.cfg.GetServer()
		if err != nil {
			return nil, fmt.Errorf("invalid server configuration: %w", err)
		}
		return intake.NewHTTPIntake(f.service, f.logger, f.metrics, serverCfg), nil
	case "redis":
		redisCfg, err := f.cfg.GetRedis()
		if err != nil {
			return nil, fmt.Errorf("invalid redis configuration: %w", err)
		}
		client, err := intake.NewRedisClient(redisCfg)
		if err != nil {
			return nil, err
		}
		return intake.NewRedisIntake(client, f.service, redisCfg, f.logger, f.metrics), nil
	case "cli":
		return intake.NewCLIIntake(f.service, f.logger, os.Stdout, f.cfg.GetBool("cli.verbose")), nil
	default:
		return nil, fmt.Errorf("unsupported intake type: %s", intakeType)
	}
}
