package di

import (
	"go.uber.org/dig"

	"github.com/mikey/threat-alert-engine/internal/config"
	"github.com/mikey/threat-alert-engine/internal/core"
	"github.com/mikey/threat-alert-engine/internal/factors"
	"github.com/mikey/threat-alert-engine/internal/factory"
	"github.com/mikey/threat-alert-engine/internal/logging"
	"github.com/mikey/threat-alert-engine/internal/metrics"
	"github.com/mikey/threat-alert-engine/internal/ports"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register metrics
	if err := container.Provide(metrics.New); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewIntakeFactory); err != nil {
		return nil, err
	}

	if err := provideEngine(container); err != nil {
		return nil, err
	}

	// Register assessment repository
	if err := container.Provide(func(f *factory.StoreFactory) (core.AssessmentRepository, error) {
		return f.CreateRepository()
	}); err != nil {
		return nil, err
	}

	// Register incident tracker
	if err := container.Provide(func(f *factory.EngineFactory) (core.IncidentTracker, error) {
		return f.CreateIncidentTracker()
	}); err != nil {
		return nil, err
	}

	// Register alert service
	if err := container.Provide(core.NewAlertService); err != nil {
		return nil, err
	}

	// Register event intake
	if err := container.Provide(func(f *factory.IntakeFactory) (ports.EventIntake, error) {
		return f.CreateEventIntake()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideEngine registers the scoring components shared by the daemon and the CLI
func provideEngine(container *dig.Container) error {
	if err := container.Provide(factory.NewEngineFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewCatalogFactory); err != nil {
		return err
	}

	if err := container.Provide(func(f *factory.EngineFactory) (*core.Aggregator, error) {
		return f.CreateAggregator()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.EngineFactory) (core.Thresholds, error) {
		return f.CreateThresholds()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.EngineFactory) (core.ServiceOptions, error) {
		return f.CreateServiceOptions()
	}); err != nil {
		return err
	}
	return container.Provide(func(f *factory.CatalogFactory) *factors.Catalog {
		return f.CreateCatalog()
	})
}
