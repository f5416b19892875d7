package factory

import (
	"github.com/mikey/threat-alert-engine/internal/config"
	"github.com/mikey/threat-alert-engine/internal/factors"
	"go.uber.org/zap"
)

// CatalogFactory creates the factor catalog
type CatalogFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewCatalogFactory creates a new CatalogFactory
func NewCatalogFactory(cfg *config.Config, logger *zap.Logger) *CatalogFactory {
	return &CatalogFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateCatalog builds the catalog from the defaults plus factors.known
func (f *CatalogFactory) CreateCatalog() *factors.Catalog {
	return factors.NewCatalog(f.cfg.GetStringSlice("factors.known"), f.logger)
}
