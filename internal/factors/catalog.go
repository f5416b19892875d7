package factors

import (
	"go.uber.org/zap"
)

// Well-known evidence factors produced by the upstream extractors
const (
	IdentityRecognition   = "identity_recognition"
	TimeOfDay             = "time_of_day"
	EntryPoint            = "entry_point"
	Behavior              = "behavior"
	Presence              = "presence"
	DeliveryTokenValidity = "delivery_token_validity"
)

// DefaultKnown lists the factors every deployment understands
var DefaultKnown = []string{
	IdentityRecognition,
	TimeOfDay,
	EntryPoint,
	Behavior,
	Presence,
	DeliveryTokenValidity,
}

// Catalog tracks which factor names are recognized by this deployment.
// Unknown factors are still scored; the catalog only exists for auditing.
type Catalog struct {
	known  map[string]struct{}
	logger *zap.Logger
}

// NewCatalog creates a catalog from the default factors plus extra names
func NewCatalog(extra []string, logger *zap.Logger) *Catalog {
	known := make(map[string]struct{}, len(DefaultKnown)+len(extra))
	for _, name := range DefaultKnown {
		known[name] = struct{}{}
	}

	var added []string
	for _, name := range extra {
		normalized, ok := Normalize(name)
		if !ok {
			continue
		}
		if _, exists := known[normalized]; !exists {
			added = append(added, normalized)
		}
		known[normalized] = struct{}{}
	}

	if len(added) > 0 && logger != nil {
		logger.Info("Registered additional evidence factors", zap.Strings("factors", added))
	}

	return &Catalog{
		known:  known,
		logger: logger,
	}
}

// IsKnown reports whether the factor name is registered. The name is
// normalized before lookup.
func (c *Catalog) IsKnown(name string) bool {
	normalized, ok := Normalize(name)
	if !ok {
		return false
	}
	_, found := c.known[normalized]
	return found
}

// Unknown returns the subset of names not present in the catalog, in input order
func (c *Catalog) Unknown(names []string) []string {
	var unknown []string
	for _, name := range names {
		if !c.IsKnown(name) {
			unknown = append(unknown, name)
		}
	}

	if len(unknown) > 0 && c.logger != nil {
		c.logger.Debug("Evidence contains unknown factors", zap.Strings("factors", unknown))
	}
	return unknown
}
