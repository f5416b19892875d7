package intake

import (
	"testing"
	"time"

	"github.com/mikey/threat-alert-engine/internal/adapters/store"
	"github.com/mikey/threat-alert-engine/internal/core"
	"github.com/mikey/threat-alert-engine/internal/metrics"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (*core.AlertService, *metrics.Metrics) {
	t.Helper()

	agg, err := core.NewAggregator(core.DefaultAggregatorConfig())
	require.NoError(t, err)

	repo := store.NewMemoryStore(zap.NewNop(), 0)
	t.Cleanup(repo.Stop)

	m := metrics.New()
	opts := core.DefaultServiceOptions()
	opts.Retention = time.Hour

	svc, err := core.NewAlertService(agg, core.DefaultThresholds(), repo, nil, nil, zap.NewNop(), m, opts)
	require.NoError(t, err)
	return svc, m
}
