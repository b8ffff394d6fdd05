package telemetry

import (
	"path/filepath"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"

	"github.com/stretchr/testify/require"

	"github.com/gojodb/pagecache/core/bufferpool"
)

func TestNewCacheMetricsRegistersInstruments(t *testing.T) {
	provider := sdkmetric.NewMeterProvider()
	meter := provider.Meter("test")

	dir := t.TempDir()
	pool, err := bufferpool.NewPool(bufferpool.Config{{Size: 8, Count: 2}}, filepath.Join(dir, "data.bin"), zap.NewNop(), nil)
	require.NoError(t, err)
	defer pool.Close()

	cm, err := NewCacheMetrics(meter, pool)
	require.NoError(t, err)
	require.NotNil(t, cm)

	hooks := cm.Hooks()
	require.NotNil(t, hooks.OnHit)
	require.NotNil(t, hooks.OnMiss)
	require.NotNil(t, hooks.OnEvict)
	require.NotNil(t, hooks.OnIOError)

	// Exercising the hooks must not panic even without a configured reader.
	hooks.OnHit(bufferpool.PageID(0))
	hooks.OnMiss(bufferpool.PageID(0))
	hooks.OnEvict(bufferpool.PageID(0))
	hooks.OnIOError("load", bufferpool.PageID(0), nil)
}
