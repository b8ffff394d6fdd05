// Package telemetry adapts a pkg/telemetry meter into the counters and
// gauges this cache exposes, the way the gRPC gateway counters were once
// built on top of the same meter for RPC traffic.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/metric"

	"github.com/gojodb/pagecache/core/bufferpool"
)

// CacheMetrics holds the counters pagecached registers against the
// process-wide meter. NewCacheMetrics also registers the
// pagecache_resident_frames gauge, whose callback reports the current
// resident-frame count on each Prometheus scrape rather than on every
// pin/unpin.
type CacheMetrics struct {
	hits       metric.Int64Counter
	misses     metric.Int64Counter
	evictions  metric.Int64Counter
	ioErrors   metric.Int64Counter
	residentFn func(ctx context.Context, o metric.Int64Observer) error
}

// NewCacheMetrics registers the pagecache_* instruments against meter.
// pool's ResidentCount is sampled lazily by the observable gauge rather than
// polled by a background goroutine.
func NewCacheMetrics(meter metric.Meter, pool *bufferpool.Pool) (*CacheMetrics, error) {
	hits, err := meter.Int64Counter("pagecache_hits_total",
		metric.WithDescription("Number of page requests served from a resident frame."))
	if err != nil {
		return nil, fmt.Errorf("registering pagecache_hits_total: %w", err)
	}
	misses, err := meter.Int64Counter("pagecache_misses_total",
		metric.WithDescription("Number of page requests that required a load from the backing store."))
	if err != nil {
		return nil, fmt.Errorf("registering pagecache_misses_total: %w", err)
	}
	evictions, err := meter.Int64Counter("pagecache_evictions_total",
		metric.WithDescription("Number of resident frames evicted to make room for a miss."))
	if err != nil {
		return nil, fmt.Errorf("registering pagecache_evictions_total: %w", err)
	}
	ioErrors, err := meter.Int64Counter("pagecache_io_errors_total",
		metric.WithDescription("Number of permanent I/O failures on load, flush, or eviction."))
	if err != nil {
		return nil, fmt.Errorf("registering pagecache_io_errors_total: %w", err)
	}

	cm := &CacheMetrics{hits: hits, misses: misses, evictions: evictions, ioErrors: ioErrors}

	_, err = meter.Int64ObservableGauge("pagecache_resident_frames",
		metric.WithDescription("Number of frames currently resident in the pool."),
		metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
			o.Observe(int64(pool.ResidentCount()))
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("registering pagecache_resident_frames: %w", err)
	}

	return cm, nil
}

// Hooks adapts CacheMetrics into bufferpool.Hooks, the callback set
// core/bufferpool invokes without importing otel itself.
func (cm *CacheMetrics) Hooks() *bufferpool.Hooks {
	ctx := context.Background()
	return &bufferpool.Hooks{
		OnHit:  func(bufferpool.PageID) { cm.hits.Add(ctx, 1) },
		OnMiss: func(bufferpool.PageID) { cm.misses.Add(ctx, 1) },
		OnEvict: func(bufferpool.PageID) {
			cm.evictions.Add(ctx, 1)
		},
		OnIOError: func(op string, id bufferpool.PageID, err error) {
			cm.ioErrors.Add(ctx, 1)
		},
	}
}
