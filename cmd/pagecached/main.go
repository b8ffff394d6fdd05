// Command pagecached serves page-level GET/SET requests over a local
// socket against a single backing file, caching one page size class with a
// pinned-page LRU pool and serving every other configured size class
// uncached.
//
// Usage:
//
//	pagecached [flags] <datafile> <socket_path> <count_8k> <count_16k> [<count_32k> <count_2m>]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/gojodb/pagecache/core/bufferpool"
	"github.com/gojodb/pagecache/internal/server"
	cachetelemetry "github.com/gojodb/pagecache/internal/telemetry"
	"github.com/gojodb/pagecache/pkg/logger"
	"github.com/gojodb/pagecache/pkg/telemetry"
)

var pageSizeOrder = [4]int{8 * 1024, 16 * 1024, 32 * 1024, 2 * 1024 * 1024}

// maxBufferPoolBytes is the 4 GiB overall memory cap: configurations whose
// size*count summed over every class (Config.TotalBytes) exceeds it are
// rejected before a Pool is ever constructed.
const maxBufferPoolBytes = 4 * 1024 * 1024 * 1024

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "pagecached:", err)
		os.Exit(1)
	}
}

func run() error {
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	logFormat := flag.String("log-format", "json", "log format: json or console")
	metricsAddr := flag.Int("metrics-port", 9464, "port to expose /metrics on")
	flushInterval := flag.Duration("flush-interval", 5*time.Second, "background dirty-frame flush interval")
	flushBytesPerSec := flag.Int("flush-bytes-per-sec", 16*1024*1024, "background flush rate limit in bytes/sec, 0 disables limiting")
	telemetryEnabled := flag.Bool("telemetry", true, "enable OpenTelemetry metrics export")
	flag.Parse()

	args := flag.Args()
	if len(args) < 4 {
		return fmt.Errorf("usage: %s [flags] <datafile> <socket_path> <count_8k> <count_16k> [<count_32k> <count_2m>]", os.Args[0])
	}
	datafile, socketPath := args[0], args[1]

	log, err := logger.New(logger.Config{Level: *logLevel, Format: *logFormat, OutputFile: "stdout"})
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer log.Sync()

	cfg, err := parseSizeCounts(args[2:])
	if err != nil {
		return err
	}
	if total := cfg.TotalBytes(); total > maxBufferPoolBytes {
		return fmt.Errorf("configuration requires %d bytes, exceeding the %d byte cap", total, maxBufferPoolBytes)
	}

	tel, telShutdown, err := telemetry.New(telemetry.Config{
		Enabled:          *telemetryEnabled,
		ServiceName:      "pagecached",
		PrometheusPort:   *metricsAddr,
		TraceSampleRatio: 1.0,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer telShutdown(ctx)

	pool, err := bufferpool.NewPool(bufferpool.Config{cfg[0]}, datafile, log, nil)
	if err != nil {
		return fmt.Errorf("constructing buffer pool: %w", err)
	}
	defer pool.Close()

	if *telemetryEnabled {
		if cm, err := cachetelemetry.NewCacheMetrics(tel.Meter, pool); err != nil {
			log.Warn("metrics registration failed", zap.Error(err))
		} else {
			pool.SetHooks(cm.Hooks())
		}
	}

	var limiter *rate.Limiter
	if *flushBytesPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(*flushBytesPerSec), *flushBytesPerSec)
	}
	stopFlusher := pool.StartBackgroundFlusher(ctx, *flushInterval, limiter)
	defer stopFlusher()

	var store server.PageStore = server.CachedStore{Pool: pool}
	var uncached *bufferpool.UncachedPool
	if len(cfg) > 1 {
		// UncachedPool gets the full ordered configuration, not just the
		// classes it serves: page_start_offset must scan every class's span
		// (including the cached class's) to compute the right byte offset
		// for a page number that is global across all classes.
		uncached, err = bufferpool.NewUncachedPool(cfg, datafile)
		if err != nil {
			return fmt.Errorf("constructing uncached pool: %w", err)
		}
		defer uncached.Close()
		store = multiSizeStore{cached: store, uncached: server.UncachedStore{Pool: uncached}, cachedPageSize: cfg[0].Size}
	}

	srv := server.New(socketPath, store, log)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		srv.Shutdown()
	}()

	log.Info("pagecached starting", zap.String("datafile", datafile), zap.String("socket", socketPath))
	return srv.Serve()
}

// parseSizeCounts pairs the fixed page-size ladder (8k, 16k, 32k, 2m) with
// the positional counts the caller supplied, skipping any class with a
// count of zero.
func parseSizeCounts(counts []string) (bufferpool.Config, error) {
	if len(counts) == 0 || len(counts) > len(pageSizeOrder) {
		return nil, fmt.Errorf("expected 1-%d page size counts, got %d", len(pageSizeOrder), len(counts))
	}
	var cfg bufferpool.Config
	for i, s := range counts {
		var n int
		if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
			return nil, fmt.Errorf("invalid count %q: %w", s, err)
		}
		if n <= 0 {
			continue
		}
		cfg = append(cfg, bufferpool.SizeClass{Size: pageSizeOrder[i], Count: n})
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// multiSizeStore routes a request to the cached Pool when the requested
// page size matches the LRU pool's configured size class, and to the
// uncached pool otherwise.
type multiSizeStore struct {
	cached         server.PageStore
	uncached       server.PageStore
	cachedPageSize int
}

func (m multiSizeStore) ReadPage(no uint32, pageSize int, dst []byte, workerIdx int) error {
	if pageSize == m.cachedPageSize {
		return m.cached.ReadPage(no, pageSize, dst, workerIdx)
	}
	return m.uncached.ReadPage(no, pageSize, dst, workerIdx)
}

func (m multiSizeStore) WritePage(no uint32, pageSize int, src []byte, workerIdx int) error {
	if pageSize == m.cachedPageSize {
		return m.cached.WritePage(no, pageSize, src, workerIdx)
	}
	return m.uncached.WritePage(no, pageSize, src, workerIdx)
}
