package bufferpool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Hooks lets a caller observe cache events without core/bufferpool importing
// a metrics library directly. internal/telemetry wires these to actual
// counters; nil fields are simply skipped.
type Hooks struct {
	OnHit     func(id PageID)
	OnMiss    func(id PageID)
	OnEvict   func(id PageID)
	OnIOError func(op string, id PageID, err error)
}

func (h *Hooks) hit(id PageID) {
	if h != nil && h.OnHit != nil {
		h.OnHit(id)
	}
}
func (h *Hooks) miss(id PageID) {
	if h != nil && h.OnMiss != nil {
		h.OnMiss(id)
	}
}
func (h *Hooks) evict(id PageID) {
	if h != nil && h.OnEvict != nil {
		h.OnEvict(id)
	}
}
func (h *Hooks) ioError(op string, id PageID, err error) {
	if h != nil && h.OnIOError != nil {
		h.OnIOError(op, id, err)
	}
}

// Pool is the fixed-capacity, single-page-size pinned-page cache: the LRU
// buffer pool proper. One mutex guards residency (the Index+Recency pair);
// each Frame's own latch guards its bytes. The mutex is never held across
// the blocking I/O a load or flush performs beyond the single positional
// syscall loop in BackingStore.
type Pool struct {
	mu        sync.Mutex
	residency *residency
	replacer  Replacer

	store    BackingStore
	pageSize int
	capacity int

	hits   atomic.Uint64
	misses atomic.Uint64

	hooks  *Hooks
	logger *zap.Logger
}

// NewPool builds a Pool over a single size class. cfg's first entry selects
// the page size and capacity; any further entries are ignored here and are
// instead the domain of UncachedPool.
func NewPool(cfg Config, path string, logger *zap.Logger, hooks *Hooks) (*Pool, error) {
	sc, err := cfg.First()
	if err != nil {
		return nil, err
	}
	store, err := OpenFileStore(path)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		residency: newResidency(),
		replacer:  LRUReplacer{},
		store:     store,
		pageSize:  sc.Size,
		capacity:  sc.Count,
		hooks:     hooks,
		logger:    logger,
	}, nil
}

func (p *Pool) PageSize() int { return p.pageSize }
func (p *Pool) Capacity() int { return p.capacity }

// SetHooks installs observation hooks after construction, for callers that
// need the Pool itself (e.g. for a resident-frame gauge) before they can
// build the hooks they want to attach to it. Not safe to call concurrently
// with in-flight ReadPage/WritePage calls; intended for startup, before the
// server begins accepting connections.
func (p *Pool) SetHooks(h *Hooks) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hooks = h
}

// HitRate returns cumulative hits, misses, and the hit ratio (0 when no
// lookups have happened yet).
func (p *Pool) HitRate() (hits, misses uint64, ratio float64) {
	hits = p.hits.Load()
	misses = p.misses.Load()
	total := hits + misses
	if total == 0 {
		return hits, misses, 0
	}
	return hits, misses, float64(hits) / float64(total)
}

func (p *Pool) byteOffset(id PageID) int64 {
	return int64(id) * int64(p.pageSize)
}

func (p *Pool) flushLocked(f *Frame) error {
	_, err := f.FlushToStore(p.store, p.byteOffset(f.ID()))
	return err
}

// getOrLoad returns the resident frame for id, loading and possibly evicting
// to make room if it is not already resident. The residency mutex is held
// for the whole lookup-or-load; this matches the distilled concurrency
// model, in which the load itself happens under the Pool mutex so that two
// concurrent misses on the same page cannot race to load it twice.
func (p *Pool) getOrLoad(id PageID) (*Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if f, ok := p.residency.get(id); ok {
		p.hits.Add(1)
		p.residency.touch(id)
		p.hooks.hit(id)
		return f, nil
	}

	p.misses.Add(1)
	p.hooks.miss(id)

	if err := p.replacer.EvictIfFull(p.residency, p.capacity, p.flushLocked, p.hooks.evict); err != nil {
		p.logger.Warn("eviction failed", zap.Uint64("page_id", uint64(id)), zap.Error(err))
		p.hooks.ioError("evict", id, err)
		return nil, err
	}

	f := NewFrame(id, p.pageSize)
	if err := f.LoadFromStore(p.store, p.byteOffset(id)); err != nil {
		wrapped := fmt.Errorf("%w: %v", ErrIOPermanent, err)
		p.logger.Error("load failed", zap.Uint64("page_id", uint64(id)), zap.Error(err))
		p.hooks.ioError("load", id, err)
		return nil, wrapped
	}
	p.residency.insert(f)
	return f, nil
}

// ReadPage copies the full page for id into dst, pinning the frame for the
// duration of the copy and unpinning it before returning.
func (p *Pool) ReadPage(id PageID, dst []byte) error {
	f, err := p.getOrLoad(id)
	if err != nil {
		return err
	}
	guard := Pin(f)
	defer guard.Release()
	f.ReadAt(0, dst)
	return nil
}

// WritePage copies src into the full page for id, pinning the frame for the
// duration of the copy. The write lands only in memory; it reaches the
// backing store on eviction, FlushAll, or the background flusher.
func (p *Pool) WritePage(id PageID, src []byte) error {
	f, err := p.getOrLoad(id)
	if err != nil {
		return err
	}
	guard := Pin(f)
	defer guard.Release()
	f.WriteAt(0, src)
	return nil
}

// FlushAll writes every dirty resident frame back to the store. It returns
// the first error encountered but keeps flushing the rest so one bad page
// does not block flushing the others.
func (p *Pool) FlushAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for id, f := range p.residency.frames {
		if !f.IsDirty() {
			continue
		}
		if _, err := f.FlushToStore(p.store, p.byteOffset(id)); err != nil {
			p.logger.Error("flush_all: page flush failed", zap.Uint64("page_id", uint64(id)), zap.Error(err))
			p.hooks.ioError("flush", id, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Close flushes all dirty frames and closes the backing store. Intended for
// use on shutdown, after the server has stopped accepting new requests.
func (p *Pool) Close() error {
	if err := p.FlushAll(); err != nil {
		p.logger.Error("close: flush_all reported errors", zap.Error(err))
	}
	return p.store.Close()
}

// StartBackgroundFlusher launches a goroutine that periodically sweeps
// resident dirty frames and flushes them, rate-limited in bytes/sec by
// limiter (nil disables limiting). It is a purely operational addition on
// top of flush-on-evict and flush-on-shutdown: it changes no invariant and
// writes through the same FlushToStore path. The returned stop function
// terminates the goroutine; it is safe to call multiple times.
func (p *Pool) StartBackgroundFlusher(ctx context.Context, interval time.Duration, limiter *rate.Limiter) (stop func()) {
	done := make(chan struct{})
	var once sync.Once

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				p.sweepDirty(ctx, limiter)
			}
		}
	}()

	return func() { once.Do(func() { close(done) }) }
}

func (p *Pool) sweepDirty(ctx context.Context, limiter *rate.Limiter) {
	p.mu.Lock()
	ids := make([]PageID, 0, p.residency.size())
	for id, f := range p.residency.frames {
		if f.IsDirty() {
			ids = append(ids, id)
		}
	}
	p.mu.Unlock()

	for _, id := range ids {
		if limiter != nil {
			if err := limiter.WaitN(ctx, p.pageSize); err != nil {
				return
			}
		}

		p.mu.Lock()
		f, ok := p.residency.get(id)
		p.mu.Unlock()
		if !ok {
			continue
		}

		if _, err := f.FlushToStore(p.store, p.byteOffset(id)); err != nil {
			p.logger.Warn("background flush failed", zap.Uint64("page_id", uint64(id)), zap.Error(err))
			p.hooks.ioError("background_flush", id, err)
		}
	}
}

// ResidentCount reports the number of frames currently resident, for the
// pagecache_resident_frames gauge.
func (p *Pool) ResidentCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.residency.size()
}
