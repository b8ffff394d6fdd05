package server

import "github.com/gojodb/pagecache/core/bufferpool"

// CachedStore adapts a *bufferpool.Pool (single size class, LRU-cached) to
// the PageStore interface. workerIdx is accepted for interface symmetry
// with UncachedStore but ignored: the LRU pool shares one descriptor across
// all connections.
type CachedStore struct {
	Pool *bufferpool.Pool
}

func (c CachedStore) ReadPage(no uint32, pageSize int, dst []byte, workerIdx int) error {
	return c.Pool.ReadPage(bufferpool.PageID(no), dst)
}

func (c CachedStore) WritePage(no uint32, pageSize int, src []byte, workerIdx int) error {
	return c.Pool.WritePage(bufferpool.PageID(no), src)
}

// UncachedStore adapts a *bufferpool.UncachedPool to the PageStore
// interface.
type UncachedStore struct {
	Pool *bufferpool.UncachedPool
}

func (u UncachedStore) ReadPage(no uint32, pageSize int, dst []byte, workerIdx int) error {
	return u.Pool.ReadPage(bufferpool.PageID(no), pageSize, dst, workerIdx)
}

func (u UncachedStore) WritePage(no uint32, pageSize int, src []byte, workerIdx int) error {
	return u.Pool.WritePage(bufferpool.PageID(no), pageSize, src, workerIdx)
}
