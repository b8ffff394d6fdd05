package bufferpool

import (
	"fmt"
	"os"
)

// uncachedFDCount is the fixed descriptor-array size carried over from the
// original SimpleBufferPool: a page request's worker index is reduced
// modulo this count to pick which descriptor serves it, giving uncached
// reads/writes some parallelism without one descriptor per connection.
const uncachedFDCount = 32

// UncachedPool is the multi-size, no-caching counterpart to Pool: every call
// goes straight to the backing file at the page's computed offset, through
// one of a fixed array of descriptors opened once at construction. It never
// holds a page resident and has no pin/eviction machinery.
type UncachedPool struct {
	cfg   Config
	files [uncachedFDCount]*os.File
	path  string
}

// NewUncachedPool opens uncachedFDCount independent descriptors on path, all
// pointing at the same file, for positional access under cfg's ordered size
// classes.
func NewUncachedPool(cfg Config, path string) (*UncachedPool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	up := &UncachedPool{cfg: cfg, path: path}
	for i := range up.files {
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
		if err != nil {
			up.closeOpened(i)
			return nil, fmt.Errorf("%w: %v", ErrOpen, err)
		}
		up.files[i] = f
	}
	return up, nil
}

func (up *UncachedPool) closeOpened(n int) {
	for i := 0; i < n; i++ {
		up.files[i].Close()
	}
}

// pageStartOffset walks cfg in order, treating page numbers as partitioned
// by size class exactly as the original page_no_info scan does: the first
// Count page numbers belong to the first Size class, the next Count to the
// second, and so on. It returns ErrOutOfRange once no, the requested page
// number, is equal to or greater than the total page count across every
// class.
func (up *UncachedPool) pageStartOffset(no PageID) (int64, error) {
	var boundary int64
	remaining := uint64(no)
	for _, sc := range up.cfg {
		count := uint64(sc.Count)
		if remaining >= count {
			boundary += int64(sc.Size) * int64(sc.Count)
			remaining -= count
			continue
		}
		return boundary + int64(remaining)*int64(sc.Size), nil
	}
	return 0, ErrOutOfRange
}

// ReadPage reads pageSize bytes for page no into dst, through the
// descriptor selected by workerIdx modulo the fixed descriptor count. An
// out-of-range page number is a no-op: dst is left untouched and
// ErrOutOfRange is returned so the caller can still send a well-formed
// protocol response of the nominal size.
func (up *UncachedPool) ReadPage(no PageID, pageSize int, dst []byte, workerIdx int) error {
	offset, err := up.pageStartOffset(no)
	if err != nil {
		return err
	}
	f := up.files[workerIdx%uncachedFDCount]

	total := 0
	for total < pageSize {
		n, err := f.ReadAt(dst[total:pageSize], offset+int64(total))
		if n == 0 && err != nil {
			if isTransient(err) {
				continue
			}
			if total > 0 {
				break
			}
			return fmt.Errorf("%w: %v", ErrIOPermanent, err)
		}
		total += n
		if n == 0 {
			for i := total; i < pageSize; i++ {
				dst[i] = 0
			}
			break
		}
	}
	return nil
}

// WritePage writes pageSize bytes from src to page no, through the
// descriptor selected by workerIdx modulo the fixed descriptor count.
func (up *UncachedPool) WritePage(no PageID, pageSize int, src []byte, workerIdx int) error {
	offset, err := up.pageStartOffset(no)
	if err != nil {
		return err
	}
	f := up.files[workerIdx%uncachedFDCount]

	total := 0
	for total < pageSize {
		n, err := f.WriteAt(src[total:pageSize], offset+int64(total))
		if err != nil {
			if isTransient(err) {
				continue
			}
			return fmt.Errorf("%w: %v", ErrIOPermanent, err)
		}
		total += n
		if n == 0 {
			return fmt.Errorf("%w: short write", ErrIOPermanent)
		}
	}
	return nil
}

// Close closes every descriptor, returning the first error encountered.
func (up *UncachedPool) Close() error {
	var firstErr error
	for _, f := range up.files {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
