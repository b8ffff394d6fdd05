package bufferpool

import "fmt"

// SizeClass is one entry of the ordered page-size-to-count configuration:
// `count` consecutive page numbers of `size` bytes each.
type SizeClass struct {
	Size  int
	Count int
}

// Config is the ordered size->count mapping from which page numbers are
// partitioned, in configuration order, exactly as original_source's
// page_no_info map iterates in ascending key order. The first entry is the
// only one the LRU Pool ever reads; the full ordered list is the contract
// for UncachedPool's page_start_offset scan.
type Config []SizeClass

// Validate rejects an empty configuration or any non-positive size/count.
func (c Config) Validate() error {
	if len(c) == 0 {
		return fmt.Errorf("%w: no page-size classes configured", ErrConfig)
	}
	for _, sc := range c {
		if sc.Size <= 0 || sc.Count <= 0 {
			return fmt.Errorf("%w: size class %+v has non-positive size or count", ErrConfig, sc)
		}
	}
	return nil
}

// TotalBytes is the sum of size*count across all classes, the figure a
// caller compares against the resource policy's overall memory cap before
// constructing a Pool or UncachedPool.
func (c Config) TotalBytes() int64 {
	var total int64
	for _, sc := range c {
		total += int64(sc.Size) * int64(sc.Count)
	}
	return total
}

// First returns the single size class the LRU Pool is built from.
func (c Config) First() (SizeClass, error) {
	if err := c.Validate(); err != nil {
		return SizeClass{}, err
	}
	return c[0], nil
}
