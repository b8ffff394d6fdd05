package bufferpool

import "errors"

// Error taxonomy. Sentinel values are wrapped with fmt.Errorf("%w: ...")
// at the point of failure so callers can still errors.Is against them.
var (
	// ErrConfig marks an empty or malformed page-size configuration. Fatal
	// at construction.
	ErrConfig = errors.New("bufferpool: invalid configuration")

	// ErrOpen marks a backing file that could not be opened. Fatal at
	// construction.
	ErrOpen = errors.New("bufferpool: cannot open backing file")

	// ErrOutOfRange marks a page number that maps to no valid byte offset
	// under a multi-size configuration. The operation is a no-op.
	ErrOutOfRange = errors.New("bufferpool: page number out of range")

	// ErrIOPermanent marks a positional read or write that failed with a
	// non-transient error. Loads fail the miss path; flushes abort the
	// eviction with the dirty frame still resident.
	ErrIOPermanent = errors.New("bufferpool: permanent i/o failure")

	// ErrAllPinned marks an eviction attempt that found no unpinned
	// victim. The requesting operation fails the same way ErrIOPermanent
	// does.
	ErrAllPinned = errors.New("bufferpool: all resident frames are pinned")
)
