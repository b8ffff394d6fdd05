package bufferpool

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUncachedPoolPageStartOffset(t *testing.T) {
	cfg := Config{{Size: 8 * 1024, Count: 4}, {Size: 16 * 1024, Count: 2}}
	up, err := NewUncachedPool(cfg, filepath.Join(t.TempDir(), "data.bin"))
	require.NoError(t, err)
	defer up.Close()

	off, err := up.pageStartOffset(0)
	require.NoError(t, err)
	require.EqualValues(t, 0, off)

	off, err = up.pageStartOffset(3)
	require.NoError(t, err)
	require.EqualValues(t, 3*8*1024, off)

	// First page of the 16k class starts right after the 8k class's span.
	off, err = up.pageStartOffset(4)
	require.NoError(t, err)
	require.EqualValues(t, 4*8*1024, off)

	off, err = up.pageStartOffset(5)
	require.NoError(t, err)
	require.EqualValues(t, 4*8*1024+16*1024, off)

	_, err = up.pageStartOffset(6)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestUncachedPoolWriteReadRoundTrip(t *testing.T) {
	cfg := Config{{Size: 8, Count: 2}}
	up, err := NewUncachedPool(cfg, filepath.Join(t.TempDir(), "data.bin"))
	require.NoError(t, err)
	defer up.Close()

	require.NoError(t, up.WritePage(PageID(1), 8, []byte("deadbeef"), 5))

	dst := make([]byte, 8)
	require.NoError(t, up.ReadPage(PageID(1), 8, dst, 17))
	require.Equal(t, "deadbeef", string(dst))
}

func TestUncachedPoolReadOutOfRangeIsNoop(t *testing.T) {
	cfg := Config{{Size: 8, Count: 1}}
	up, err := NewUncachedPool(cfg, filepath.Join(t.TempDir(), "data.bin"))
	require.NoError(t, err)
	defer up.Close()

	dst := []byte("untouched")
	err = up.ReadPage(PageID(99), 8, dst[:8], 0)
	require.ErrorIs(t, err, ErrOutOfRange)
	require.Equal(t, "untouche", string(dst[:8]))
}
