package bufferpool

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrameReadWriteRoundTrip(t *testing.T) {
	f := NewFrame(PageID(1), 16)
	require.False(t, f.IsLoaded())

	n := f.WriteAt(0, []byte("hello world12345"))
	require.Equal(t, 16, n)
	require.True(t, f.IsDirty())
	require.True(t, f.IsLoaded())

	dst := make([]byte, 16)
	got := f.ReadAt(0, dst)
	require.Equal(t, 16, got)
	require.Equal(t, "hello world12345", string(dst))
}

func TestFrameReadAtOutOfBoundsIsNoop(t *testing.T) {
	f := NewFrame(PageID(1), 8)
	dst := make([]byte, 8)
	require.Equal(t, 0, f.ReadAt(8, dst))
	require.Equal(t, 0, f.ReadAt(100, dst))
}

func TestFrameUnpinClampsAtZero(t *testing.T) {
	f := NewFrame(PageID(1), 8)
	require.EqualValues(t, 0, f.Unpin())
	require.EqualValues(t, 0, f.PinCount())

	f.Pin()
	f.Pin()
	require.EqualValues(t, 2, f.PinCount())
	require.EqualValues(t, 1, f.Unpin())
	require.EqualValues(t, 0, f.Unpin())
	require.EqualValues(t, 0, f.Unpin())
}

func TestFrameLoadFromStoreZeroFillsOnEOF(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenFileStore(filepath.Join(dir, "data.bin"))
	require.NoError(t, err)
	defer store.Close()

	// Nothing has ever been written, so loading page 0 of an 8-byte page
	// reads straight into EOF and must zero-fill rather than error.
	f := NewFrame(PageID(0), 8)
	require.NoError(t, f.LoadFromStore(store, 0))
	require.True(t, f.IsLoaded())
	require.False(t, f.IsDirty())

	dst := make([]byte, 8)
	f.ReadAt(0, dst)
	require.Equal(t, make([]byte, 8), dst)
}

func TestFrameFlushToStoreSkipsWhenClean(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenFileStore(filepath.Join(dir, "data.bin"))
	require.NoError(t, err)
	defer store.Close()

	f := NewFrame(PageID(0), 8)
	require.NoError(t, f.LoadFromStore(store, 0))

	flushed, err := f.FlushToStore(store, 0)
	require.NoError(t, err)
	require.False(t, flushed)
}

func TestFrameFlushToStorePersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	store, err := OpenFileStore(path)
	require.NoError(t, err)

	f := NewFrame(PageID(2), 8)
	f.WriteAt(0, []byte("deadbeef"))
	flushed, err := f.FlushToStore(store, 16)
	require.NoError(t, err)
	require.True(t, flushed)
	require.False(t, f.IsDirty())
	require.NoError(t, store.Close())

	store2, err := OpenFileStore(path)
	require.NoError(t, err)
	defer store2.Close()

	readBack := NewFrame(PageID(2), 8)
	require.NoError(t, readBack.LoadFromStore(store2, 16))
	dst := make([]byte, 8)
	readBack.ReadAt(0, dst)
	require.Equal(t, "deadbeef", string(dst))
}
