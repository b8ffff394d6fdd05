package server

import (
	"encoding/binary"
	"io"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gojodb/pagecache/core/bufferpool"
	"github.com/gojodb/pagecache/internal/protocol"
	"github.com/gojodb/pagecache/pkg/pageclient"
)

func startTestServer(t *testing.T, capacity int) (socketPath string, pool *bufferpool.Pool) {
	t.Helper()
	dir := t.TempDir()
	socketPath = filepath.Join(dir, "pagecache.sock")

	cfg := bufferpool.Config{{Size: 8, Count: capacity}}
	pool, err := bufferpool.NewPool(cfg, filepath.Join(dir, "data.bin"), zap.NewNop(), nil)
	require.NoError(t, err)

	srv := New(socketPath, CachedStore{Pool: pool}, zap.NewNop())
	go func() { _ = srv.Serve() }()
	t.Cleanup(func() {
		srv.Shutdown()
		_ = pool.Close()
	})

	require.Eventually(t, func() bool {
		c, err := pageclient.Dial(socketPath)
		if err != nil {
			return false
		}
		c.Close()
		return true
	}, 2*time.Second, 10*time.Millisecond)

	return socketPath, pool
}

func TestServerSetThenGetRoundTrip(t *testing.T) {
	socketPath, _ := startTestServer(t, 4)

	c, err := pageclient.Dial(socketPath)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Set(0, 8, []byte("12345678")))
	got, err := c.Get(0, 8)
	require.NoError(t, err)
	require.Equal(t, "12345678", string(got))
}

func TestServerUnknownMessageTypeIsLoggedNotFatal(t *testing.T) {
	socketPath, _ := startTestServer(t, 4)

	conn, err := net.Dial("unix", socketPath)
	require.NoError(t, err)
	defer conn.Close()

	writeHeader := func(msgType byte, no, size uint32) {
		var h [protocol.HeaderSize]byte
		h[0] = msgType
		binary.LittleEndian.PutUint32(h[1:5], no)
		binary.LittleEndian.PutUint32(h[5:9], size)
		_, err := conn.Write(h[:])
		require.NoError(t, err)
	}

	// An unknown message type gets no response; the same connection must
	// still serve the SET and GET that follow it.
	writeHeader(9, 1, 8)

	writeHeader(byte(protocol.MsgSet), 1, 8)
	_, err = conn.Write([]byte("abcdefgh"))
	require.NoError(t, err)
	resp := make([]byte, 4)
	_, err = io.ReadFull(conn, resp)
	require.NoError(t, err)
	require.EqualValues(t, 8, binary.LittleEndian.Uint32(resp))

	writeHeader(byte(protocol.MsgGet), 1, 8)
	resp = make([]byte, 12)
	_, err = io.ReadFull(conn, resp)
	require.NoError(t, err)
	require.EqualValues(t, 8, binary.LittleEndian.Uint32(resp[:4]))
	require.Equal(t, "abcdefgh", string(resp[4:]))
}

func TestServerConcurrentClientsDistinctPages(t *testing.T) {
	socketPath, _ := startTestServer(t, 8)

	pool := pageclient.NewPool(socketPath, 8)
	defer pool.Close()

	var wg sync.WaitGroup
	for i := uint32(0); i < 8; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := pool.Get()
			require.NoError(t, err)
			defer c.Close()

			payload := []byte{byte('A' + i), byte('A' + i), byte('A' + i), byte('A' + i), byte('A' + i), byte('A' + i), byte('A' + i), byte('A' + i)}
			require.NoError(t, c.Set(i, 8, payload))
			got, err := c.Get(i, 8)
			require.NoError(t, err)
			require.Equal(t, payload, got)
		}()
	}
	wg.Wait()
}
