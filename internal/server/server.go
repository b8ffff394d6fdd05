// Package server implements the local-socket accept loop and per-connection
// worker that speaks the protocol package's wire format against a page
// store.
package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gojodb/pagecache/internal/protocol"
)

// stagingBufferSize is the per-connection scratch buffer size: large enough
// to hold the largest supported page (2 MiB) without reallocating per
// request.
const stagingBufferSize = 2 * 1024 * 1024

// PageStore is the minimal surface Server needs from a page store.
// *bufferpool.Pool is adapted to it by CachedStore (which ignores the
// worker index) and *bufferpool.UncachedPool by UncachedStore.
type PageStore interface {
	ReadPage(no uint32, pageSize int, dst []byte, workerIdx int) error
	WritePage(no uint32, pageSize int, src []byte, workerIdx int) error
}

// Server accepts connections on a Unix-domain socket and serves GET/SET
// requests against store.
type Server struct {
	socketPath string
	store      PageStore
	logger     *zap.Logger

	listener net.Listener
	shutdown atomic.Bool

	wg        sync.WaitGroup
	nextIndex atomic.Int64
}

// New constructs a Server. The socket is not created until Serve is called.
func New(socketPath string, store PageStore, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{socketPath: socketPath, store: store, logger: logger}
}

// Serve unlinks any stale socket file, binds a fresh Unix-domain listener,
// and accepts connections until Shutdown is called or any accept error
// occurs. It blocks until the accept loop exits.
func (s *Server) Serve() error {
	_ = os.Remove(s.socketPath)

	l, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.socketPath, err)
	}
	s.listener = l
	s.logger.Info("listening", zap.String("socket", s.socketPath))

	for {
		conn, err := l.Accept()
		if err != nil {
			if s.shutdown.Load() {
				break
			}
			s.logger.Error("accept failed", zap.Error(err))
			break
		}

		workerIdx := int(s.nextIndex.Add(1) - 1)
		connID := uuid.New().String()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn, connID, workerIdx)
		}()
	}

	s.wg.Wait()
	return nil
}

// Shutdown stops the accept loop and waits for every connection handler to
// return. A handler finishes the request it is serving and then stops; one
// that is idle waiting for its next header returns once its client sends
// another header or closes the connection.
func (s *Server) Shutdown() {
	s.shutdown.Store(true)
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	_ = os.Remove(s.socketPath)
}

func (s *Server) handleConnection(conn net.Conn, connID string, workerIdx int) {
	defer conn.Close()
	log := s.logger.With(zap.String("conn_id", connID))
	log.Debug("connection accepted")

	buf := make([]byte, stagingBufferSize)
	for {
		header, err := protocol.ReadHeader(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Debug("connection closed", zap.Error(err))
			}
			return
		}
		if s.shutdown.Load() {
			return
		}

		if int(header.PageSize) > len(buf) {
			log.Warn("page size exceeds staging buffer, dropping connection",
				zap.Uint32("page_size", header.PageSize))
			return
		}
		payload := buf[:header.PageSize]

		switch header.MsgType {
		case protocol.MsgSet:
			if _, err := io.ReadFull(conn, payload); err != nil {
				log.Debug("short payload read, closing connection", zap.Error(err))
				return
			}
			if err := s.store.WritePage(header.PageNo, int(header.PageSize), payload, workerIdx); err != nil {
				log.Warn("write_page failed", zap.Uint32("page_no", header.PageNo), zap.Error(err))
			}
			if err := protocol.WriteSizePrefix(conn, header.PageSize); err != nil {
				log.Debug("response write failed, closing connection", zap.Error(err))
				return
			}

		case protocol.MsgGet:
			if err := s.store.ReadPage(header.PageNo, int(header.PageSize), payload, workerIdx); err != nil {
				log.Warn("read_page failed", zap.Uint32("page_no", header.PageNo), zap.Error(err))
			}
			if err := protocol.WriteSizePrefix(conn, header.PageSize); err != nil {
				log.Debug("response write failed, closing connection", zap.Error(err))
				return
			}
			if _, err := conn.Write(payload); err != nil {
				log.Debug("response write failed, closing connection", zap.Error(err))
				return
			}

		default:
			log.Warn("unknown message type, continuing", zap.Uint8("msg_type", uint8(header.MsgType)))
		}
	}
}
