// Package pageclient is a small client for the page-cache wire protocol,
// used by integration tests and by anything that wants to talk to a running
// pagecached without re-implementing header framing.
package pageclient

import (
	"fmt"
	"io"
	"net"

	"github.com/gojodb/pagecache/internal/protocol"
)

// Client wraps a single connection to a pagecached socket.
type Client struct {
	conn net.Conn
}

// Dial opens a new connection to the Unix-domain socket at path.
func Dial(path string) (*Client, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", path, err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

// Get issues a GET for page no of pageSize bytes and returns the page
// contents.
func (c *Client) Get(no uint32, pageSize uint32) ([]byte, error) {
	if err := c.writeHeader(protocol.MsgGet, no, pageSize); err != nil {
		return nil, err
	}

	var sizeBuf [4]byte
	if _, err := io.ReadFull(c.conn, sizeBuf[:]); err != nil {
		return nil, fmt.Errorf("read size prefix: %w", err)
	}

	buf := make([]byte, pageSize)
	if _, err := io.ReadFull(c.conn, buf); err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return buf, nil
}

// Set issues a SET for page no with data, which must be exactly pageSize
// bytes, and waits for the size-prefix response.
func (c *Client) Set(no uint32, pageSize uint32, data []byte) error {
	if err := c.writeHeader(protocol.MsgSet, no, pageSize); err != nil {
		return err
	}
	if _, err := c.conn.Write(data); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}

	var sizeBuf [4]byte
	if _, err := io.ReadFull(c.conn, sizeBuf[:]); err != nil {
		return fmt.Errorf("read size prefix: %w", err)
	}
	return nil
}

func (c *Client) writeHeader(msgType protocol.MsgType, no, pageSize uint32) error {
	var buf [protocol.HeaderSize]byte
	buf[0] = byte(msgType)
	buf[1] = byte(no)
	buf[2] = byte(no >> 8)
	buf[3] = byte(no >> 16)
	buf[4] = byte(no >> 24)
	buf[5] = byte(pageSize)
	buf[6] = byte(pageSize >> 8)
	buf[7] = byte(pageSize >> 16)
	buf[8] = byte(pageSize >> 24)
	if _, err := c.conn.Write(buf[:]); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}
