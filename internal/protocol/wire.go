// Package protocol implements the fixed binary header this cache speaks
// over its local socket: one byte of message type, a four-byte page number,
// and a four-byte page size, all little-endian, with no alignment padding.
package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MsgType distinguishes a GET request from a SET request. Any other value
// read off the wire is invalid and the connection handler logs it and keeps
// reading headers rather than tearing the connection down.
type MsgType uint8

const (
	MsgGet MsgType = 0
	MsgSet MsgType = 1
)

func (m MsgType) String() string {
	switch m {
	case MsgGet:
		return "GET"
	case MsgSet:
		return "SET"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(m))
	}
}

// HeaderSize is the wire size of Header: 1 + 4 + 4 bytes, packed.
const HeaderSize = 9

// Header is the fixed preamble of every request. SET requests are followed
// by PageSize bytes of payload; GET requests have no request payload.
type Header struct {
	MsgType  MsgType
	PageNo   uint32
	PageSize uint32
}

// ReadHeader reads exactly HeaderSize bytes from r and decodes them. It
// returns io.EOF only when zero bytes were read before the connection
// closed; any other short read is reported as io.ErrUnexpectedEOF, which
// the caller treats as a reason to terminate the connection.
func ReadHeader(r io.Reader) (Header, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Header{}, err
	}
	return Header{
		MsgType:  MsgType(buf[0]),
		PageNo:   binary.LittleEndian.Uint32(buf[1:5]),
		PageSize: binary.LittleEndian.Uint32(buf[5:9]),
	}, nil
}

// WriteSizePrefix writes a four-byte little-endian page size, the response
// framing both GET (before the payload) and SET (as the sole response body)
// use.
func WriteSizePrefix(w io.Writer, size uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], size)
	_, err := w.Write(buf[:])
	return err
}
