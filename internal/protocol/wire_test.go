package protocol

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(byte(MsgSet))
	var rest [8]byte
	rest[0], rest[1], rest[2], rest[3] = 7, 0, 0, 0 // page_no = 7, little-endian
	rest[4], rest[5], rest[6], rest[7] = 0, 0x20, 0, 0
	buf.Write(rest[:])

	h, err := ReadHeader(&buf)
	require.NoError(t, err)
	require.Equal(t, MsgSet, h.MsgType)
	require.EqualValues(t, 7, h.PageNo)
	require.EqualValues(t, 0x2000, h.PageSize)
}

func TestReadHeaderEOFOnEmptyStream(t *testing.T) {
	_, err := ReadHeader(bytes.NewReader(nil))
	require.ErrorIs(t, err, io.EOF)
}

func TestReadHeaderShortReadIsUnexpectedEOF(t *testing.T) {
	_, err := ReadHeader(bytes.NewReader([]byte{1, 2, 3}))
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestMsgTypeString(t *testing.T) {
	require.Equal(t, "GET", MsgGet.String())
	require.Equal(t, "SET", MsgSet.String())
	require.Contains(t, MsgType(9).String(), "UNKNOWN")
}
