package codec

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriterReader_AllMethods_BufferRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	require.NoError(t, w.WriteBool(false))
	require.NoError(t, w.WriteByte(1))
	require.NoError(t, w.WriteBytes([]byte{2, 3}))
	require.NoError(t, w.WriteBytes([]byte{4, 5}))
	require.NoError(t, w.WriteShort(6))
	require.NoError(t, w.WriteUnsignedShort(7))
	require.NoError(t, w.WriteInt(8))
	require.NoError(t, w.WriteUnsignedInt(9))
	require.NoError(t, w.WriteLong(10))
	require.NoError(t, w.WriteUnsignedLong(11))
	require.NoError(t, w.WriteUTF8("zero X zero C"))
	require.NoError(t, w.WriteBytes(nil))

	r := NewBufferReader(buf.Bytes())

	b, err := r.ReadBool()
	require.NoError(t, err)
	require.False(t, b)

	i8, err := r.ReadByte()
	require.NoError(t, err)
	require.Equal(t, int8(1), i8)

	pair, err := r.ReadBytes(2)
	require.NoError(t, err)
	require.Equal(t, []byte{2, 3}, pair)

	pair2, err := r.ReadBytesImmutable(2)
	require.NoError(t, err)
	require.Equal(t, []byte{4, 5}, pair2)

	i16, err := r.ReadShort()
	require.NoError(t, err)
	require.Equal(t, int16(6), i16)

	u16, err := r.ReadUnsignedShort()
	require.NoError(t, err)
	require.Equal(t, uint16(7), u16)

	i32, err := r.ReadInt()
	require.NoError(t, err)
	require.Equal(t, int32(8), i32)

	u32, err := r.ReadUnsignedInt()
	require.NoError(t, err)
	require.Equal(t, uint32(9), u32)

	i64, err := r.ReadLong()
	require.NoError(t, err)
	require.Equal(t, int64(10), i64)

	u64, err := r.ReadUnsignedLong()
	require.NoError(t, err)
	require.Equal(t, uint64(11), u64)

	s, err := r.ReadUTF8()
	require.NoError(t, err)
	require.Equal(t, "zero X zero C", s)

	require.True(t, r.IsEOF())
}

func TestStreamReader_MatchesBufferReader(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteLong(-42))
	require.NoError(t, w.WriteUnsignedInt(1234))
	require.NoError(t, w.WriteUTF8("stream"))

	sr := NewStreamReader(bytes.NewReader(buf.Bytes()))

	v, err := sr.ReadLong()
	require.NoError(t, err)
	require.Equal(t, int64(-42), v)

	u, err := sr.ReadUnsignedInt()
	require.NoError(t, err)
	require.Equal(t, uint32(1234), u)

	s, err := sr.ReadUTF8()
	require.NoError(t, err)
	require.Equal(t, "stream", s)

	require.True(t, sr.IsEOF())
}

func TestReadUnderflow_IsFatalDecodeError(t *testing.T) {
	r := NewBufferReader([]byte{0x00, 0x01})
	_, err := r.ReadLong()
	require.Error(t, err)

	var codecErr *Error
	require.ErrorAs(t, err, &codecErr)
	require.Equal(t, KindUnderflow, codecErr.Kind)
}

func TestWriteUTF8_LengthOverflow(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	huge := strings.Repeat("x", maxUTF8Len+1)

	err := w.WriteUTF8(huge)
	require.Error(t, err)

	var codecErr *Error
	require.ErrorAs(t, err, &codecErr)
	require.Equal(t, KindLengthOverflow, codecErr.Kind)
}

func TestReadUTF8_BadUTF8(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteUnsignedShort(3))
	require.NoError(t, w.WriteBytes([]byte{0xff, 0xfe, 0xfd}))

	r := NewBufferReader(buf.Bytes())
	_, err := r.ReadUTF8()
	require.Error(t, err)

	var codecErr *Error
	require.ErrorAs(t, err, &codecErr)
	require.Equal(t, KindBadUTF8, codecErr.Kind)
}

func TestBufferReader_ImmutableViewStability(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	r := NewBufferReader(data)
	view, err := r.ReadBytesImmutable(2)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2}, view)

	// the view aliases the original backing array until the next read
	data[0] = 99
	require.Equal(t, byte(99), view[0])
}

func TestWriter_Close_ClosesUnderlyingSink(t *testing.T) {
	pr, pw := io.Pipe()
	defer pr.Close()
	w := NewWriter(pw)

	go func() {
		_, _ = io.Copy(io.Discard, pr)
	}()

	require.NoError(t, w.Close())
	_, err := pw.Write([]byte{1})
	require.Error(t, err)
}
