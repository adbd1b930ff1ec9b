package codec

import (
	"encoding/binary"
	"io"
	"math"
)

// maxUTF8Len is the largest UTF-8 byte length representable by the 2-byte
// length prefix used by WriteUTF8.
const maxUTF8Len = math.MaxUint16

// Writer serializes primitive values in big-endian order onto an
// underlying byte sink. It has no buffering or flow control of its own;
// callers that need bounded memory compose it with creditstream or
// cipher.EncryptingSink.
type Writer struct {
	w io.Writer
	// scratch avoids an allocation per fixed-width write.
	scratch [8]byte
}

// NewWriter wraps an io.Writer with the big-endian primitive write surface.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) write(op string, n int) error {
	if _, err := w.w.Write(w.scratch[:n]); err != nil {
		return newErr(op, KindUnderflow, err)
	}
	return nil
}

// WriteBool writes a single byte: 0x01 for true, 0x00 for false.
func (w *Writer) WriteBool(b bool) error {
	if b {
		w.scratch[0] = 0x01
	} else {
		w.scratch[0] = 0x00
	}
	return w.write("write_bool", 1)
}

// WriteByte writes a signed 8-bit integer.
func (w *Writer) WriteByte(v int8) error {
	w.scratch[0] = byte(v)
	return w.write("write_byte", 1)
}

// WriteUnsignedByte writes an unsigned 8-bit integer.
func (w *Writer) WriteUnsignedByte(v uint8) error {
	w.scratch[0] = v
	return w.write("write_unsigned_byte", 1)
}

// WriteShort writes a signed 16-bit integer, big-endian.
func (w *Writer) WriteShort(v int16) error {
	binary.BigEndian.PutUint16(w.scratch[:2], uint16(v))
	return w.write("write_short", 2)
}

// WriteUnsignedShort writes an unsigned 16-bit integer, big-endian.
func (w *Writer) WriteUnsignedShort(v uint16) error {
	binary.BigEndian.PutUint16(w.scratch[:2], v)
	return w.write("write_unsigned_short", 2)
}

// WriteInt writes a signed 32-bit integer, big-endian.
func (w *Writer) WriteInt(v int32) error {
	binary.BigEndian.PutUint32(w.scratch[:4], uint32(v))
	return w.write("write_int", 4)
}

// WriteUnsignedInt writes an unsigned 32-bit integer, big-endian.
func (w *Writer) WriteUnsignedInt(v uint32) error {
	binary.BigEndian.PutUint32(w.scratch[:4], v)
	return w.write("write_unsigned_int", 4)
}

// WriteLong writes a signed 64-bit integer, big-endian.
func (w *Writer) WriteLong(v int64) error {
	binary.BigEndian.PutUint64(w.scratch[:8], uint64(v))
	return w.write("write_long", 8)
}

// WriteUnsignedLong writes an unsigned 64-bit integer, big-endian.
func (w *Writer) WriteUnsignedLong(v uint64) error {
	binary.BigEndian.PutUint64(w.scratch[:8], v)
	return w.write("write_unsigned_long", 8)
}

// WriteBytes writes the raw bytes with no framing.
func (w *Writer) WriteBytes(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if _, err := w.w.Write(p); err != nil {
		return newErr("write_bytes", KindUnderflow, err)
	}
	return nil
}

// WriteUTF8 writes a 2-byte unsigned length prefix (the UTF-8 encoded byte
// length) followed by the encoded bytes. It fails with KindLengthOverflow
// if the encoded length exceeds 65535.
func (w *Writer) WriteUTF8(s string) error {
	b := []byte(s)
	if len(b) > maxUTF8Len {
		return newErr("write_utf8", KindLengthOverflow, nil)
	}
	if err := w.WriteUnsignedShort(uint16(len(b))); err != nil {
		return err
	}
	return w.WriteBytes(b)
}

// Close closes the underlying sink if it implements io.Closer.
func (w *Writer) Close() error {
	if c, ok := w.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
