package packet

import (
	"bytes"
	"fmt"
	"math"
)

// Writer provides methods for writing payload data.
// Uses Little-Endian byte order for all multi-byte values.
type Writer struct {
	buf *bytes.Buffer
}

// NewWriter creates a new payload writer with the given initial capacity.
func NewWriter(capacity int) *Writer {
	return &Writer{
		buf: bytes.NewBuffer(make([]byte, 0, capacity)),
	}
}

// WriteByte writes a single byte.
func (w *Writer) WriteByte(b byte) error {
	return w.buf.WriteByte(b)
}

// WriteUint16 writes a uint16 (2 bytes, LE).
func (w *Writer) WriteUint16(val uint16) {
	w.buf.WriteByte(byte(val))
	w.buf.WriteByte(byte(val >> 8))
}

// WriteUint32 writes a uint32 (4 bytes, LE).
func (w *Writer) WriteUint32(val uint32) {
	w.buf.WriteByte(byte(val))
	w.buf.WriteByte(byte(val >> 8))
	w.buf.WriteByte(byte(val >> 16))
	w.buf.WriteByte(byte(val >> 24))
}

// WriteBytes writes raw bytes.
func (w *Writer) WriteBytes(data []byte) {
	_, _ = w.buf.Write(data)
}

// WriteString16 writes an ASCII string prefixed with its uint16 length.
func (w *Writer) WriteString16(s string) error {
	if len(s) > math.MaxUint16 {
		return fmt.Errorf("WriteString16: string of %d bytes exceeds uint16 length", len(s))
	}
	w.WriteUint16(uint16(len(s)))
	w.buf.WriteString(s)
	return nil
}

// WriteString32 writes an ASCII string prefixed with its uint32 length.
func (w *Writer) WriteString32(s string) {
	w.WriteUint32(uint32(len(s)))
	w.buf.WriteString(s)
}

// Bytes returns the accumulated payload.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Len returns the current length of the payload.
func (w *Writer) Len() int {
	return w.buf.Len()
}

// Reset clears the buffer for reuse.
func (w *Writer) Reset() {
	w.buf.Reset()
}
