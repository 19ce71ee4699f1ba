package packet

import (
	"encoding/binary"
	"fmt"
)

// Reader предоставляет методы для чтения payload пакета.
// Использует Little-Endian byte order для всех многобайтовых значений.
type Reader struct {
	data []byte
	pos  int
}

// NewReader создаёт новый Reader для чтения payload.
func NewReader(data []byte) *Reader {
	return &Reader{
		data: data,
		pos:  0,
	}
}

// ReadByte читает 1 байт.
func (r *Reader) ReadByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, fmt.Errorf("ReadByte: not enough data (pos=%d, len=%d)", r.pos, len(r.data))
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// ReadUint16 читает uint16 (2 байта, LE).
func (r *Reader) ReadUint16() (uint16, error) {
	if r.pos+2 > len(r.data) {
		return 0, fmt.Errorf("ReadUint16: not enough data (pos=%d, len=%d)", r.pos, len(r.data))
	}
	val := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return val, nil
}

// ReadUint32 читает uint32 (4 байта, LE).
func (r *Reader) ReadUint32() (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, fmt.Errorf("ReadUint32: not enough data (pos=%d, len=%d)", r.pos, len(r.data))
	}
	val := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return val, nil
}

// ReadBytes читает n байт (копия).
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("ReadBytes: negative count %d", n)
	}
	if r.pos+n > len(r.data) {
		return nil, fmt.Errorf("ReadBytes: not enough data (pos=%d, need=%d, len=%d)", r.pos, n, len(r.data))
	}

	bytes := make([]byte, n)
	copy(bytes, r.data[r.pos:r.pos+n])
	r.pos += n
	return bytes, nil
}

// ReadBlock читает ровно 8 байт (ключи, challenge).
func (r *Reader) ReadBlock() ([8]byte, error) {
	var block [8]byte
	if r.pos+len(block) > len(r.data) {
		return block, fmt.Errorf("ReadBlock: not enough data (pos=%d, len=%d)", r.pos, len(r.data))
	}
	copy(block[:], r.data[r.pos:])
	r.pos += len(block)
	return block, nil
}

// Skip пропускает n байт.
func (r *Reader) Skip(n int) error {
	if n < 0 || r.pos+n > len(r.data) {
		return fmt.Errorf("Skip: not enough data (pos=%d, need=%d, len=%d)", r.pos, n, len(r.data))
	}
	r.pos += n
	return nil
}

// ReadString16 читает ASCII строку с префиксом длины uint16.
func (r *Reader) ReadString16() (string, error) {
	n, err := r.ReadUint16()
	if err != nil {
		return "", fmt.Errorf("ReadString16 length: %w", err)
	}
	return r.readChars(int(n))
}

// ReadString32 читает ASCII строку с префиксом длины uint32.
// Пустая строка допустима (длина 0).
func (r *Reader) ReadString32() (string, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return "", fmt.Errorf("ReadString32 length: %w", err)
	}
	if int32(n) < 0 {
		return "", fmt.Errorf("ReadString32: negative length %d", int32(n))
	}
	return r.readChars(int(n))
}

func (r *Reader) readChars(n int) (string, error) {
	if r.pos+n > len(r.data) {
		return "", fmt.Errorf("string of %d bytes: not enough data (pos=%d, len=%d)", n, r.pos, len(r.data))
	}
	s := string(r.data[r.pos : r.pos+n])
	r.pos += n
	return s, nil
}

// Remaining возвращает количество непрочитанных байт.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// Position возвращает текущую позицию чтения.
func (r *Reader) Position() int {
	return r.pos
}
