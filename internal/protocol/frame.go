package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/udisondev/silkgo/internal/constants"
)

// Checksummer computes the frame checksum byte.
type Checksummer interface {
	Calculate(data []byte) byte
}

// Header is the 6-byte frame header. It exists only on the wire.
type Header struct {
	LengthFlags uint16
	ID          uint16
	Count       byte
	Checksum    byte
}

// ParseHeader decodes a header from the first constants.FrameHeaderSize bytes of b.
func ParseHeader(b []byte) Header {
	return Header{
		LengthFlags: binary.LittleEndian.Uint16(b[constants.FrameLengthOffset:]),
		ID:          binary.LittleEndian.Uint16(b[constants.FrameIDOffset:]),
		Count:       b[constants.FrameCountOffset],
		Checksum:    b[constants.FrameChecksumOffset],
	}
}

// Encrypted reports whether bit 15 of the length word is set.
func (h Header) Encrypted() bool {
	return h.LengthFlags&constants.FrameEncryptedFlag != 0
}

// Codec maps between frames and Packet values.
// The length mask differs between server revisions and is fixed per connection.
type Codec struct {
	mask uint16
}

// NewCodec returns a codec for the given length mask
// (constants.LengthMaskExtended or constants.LengthMaskLegacy).
func NewCodec(mask uint16) (Codec, error) {
	if mask != constants.LengthMaskExtended && mask != constants.LengthMaskLegacy {
		return Codec{}, fmt.Errorf("unsupported length mask 0x%04X", mask)
	}
	return Codec{mask: mask}, nil
}

// DefaultCodec uses constants.LengthMaskExtended.
func DefaultCodec() Codec {
	return Codec{mask: constants.LengthMaskExtended}
}

// Mask returns the length mask.
func (c Codec) Mask() uint16 {
	if c.mask == 0 {
		return constants.LengthMaskExtended
	}
	return c.mask
}

// MaxPayload is the largest payload the length field can express.
func (c Codec) MaxPayload() int {
	return int(c.Mask())
}

// PayloadLen extracts the payload length from a header.
func (c Codec) PayloadLen(h Header) int {
	return int(h.LengthFlags & c.Mask())
}

// Decode builds a Packet from a header and its payload. The packet takes
// ownership of payload. Payload decryption is the caller's job.
func (c Codec) Decode(h Header, payload []byte) (Packet, error) {
	if n := c.PayloadLen(h); n != len(payload) {
		return Packet{}, fmt.Errorf("%w: length field %d, payload %d bytes", ErrFraming, n, len(payload))
	}
	return Packet{
		ID:        h.ID,
		Encrypted: h.Encrypted(),
		Payload:   payload,
	}, nil
}

// Encode appends the frame for p to dst: header with the security count and a
// zero checksum placeholder, then the payload as given (already encrypted when
// p.Encrypted). The checksum is then computed over the whole frame and stored at
// constants.FrameChecksumOffset. A nil cs leaves the checksum zero.
func (c Codec) Encode(dst []byte, p Packet, count byte, cs Checksummer) ([]byte, error) {
	if len(p.Payload) > c.MaxPayload() {
		return dst, fmt.Errorf("%w: payload of %d bytes exceeds %d", ErrFraming, len(p.Payload), c.MaxPayload())
	}

	lengthFlags := uint16(len(p.Payload))
	if p.Encrypted {
		lengthFlags |= constants.FrameEncryptedFlag
	}

	start := len(dst)
	dst = binary.LittleEndian.AppendUint16(dst, lengthFlags)
	dst = binary.LittleEndian.AppendUint16(dst, p.ID)
	dst = append(dst, count, 0)
	dst = append(dst, p.Payload...)

	if cs != nil {
		frame := dst[start:]
		frame[constants.FrameChecksumOffset] = cs.Calculate(frame)
	}
	return dst, nil
}

// ReadFrame reads one frame from r. A clean EOF before the first header byte
// yields ErrClosed; any short read after that is ErrFraming.
func (c Codec) ReadFrame(r io.Reader) (Header, []byte, error) {
	var hdr [constants.FrameHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		switch {
		case errors.Is(err, io.EOF):
			return Header{}, nil, fmt.Errorf("reading frame header: %w", ErrClosed)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return Header{}, nil, fmt.Errorf("%w: truncated frame header", ErrFraming)
		default:
			return Header{}, nil, fmt.Errorf("reading frame header: %w", err)
		}
	}

	h := ParseHeader(hdr[:])
	payload := make([]byte, c.PayloadLen(h))
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return h, nil, fmt.Errorf("%w: truncated payload of [%04X]: want %d bytes", ErrFraming, h.ID, len(payload))
		}
		return h, nil, fmt.Errorf("reading frame payload: %w", err)
	}
	return h, payload, nil
}
