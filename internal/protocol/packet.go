package protocol

import (
	"bytes"
	"fmt"

	"github.com/udisondev/silkgo/internal/protocol/packet"
)

// Packet is one application message: the payload of exactly one frame.
// Treat it as immutable once built; the layer holding it owns Payload.
type Packet struct {
	ID        uint16
	Encrypted bool
	Payload   []byte
}

// NewPacket builds a plaintext packet with a private copy of payload.
func NewPacket(id uint16, payload []byte) Packet {
	return Packet{ID: id, Payload: bytes.Clone(payload)}
}

// NewEncryptedPacket builds a packet whose payload is sent Blowfish-encrypted.
// The payload length must be a multiple of 8; no padding is added.
func NewEncryptedPacket(id uint16, payload []byte) Packet {
	return Packet{ID: id, Encrypted: true, Payload: bytes.Clone(payload)}
}

// Reader returns a payload reader positioned at the first byte.
func (p Packet) Reader() *packet.Reader {
	return packet.NewReader(p.Payload)
}

func (p Packet) String() string {
	if p.Encrypted {
		return fmt.Sprintf("[%04X] %d bytes (encrypted)", p.ID, len(p.Payload))
	}
	return fmt.Sprintf("[%04X] %d bytes", p.ID, len(p.Payload))
}
