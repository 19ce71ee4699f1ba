// Package gateway implements the messages a client exchanges with the
// gateway server after the handshake: module identification and the shard list.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/udisondev/silkgo/internal/constants"
	"github.com/udisondev/silkgo/internal/protocol"
	"github.com/udisondev/silkgo/internal/protocol/packet"
)

// ErrMalformed is returned for payloads that do not match the message layout.
var ErrMalformed = errors.New("malformed payload")

// Conn is the part of stream.Stream the gateway messages need.
type Conn interface {
	Read(ctx context.Context) (protocol.Packet, error)
	Write(p protocol.Packet) error
}

// IdentityPayload builds the 0x2001 body: module name (str16) and locale byte.
func IdentityPayload(name string, locale byte) ([]byte, error) {
	w := packet.NewWriter(2 + len(name) + 1)
	if err := w.WriteString16(name); err != nil {
		return nil, fmt.Errorf("writing module name: %w", err)
	}
	if err := w.WriteByte(locale); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// ParseIdentity returns the module name announced by the server.
func ParseIdentity(payload []byte) (string, error) {
	name, err := packet.NewReader(payload).ReadString16()
	if err != nil {
		return "", fmt.Errorf("%w: identity: %w", ErrMalformed, err)
	}
	return name, nil
}

// Identify sends the client module identity and waits for the server's.
// Packets arriving before the server identity are dropped.
func Identify(ctx context.Context, c Conn, name string, locale byte) (string, error) {
	payload, err := IdentityPayload(name, locale)
	if err != nil {
		return "", err
	}
	if err := c.Write(protocol.NewPacket(constants.MsgIdentity, payload)); err != nil {
		return "", fmt.Errorf("sending identity: %w", err)
	}

	for {
		p, err := c.Read(ctx)
		if err != nil {
			return "", fmt.Errorf("waiting for server identity: %w", err)
		}
		if p.ID != constants.MsgIdentity {
			slog.Debug("dropping packet before server identity", "packet", p)
			continue
		}
		return ParseIdentity(p.Payload)
	}
}
