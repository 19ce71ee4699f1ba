package handshake

import (
	"fmt"

	"github.com/udisondev/silkgo/internal/constants"
	"github.com/udisondev/silkgo/internal/protocol"
	"github.com/udisondev/silkgo/internal/protocol/packet"
)

// Setup is the body of a 0x5000/0x0E frame.
type Setup struct {
	ChecksumSeed uint32
	CounterSeed  uint32
	BlowfishSeed [8]byte
	Generator    uint32
	Modulus      uint32
	ServerPublic uint32
}

// ParseSetup parses a setup payload without the leading flag byte.
func ParseSetup(body []byte) (Setup, error) {
	var s Setup
	if len(body) < constants.HandshakeSetupSize-1 {
		return s, fmt.Errorf("%w: setup body of %d bytes, want %d", protocol.ErrProtocolViolation, len(body), constants.HandshakeSetupSize-1)
	}

	r := packet.NewReader(body)
	// 8 байт начального ключа сервер шлёт, но клиент их не использует.
	if err := r.Skip(8); err != nil {
		return s, err
	}

	var err error
	if s.ChecksumSeed, err = r.ReadUint32(); err != nil {
		return s, err
	}
	if s.CounterSeed, err = r.ReadUint32(); err != nil {
		return s, err
	}
	if s.BlowfishSeed, err = r.ReadBlock(); err != nil {
		return s, err
	}
	if s.Generator, err = r.ReadUint32(); err != nil {
		return s, err
	}
	if s.Modulus, err = r.ReadUint32(); err != nil {
		return s, err
	}
	if s.ServerPublic, err = r.ReadUint32(); err != nil {
		return s, err
	}

	if s.Modulus == 0 {
		return s, fmt.Errorf("%w: zero Diffie-Hellman modulus", protocol.ErrProtocolViolation)
	}
	return s, nil
}

// Encode serializes the setup body including the flag byte.
// The client never sends it; scripted servers in tests do.
func (s Setup) Encode() []byte {
	w := packet.NewWriter(constants.HandshakeSetupSize)
	_ = w.WriteByte(constants.HandshakeFlagSetup)
	w.WriteBytes(make([]byte, 8))
	w.WriteUint32(s.ChecksumSeed)
	w.WriteUint32(s.CounterSeed)
	w.WriteBytes(s.BlowfishSeed[:])
	w.WriteUint32(s.Generator)
	w.WriteUint32(s.Modulus)
	w.WriteUint32(s.ServerPublic)
	return w.Bytes()
}

// ParseChallenge parses a challenge payload without the leading flag byte.
func ParseChallenge(body []byte) ([8]byte, error) {
	if len(body) < constants.HandshakeChallengeSize-1 {
		return [8]byte{}, fmt.Errorf("%w: challenge body of %d bytes, want %d", protocol.ErrProtocolViolation, len(body), constants.HandshakeChallengeSize-1)
	}
	return packet.NewReader(body).ReadBlock()
}

// Response is the client answer to a setup frame.
type Response struct {
	ClientPublic uint32
	Challenge    [8]byte
}

// ParseResponse parses the client response payload.
func ParseResponse(payload []byte) (Response, error) {
	var resp Response
	if len(payload) != constants.HandshakeResponseSize {
		return resp, fmt.Errorf("%w: response of %d bytes, want %d", protocol.ErrProtocolViolation, len(payload), constants.HandshakeResponseSize)
	}

	r := packet.NewReader(payload)
	var err error
	if resp.ClientPublic, err = r.ReadUint32(); err != nil {
		return resp, err
	}
	if resp.Challenge, err = r.ReadBlock(); err != nil {
		return resp, err
	}
	return resp, nil
}

// Encode serializes the response payload.
func (r Response) Encode() []byte {
	w := packet.NewWriter(constants.HandshakeResponseSize)
	w.WriteUint32(r.ClientPublic)
	w.WriteBytes(r.Challenge[:])
	return w.Bytes()
}
