package handshake

import (
	"crypto/subtle"
	"fmt"

	"github.com/udisondev/silkgo/internal/constants"
	"github.com/udisondev/silkgo/internal/crypto"
	"github.com/udisondev/silkgo/internal/protocol"
)

// Secrets: значения Diffie-Hellman, живущие только между setup и challenge.
// После DONE возвращается нулевое значение.
type Secrets struct {
	ServerPublic uint32
	ClientPublic uint32
	Shared       uint32
	BlowfishSeed [8]byte

	interim *crypto.BlowfishCipher
}

// Transition is the result of feeding one handshake frame to the state machine.
type Transition struct {
	State   State
	Secrets Secrets

	// Reply must be written before any later frame is processed.
	Reply protocol.Packet

	// Checksum and Counter are set by the setup transition.
	Checksum *crypto.Checksum
	Counter  *crypto.SecurityCounter

	// Cipher is the interim cipher after setup and the final cipher after the challenge.
	Cipher *crypto.BlowfishCipher
}

// Start moves a fresh connection into CLIENT_WAIT_SETUP.
func Start(state State) (State, error) {
	if state != StateNone {
		return state, fmt.Errorf("%w: handshake already started (state %s)", protocol.ErrProtocolViolation, state)
	}
	return StateWaitSetup, nil
}

// Advance applies one 0x5000 payload (flag byte first) to the current state.
// It has no side effects: the caller installs whatever the Transition carries.
func Advance(state State, secrets Secrets, payload []byte) (Transition, error) {
	if len(payload) == 0 {
		return Transition{}, fmt.Errorf("%w: empty handshake payload in state %s", protocol.ErrProtocolViolation, state)
	}
	flag, body := payload[0], payload[1:]

	switch state {
	case StateWaitSetup:
		switch flag {
		case constants.HandshakeFlagSetup:
			return onSetup(body)
		case constants.HandshakeFlagNone:
			return Transition{}, fmt.Errorf("%w: server offers a session without encryption", protocol.ErrProtocolViolation)
		}
	case StateWaitChallenge:
		if flag == constants.HandshakeFlagChallenge {
			return onChallenge(secrets, body)
		}
	default:
		return Transition{}, fmt.Errorf("%w: handshake frame (flag 0x%02X) in state %s", protocol.ErrProtocolViolation, flag, state)
	}
	return Transition{}, fmt.Errorf("%w: unexpected handshake flag 0x%02X in state %s", protocol.ErrProtocolViolation, flag, state)
}

func onSetup(body []byte) (Transition, error) {
	setup, err := ParseSetup(body)
	if err != nil {
		return Transition{}, fmt.Errorf("parsing setup: %w", err)
	}

	x := constants.ClientSecretExponent
	s := Secrets{
		ServerPublic: setup.ServerPublic,
		ClientPublic: PowMod(setup.Generator, x, setup.Modulus),
		Shared:       PowMod(setup.ServerPublic, x, setup.Modulus),
		BlowfishSeed: setup.BlowfishSeed,
	}

	key := InterimKey(s.ServerPublic, s.ClientPublic, s.Shared)
	s.interim, err = crypto.NewBlowfishCipher(key[:])
	if err != nil {
		return Transition{}, fmt.Errorf("installing interim key: %w", err)
	}

	resp := Response{
		ClientPublic: s.ClientPublic,
		Challenge:    s.interim.EncryptBlock(ClientChallenge(s.ServerPublic, s.ClientPublic, s.Shared)),
	}

	return Transition{
		State:    StateWaitChallenge,
		Secrets:  s,
		Reply:    protocol.NewPacket(constants.MsgHandshake, resp.Encode()),
		Checksum: crypto.NewChecksum(byte(setup.ChecksumSeed)),
		Counter:  crypto.NewSecurityCounter(setup.CounterSeed),
		Cipher:   s.interim,
	}, nil
}

func onChallenge(s Secrets, body []byte) (Transition, error) {
	if s.interim == nil {
		return Transition{}, fmt.Errorf("%w: challenge without interim key", protocol.ErrProtocolViolation)
	}

	got, err := ParseChallenge(body)
	if err != nil {
		return Transition{}, fmt.Errorf("parsing challenge: %w", err)
	}

	want := s.interim.EncryptBlock(ServerChallenge(s.ServerPublic, s.ClientPublic, s.Shared))
	if subtle.ConstantTimeCompare(got[:], want[:]) != 1 {
		return Transition{}, fmt.Errorf("%w: server challenge mismatch", protocol.ErrAuthenticationFailed)
	}

	key := FinalKey(s.BlowfishSeed, s.Shared)
	final, err := crypto.NewBlowfishCipher(key[:])
	if err != nil {
		return Transition{}, fmt.Errorf("installing final key: %w", err)
	}

	return Transition{
		State:  StateDone,
		Reply:  protocol.NewPacket(constants.MsgHandshakeAccept, nil),
		Cipher: final,
	}, nil
}
