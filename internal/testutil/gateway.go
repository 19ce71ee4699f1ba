package testutil

import (
	"bytes"
	"fmt"
	"net"
	"time"

	"github.com/udisondev/silkgo/internal/constants"
	"github.com/udisondev/silkgo/internal/crypto"
	"github.com/udisondev/silkgo/internal/handshake"
	"github.com/udisondev/silkgo/internal/protocol"
)

// DefaultServerPrivate: приватный показатель Diffie-Hellman тестового сервера.
const DefaultServerPrivate uint32 = 0x1234

// DefaultSetup возвращает параметры setup тестового сервера (g=7, p=2^31-1).
func DefaultSetup() handshake.Setup {
	return handshake.Setup{
		ChecksumSeed: 0x000000A5,
		CounterSeed:  0x12345678,
		BlowfishSeed: [8]byte{1, 2, 3, 4, 5, 6, 7, 8},
		Generator:    7,
		Modulus:      0x7FFFFFFF,
		ServerPublic: handshake.PowMod(7, DefaultServerPrivate, 0x7FFFFFFF),
	}
}

// GatewayServer: серверная сторона протокола для тестов клиента.
// Проверяет security count и checksum каждого фрейма клиента.
// Методы возвращают ошибки, а не вызывают t.Fatal: сервер обычно крутится в отдельной горутине.
type GatewayServer struct {
	conn    net.Conn
	codec   protocol.Codec
	setup   handshake.Setup
	private uint32
	timeout time.Duration

	counter  *crypto.SecurityCounter
	checksum *crypto.Checksum

	clientPublic uint32
	shared       uint32
	interim      *crypto.BlowfishCipher
	final        *crypto.BlowfishCipher
}

// NewGatewayServer оборачивает серверный конец соединения.
func NewGatewayServer(conn net.Conn) *GatewayServer {
	setup := DefaultSetup()
	return &GatewayServer{
		conn:     conn,
		codec:    protocol.DefaultCodec(),
		setup:    setup,
		private:  DefaultServerPrivate,
		timeout:  5 * time.Second,
		counter:  crypto.NewSecurityCounter(setup.CounterSeed),
		checksum: crypto.NewChecksum(byte(setup.ChecksumSeed)),
	}
}

// Conn возвращает серверный конец соединения.
func (s *GatewayServer) Conn() net.Conn {
	return s.conn
}

// SendSetup отправляет 0x5000/0x0E.
func (s *GatewayServer) SendSetup() error {
	return s.Send(protocol.NewPacket(constants.MsgHandshake, s.setup.Encode()))
}

// ReadResponse читает ответ клиента на setup и проверяет его challenge.
func (s *GatewayServer) ReadResponse() error {
	p, err := s.Receive()
	if err != nil {
		return fmt.Errorf("reading handshake response: %w", err)
	}
	if p.ID != constants.MsgHandshake {
		return fmt.Errorf("expected [5000], got [%04X]", p.ID)
	}

	resp, err := handshake.ParseResponse(p.Payload)
	if err != nil {
		return err
	}

	s.clientPublic = resp.ClientPublic
	s.shared = handshake.PowMod(resp.ClientPublic, s.private, s.setup.Modulus)

	key := handshake.InterimKey(s.setup.ServerPublic, s.clientPublic, s.shared)
	if s.interim, err = crypto.NewBlowfishCipher(key[:]); err != nil {
		return err
	}

	want := s.interim.EncryptBlock(handshake.ClientChallenge(s.setup.ServerPublic, s.clientPublic, s.shared))
	if want != resp.Challenge {
		return fmt.Errorf("client challenge mismatch: got %x, want %x", resp.Challenge, want)
	}
	return nil
}

// SendChallenge отправляет 0x5000/0x10. flipBit >= 0 портит указанный бит challenge.
func (s *GatewayServer) SendChallenge(flipBit int) error {
	if s.interim == nil {
		return fmt.Errorf("challenge before response")
	}
	block := s.interim.EncryptBlock(handshake.ServerChallenge(s.setup.ServerPublic, s.clientPublic, s.shared))
	if flipBit >= 0 {
		block[flipBit/8%8] ^= 1 << (flipBit % 8)
	}

	payload := append([]byte{constants.HandshakeFlagChallenge}, block[:]...)
	return s.Send(protocol.NewPacket(constants.MsgHandshake, payload))
}

// ReadAccept ждёт 0x9000 и переключается на финальный ключ.
func (s *GatewayServer) ReadAccept() error {
	p, err := s.Receive()
	if err != nil {
		return fmt.Errorf("reading handshake accept: %w", err)
	}
	if p.ID != constants.MsgHandshakeAccept || len(p.Payload) != 0 {
		return fmt.Errorf("expected empty [9000], got %s", p)
	}

	key := handshake.FinalKey(s.setup.BlowfishSeed, s.shared)
	s.final, err = crypto.NewBlowfishCipher(key[:])
	return err
}

// Handshake проводит полный handshake с клиентом.
func (s *GatewayServer) Handshake() error {
	if err := s.SendSetup(); err != nil {
		return err
	}
	if err := s.ReadResponse(); err != nil {
		return err
	}
	if err := s.SendChallenge(-1); err != nil {
		return err
	}
	return s.ReadAccept()
}

// Send пишет фрейм клиенту. Сервер не считает count и checksum, оба байта нулевые.
// Зашифрованный пакет шифруется финальным ключом.
func (s *GatewayServer) Send(p protocol.Packet) error {
	if p.Encrypted {
		if s.final == nil {
			return fmt.Errorf("encrypted send before handshake")
		}
		enc := bytes.Clone(p.Payload)
		if err := s.final.Encrypt(enc, 0, len(enc)); err != nil {
			return err
		}
		p.Payload = enc
	}

	frame, err := s.codec.Encode(nil, p, 0, nil)
	if err != nil {
		return err
	}
	return s.SendRaw(frame)
}

// SendRaw пишет байты как есть.
func (s *GatewayServer) SendRaw(b []byte) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.timeout)); err != nil {
		return err
	}
	_, err := s.conn.Write(b)
	return err
}

// Receive читает фрейм клиента, проверяет security count и checksum,
// расшифровывает payload.
func (s *GatewayServer) Receive() (protocol.Packet, error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(s.timeout)); err != nil {
		return protocol.Packet{}, err
	}

	h, payload, err := s.codec.ReadFrame(s.conn)
	if err != nil {
		return protocol.Packet{}, err
	}

	if want := s.counter.Next(); h.Count != want {
		return protocol.Packet{}, fmt.Errorf("[%04X]: security count 0x%02X, want 0x%02X", h.ID, h.Count, want)
	}

	// Без Checksummer байт checksum остаётся нулевым.
	frame, err := s.codec.Encode(nil, protocol.Packet{ID: h.ID, Encrypted: h.Encrypted(), Payload: payload}, h.Count, nil)
	if err != nil {
		return protocol.Packet{}, err
	}
	if want := s.checksum.Calculate(frame); h.Checksum != want {
		return protocol.Packet{}, fmt.Errorf("[%04X]: checksum 0x%02X, want 0x%02X", h.ID, h.Checksum, want)
	}

	if h.Encrypted() {
		if s.final == nil {
			return protocol.Packet{}, fmt.Errorf("[%04X]: encrypted before handshake", h.ID)
		}
		if err := s.final.Decrypt(payload, 0, len(payload)); err != nil {
			return protocol.Packet{}, err
		}
	}
	return s.codec.Decode(h, payload)
}
