package constants

import "time"

// Silkroad gateway/agent protocol constants.
//
// Wire frame (little-endian):
//   [lengthAndFlags uint16] bit 15 = encrypted, low bits = payload length
//   [messageID      uint16]
//   [securityCount  uint8 ]
//   [checksum       uint8 ]
//   [payload        length bytes]

// Frame layout
const (
	// FrameHeaderSize is the size of the frame header preceding the payload
	FrameHeaderSize = 6

	// FrameLengthOffset is the offset of the length-and-flags word
	FrameLengthOffset = 0

	// FrameIDOffset is the offset of the message id
	FrameIDOffset = 2

	// FrameCountOffset is the offset of the security count byte
	FrameCountOffset = 4

	// FrameChecksumOffset is the offset of the checksum byte, filled in after serialization
	FrameChecksumOffset = 5

	// FrameEncryptedFlag marks a Blowfish-encrypted payload in the length word
	FrameEncryptedFlag = 0x8000
)

// Length masks observed across protocol revisions.
const (
	// LengthMaskExtended keeps the low 15 bits of the length word (default)
	LengthMaskExtended uint16 = 0x7FFF

	// LengthMaskLegacy keeps the low 11 bits of the length word
	LengthMaskLegacy uint16 = 0x07FF
)

// Reserved message ids
const (
	// MsgHandshake carries every handshake frame in both directions
	MsgHandshake uint16 = 0x5000

	// MsgHandshakeAccept is sent by the client once the final key is installed
	MsgHandshakeAccept uint16 = 0x9000

	// MsgKeepAlive is sent periodically after authentication
	MsgKeepAlive uint16 = 0x2002

	// MsgIdentity is the module identification exchange (both directions)
	MsgIdentity uint16 = 0x2001

	// MsgServerListRequest asks the gateway for the shard list
	MsgServerListRequest uint16 = 0x6101

	// MsgServerListResponse carries farms and shards
	MsgServerListResponse uint16 = 0xA101
)

// Handshake flags (first payload byte of MsgHandshake frames)
const (
	// HandshakeFlagNone announces a session without Blowfish (unsupported)
	HandshakeFlagNone byte = 0x01

	// HandshakeFlagSetup carries seeds and the Diffie-Hellman parameters
	HandshakeFlagSetup byte = 0x0E

	// HandshakeFlagChallenge carries the server challenge
	HandshakeFlagChallenge byte = 0x10
)

// Handshake payload sizes
const (
	// HandshakeSetupSize is the setup payload size including the flag byte
	// flag(1) + initial(8) + crcSeed(4) + counterSeed(4) + blowfish(8) + g(4) + p(4) + A(4)
	HandshakeSetupSize = 37

	// HandshakeChallengeSize is the challenge payload size including the flag byte
	HandshakeChallengeSize = 9

	// HandshakeResponseSize is the client response: clientPublic(4) + challenge(8)
	HandshakeResponseSize = 12

	// ClientSecretExponent is the fixed client Diffie-Hellman exponent of the reference protocol.
	// Not random: third-party tooling relies on it to decode captured sessions.
	ClientSecretExponent uint32 = 0x33

	// FinalKeyByte is the KeyMix key byte used to derive the final Blowfish key
	FinalKeyByte byte = 0x03
)

// Security bytes
const (
	// DefaultCounterSeed replaces a zero security counter seed
	DefaultCounterSeed uint32 = 0x9ABFB3B6
)

// Blowfish Cipher Constants
const (
	// BlowfishBlockSize is the Blowfish block size in bytes (64-bit)
	BlowfishBlockSize = 8

	// BlowfishMinKeySize is the minimum key size in bytes (32-bit)
	BlowfishMinKeySize = 4

	// BlowfishMaxKeySize is the maximum key size in bytes (448-bit)
	BlowfishMaxKeySize = 56

	// HandshakeKeySize is the size of the interim and final session keys
	HandshakeKeySize = 8
)

// Session defaults
const (
	// DefaultKeepAliveInterval is the keep-alive period after authentication
	DefaultKeepAliveInterval = 5 * time.Second

	// DefaultRecvQueueSize bounds packets buffered between the read loop and Read
	DefaultRecvQueueSize = 256

	// DefaultWriteTimeout is the per-frame write deadline when the transport supports deadlines
	DefaultWriteTimeout = 5 * time.Second

	// DefaultSendBufSize is the initial capacity of pooled frame buffers
	DefaultSendBufSize = 512
)
