package handshake

import (
	"encoding/binary"

	"github.com/udisondev/silkgo/internal/constants"
)

// KeyMix mixes the little-endian bytes of key and keyByte into both halves of buf.
// Used for the interim key, both challenges and the final key.
func KeyMix(buf *[8]byte, key uint32, keyByte byte) {
	var k [4]byte
	binary.LittleEndian.PutUint32(k[:], key)

	for i := range 4 {
		buf[i] ^= buf[i] + k[i] + keyByte
		buf[i+4] ^= buf[i+4] + k[i] + keyByte
	}
}

// PowMod computes base^exp mod m by square-and-multiply.
// m fits in 32 bits, so a 64-bit accumulator never overflows.
func PowMod(base, exp, m uint32) uint32 {
	if m == 1 {
		return 0
	}
	mod := uint64(m)
	result := uint64(1)
	b := uint64(base) % mod
	for exp > 0 {
		if exp&1 == 1 {
			result = result * b % mod
		}
		b = b * b % mod
		exp >>= 1
	}
	return uint32(result)
}

// mixPair builds LE(first) || LE(second) and applies KeyMix.
func mixPair(first, second, shared uint32, keyByte byte) [8]byte {
	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[:4], first)
	binary.LittleEndian.PutUint32(buf[4:], second)
	KeyMix(&buf, shared, keyByte)
	return buf
}

// InterimKey derives the Blowfish key used while the challenges are exchanged.
func InterimKey(serverPublic, clientPublic, shared uint32) [8]byte {
	return mixPair(serverPublic, clientPublic, shared, byte(shared&0x03))
}

// ClientChallenge is the plaintext block the client proves knowledge of the shared secret with.
func ClientChallenge(serverPublic, clientPublic, shared uint32) [8]byte {
	return mixPair(clientPublic, serverPublic, shared, byte(clientPublic&0x07))
}

// ServerChallenge is the plaintext block the server is expected to send back encrypted.
func ServerChallenge(serverPublic, clientPublic, shared uint32) [8]byte {
	return mixPair(serverPublic, clientPublic, shared, byte(serverPublic&0x07))
}

// FinalKey derives the session key from the setup seed.
func FinalKey(seed [8]byte, shared uint32) [8]byte {
	KeyMix(&seed, shared, constants.FinalKeyByte)
	return seed
}
