package crypto

import (
	"encoding/binary"
	"fmt"

	"github.com/udisondev/silkgo/internal/constants"
)

// BlowfishCipher implements the 16-round Blowfish block cipher in the single
// 8-byte block mode used by the protocol.
//
// Key bytes are folded into the P-array as big-endian words; block halves are
// read from and written to byte buffers little-endian, matching the game client.
type BlowfishCipher struct {
	p [18]uint32
	s [4][256]uint32
}

// NewBlowfishCipher runs the key schedule for key (4 to 56 bytes).
func NewBlowfishCipher(key []byte) (*BlowfishCipher, error) {
	if len(key) < constants.BlowfishMinKeySize || len(key) > constants.BlowfishMaxKeySize {
		return nil, fmt.Errorf("creating blowfish cipher: %w: %d bytes", ErrInvalidKey, len(key))
	}

	c := &BlowfishCipher{
		p: initP,
		s: initS,
	}

	j := 0
	for i := range c.p {
		var word uint32
		for range 4 {
			word = word<<8 | uint32(key[j])
			j = (j + 1) % len(key)
		}
		c.p[i] ^= word
	}

	// Order matters: P-array first, then S-boxes 0..3.
	var l, r uint32
	for i := 0; i < len(c.p); i += 2 {
		l, r = c.EncipherBlock(l, r)
		c.p[i], c.p[i+1] = l, r
	}
	for box := range c.s {
		for i := 0; i < 256; i += 2 {
			l, r = c.EncipherBlock(l, r)
			c.s[box][i], c.s[box][i+1] = l, r
		}
	}

	return c, nil
}

func (c *BlowfishCipher) f(x uint32) uint32 {
	return ((c.s[0][x>>24] + c.s[1][byte(x>>16)]) ^ c.s[2][byte(x>>8)]) + c.s[3][byte(x)]
}

// EncipherBlock encrypts one block given as two 32-bit halves.
func (c *BlowfishCipher) EncipherBlock(l, r uint32) (uint32, uint32) {
	for i := 0; i < 16; i += 2 {
		l ^= c.p[i]
		r ^= c.f(l)
		r ^= c.p[i+1]
		l ^= c.f(r)
	}
	l ^= c.p[16]
	r ^= c.p[17]
	return r, l
}

// DecipherBlock is the exact inverse of EncipherBlock.
func (c *BlowfishCipher) DecipherBlock(l, r uint32) (uint32, uint32) {
	for i := 16; i > 0; i -= 2 {
		l ^= c.p[i+1]
		r ^= c.f(l)
		r ^= c.p[i]
		l ^= c.f(r)
	}
	l ^= c.p[1]
	r ^= c.p[0]
	return r, l
}

// Encrypt encrypts data[offset:offset+size] in-place.
// Size must be a multiple of 8.
func (c *BlowfishCipher) Encrypt(data []byte, offset, size int) error {
	if err := checkBlocks(data, offset, size); err != nil {
		return fmt.Errorf("blowfish encrypt: %w", err)
	}
	for i := offset; i < offset+size; i += constants.BlowfishBlockSize {
		l, r := c.EncipherBlock(binary.LittleEndian.Uint32(data[i:]), binary.LittleEndian.Uint32(data[i+4:]))
		binary.LittleEndian.PutUint32(data[i:], l)
		binary.LittleEndian.PutUint32(data[i+4:], r)
	}
	return nil
}

// Decrypt decrypts data[offset:offset+size] in-place.
// Size must be a multiple of 8.
func (c *BlowfishCipher) Decrypt(data []byte, offset, size int) error {
	if err := checkBlocks(data, offset, size); err != nil {
		return fmt.Errorf("blowfish decrypt: %w", err)
	}
	for i := offset; i < offset+size; i += constants.BlowfishBlockSize {
		l, r := c.DecipherBlock(binary.LittleEndian.Uint32(data[i:]), binary.LittleEndian.Uint32(data[i+4:]))
		binary.LittleEndian.PutUint32(data[i:], l)
		binary.LittleEndian.PutUint32(data[i+4:], r)
	}
	return nil
}

// EncryptBlock returns the encryption of a single 8-byte block.
func (c *BlowfishCipher) EncryptBlock(block [8]byte) [8]byte {
	_ = c.Encrypt(block[:], 0, len(block))
	return block
}

func checkBlocks(data []byte, offset, size int) error {
	if size < 0 || size%constants.BlowfishBlockSize != 0 {
		return fmt.Errorf("%w: size %d is not a multiple of %d", ErrInvalidBlockLength, size, constants.BlowfishBlockSize)
	}
	if offset < 0 || offset+size > len(data) {
		return fmt.Errorf("%w: offset %d + size %d exceeds data length %d", ErrInvalidBlockLength, offset, size, len(data))
	}
	return nil
}
