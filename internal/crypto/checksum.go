package crypto

import "hash/crc32"

// Checksum computes the per-frame integrity byte.
// The seed byte from the handshake selects a reflected CRC-32 polynomial from checksumPolys;
// the register starts at 0xFFFFFFFF, is not inverted at the end, and is folded
// into one byte by summing its four bytes.
//
// Calculate is a pure function of its input and the seed.
type Checksum struct {
	seed  byte
	table *crc32.Table
}

// NewChecksum builds the lookup table for seed.
func NewChecksum(seed byte) *Checksum {
	return &Checksum{
		seed:  seed,
		table: crc32.MakeTable(checksumPolys[seed]),
	}
}

// Seed returns the handshake seed the checksum was built from.
func (c *Checksum) Seed() byte {
	return c.seed
}

// Calculate returns the checksum byte of data.
func (c *Checksum) Calculate(data []byte) byte {
	reg := ^crc32.Update(0, c.table, data)
	return byte(reg) + byte(reg>>8) + byte(reg>>16) + byte(reg>>24)
}
