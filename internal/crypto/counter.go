package crypto

import "github.com/udisondev/silkgo/internal/constants"

// SecurityCounter generates the per-frame security count byte.
// Both peers seed it from the handshake setup and advance it once per client frame,
// so it must be called exactly once per outgoing frame, in send order.
//
// Not safe for concurrent use: the stream calls it inside its send critical section.
type SecurityCounter struct {
	seeds [3]byte
}

// NewSecurityCounter seeds a counter. A zero seed is replaced by constants.DefaultCounterSeed.
func NewSecurityCounter(seed uint32) *SecurityCounter {
	if seed == 0 {
		seed = constants.DefaultCounterSeed
	}

	out0 := mixCounterValue(seed)
	out1 := mixCounterValue(out0)
	out2 := mixCounterValue(out1)
	out3 := mixCounterValue(out2)

	byte1 := byte(out3) ^ byte(out2)
	byte2 := byte(out0) ^ byte(out1)
	if byte1 == 0 {
		byte1 = 1
	}
	if byte2 == 0 {
		byte2 = 1
	}

	return &SecurityCounter{
		seeds: [3]byte{byte1 ^ byte2, byte2, byte1},
	}
}

// Next returns the next count byte and advances the generator.
func (c *SecurityCounter) Next() byte {
	result := c.seeds[2] * (^c.seeds[0] + c.seeds[1])
	result ^= result >> 4
	c.seeds[0] = result
	return result
}

// mixCounterValue runs 32 steps of a rotate-right with a feedback bit:
// bit 0 of every step is the parity of bits 7, 5, 3, 2, 1 and 0 of the previous value.
func mixCounterValue(val uint32) uint32 {
	for range 32 {
		feedback := (val>>7 ^ val>>5 ^ val>>3 ^ val>>2 ^ val>>1 ^ val) & 1
		val = (val>>1|val<<31)&^1 | feedback
	}
	return val
}
