package crypto

import "errors"

var (
	// ErrInvalidKey is returned for Blowfish keys outside 32..448 bits.
	ErrInvalidKey = errors.New("invalid blowfish key")

	// ErrInvalidBlockLength is returned when a cipher input is not a whole number of 8-byte blocks.
	ErrInvalidBlockLength = errors.New("invalid block length")
)
