package handshake

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyMix(t *testing.T) {
	buf := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}
	KeyMix(&buf, 0x04030201, 3)

	assert.Equal(t, "04050a0f0c0d0a07", hex.EncodeToString(buf[:]))
}

func TestKeyMix_HalvesShareKeyBytes(t *testing.T) {
	buf := [8]byte{0xAA, 0xBB, 0xCC, 0xDD, 0xAA, 0xBB, 0xCC, 0xDD}
	KeyMix(&buf, 0xDEADBEEF, 0x07)

	assert.Equal(t, buf[:4], buf[4:])
}

func TestPowMod(t *testing.T) {
	tests := []struct {
		name         string
		base, exp, m uint32
		want         uint32
	}{
		{name: "small modulus", base: 5, exp: 0x33, m: 0x7FFFFFFF, want: 1180181273},
		{name: "modulus near 2^32", base: 0xDEADBEEF, exp: 0x33, m: 0xFFFFFFFB, want: 4126376576},
		{name: "zero exponent", base: 12345, exp: 0, m: 97, want: 1},
		{name: "modulus one", base: 12345, exp: 7, m: 1, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PowMod(tt.base, tt.exp, tt.m))
		})
	}
}

func TestPowMod_MatchesBigInt(t *testing.T) {
	bases := []uint32{0, 1, 2, 7, 0x2909CAC0, 0xFFFFFFFF}
	mods := []uint32{2, 0x7FFFFFFF, 0xFFFFFFFB, 0xFFFFFFFF}

	for _, b := range bases {
		for _, m := range mods {
			want := new(big.Int).Exp(big.NewInt(int64(b)), big.NewInt(0x33), big.NewInt(int64(m)))
			require.Equal(t, uint32(want.Uint64()), PowMod(b, 0x33, m), "base=%#x mod=%#x", b, m)
		}
	}
}

func TestDerivedKeys(t *testing.T) {
	const (
		serverPublic = 0x2909CAC0
		clientPublic = 0x457C1E21
		shared       = 0x06310686
	)

	interim := InterimKey(serverPublic, clientPublic, shared)
	assert.Equal(t, "881835188838d308", hex.EncodeToString(interim[:]))

	final := FinalKey([8]byte{1, 2, 3, 4, 5, 6, 7, 8}, shared)
	assert.Equal(t, "8b0934098b093c19", hex.EncodeToString(final[:]))

	assert.NotEqual(t,
		ClientChallenge(serverPublic, clientPublic, shared),
		ServerChallenge(serverPublic, clientPublic, shared),
	)
}
