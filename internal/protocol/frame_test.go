package protocol

import (
	"bytes"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/silkgo/internal/constants"
	"github.com/udisondev/silkgo/internal/crypto"
)

func TestCodec_Encode_KeepAlive(t *testing.T) {
	codec := DefaultCodec()

	frame, err := codec.Encode(nil, NewPacket(constants.MsgKeepAlive, nil), 0x11, crypto.NewChecksum(0xA5))
	require.NoError(t, err)

	want := []byte{0x00, 0x00, 0x02, 0x20, 0x11, 0xB1}
	if diff := cmp.Diff(want, frame); diff != "" {
		t.Errorf("Encode() mismatch (-want +got):\n%s", diff)
	}
}

func TestCodec_Encode_AppendsToDst(t *testing.T) {
	codec := DefaultCodec()
	prefix := []byte{0xEE, 0xEE}

	frame, err := codec.Encode(prefix, NewPacket(0x1234, []byte{1, 2, 3}), 0x01, nil)
	require.NoError(t, err)

	want := []byte{0xEE, 0xEE, 0x03, 0x00, 0x34, 0x12, 0x01, 0x00, 1, 2, 3}
	assert.Equal(t, want, frame)
}

func TestCodec_Encode_ChecksumCoversWholeFrame(t *testing.T) {
	codec := DefaultCodec()
	cs := crypto.NewChecksum(0x3B)
	pkt := NewPacket(constants.MsgIdentity, []byte("SR_Client"))

	frame, err := codec.Encode(nil, pkt, 0x7F, cs)
	require.NoError(t, err)

	stored := frame[constants.FrameChecksumOffset]
	frame[constants.FrameChecksumOffset] = 0
	assert.Equal(t, cs.Calculate(frame), stored)
}

func TestCodec_Encode_EncryptedFlag(t *testing.T) {
	codec := DefaultCodec()

	frame, err := codec.Encode(nil, NewEncryptedPacket(0x7001, make([]byte, 16)), 0, nil)
	require.NoError(t, err)

	h := ParseHeader(frame)
	assert.True(t, h.Encrypted())
	assert.Equal(t, uint16(0x8010), h.LengthFlags)
	assert.Equal(t, 16, codec.PayloadLen(h))
}

func TestCodec_Encode_PayloadTooLarge(t *testing.T) {
	codec, err := NewCodec(constants.LengthMaskLegacy)
	require.NoError(t, err)

	_, err = codec.Encode(nil, NewPacket(0x7001, make([]byte, 0x800)), 0, nil)
	require.ErrorIs(t, err, ErrFraming)

	_, err = codec.Encode(nil, NewPacket(0x7001, make([]byte, 0x7FF)), 0, nil)
	require.NoError(t, err)
}

func TestNewCodec_RejectsUnknownMask(t *testing.T) {
	_, err := NewCodec(0x0FFF)
	require.Error(t, err)
}

func TestCodec_Decode(t *testing.T) {
	codec := DefaultCodec()

	tests := []struct {
		name    string
		header  Header
		payload []byte
		want    Packet
		wantErr error
	}{
		{
			name:    "plain",
			header:  Header{LengthFlags: 2, ID: 0xA101},
			payload: []byte{0x00, 0x00},
			want:    Packet{ID: 0xA101, Payload: []byte{0x00, 0x00}},
		},
		{
			name:    "encrypted",
			header:  Header{LengthFlags: 0x8008, ID: 0x3013},
			payload: make([]byte, 8),
			want:    Packet{ID: 0x3013, Encrypted: true, Payload: make([]byte, 8)},
		},
		{
			name:    "length mismatch",
			header:  Header{LengthFlags: 4, ID: 0x2001},
			payload: []byte{1, 2, 3},
			wantErr: ErrFraming,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := codec.Decode(tt.header, tt.payload)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCodec_ReadFrame_Sequence(t *testing.T) {
	codec := DefaultCodec()
	cs := crypto.NewChecksum(0x10)

	sent := []Packet{
		NewPacket(constants.MsgIdentity, []byte{0x09, 0x00, 'S', 'R', '_', 'C', 'l', 'i', 'e', 'n', 't', 0x00}),
		NewPacket(constants.MsgKeepAlive, nil),
		NewEncryptedPacket(0x7001, []byte{1, 2, 3, 4, 5, 6, 7, 8}),
	}

	var wire []byte
	for i, p := range sent {
		var err error
		wire, err = codec.Encode(wire, p, byte(i), cs)
		require.NoError(t, err)
	}

	r := bytes.NewReader(wire)
	var got []Packet
	for range sent {
		h, payload, err := codec.ReadFrame(r)
		require.NoError(t, err)
		p, err := codec.Decode(h, payload)
		require.NoError(t, err)
		got = append(got, p)
	}

	// Пустой payload после чтения: это []byte{}, а не nil.
	if diff := cmp.Diff(sent, got, cmp.Comparer(bytes.Equal)); diff != "" {
		t.Errorf("ReadFrame() sequence mismatch (-want +got):\n%s", diff)
	}

	_, _, err := codec.ReadFrame(r)
	require.ErrorIs(t, err, ErrClosed)
}

func TestCodec_ReadFrame_Truncated(t *testing.T) {
	codec := DefaultCodec()

	tests := []struct {
		name    string
		wire    []byte
		wantErr error
	}{
		{name: "пустой поток", wire: nil, wantErr: ErrClosed},
		{name: "обрезанный заголовок", wire: []byte{0x02, 0x00, 0x01}, wantErr: ErrFraming},
		{name: "обрезанный payload", wire: []byte{0x04, 0x00, 0x01, 0x20, 0x00, 0x00, 0xAA}, wantErr: ErrFraming},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := codec.ReadFrame(bytes.NewReader(tt.wire))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCodec_ReadFrame_LegacyMaskIgnoresHighBits(t *testing.T) {
	codec, err := NewCodec(constants.LengthMaskLegacy)
	require.NoError(t, err)

	// Биты 11..14 не входят в длину при маске 0x07FF.
	wire := []byte{0x03, 0x78, 0x01, 0x61, 0x00, 0x00, 1, 2, 3}
	h, payload, err := codec.ReadFrame(bytes.NewReader(wire))
	require.NoError(t, err)
	assert.False(t, h.Encrypted())
	assert.Equal(t, []byte{1, 2, 3}, payload)
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

func TestCodec_ReadFrame_TransportError(t *testing.T) {
	_, _, err := DefaultCodec().ReadFrame(errReader{err: io.ErrClosedPipe})
	require.ErrorIs(t, err, io.ErrClosedPipe)
	assert.NotErrorIs(t, err, ErrFraming)
}

func TestPacket_CopiesPayload(t *testing.T) {
	src := []byte{1, 2, 3}
	p := NewPacket(0x2001, src)
	src[0] = 0xFF

	assert.Equal(t, byte(1), p.Payload[0])
	assert.Equal(t, "[2001] 3 bytes", p.String())

	v, err := p.Reader().ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(1), v)
}
