package gateway

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/silkgo/internal/constants"
	"github.com/udisondev/silkgo/internal/protocol"
	"github.com/udisondev/silkgo/internal/protocol/packet"
	"github.com/udisondev/silkgo/internal/stream"
	"github.com/udisondev/silkgo/internal/testutil"
)

// fakeConn: Conn поверх каналов.
type fakeConn struct {
	in chan protocol.Packet

	mu  sync.Mutex
	out []protocol.Packet
	err error
}

func newFakeConn() *fakeConn {
	return &fakeConn{in: make(chan protocol.Packet, 16)}
}

func (c *fakeConn) Read(ctx context.Context) (protocol.Packet, error) {
	select {
	case p := <-c.in:
		return p, nil
	case <-ctx.Done():
		return protocol.Packet{}, ctx.Err()
	}
}

func (c *fakeConn) Write(p protocol.Packet) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.out = append(c.out, p)
	return nil
}

func (c *fakeConn) written() []protocol.Packet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.Packet(nil), c.out...)
}

func serverListPayload(t *testing.T) []byte {
	t.Helper()

	w := packet.NewWriter(64)
	require.NoError(t, w.WriteByte(1))
	require.NoError(t, w.WriteByte(1))
	require.NoError(t, w.WriteString16("Europe"))
	require.NoError(t, w.WriteByte(0))

	shards := []Shard{
		{ID: 0x40, Name: "Alpha", Current: 120, Max: 1000, State: 1},
		{ID: 0x41, Name: "Beta", Current: 0, Max: 1000, State: 0},
	}
	for _, s := range shards {
		require.NoError(t, w.WriteByte(1))
		w.WriteUint16(s.ID)
		require.NoError(t, w.WriteString16(s.Name))
		w.WriteUint16(s.Current)
		w.WriteUint16(s.Max)
		require.NoError(t, w.WriteByte(s.State))
	}
	require.NoError(t, w.WriteByte(0))
	return w.Bytes()
}

func TestIdentityPayload(t *testing.T) {
	got, err := IdentityPayload("SR_Client", 0)
	require.NoError(t, err)

	want := []byte{0x09, 0x00, 'S', 'R', '_', 'C', 'l', 'i', 'e', 'n', 't', 0x00}
	assert.Equal(t, want, got)

	name, err := ParseIdentity(got)
	require.NoError(t, err)
	assert.Equal(t, "SR_Client", name)
}

func TestParseIdentity_Malformed(t *testing.T) {
	_, err := ParseIdentity([]byte{0x05, 0x00, 'a'})
	require.ErrorIs(t, err, ErrMalformed)
}

func TestIdentify(t *testing.T) {
	c := newFakeConn()
	serverIdent, err := IdentityPayload("GatewayServer", 0)
	require.NoError(t, err)

	c.in <- protocol.NewPacket(0x3013, nil)
	c.in <- protocol.NewPacket(constants.MsgIdentity, serverIdent)

	name, err := Identify(testutil.ContextWithTimeout(t, time.Second), c, "SR_Client", 0x16)
	require.NoError(t, err)
	assert.Equal(t, "GatewayServer", name)

	out := c.written()
	require.Len(t, out, 1)
	assert.Equal(t, constants.MsgIdentity, out[0].ID)
	assert.Equal(t, byte(0x16), out[0].Payload[len(out[0].Payload)-1])
}

func TestIdentify_WriteError(t *testing.T) {
	c := newFakeConn()
	c.err = testutil.ErrSimulated

	_, err := Identify(testutil.ContextWithTimeout(t, time.Second), c, "SR_Client", 0)
	require.ErrorIs(t, err, testutil.ErrSimulated)
}

func TestParseServerList(t *testing.T) {
	list, err := ParseServerList(serverListPayload(t))
	require.NoError(t, err)

	assert.Equal(t, []Farm{{ID: 1, Name: "Europe"}}, list.Farms)
	assert.Equal(t, []Shard{
		{ID: 0x40, Name: "Alpha", Current: 120, Max: 1000, State: 1},
		{ID: 0x41, Name: "Beta", Current: 0, Max: 1000, State: 0},
	}, list.Shards)
	assert.True(t, list.Shards[0].Online())
	assert.False(t, list.Shards[1].Online())
}

func TestParseServerList_Empty(t *testing.T) {
	list, err := ParseServerList([]byte{0x00, 0x00})
	require.NoError(t, err)
	assert.Empty(t, list.Farms)
	assert.Empty(t, list.Shards)
}

func TestParseServerList_Truncated(t *testing.T) {
	full := serverListPayload(t)

	// Любое обрезание до последнего байта ломает разбор.
	for n := range len(full) - 1 {
		_, err := ParseServerList(full[:n])
		require.ErrorIs(t, err, ErrMalformed, "prefix of %d bytes", n)
	}
}

func TestPoll(t *testing.T) {
	c := newFakeConn()
	ctx, cancel := testutil.ContextWithCancel(t)

	lists := make(chan ServerList, 4)
	done := make(chan error, 1)
	go func() {
		done <- Poll(ctx, c, 10*time.Millisecond, func(l ServerList) { lists <- l })
	}()

	c.in <- protocol.NewPacket(0x3013, nil)
	c.in <- protocol.NewPacket(constants.MsgServerListResponse, serverListPayload(t))

	select {
	case l := <-lists:
		require.Len(t, l.Shards, 2)
	case <-time.After(time.Second):
		t.Fatal("no server list delivered")
	}

	require.Eventually(t, func() bool { return len(c.written()) >= 2 }, time.Second, 5*time.Millisecond)
	for _, p := range c.written() {
		assert.Equal(t, constants.MsgServerListRequest, p.ID)
	}

	cancel()
	require.NoError(t, <-done)
}

func TestPoll_MalformedList(t *testing.T) {
	c := newFakeConn()
	c.in <- protocol.NewPacket(constants.MsgServerListResponse, []byte{0x01})

	err := Poll(testutil.ContextWithTimeout(t, time.Second), c, time.Hour, func(ServerList) {})
	require.ErrorIs(t, err, ErrMalformed)
}

func TestPoll_InvalidInterval(t *testing.T) {
	err := Poll(context.Background(), newFakeConn(), 0, func(ServerList) {})
	require.Error(t, err)
}

// Полный сценарий поверх настоящего Stream: handshake, identity, server list.
func TestGateway_OverStream(t *testing.T) {
	client, server := testutil.PipeConn(t)
	s := stream.New(client, stream.WithKeepAliveInterval(time.Hour))
	t.Cleanup(func() { _ = s.Close() })
	gw := testutil.NewGatewayServer(server)
	listPayload := serverListPayload(t)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- func() error {
			if err := gw.Handshake(); err != nil {
				return err
			}
			ident, err := gw.Receive()
			if err != nil {
				return err
			}
			if ident.ID != constants.MsgIdentity {
				return assert.AnError
			}
			reply, err := IdentityPayload("GatewayServer", 0)
			if err != nil {
				return err
			}
			if err := gw.Send(protocol.NewPacket(constants.MsgIdentity, reply)); err != nil {
				return err
			}
			req, err := gw.Receive()
			if err != nil {
				return err
			}
			if req.ID != constants.MsgServerListRequest {
				return assert.AnError
			}
			return gw.Send(protocol.NewPacket(constants.MsgServerListResponse, listPayload))
		}()
	}()

	ctx := testutil.ContextWithTimeout(t, 5*time.Second)
	require.NoError(t, s.Authenticate(ctx))

	name, err := Identify(ctx, s, "SR_Client", 0)
	require.NoError(t, err)
	assert.Equal(t, "GatewayServer", name)

	require.NoError(t, RequestServerList(s))
	p, err := s.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, constants.MsgServerListResponse, p.ID)

	list, err := ParseServerList(p.Payload)
	require.NoError(t, err)
	assert.Len(t, list.Shards, 2)

	require.NoError(t, <-serverErr)
}
