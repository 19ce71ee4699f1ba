package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/silkgo/internal/constants"
	"github.com/udisondev/silkgo/internal/stream"
)

func TestStreamObserver(t *testing.T) {
	reg := NewRegistry()
	o := NewStreamObserver(reg)

	o.Frame(stream.DirectionOut, constants.MsgKeepAlive, 6)
	o.Frame(stream.DirectionOut, constants.MsgKeepAlive, 6)
	o.Frame(stream.DirectionIn, constants.MsgServerListResponse, 40)
	o.Handshake(stream.HandshakeResultOK, 15*time.Millisecond)
	o.KeepAlive()
	o.Close(stream.CloseReasonPeerClosed)

	assert.Equal(t, 2.0, testutil.ToFloat64(o.framesTotal.WithLabelValues("out", "2002")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.framesTotal.WithLabelValues("in", "A101")))
	assert.Equal(t, 12.0, testutil.ToFloat64(o.bytesTotal.WithLabelValues("out")))
	assert.Equal(t, 40.0, testutil.ToFloat64(o.bytesTotal.WithLabelValues("in")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.handshakeTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.keepAliveTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.closeTotal.WithLabelValues("peer_closed")))
	assert.Equal(t, 1, testutil.CollectAndCount(o.handshakeLatency))
}

func TestHandler(t *testing.T) {
	reg := NewRegistry()
	o := NewStreamObserver(reg)
	o.KeepAlive()

	srv := httptest.NewServer(Handler(reg))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)

	err = testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP silkgo_stream_keepalive_total Keep-alive frames sent.
# TYPE silkgo_stream_keepalive_total counter
silkgo_stream_keepalive_total 1
`), "silkgo_stream_keepalive_total")
	require.NoError(t, err)
}
