package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/silkgo/internal/config"
	"github.com/udisondev/silkgo/internal/constants"
	"github.com/udisondev/silkgo/internal/gateway"
	"github.com/udisondev/silkgo/internal/metrics"
	"github.com/udisondev/silkgo/internal/protocol"
	"github.com/udisondev/silkgo/internal/stream"
	"github.com/udisondev/silkgo/internal/testutil"
)

func TestMetricsMux(t *testing.T) {
	reg := metrics.NewRegistry()
	metrics.NewStreamObserver(reg).Handshake(stream.HandshakeResultOK, 0)

	srv := httptest.NewServer(metricsMux(reg))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	missing, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	t.Cleanup(func() { _ = missing.Body.Close() })
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestSession(t *testing.T) {
	listener, addr := testutil.ListenTCP(t)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- func() error {
			conn, err := listener.Accept()
			if err != nil {
				return err
			}
			// Соединение живёт до конца теста, иначе клиент увидит EOF раньше cancel.
			t.Cleanup(func() { _ = conn.Close() })

			gw := testutil.NewGatewayServer(conn)
			if err := gw.Handshake(); err != nil {
				return err
			}
			if _, err := gw.Receive(); err != nil {
				return err
			}
			ident, err := gateway.IdentityPayload("GatewayServer", 0)
			if err != nil {
				return err
			}
			if err := gw.Send(protocol.NewPacket(constants.MsgIdentity, ident)); err != nil {
				return err
			}

			// Два запроса списка подряд: poll работает по таймеру.
			for range 2 {
				req, err := gw.Receive()
				if err != nil {
					return err
				}
				if req.ID != constants.MsgServerListRequest {
					return assert.AnError
				}
				if err := gw.Send(protocol.NewPacket(constants.MsgServerListResponse, []byte{0x00, 0x00})); err != nil {
					return err
				}
			}
			return nil
		}()
	}()

	cfg := config.DefaultClient()
	cfg.Address = addr
	cfg.ServerListInterval = 10 * time.Millisecond

	ctx, cancel := testutil.ContextWithCancel(t)
	sessionErr := make(chan error, 1)
	go func() {
		sessionErr <- session(ctx, cfg, []stream.Option{stream.WithKeepAliveInterval(time.Hour)})
	}()

	require.NoError(t, <-serverErr)
	cancel()

	select {
	case err := <-sessionErr:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("session did not stop on cancel")
	}
}
