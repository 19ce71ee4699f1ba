package stream

import (
	"context"
	"errors"
	"time"

	"github.com/udisondev/silkgo/internal/crypto"
	"github.com/udisondev/silkgo/internal/protocol"
)

type HandshakeResult string

const (
	HandshakeResultOK         HandshakeResult = "ok"
	HandshakeResultAuthFailed HandshakeResult = "auth_failed"
	HandshakeResultViolation  HandshakeResult = "protocol_violation"
	HandshakeResultError      HandshakeResult = "error"
)

type CloseReason string

const (
	CloseReasonLocal             CloseReason = "local"
	CloseReasonPeerClosed        CloseReason = "peer_closed"
	CloseReasonFraming           CloseReason = "framing"
	CloseReasonProtocolViolation CloseReason = "protocol_violation"
	CloseReasonAuthFailed        CloseReason = "auth_failed"
	CloseReasonCanceled          CloseReason = "canceled"
	CloseReasonIOError           CloseReason = "io_error"
)

type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// Observer receives stream-level metric events.
type Observer interface {
	Frame(dir Direction, id uint16, size int)
	Handshake(result HandshakeResult, d time.Duration)
	KeepAlive()
	Close(reason CloseReason)
}

type noopObserver struct{}

func (noopObserver) Frame(Direction, uint16, int)             {}
func (noopObserver) Handshake(HandshakeResult, time.Duration) {}
func (noopObserver) KeepAlive()                               {}
func (noopObserver) Close(CloseReason)                        {}

// NoopObserver is used when metrics are disabled.
var NoopObserver Observer = noopObserver{}

func handshakeResult(err error) HandshakeResult {
	switch {
	case err == nil:
		return HandshakeResultOK
	case errors.Is(err, protocol.ErrAuthenticationFailed):
		return HandshakeResultAuthFailed
	case errors.Is(err, protocol.ErrProtocolViolation):
		return HandshakeResultViolation
	default:
		return HandshakeResultError
	}
}

func closeReason(err error) CloseReason {
	switch {
	case errors.Is(err, errLocalClose):
		return CloseReasonLocal
	case errors.Is(err, protocol.ErrClosed):
		return CloseReasonPeerClosed
	case errors.Is(err, protocol.ErrFraming), errors.Is(err, crypto.ErrInvalidBlockLength):
		return CloseReasonFraming
	case errors.Is(err, protocol.ErrProtocolViolation):
		return CloseReasonProtocolViolation
	case errors.Is(err, protocol.ErrAuthenticationFailed):
		return CloseReasonAuthFailed
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CloseReasonCanceled
	default:
		return CloseReasonIOError
	}
}
