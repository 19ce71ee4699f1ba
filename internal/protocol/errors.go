package protocol

import "errors"

// Connection-fatal errors. The protocol has no resynchronization, so any of these
// aborts the connection.
var (
	// ErrFraming: length/payload mismatch or a truncated frame.
	ErrFraming = errors.New("framing error")

	// ErrProtocolViolation: unexpected handshake flag or state, encrypted traffic before authentication.
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrAuthenticationFailed: the server challenge does not match the derived keys.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrClosed: the connection was closed locally or by the peer.
	ErrClosed = errors.New("connection closed")
)
