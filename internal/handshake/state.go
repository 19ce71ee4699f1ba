package handshake

import "fmt"

// State: состояние клиентского handshake.
// Переходы монотонны: NONE → WAIT_SETUP → WAIT_CHALLENGE → DONE.
type State int32

const (
	StateNone State = iota
	StateWaitSetup
	StateWaitChallenge
	StateDone
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "NONE"
	case StateWaitSetup:
		return "CLIENT_WAIT_SETUP"
	case StateWaitChallenge:
		return "CLIENT_WAIT_CHALLENGE"
	case StateDone:
		return "DONE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}
