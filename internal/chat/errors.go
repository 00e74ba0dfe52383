package chat

import (
	"errors"
	"fmt"
)

// ErrOutOfTurn is returned when a turn is taken in the wrong session state.
var ErrOutOfTurn = errors.New("operation out of turn")

// TransportError reports a failed read or write on the session connection.
// Send failures are logged and the session continues; receive failures end it.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolViolationError reports a received frame that is not a handle-prefixed message.
type ProtocolViolationError struct {
	Frame []byte
	Err   error
}

func (e *ProtocolViolationError) Error() string {
	return fmt.Sprintf("protocol violation: %v (frame %q)", e.Err, e.Frame)
}

func (e *ProtocolViolationError) Unwrap() error {
	return e.Err
}
