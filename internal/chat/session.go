package chat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/omochice/turn-chat/pkg/protocol"
)

// Role decides which side of the conversation takes the first turn.
type Role int

const (
	// Initiator sends first. Clients are initiators.
	Initiator Role = iota
	// Responder receives first.
	Responder
)

// String returns the string representation of Role
func (r Role) String() string {
	switch r {
	case Initiator:
		return "INITIATOR"
	case Responder:
		return "RESPONDER"
	default:
		return "UNKNOWN"
	}
}

// State is the position of a Session in the send/receive alternation.
type State int

const (
	StateAwaitingSend State = iota
	StateAwaitingReceive
	StateClosed
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case StateAwaitingSend:
		return "AWAITING_SEND"
	case StateAwaitingReceive:
		return "AWAITING_RECEIVE"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Option configures a Session.
type Option func(*Session)

// WithInput sets the operator input source. Defaults to os.Stdin.
func WithInput(r io.Reader) Option {
	return func(s *Session) {
		s.input = bufio.NewReader(r)
	}
}

// WithOutput sets where prompts and inbound messages are written. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(s *Session) {
		s.output = w
	}
}

// WithLogger sets the session logger. Defaults to a disabled logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// minMaxFrame is the smallest frame that carries a quit under any handle.
const minMaxFrame = protocol.MaxHandleLength + 1 + len(protocol.QuitToken) + 1

// WithMaxFrame caps the size of frames this session sends, prefix included.
// Values below what a quit frame needs, or above protocol.MaxFrameSize, are ignored.
func WithMaxFrame(n int) Option {
	return func(s *Session) {
		if n >= minMaxFrame && n <= protocol.MaxFrameSize {
			s.maxFrame = n
		}
	}
}

// Session drives one half-duplex conversation over a Conn.
// Exactly one send or receive is in flight at a time, so a Session is not
// safe for concurrent use and needs no locking.
type Session struct {
	conn   Conn
	handle protocol.Handle
	role   Role
	state  State

	maxFrame int

	input  *bufio.Reader
	output io.Writer
	logger zerolog.Logger
}

// NewSession creates a Session that speaks as handle over conn.
func NewSession(conn Conn, handle protocol.Handle, role Role, opts ...Option) *Session {
	s := &Session{
		conn:     conn,
		handle:   handle,
		role:     role,
		state:    StateAwaitingSend,
		maxFrame: protocol.MaxFrameSize,
		input:    bufio.NewReader(os.Stdin),
		output:   os.Stdout,
		logger:   zerolog.Nop(),
	}
	if role == Responder {
		s.state = StateAwaitingReceive
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// State returns the current session state.
func (s *Session) State() State {
	return s.state
}

// Run alternates turns until either side quits or a fatal error occurs.
// The connection is left open; closing it is the caller's job.
func (s *Session) Run(ctx context.Context) error {
	s.logger.Debug().Str("role", s.role.String()).Str("peer", s.conn.RemoteAddr()).Msg("session started")
	for {
		var err error
		switch s.state {
		case StateAwaitingSend:
			_, err = s.SendTurn(ctx)
		case StateAwaitingReceive:
			_, err = s.ReceiveTurn(ctx)
		case StateClosed:
			s.logger.Debug().Msg("session closed")
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// SendTurn reads one line from the operator and sends it as a frame.
// It reports whether the line was the termination token. A failed write is
// logged and otherwise ignored; the quit decision still applies.
func (s *Session) SendTurn(ctx context.Context) (bool, error) {
	if s.state != StateAwaitingSend {
		return false, fmt.Errorf("send in state %s: %w", s.state, ErrOutOfTurn)
	}

	msg, err := s.readMessage()
	if err != nil {
		return false, err
	}

	data, err := msg.Encode()
	if err != nil {
		return false, err
	}
	if err := s.conn.Write(ctx, data); err != nil {
		s.logger.Warn().Err(&TransportError{Op: "send", Err: err}).Msg("message not delivered")
	}

	if msg.IsQuit() {
		s.state = StateClosed
		return true, nil
	}
	s.state = StateAwaitingReceive
	return false, nil
}

// readMessage prompts until the operator enters a line that fits in a frame.
// End of input is treated as a quit request.
func (s *Session) readMessage() (protocol.Message, error) {
	for {
		fmt.Fprint(s.output, s.handle.Prefix())
		line, err := s.input.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return protocol.Message{}, fmt.Errorf("failed to read input: %w", err)
			}
			if line == "" {
				fmt.Fprintln(s.output)
				s.logger.Debug().Msg("input closed, sending quit")
				line = protocol.QuitToken + "\n"
			}
		}

		limit := s.maxFrame - len(s.handle.Prefix())
		if len(line) > limit {
			fmt.Fprintf(s.output, "Message too long, limit is %d characters\n", limit-1)
			continue
		}
		return protocol.Compose(s.handle, line)
	}
}

// ReceiveTurn waits for one frame from the peer and displays it.
// It reports whether the peer sent the termination token. Read failures and
// malformed frames close the session and are returned.
func (s *Session) ReceiveTurn(ctx context.Context) (bool, error) {
	if s.state != StateAwaitingReceive {
		return false, fmt.Errorf("receive in state %s: %w", s.state, ErrOutOfTurn)
	}

	data, err := s.conn.Read(ctx)
	if err != nil {
		s.state = StateClosed
		return false, &TransportError{Op: "receive", Err: err}
	}

	var msg protocol.Message
	if err := msg.Decode(data); err != nil {
		s.state = StateClosed
		return false, &ProtocolViolationError{Frame: data, Err: err}
	}

	if msg.IsQuit() {
		fmt.Fprintf(s.output, "%s has closed the connection\n", msg.Handle)
		s.state = StateClosed
		return true, nil
	}

	fmt.Fprintln(s.output, msg.Text())
	s.state = StateAwaitingSend
	return false, nil
}
