// Package server implements the responding side of a chat: it accepts one
// client at a time, lets it speak first and answers from the local operator.
package server

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/omochice/turn-chat/internal/chat"
	"github.com/omochice/turn-chat/internal/transport/tcp"
	"github.com/omochice/turn-chat/internal/transport/ws"
	"github.com/omochice/turn-chat/pkg/protocol"
)

// Option configures a Server.
type Option func(*Server)

// WithInput sets the operator input source. Defaults to os.Stdin.
func WithInput(r io.Reader) Option {
	return func(s *Server) {
		s.input = bufio.NewReader(r)
	}
}

// WithOutput sets where prompts and client messages are written. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(s *Server) {
		s.output = w
	}
}

// WithLogger sets the server logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// Server represents a chat server that serves one client at a time
type Server struct {
	address string
	handle  protocol.Handle
	input   *bufio.Reader
	output  io.Writer
	logger  zerolog.Logger

	mu       sync.Mutex
	listener net.Listener
	active   chat.Conn
	quit     chan struct{}
}

// New creates a new Server instance speaking as handle
func New(address string, handle protocol.Handle, opts ...Option) *Server {
	s := &Server{
		address: address,
		handle:  handle,
		input:   bufio.NewReader(os.Stdin),
		output:  os.Stdout,
		logger:  zerolog.Nop(),
		quit:    make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start listens and serves clients one after another until Stop is called.
// It returns nil after Stop.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	s.mu.Lock()
	select {
	case <-s.quit:
		s.mu.Unlock()
		listener.Close()
		return nil
	default:
	}
	s.listener = listener
	s.mu.Unlock()

	s.logger.Info().Str("addr", listener.Addr().String()).Msg("server started")

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return nil
			default:
				s.logger.Error().Err(err).Msg("failed to accept connection")
				continue
			}
		}
		s.serve(conn)
	}
}

// Stop closes the listener and the active client connection.
// A session blocked on operator input finishes its turn before Start returns.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.quit:
		return
	default:
		close(s.quit)
	}
	if s.listener != nil {
		s.listener.Close()
	}
	if s.active != nil {
		s.active.Close()
	}
}

// Addr returns the server's listening address
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// serve runs one chat session on conn and closes it.
func (s *Server) serve(conn net.Conn) {
	logger := s.logger.With().
		Str("session", uuid.NewString()).
		Str("peer", conn.RemoteAddr().String()).
		Logger()

	c, err := s.accept(conn)
	if err != nil {
		logger.Warn().Err(err).Msg("dropping connection")
		conn.Close()
		return
	}
	s.setActive(c)
	defer func() {
		s.setActive(nil)
		c.Close()
	}()

	// Clients read at most protocol.MaxReadSize bytes per frame.
	session := chat.NewSession(c, s.handle, chat.Responder,
		chat.WithInput(s.input),
		chat.WithOutput(s.output),
		chat.WithLogger(logger),
		chat.WithMaxFrame(protocol.MaxReadSize),
	)
	if err := session.Run(context.Background()); err != nil {
		logger.Warn().Err(err).Msg("session ended with error")
	}
	fmt.Fprintln(s.output, "Client has disconnected")
}

// accept wraps conn in the transport its first bytes ask for.
func (s *Server) accept(conn net.Conn) (chat.Conn, error) {
	proto, reader, err := detectProtocol(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to detect protocol: %w", err)
	}
	s.logger.Debug().Str("transport", proto.String()).Str("peer", conn.RemoteAddr().String()).Msg("client connected")

	if proto == protocolWebSocket {
		wc, err := ws.Accept(conn, reader, protocol.MaxFrameSize)
		if err != nil {
			return nil, err
		}
		return wc, nil
	}
	return tcp.NewConnWithReader(conn, reader, protocol.MaxFrameSize), nil
}

func (s *Server) setActive(c chat.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = c
}
