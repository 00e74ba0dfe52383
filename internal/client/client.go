// Package client runs the initiating side of a chat: it picks a handle,
// connects to the peer and takes the first turn.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/omochice/turn-chat/internal/chat"
	"github.com/omochice/turn-chat/internal/config"
	"github.com/omochice/turn-chat/internal/connector"
	"github.com/omochice/turn-chat/internal/transport/tcp"
	"github.com/omochice/turn-chat/internal/transport/ws"
	"github.com/omochice/turn-chat/pkg/protocol"
)

// HandlePrompt asks the operator for a handle when none is configured.
const HandlePrompt = "What do you want as your handle? (Max of 10 characters) "

// Option configures a Client.
type Option func(*Client)

// WithInput sets the operator input source. Defaults to os.Stdin.
func WithInput(r io.Reader) Option {
	return func(c *Client) {
		c.input = bufio.NewReader(r)
	}
}

// WithOutput sets where prompts and messages are written. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(c *Client) {
		c.output = w
	}
}

// WithLogger sets the logger for connection diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithConnector replaces the connector built from the configuration.
func WithConnector(conn *connector.Connector) Option {
	return func(c *Client) {
		c.connector = conn
	}
}

// Client represents a chat client
type Client struct {
	cfg       config.ClientConfig
	connector *connector.Connector
	input     *bufio.Reader
	output    io.Writer
	logger    zerolog.Logger
}

// New creates a new Client instance
func New(cfg config.ClientConfig, opts ...Option) *Client {
	c := &Client{
		cfg:    cfg,
		input:  bufio.NewReader(os.Stdin),
		output: os.Stdout,
		logger: zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.connector == nil {
		c.connector = connector.New(
			connector.WithDialer(dialerFor(cfg)),
			connector.WithLogger(c.logger),
		)
	}
	return c
}

func dialerFor(cfg config.ClientConfig) connector.Dialer {
	if cfg.Transport == config.TransportWebSocket {
		return ws.Dialer{Path: cfg.WSPath}
	}
	return tcp.Dialer{}
}

// Run captures the handle, connects and chats until either side quits.
// The connection is closed on every return path.
func (c *Client) Run(ctx context.Context) error {
	handle, err := c.captureHandle()
	if err != nil {
		return err
	}

	conn, err := c.connector.Connect(ctx, c.cfg.Host, c.cfg.Port)
	if err != nil {
		return err
	}
	defer func() {
		if err := conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("close failed")
		}
	}()

	session := chat.NewSession(conn, handle, chat.Initiator,
		chat.WithInput(c.input),
		chat.WithOutput(c.output),
		chat.WithLogger(c.logger),
	)
	if err := session.Run(ctx); err != nil {
		return fmt.Errorf("chat with %s failed: %w", conn.RemoteAddr(), err)
	}
	return nil
}

// captureHandle returns the configured handle or prompts until a valid one is entered.
func (c *Client) captureHandle() (protocol.Handle, error) {
	if c.cfg.Handle != "" {
		return protocol.NewHandle(c.cfg.Handle)
	}
	for {
		fmt.Fprint(c.output, HandlePrompt)
		line, err := c.input.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return protocol.Handle{}, fmt.Errorf("failed to read handle: %w", err)
		}
		handle, err := protocol.NewHandle(line)
		if err != nil {
			fmt.Fprintf(c.output, "Invalid handle: %v\n", err)
			continue
		}
		fmt.Fprintf(c.output, "You chose %s\n", handle)
		return handle, nil
	}
}
