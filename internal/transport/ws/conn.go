// Package ws provides WebSocket transport implementation for chat sessions.
// Every chat frame travels as one WebSocket text message.
package ws

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/url"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/omochice/turn-chat/internal/chat"
	"github.com/omochice/turn-chat/pkg/protocol"
)

// DefaultPath is the request path used when a Dialer has none.
const DefaultPath = "/"

// readWriter reads from a buffered reader and writes to the raw connection.
type readWriter struct {
	io.Reader
	io.Writer
}

// Conn adapts a gobwas/ws connection to chat.Conn interface.
type Conn struct {
	conn    net.Conn
	rw      io.ReadWriter
	state   ws.State
	maxRead int
}

func newConn(conn net.Conn, r io.Reader, state ws.State, maxRead int) *Conn {
	if maxRead <= 0 {
		maxRead = protocol.MaxReadSize
	}
	return &Conn{
		conn:    conn,
		rw:      readWriter{Reader: r, Writer: conn},
		state:   state,
		maxRead: maxRead,
	}
}

// Accept performs the server side of the WebSocket handshake on conn.
// reader may hold bytes already consumed from conn during protocol detection.
func Accept(conn net.Conn, reader io.Reader, maxRead int) (*Conn, error) {
	if reader == nil {
		reader = conn
	}
	rw := readWriter{Reader: reader, Writer: conn}
	if _, err := ws.Upgrade(rw); err != nil {
		return nil, fmt.Errorf("websocket upgrade failed: %w", err)
	}
	return newConn(conn, reader, ws.StateServerSide, maxRead), nil
}

// Read implements chat.Conn.
// Reads one data message; control frames are answered internally.
func (c *Conn) Read(ctx context.Context) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if c.state.ClientSide() {
		data, _, err = wsutil.ReadServerData(c.rw)
	} else {
		data, _, err = wsutil.ReadClientData(c.rw)
	}
	if err != nil {
		return nil, err
	}
	if len(data) > c.maxRead {
		return nil, fmt.Errorf("%w: %d bytes", protocol.ErrFrameTooLarge, len(data))
	}
	return data, nil
}

// Write implements chat.Conn.
func (c *Conn) Write(ctx context.Context, data []byte) error {
	if c.state.ClientSide() {
		return wsutil.WriteClientText(c.conn, data)
	}
	return wsutil.WriteServerText(c.conn, data)
}

// Close implements chat.Conn.
// A close frame is sent before the socket is closed.
func (c *Conn) Close() error {
	if c.state.ClientSide() {
		_ = wsutil.WriteClientMessage(c.conn, ws.OpClose, nil)
	} else {
		_ = wsutil.WriteServerMessage(c.conn, ws.OpClose, nil)
	}
	return c.conn.Close()
}

// RemoteAddr implements chat.Conn.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// Dialer opens WebSocket chat connections.
type Dialer struct {
	// Path is the request path. Empty means DefaultPath.
	Path string
	// MaxRead bounds a single frame read. Zero means protocol.MaxReadSize.
	MaxRead int
}

// Dial performs the WebSocket handshake with the server at address.
func (d Dialer) Dial(ctx context.Context, address string) (chat.Conn, error) {
	path := d.Path
	if path == "" {
		path = DefaultPath
	}
	u := url.URL{Scheme: "ws", Host: address, Path: path}

	conn, br, _, err := ws.Dial(ctx, u.String())
	if err != nil {
		return nil, err
	}

	var r io.Reader = conn
	if br != nil {
		r = br
	}
	return newConn(conn, r, ws.StateClientSide, d.MaxRead), nil
}
