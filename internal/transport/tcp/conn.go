// Package tcp provides TCP transport implementation for chat sessions.
package tcp

import (
	"context"
	"io"
	"net"

	"github.com/omochice/turn-chat/internal/chat"
	"github.com/omochice/turn-chat/pkg/protocol"
)

// Conn adapts net.Conn to chat.Conn interface.
// Each Read returns what one read call delivers, capped at the read limit.
type Conn struct {
	conn    net.Conn
	reader  io.Reader
	maxRead int
}

// NewConn wraps a net.Conn. maxRead bounds a single frame read;
// values <= 0 mean protocol.MaxReadSize.
func NewConn(conn net.Conn, maxRead int) *Conn {
	return NewConnWithReader(conn, conn, maxRead)
}

// NewConnWithReader wraps a net.Conn whose leading bytes have already been
// buffered by reader, e.g. after protocol detection.
func NewConnWithReader(conn net.Conn, reader io.Reader, maxRead int) *Conn {
	if maxRead <= 0 {
		maxRead = protocol.MaxReadSize
	}
	return &Conn{conn: conn, reader: reader, maxRead: maxRead}
}

// Read implements chat.Conn.
// Reads available bytes from the TCP connection.
func (c *Conn) Read(ctx context.Context) ([]byte, error) {
	buf := make([]byte, c.maxRead)
	n, err := c.reader.Read(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// Write implements chat.Conn.
func (c *Conn) Write(ctx context.Context, data []byte) error {
	_, err := c.conn.Write(data)
	return err
}

// Close implements chat.Conn.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// RemoteAddr implements chat.Conn.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// Dialer opens plain TCP chat connections.
type Dialer struct {
	// MaxRead bounds a single frame read. Zero means protocol.MaxReadSize.
	MaxRead int
}

// Dial connects to address. No timeout is applied beyond ctx.
func (d Dialer) Dial(ctx context.Context, address string) (chat.Conn, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}
	return NewConn(conn, d.MaxRead), nil
}
