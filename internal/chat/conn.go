// Package chat implements the turn-taking conversation shared by both ends of a chat.
package chat

import "context"

// Conn abstracts a bidirectional connection for both TCP and WebSocket.
// A Conn is owned by exactly one Session and must not be used after Close.
type Conn interface {
	// Read reads a single message frame.
	// Returns io.EOF when connection is closed.
	Read(ctx context.Context) ([]byte, error)

	// Write sends a single message frame in one transport write.
	Write(ctx context.Context, data []byte) error

	// Close closes the connection.
	Close() error

	// RemoteAddr returns the remote address for logging.
	RemoteAddr() string
}
