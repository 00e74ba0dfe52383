// Package protocol defines the handle-prefixed text frames exchanged by chat peers.
package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxFrameSize is the largest frame, prefix included, that may be sent.
	MaxFrameSize = 512
	// MaxReadSize is the most bytes a client reads for one inbound frame.
	MaxReadSize = MaxFrameSize - 1
	// MaxHandleLength is the maximum number of characters in a handle.
	MaxHandleLength = 10
	// Delimiter separates the handle from the message body.
	Delimiter = '>'
	// QuitToken is the message body that ends a session.
	QuitToken = `\quit`
	// HandshakePrefix starts every WebSocket opening handshake.
	HandshakePrefix = "GET "
)

var (
	// ErrInvalidHandle is returned when a handle is empty, too long, contains
	// the delimiter or control characters, or starts with HandshakePrefix.
	ErrInvalidHandle = errors.New("invalid handle")
	// ErrFrameTooLarge is returned when a frame exceeds MaxFrameSize.
	ErrFrameTooLarge = errors.New("frame too large")
	// ErrMissingDelimiter is returned when a frame has no handle delimiter.
	ErrMissingDelimiter = errors.New("frame has no handle delimiter")
)

// Handle is a validated sender identifier.
type Handle struct {
	name string
}

// NewHandle validates name and returns it as a Handle.
// A single trailing line terminator is ignored.
func NewHandle(name string) (Handle, error) {
	name = TrimLineTerminator(name)
	n := utf8.RuneCountInString(name)
	if n == 0 || n > MaxHandleLength {
		return Handle{}, fmt.Errorf("%w: must be 1 to %d characters, got %d", ErrInvalidHandle, MaxHandleLength, n)
	}
	for _, r := range name {
		if r == Delimiter || unicode.IsControl(r) {
			return Handle{}, fmt.Errorf("%w: character %q not allowed", ErrInvalidHandle, r)
		}
	}
	// Frames from such a handle would read as a WebSocket handshake.
	if strings.HasPrefix(name, HandshakePrefix) {
		return Handle{}, fmt.Errorf("%w: must not start with %q", ErrInvalidHandle, HandshakePrefix)
	}
	return Handle{name: name}, nil
}

// String returns the bare handle.
func (h Handle) String() string {
	return h.name
}

// Prefix returns the handle with the delimiter appended.
func (h Handle) Prefix() string {
	return h.name + string(Delimiter)
}

// IsZero reports whether h was never set.
func (h Handle) IsZero() bool {
	return h.name == ""
}

// MaxBodyLength returns the largest body that fits in a frame sent under h.
func (h Handle) MaxBodyLength() int {
	return MaxFrameSize - len(h.Prefix())
}

// Message represents a chat message
type Message struct {
	Handle string
	Body   string
}

// Compose builds a message from a handle and a raw line of input.
func Compose(h Handle, body string) (Message, error) {
	if h.IsZero() {
		return Message{}, ErrInvalidHandle
	}
	if len(body) > h.MaxBodyLength() {
		return Message{}, fmt.Errorf("%w: %d bytes, limit %d", ErrFrameTooLarge, len(h.Prefix())+len(body), MaxFrameSize)
	}
	return Message{Handle: h.String(), Body: body}, nil
}

// Encode encodes the message into a single frame
func (m *Message) Encode() ([]byte, error) {
	size := len(m.Handle) + 1 + len(m.Body)
	if size > MaxFrameSize {
		return nil, fmt.Errorf("failed to encode message: %w: %d bytes", ErrFrameTooLarge, size)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, m.Handle...)
	buf = append(buf, Delimiter)
	buf = append(buf, m.Body...)
	return buf, nil
}

// Decode decodes a received frame into a message.
// Text ends at the first NUL byte; peers that pad frames with NULs are accepted.
func (m *Message) Decode(data []byte) error {
	if len(data) > MaxFrameSize {
		return fmt.Errorf("failed to decode message: %w: %d bytes", ErrFrameTooLarge, len(data))
	}
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	i := bytes.IndexByte(data, Delimiter)
	if i < 0 {
		return fmt.Errorf("failed to decode message: %w", ErrMissingDelimiter)
	}
	m.Handle = string(data[:i])
	m.Body = string(data[i+1:])
	return nil
}

// IsQuit reports whether the message body is the termination token.
func (m Message) IsQuit() bool {
	return IsQuit(m.Body)
}

// Text returns the message as displayed, without a trailing line terminator.
func (m Message) Text() string {
	return m.Handle + string(Delimiter) + TrimLineTerminator(m.Body)
}

// IsQuit reports whether body, minus one trailing line terminator, is QuitToken.
func IsQuit(body string) bool {
	return TrimLineTerminator(body) == QuitToken
}

// TrimLineTerminator removes one trailing "\n" or "\r\n".
func TrimLineTerminator(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}
