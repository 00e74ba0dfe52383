package server

import (
	"bufio"
	"bytes"
	"net"

	"github.com/omochice/turn-chat/pkg/protocol"
)

type protocolType int

const (
	protocolTCP protocolType = iota
	protocolWebSocket
)

// String returns the string representation of protocolType
func (p protocolType) String() string {
	if p == protocolWebSocket {
		return "websocket"
	}
	return "tcp"
}

var handshakePrefix = []byte(protocol.HandshakePrefix)

// detectProtocol peeks at the first bytes to determine protocol type.
// It blocks only for the first read: a chat frame may be shorter than the
// handshake prefix and its sender waits for a reply before writing again.
func detectProtocol(conn net.Conn) (protocolType, *bufio.Reader, error) {
	reader := bufio.NewReaderSize(conn, 4096)

	if _, err := reader.Peek(1); err != nil {
		return protocolTCP, reader, err
	}

	n := min(reader.Buffered(), len(handshakePrefix))
	peek, _ := reader.Peek(n)
	if bytes.Equal(peek, handshakePrefix) {
		return protocolWebSocket, reader, nil
	}
	return protocolTCP, reader, nil
}
