package chat_test

import (
	"context"
	"io"
	"sync"

	"github.com/omochice/turn-chat/internal/chat"
)

// mockConn is a mock implementation of chat.Conn for testing.
type mockConn struct {
	readCh     chan []byte
	readErr    error
	reads      int
	writtenMu  sync.Mutex
	written    [][]byte
	writeErr   error
	closed     bool
	remoteAddr string
}

func newMockConn(addr string, frames ...string) *mockConn {
	m := &mockConn{
		readCh:     make(chan []byte, len(frames)),
		remoteAddr: addr,
	}
	for _, f := range frames {
		m.readCh <- []byte(f)
	}
	close(m.readCh)
	return m
}

func (m *mockConn) Read(ctx context.Context) ([]byte, error) {
	m.reads++
	if m.readErr != nil {
		return nil, m.readErr
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case data, ok := <-m.readCh:
		if !ok {
			return nil, io.EOF
		}
		return data, nil
	}
}

func (m *mockConn) Write(ctx context.Context, data []byte) error {
	m.writtenMu.Lock()
	defer m.writtenMu.Unlock()
	copied := make([]byte, len(data))
	copy(copied, data)
	m.written = append(m.written, copied)
	return m.writeErr
}

func (m *mockConn) Close() error {
	m.closed = true
	return nil
}

func (m *mockConn) RemoteAddr() string {
	return m.remoteAddr
}

func (m *mockConn) GetWritten() []string {
	m.writtenMu.Lock()
	defer m.writtenMu.Unlock()
	out := make([]string, 0, len(m.written))
	for _, w := range m.written {
		out = append(out, string(w))
	}
	return out
}

// Compile-time check that mockConn implements chat.Conn
var _ chat.Conn = (*mockConn)(nil)
