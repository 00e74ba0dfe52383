package connector_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omochice/turn-chat/internal/chat"
	"github.com/omochice/turn-chat/internal/connector"
)

type fakeResolver struct {
	ips     []string
	port    int
	ipErr   error
	portErr error
	lookups int
}

func (r *fakeResolver) LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error) {
	r.lookups++
	if r.ipErr != nil {
		return nil, r.ipErr
	}
	addrs := make([]net.IPAddr, 0, len(r.ips))
	for _, ip := range r.ips {
		addrs = append(addrs, net.IPAddr{IP: net.ParseIP(ip)})
	}
	return addrs, nil
}

func (r *fakeResolver) LookupPort(ctx context.Context, network, service string) (int, error) {
	if r.portErr != nil {
		return 0, r.portErr
	}
	return r.port, nil
}

// fakeDialer accepts only addresses listed in accept and records every attempt.
type fakeDialer struct {
	accept   map[string]bool
	attempts []string
}

func (d *fakeDialer) Dial(ctx context.Context, address string) (chat.Conn, error) {
	d.attempts = append(d.attempts, address)
	if !d.accept[address] {
		return nil, fmt.Errorf("dial %s: connection refused", address)
	}
	return &stubConn{addr: address}, nil
}

type stubConn struct {
	addr string
}

func (c *stubConn) Read(ctx context.Context) ([]byte, error)    { return nil, errors.New("not implemented") }
func (c *stubConn) Write(ctx context.Context, data []byte) error { return nil }
func (c *stubConn) Close() error                                 { return nil }
func (c *stubConn) RemoteAddr() string                           { return c.addr }

func TestConnector_ConnectSkipsRefusedCandidates(t *testing.T) {
	resolver := &fakeResolver{ips: []string{"::1", "10.0.0.1", "192.0.2.7"}, port: 9999}
	dialer := &fakeDialer{accept: map[string]bool{"192.0.2.7:9999": true}}
	var logs bytes.Buffer
	c := connector.New(
		connector.WithResolver(resolver),
		connector.WithDialer(dialer),
		connector.WithLogger(zerolog.New(&logs)),
	)

	conn, err := c.Connect(context.Background(), "chat.example", "9999")
	require.NoError(t, err)

	assert.Equal(t, "192.0.2.7:9999", conn.RemoteAddr())
	assert.Equal(t, []string{"[::1]:9999", "10.0.0.1:9999", "192.0.2.7:9999"}, dialer.attempts)

	lines := strings.Split(strings.TrimSpace(logs.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], `"level":"warn"`)
	assert.Contains(t, lines[0], `"addr":"[::1]:9999"`)
	assert.Contains(t, lines[1], `"level":"warn"`)
	assert.Contains(t, lines[1], `"addr":"10.0.0.1:9999"`)
	assert.Contains(t, lines[2], `"level":"info"`)
	assert.Contains(t, lines[2], `"family":"ipv4"`)
	assert.Contains(t, lines[2], `"message":"connecting to 192.0.2.7"`)
}

func TestConnector_ConnectStopsAtFirstSuccess(t *testing.T) {
	resolver := &fakeResolver{ips: []string{"127.0.0.1", "127.0.0.2"}, port: 80}
	dialer := &fakeDialer{accept: map[string]bool{"127.0.0.1:80": true, "127.0.0.2:80": true}}
	c := connector.New(connector.WithResolver(resolver), connector.WithDialer(dialer))

	conn, err := c.Connect(context.Background(), "localhost", "80")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:80", conn.RemoteAddr())
	assert.Len(t, dialer.attempts, 1)
}

func TestConnector_ConnectAllCandidatesFail(t *testing.T) {
	resolver := &fakeResolver{ips: []string{"::1", "127.0.0.1"}, port: 9999}
	dialer := &fakeDialer{}
	var logs bytes.Buffer
	c := connector.New(
		connector.WithResolver(resolver),
		connector.WithDialer(dialer),
		connector.WithLogger(zerolog.New(&logs)),
	)

	_, err := c.Connect(context.Background(), "localhost", "9999")

	assert.Equal(t, 2, strings.Count(logs.String(), `"level":"warn"`))
	assert.NotContains(t, logs.String(), "connecting to")

	var connErr *connector.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Len(t, connErr.Attempts, 2)
	assert.Len(t, dialer.attempts, 2)
	assert.Contains(t, err.Error(), "all 2 addresses failed")
}

func TestConnector_ResolutionFailureNeverDials(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		port     string
		resolver *fakeResolver
		lookups  int
	}{
		{"empty host", "", "x", &fakeResolver{ips: []string{"127.0.0.1"}, port: 1}, 0},
		{"empty port", "localhost", "", &fakeResolver{ips: []string{"127.0.0.1"}, port: 1}, 0},
		{"bad port", "localhost", "notaport", &fakeResolver{portErr: errors.New("unknown port")}, 0},
		{"unknown host", "nowhere.invalid", "9999", &fakeResolver{ipErr: errors.New("no such host"), port: 9999}, 1},
		{"no addresses", "empty.example", "9999", &fakeResolver{port: 9999}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dialer := &fakeDialer{}
			c := connector.New(connector.WithResolver(tt.resolver), connector.WithDialer(dialer))

			conn, err := c.Connect(context.Background(), tt.host, tt.port)

			assert.Nil(t, conn)
			var resErr *connector.ResolutionError
			require.ErrorAs(t, err, &resErr)
			assert.Equal(t, tt.host, resErr.Host)
			assert.Equal(t, tt.port, resErr.Port)
			assert.Empty(t, dialer.attempts, "no socket call after a resolution failure")
			assert.Equal(t, tt.lookups, tt.resolver.lookups)
		})
	}
}

func TestConnector_ResolveKeepsResolverOrder(t *testing.T) {
	resolver := &fakeResolver{ips: []string{"2001:db8::1", "192.0.2.1"}, port: 7000}
	c := connector.New(connector.WithResolver(resolver))

	candidates, err := c.Resolve(context.Background(), "dual.example", "7000")
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, "[2001:db8::1]:7000", candidates[0].Address())
	assert.Equal(t, "ipv6", candidates[0].Family())
	assert.Equal(t, "192.0.2.1:7000", candidates[1].Address())
	assert.Equal(t, "ipv4", candidates[1].Family())
}

func TestConnector_ConnectLocalListener(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	go func() {
		c, err := listener.Accept()
		if err != nil {
			return
		}
		c.Close()
	}()

	_, port, err := net.SplitHostPort(listener.Addr().String())
	require.NoError(t, err)

	conn, err := connector.New().Connect(context.Background(), "localhost", port)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, listener.Addr().String(), conn.RemoteAddr())
}

func TestConnector_ConnectRealResolverBadPort(t *testing.T) {
	_, err := connector.New().Connect(context.Background(), "localhost", "not-a-port")

	var resErr *connector.ResolutionError
	assert.ErrorAs(t, err, &resErr)
}
