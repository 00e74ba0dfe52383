// Package connector resolves a chat endpoint and connects to the first
// candidate address that accepts.
package connector

import (
	"context"
	"net"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/omochice/turn-chat/internal/chat"
	"github.com/omochice/turn-chat/internal/transport/tcp"
)

// Resolver looks up candidate addresses. *net.Resolver satisfies it.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
	LookupPort(ctx context.Context, network, service string) (int, error)
}

// Dialer opens a chat connection to a single resolved address.
type Dialer interface {
	Dial(ctx context.Context, address string) (chat.Conn, error)
}

// Candidate is one resolved address the Connector may try.
type Candidate struct {
	IP   net.IPAddr
	Port int
}

// Address returns the candidate in host:port form.
func (c Candidate) Address() string {
	return net.JoinHostPort(c.IP.String(), strconv.Itoa(c.Port))
}

// Family returns "ipv4" or "ipv6".
func (c Candidate) Family() string {
	if c.IP.IP.To4() != nil {
		return "ipv4"
	}
	return "ipv6"
}

// Option configures a Connector.
type Option func(*Connector)

// WithResolver replaces net.DefaultResolver.
func WithResolver(r Resolver) Option {
	return func(c *Connector) {
		c.resolver = r
	}
}

// WithDialer replaces the plain TCP dialer.
func WithDialer(d Dialer) Option {
	return func(c *Connector) {
		c.dialer = d
	}
}

// WithLogger sets the logger used for per-candidate diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Connector) {
		c.logger = logger
	}
}

// Connector turns a host/port pair into an open chat connection.
type Connector struct {
	resolver Resolver
	dialer   Dialer
	logger   zerolog.Logger
}

// New creates a Connector that resolves with net.DefaultResolver and dials TCP.
func New(opts ...Option) *Connector {
	c := &Connector{
		resolver: net.DefaultResolver,
		dialer:   tcp.Dialer{},
		logger:   zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Resolve returns the candidate addresses for host and port in resolver order.
func (c *Connector) Resolve(ctx context.Context, host, port string) ([]Candidate, error) {
	if strings.TrimSpace(host) == "" {
		return nil, &ResolutionError{Host: host, Port: port, Err: errEmptyHost}
	}
	if strings.TrimSpace(port) == "" {
		return nil, &ResolutionError{Host: host, Port: port, Err: errEmptyPort}
	}

	portNum, err := c.resolver.LookupPort(ctx, "tcp", port)
	if err != nil {
		return nil, &ResolutionError{Host: host, Port: port, Err: err}
	}

	addrs, err := c.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, &ResolutionError{Host: host, Port: port, Err: err}
	}
	if len(addrs) == 0 {
		return nil, &ResolutionError{Host: host, Port: port, Err: errNoAddresses}
	}

	candidates := make([]Candidate, 0, len(addrs))
	for _, addr := range addrs {
		candidates = append(candidates, Candidate{IP: addr, Port: portNum})
	}
	return candidates, nil
}

// Connect resolves host and port, then dials each candidate in order until
// one succeeds. A failed candidate is logged and skipped. No dial is made
// when resolution fails.
func (c *Connector) Connect(ctx context.Context, host, port string) (chat.Conn, error) {
	candidates, err := c.Resolve(ctx, host, port)
	if err != nil {
		return nil, err
	}

	var attempts []error
	for _, cand := range candidates {
		conn, err := c.dialer.Dial(ctx, cand.Address())
		if err != nil {
			c.logger.Warn().Err(err).Str("addr", cand.Address()).Msg("connect failed, trying next address")
			attempts = append(attempts, err)
			continue
		}
		c.logger.Info().Str("addr", cand.IP.String()).Str("family", cand.Family()).Msgf("connecting to %s", cand.IP.String())
		return conn, nil
	}

	return nil, &ConnectionError{Host: host, Port: port, Attempts: attempts}
}
