package connector

import (
	"errors"
	"fmt"
)

var (
	errEmptyHost   = errors.New("host is empty")
	errEmptyPort   = errors.New("port is empty")
	errNoAddresses = errors.New("no addresses found")
)

// ResolutionError reports a host/port pair that could not be resolved.
type ResolutionError struct {
	Host string
	Port string
	Err  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve %q port %q: %v", e.Host, e.Port, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// ConnectionError reports that every candidate address refused the connection.
type ConnectionError struct {
	Host     string
	Port     string
	Attempts []error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to %s: all %d addresses failed", e.Host, len(e.Attempts))
}

func (e *ConnectionError) Unwrap() []error {
	return e.Attempts
}
