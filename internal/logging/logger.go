// Package logging builds the zerolog loggers used by the chat commands.
package logging

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultLevel is used when no level is configured.
const DefaultLevel = "info"

// New returns a console logger tagged with app, writing to out.
// Chat traffic goes to stdout, so callers normally pass os.Stderr.
func New(app, level string, out io.Writer) (zerolog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).Level(lvl).With().Timestamp().Str("app", app).Logger(), nil
}

// ParseLevel parses a level name; empty means DefaultLevel.
func ParseLevel(level string) (zerolog.Level, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		level = DefaultLevel
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return lvl, nil
}
