// Package logging builds the zerolog logger shared by all commands.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options configures New.
type Options struct {
	// Level is a zerolog level name. Empty means info.
	Level string
	// JSON switches from the console writer to plain JSON lines.
	JSON   bool
	Writer io.Writer
}

// New returns a logger writing to opts.Writer (stderr by default).
func New(opts Options) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		var err error
		level, err = zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
	}

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	if !opts.JSON {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}
