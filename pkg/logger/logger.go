// Package logger builds the zerolog logger shared by every component of the
// bot. Output goes to stderr in console format and, when a file is
// configured, to a size-rotated log file as JSON.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// New returns a logger configured from opts. An unknown or empty level falls
// back to info.
func New(opts Options) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(opts.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime}
	if opts.File != "" {
		out = zerolog.MultiLevelWriter(out, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			Compress:   true,
		})
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Component tags every event of l with the given component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}
