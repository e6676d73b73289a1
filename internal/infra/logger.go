package infra

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the process logger. Development and cli environments get a
// human readable console writer (cli writes to stderr so stdout stays free for
// command output); everything else emits JSON lines. A non-empty level
// overrides the environment default.
func NewLogger(appEnv, level string) zerolog.Logger {
	var out io.Writer = os.Stdout
	switch appEnv {
	case "development":
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	case "cli":
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}
	return zerolog.New(out).
		Level(loggerLevel(appEnv, level)).
		With().
		Timestamp().
		Str("service", "xstream").
		Logger()
}

func loggerLevel(appEnv, level string) zerolog.Level {
	if level = strings.TrimSpace(level); level != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(level)); err == nil && parsed != zerolog.NoLevel {
			return parsed
		}
	}
	if appEnv == "development" || appEnv == "cli" {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

// Logger aliases zerolog.Logger so packages can accept a logger without
// importing zerolog themselves.
type Logger = zerolog.Logger

// LoggerOrDiscard returns l, or a logger that drops everything when l is nil.
func LoggerOrDiscard(l *Logger) *Logger {
	if l != nil {
		return l
	}
	discard := zerolog.Nop()
	return &discard
}

// Component returns a child logger tagged with the component name.
func Component(l *Logger, name string) *Logger {
	child := LoggerOrDiscard(l).With().Str("component", name).Logger()
	return &child
}
