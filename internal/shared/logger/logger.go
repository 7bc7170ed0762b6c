package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"
)

// Config selects the level and an optional Graylog GELF sink.
type Config struct {
	Level          string
	GraylogAddress string
}

// Setup applies the global level and returns the writer every service logger
// should use. The returned closer releases the GELF connection, if any.
func Setup(cfg Config) (io.Writer, func() error, error) {
	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}

	console := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	if cfg.GraylogAddress == "" {
		return console, func() error { return nil }, nil
	}

	gw, err := gelf.NewWriter(cfg.GraylogAddress)
	if err != nil {
		return console, func() error { return nil }, fmt.Errorf("graylog writer %s: %w", cfg.GraylogAddress, err)
	}
	return zerolog.MultiLevelWriter(console, gw), gw.Close, nil
}

// ParseLevel maps a level name to zerolog, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToUpper(level) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New returns a console logger tagged with the service name.
func New(service string) zerolog.Logger {
	return With(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}, service)
}

// With returns a logger on w tagged with the service name.
func With(w io.Writer, service string) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Str("service", service).Logger()
}
