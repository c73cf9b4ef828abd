// Package logging builds the zerolog logger used by the command and logs
// request lifecycle events published on the event bus.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hanpama/graphqlerr/internal/eventbus"
	"github.com/hanpama/graphqlerr/internal/events"
	"github.com/hanpama/graphqlerr/internal/reqid"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Config selects the level and output format of a logger.
type Config struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`

	// Output defaults to os.Stderr.
	Output io.Writer `koanf:"-"`
}

// Validate reports an unknown level or format.
func (c Config) Validate() error {
	if c.Level != "" {
		if _, err := zerolog.ParseLevel(strings.ToLower(c.Level)); err != nil {
			return fmt.Errorf("log.level: %w", err)
		}
	}
	switch strings.ToLower(c.Format) {
	case "", FormatJSON, FormatConsole:
		return nil
	}
	return fmt.Errorf("log.format must be %q or %q (got %q)", FormatJSON, FormatConsole, c.Format)
}

// New creates a logger from cfg. An invalid level falls back to info.
func New(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	if strings.ToLower(cfg.Format) == FormatConsole {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Subscribe logs HTTP requests and GraphQL operations published on the global
// event bus. Formatted errors are logged at debug level, one entry each.
func Subscribe(logger zerolog.Logger) (unsubscribe func()) {
	unsubs := []func(){
		eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
			logHTTP(withRequestID(ctx, logger), e)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.GraphQLFinish) {
			logGraphQL(withRequestID(ctx, logger), e)
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func withRequestID(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	if rid := reqid.Reported(ctx); rid != "" {
		return logger.With().Str("request_id", rid).Logger()
	}
	return logger
}

func logHTTP(logger zerolog.Logger, e events.HTTPFinish) {
	ev := logger.Info()
	if e.Status >= 500 {
		ev = logger.Error()
	}
	ev.Str("method", e.Request.Method).
		Str("path", e.Request.URL.Path).
		Int("status", e.Status).
		Int("errors", e.Errors).
		Dur("duration", e.Duration).
		Msg("http request")
}

func logGraphQL(logger zerolog.Logger, e events.GraphQLFinish) {
	ev := logger.Info()
	if len(e.Errors) > 0 {
		ev = logger.Warn()
	}
	ev.Str("operation_name", e.OperationName).
		Str("operation_type", e.OperationType).
		Int("errors", len(e.Errors)).
		Bool("debug", e.Debug).
		Dur("duration", e.Duration).
		Msg("graphql operation")

	for i, fe := range e.Formatted {
		ev := logger.Debug().Str("error", fe.Message)
		if len(fe.Path) > 0 {
			ev = ev.Interface("path", fe.Path)
		}
		if i < len(e.Errors) && e.Errors[i].OriginalError != nil {
			ev = ev.AnErr("cause", e.Errors[i].OriginalError)
		}
		ev.Msg("graphql error")
	}
}
