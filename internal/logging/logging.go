// Package logging sets up the process logger and hands out request-scoped
// loggers carried on a context.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

type Config struct {
	Format    string    // json, console or auto
	Level     string    // trace, debug, info, warn, error, disabled
	Component string    // stamped on every line when set
	Output    io.Writer // defaults to stderr
}

var (
	mu   sync.RWMutex
	base = zerolog.New(os.Stderr).With().Timestamp().Logger()

	isTerminal = term.IsTerminal
)

func init() {
	log.Logger = base
}

// Init replaces the process logger. It is called once before config is read
// and again once the configured level and format are known.
func Init(cfg Config) zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()

	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	ctx := zerolog.New(selectWriter(cfg.Format, out)).With().Timestamp()
	if c := strings.TrimSpace(cfg.Component); c != "" {
		ctx = ctx.Str("component", c)
	}

	base = ctx.Logger()
	log.Logger = base
	return base
}

// WithRequestID returns a context whose logger is tagged with the request id,
// generating one when the caller sent none.
func WithRequestID(ctx context.Context, requestID string) (context.Context, string) {
	if ctx == nil {
		ctx = context.Background()
	}
	if requestID = strings.TrimSpace(requestID); requestID == "" {
		requestID = uuid.NewString()
	}

	mu.RLock()
	l := base.With().Str("request_id", requestID).Logger()
	mu.RUnlock()
	return l.WithContext(ctx), requestID
}

// FromContext returns the request logger, or the process logger outside a
// request.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
			return l
		}
	}
	return &log.Logger
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return zerolog.InfoLevel
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled":
		return zerolog.Disabled
	}
	fmt.Fprintf(os.Stderr, "logging: unknown level %q, using info\n", level)
	return zerolog.InfoLevel
}

// selectWriter picks console output for "console", and for "auto" when out is
// a terminal.
func selectWriter(format string, out io.Writer) io.Writer {
	console := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "console":
		return console
	case "json":
		return out
	}
	if f, ok := out.(*os.File); ok && isTerminal(int(f.Fd())) {
		return console
	}
	return out
}
