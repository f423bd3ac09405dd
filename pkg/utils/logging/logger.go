package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/m-mizutani/clog"
	"github.com/m-mizutani/goerr/v2"
)

type contextKey struct{}

var (
	loggerKey       = contextKey{}
	defaultLogger   *slog.Logger
	defaultLoggerMu sync.RWMutex
)

// Logs go to stderr so that stdout stays clean for the REPL and the MCP
// stdio transport.
func init() {
	defaultLogger = New("info", os.Stderr)
}

// Format selects the log handler
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// ErrInvalidFormat is returned by ParseFormat for unknown names
var ErrInvalidFormat = goerr.New("invalid log format")

// ParseFormat converts a flag value to a Format
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatConsole:
		return FormatConsole, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", goerr.Wrap(ErrInvalidFormat, "unknown log format", goerr.V("format", s))
	}
}

type config struct {
	format Format
}

// Option configures New
type Option func(*config)

// WithFormat switches the handler, console is the default
func WithFormat(format Format) Option {
	return func(c *config) {
		c.format = format
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		if logger := Default(); logger != nil {
			logger.Warn("invalid log level", "level", level)
		}
		return slog.LevelInfo
	}
}

// New creates a logger for level ("debug", "info", "warn", "warning",
// "error", case-insensitive). Unknown levels fall back to info.
func New(level string, w io.Writer, opts ...Option) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	cfg := config{format: FormatConsole}
	for _, opt := range opts {
		opt(&cfg)
	}

	lvl := parseLevel(level)

	if cfg.format == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:       lvl,
			ReplaceAttr: replaceGoerr,
		}))
	}

	return slog.New(clog.New(
		clog.WithWriter(w),
		clog.WithLevel(lvl),
		clog.WithTimeFmt("15:04:05"),
		clog.WithSource(false),
		clog.WithAttrHook(clog.GoerrHook),
	))
}

// replaceGoerr expands goerr errors into a group carrying message and values
func replaceGoerr(groups []string, attr slog.Attr) slog.Attr {
	err, ok := attr.Value.Any().(error)
	if !ok {
		return attr
	}
	gerr := goerr.Unwrap(err)
	if gerr == nil {
		return slog.String(attr.Key, err.Error())
	}

	attrs := []any{slog.String("message", err.Error())}
	for k, v := range gerr.Values() {
		attrs = append(attrs, slog.Any(k, v))
	}
	return slog.Group(attr.Key, attrs...)
}

// Default returns the default logger
func Default() *slog.Logger {
	defaultLoggerMu.RLock()
	defer defaultLoggerMu.RUnlock()
	return defaultLogger
}

// SetDefault sets the default logger
func SetDefault(logger *slog.Logger) {
	defaultLoggerMu.Lock()
	defer defaultLoggerMu.Unlock()
	defaultLogger = logger
}

// With returns a new context with the logger attached
func With(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// From returns the logger attached to ctx or the default one
func From(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return Default()
}
