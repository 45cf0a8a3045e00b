package log

import (
	stderrors "errors"
	"io"
	"log/slog"
	"os"

	"github.com/skaznowiecki/finpilot-sanos/internal/errors"
)

// Logger is a thin slog wrapper that every finpilot component logs through.
// Entries carry service=finpilot and, once scoped, a component attribute.
type Logger struct {
	slog *slog.Logger
}

// New builds a Logger from cfg.
func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level.slogLevel(), AddSource: cfg.AddSource}

	var h slog.Handler = slog.NewTextHandler(out, opts)
	if cfg.Format == FormatJSON {
		h = slog.NewJSONHandler(out, opts)
	}
	return &Logger{slog: slog.New(h).With("service", "finpilot")}
}

// Default builds a Logger from DefaultConfig.
func Default() *Logger {
	return New(DefaultConfig())
}

// Discard returns a logger that drops everything. Tests use it.
func Discard() *Logger {
	return New(Config{Level: LevelError, Output: io.Discard})
}

func (l *Logger) With(args ...any) *Logger {
	return &Logger{slog: l.slog.With(args...)}
}

func (l *Logger) WithComponent(name string) *Logger {
	return l.With("component", name)
}

// WithError attaches err. Coded errors contribute error_code and their
// cause as separate attributes.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}

	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		return l.With("error", err.Error())
	}

	args := []any{"error", appErr.Message, "error_code", string(appErr.Code)}
	if appErr.Cause != nil {
		args = append(args, "cause", appErr.Cause.Error())
	}
	return l.With(args...)
}

func (l *Logger) Debug(msg string, args ...any) { l.slog.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.slog.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.slog.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.slog.Error(msg, args...) }
