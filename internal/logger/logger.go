package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

var (
	defaultLogger *slog.Logger
	level         = new(slog.LevelVar)
	once          sync.Once
)

// Init installs the ledger handler as the global logger, writing to stderr
// so command output on stdout stays machine-readable. Later calls only
// adjust the level.
func Init(lvl slog.Level) {
	level.Set(lvl)

	once.Do(func() {
		defaultLogger = slog.New(NewHandler(os.Stderr, level))
		slog.SetDefault(defaultLogger)
	})
}

// Handler is a slog handler with millisecond timestamps and short level tags.
type Handler struct {
	out   io.Writer
	mu    *sync.Mutex
	level slog.Leveler
	attrs []slog.Attr
	group string
}

// NewHandler creates a handler writing records at or above lvl to out.
// A nil lvl enables every level.
func NewHandler(out io.Writer, lvl slog.Leveler) *Handler {
	if lvl == nil {
		lvl = slog.LevelDebug
	}

	return &Handler{out: out, mu: &sync.Mutex{}, level: lvl}
}

// Enabled reports whether records at l are written.
func (h *Handler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

// Handle formats and writes a log record.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	// Format: 2024-01-15 14:30:45.123 [INF] message key=value
	ts := r.Time.Format("2006-01-02 15:04:05.000")

	h.mu.Lock()
	defer h.mu.Unlock()

	fmt.Fprintf(h.out, "%s [%s] %s", ts, levelString(r.Level), r.Message)

	for _, a := range h.attrs {
		h.writeAttr(a)
	}

	r.Attrs(func(a slog.Attr) bool {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		h.writeAttr(a)
		return true
	})

	fmt.Fprintln(h.out)

	return nil
}

// WithAttrs returns a handler that prefixes every record with attrs.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}

	next := *h
	next.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	next.attrs = append(next.attrs, h.attrs...)

	for _, a := range attrs {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		next.attrs = append(next.attrs, a)
	}

	return &next
}

// WithGroup returns a handler that qualifies later attribute keys with name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	next := *h
	if h.group != "" {
		next.group = h.group + "." + name
	} else {
		next.group = name
	}

	return &next
}

// writeAttr prints one key=value pair. Callers hold mu.
func (h *Handler) writeAttr(a slog.Attr) {
	if a.Equal(slog.Attr{}) {
		return
	}

	fmt.Fprintf(h.out, " %s=%v", a.Key, a.Value)
}

// levelString returns a short string for the log level.
func levelString(l slog.Level) string {
	switch l {
	case slog.LevelDebug:
		return "DBG"
	case slog.LevelInfo:
		return "INF"
	case slog.LevelWarn:
		return "WRN"
	case slog.LevelError:
		return "ERR"
	default:
		return "???"
	}
}

// Info logs at INFO level.
func Info(msg string, args ...any) {
	slog.Info(msg, args...)
}

// Warn logs at WARN level.
func Warn(msg string, args ...any) {
	slog.Warn(msg, args...)
}

// With returns a logger with the given attributes.
func With(args ...any) *slog.Logger {
	return slog.Default().With(args...)
}

// Timed returns elapsed time since start for logging duration.
func Timed(start time.Time) slog.Attr {
	return slog.Duration("elapsed", time.Since(start))
}
