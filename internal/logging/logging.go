// Package logging builds the process logger and adapts it to the
// [github.com/slackmgr/types.Logger] interface used by the library packages.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/slackmgr/types"
)

// ParseLevel maps a configured level name to a [slog.Level]. Unknown names
// fall back to error, which is the quietest useful level for a one-shot CLI.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// New creates a [slog.Logger] writing to w. Format "json" selects the JSON
// handler; anything else selects the colored text handler.
func New(level, format string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)

	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
	}

	return slog.New(&colorHandler{
		mu:    &sync.Mutex{},
		w:     w,
		level: lvl,
	})
}

// colorHandler writes one colored line per record. Handlers derived through
// WithAttrs share the writer and its mutex.
type colorHandler struct {
	mu     *sync.Mutex
	w      io.Writer
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	var buf strings.Builder

	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	buf.WriteString(r.Message)

	prefix := ""
	if len(h.groups) > 0 {
		prefix = strings.Join(h.groups, ".") + "."
	}

	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + prefix + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + prefix + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := io.WriteString(h.w, buf.String())

	return err
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)

	return &colorHandler{
		mu:     h.mu,
		w:      h.w,
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)

	return &colorHandler{
		mu:     h.mu,
		w:      h.w,
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}

// Adapter implements [types.Logger] on top of a [slog.Logger].
type Adapter struct {
	logger *slog.Logger
}

// NewAdapter wraps logger so it can be passed to the dynamodb and corporate
// packages.
func NewAdapter(logger *slog.Logger) *Adapter {
	return &Adapter{logger: logger}
}

//nolint:ireturn // Must return interface to implement types.Logger
func (a *Adapter) WithField(key string, value any) types.Logger {
	return &Adapter{logger: a.logger.With(key, value)}
}

//nolint:ireturn // Must return interface to implement types.Logger
func (a *Adapter) WithFields(fields map[string]any) types.Logger {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}

	return &Adapter{logger: a.logger.With(args...)}
}

func (a *Adapter) Debug(msg string)                  { a.logger.Debug(msg) }
func (a *Adapter) Debugf(format string, args ...any) { a.logger.Debug(fmt.Sprintf(format, args...)) }
func (a *Adapter) Info(msg string)                   { a.logger.Info(msg) }
func (a *Adapter) Infof(format string, args ...any)  { a.logger.Info(fmt.Sprintf(format, args...)) }
func (a *Adapter) Error(msg string)                  { a.logger.Error(msg) }
func (a *Adapter) Errorf(format string, args ...any) { a.logger.Error(fmt.Sprintf(format, args...)) }

// Discard returns a logger that drops everything. It is the default logger
// of the library packages.
//
//nolint:ireturn // Returns interface so callers can store it as types.Logger
func Discard() types.Logger {
	return NewAdapter(slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1})))
}
