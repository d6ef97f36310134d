// Package logging owns the process logger and its per-request variants.
//
// The process logger is a *slog.Logger swapped atomically by Configure, so
// packages can call L() at any time without holding a reference. Request
// handlers derive a child logger carrying request attributes and attach it to
// the context with WithContext; code below them recovers it with FromContext
// and falls back to the process logger outside a request.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Options selects the level and output format of the process logger.
type Options struct {
	// Level is one of debug, info, warn or error. Anything else means info.
	Level string
	// JSON switches from slog's key=value text output to one JSON object per
	// line.
	JSON bool
}

var current atomic.Pointer[slog.Logger]

func init() {
	current.Store(newLogger(os.Stderr, Options{}))
}

// Configure replaces the process logger and slog's default. Output always
// goes to stderr so it never mixes with command output on stdout.
func Configure(opts Options) {
	configure(os.Stderr, opts)
}

func configure(w io.Writer, opts Options) {
	l := newLogger(w, opts)
	current.Store(l)
	slog.SetDefault(l)
}

func newLogger(w io.Writer, opts Options) *slog.Logger {
	ho := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}
	if opts.JSON {
		return slog.New(slog.NewJSONHandler(w, ho))
	}
	return slog.New(slog.NewTextHandler(w, ho))
}

// ParseLevel maps a case-insensitive level name to a slog.Level. "warning" is
// accepted as an alias of "warn"; unknown names give LevelInfo.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// L returns the process logger.
func L() *slog.Logger {
	return current.Load()
}

type ctxKey struct{}

// WithContext returns a copy of ctx carrying l.
func WithContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger attached by WithContext, or the process
// logger when there is none.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return L()
}
