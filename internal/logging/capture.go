package logging

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// bufferHandler tees every record into the application log ring buffer
// and delegates rendering to the wrapped handler. The console handler
// does its own teeing; this wrapper gives the JSON handler the same
// behavior so /api/logs works regardless of the output format.
type bufferHandler struct {
	next  slog.Handler
	attrs []slog.Attr
}

func newBufferHandler(next slog.Handler) *bufferHandler {
	return &bufferHandler{next: next}
}

func (h *bufferHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *bufferHandler) Handle(ctx context.Context, r slog.Record) error {
	source := "system"
	extra := make(map[string]string)
	collect := func(a slog.Attr) {
		if a.Key == "component" {
			source = strings.ToLower(a.Value.String())
			return
		}
		extra[a.Key] = a.Value.String()
	}
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		collect(a)
		return true
	})
	if len(extra) == 0 {
		extra = nil
	}

	t := r.Time
	if t.IsZero() {
		t = time.Now()
	}
	GetAppLogBuffer().Add(AppLogEntry{
		Timestamp: t,
		Level:     LevelFromSlog(r.Level),
		Source:    source,
		Message:   r.Message,
		Extra:     extra,
	})

	return h.next.Handle(ctx, r)
}

func (h *bufferHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &bufferHandler{next: h.next.WithAttrs(attrs), attrs: merged}
}

func (h *bufferHandler) WithGroup(name string) slog.Handler {
	return &bufferHandler{next: h.next.WithGroup(name), attrs: h.attrs}
}
