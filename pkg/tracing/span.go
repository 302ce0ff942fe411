// Package tracing times named stages of a request and emits each one as a
// structured log line when it ends. A span carries its trace ID through the
// context so child stages inherit it.
package tracing

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

type spanKey struct{}

// Span is one timed stage. It is emitted to slog at debug level on End, so
// tracing costs nothing in production unless debug logging is on.
type Span struct {
	name    string
	traceID string
	start   time.Time

	mu    sync.Mutex
	attrs map[string]any
}

// StartSpan opens a root span under the given trace ID and stores it in the
// returned context for child spans to find.
func StartSpan(ctx context.Context, name, traceID string) (context.Context, *Span) {
	s := &Span{
		name:    name,
		traceID: traceID,
		start:   time.Now(),
		attrs:   make(map[string]any),
	}
	return context.WithValue(ctx, spanKey{}, s), s
}

// StartChildSpan opens a span that inherits the trace ID of the span in ctx.
// Without a parent it behaves like a root span with an empty trace ID.
func StartChildSpan(ctx context.Context, name string) (context.Context, *Span) {
	var traceID string
	if parent := SpanFromContext(ctx); parent != nil {
		traceID = parent.traceID
	}
	return StartSpan(ctx, name, traceID)
}

// SpanFromContext returns the innermost span stored in ctx, or nil.
func SpanFromContext(ctx context.Context) *Span {
	s, _ := ctx.Value(spanKey{}).(*Span)
	return s
}

// SetAttr records a key-value pair emitted with the span's log line.
func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	s.attrs[key] = value
	s.mu.Unlock()
}

// End emits the span. Attributes are sorted by key so the log output is
// stable.
func (s *Span) End() {
	elapsed := time.Since(s.start)

	s.mu.Lock()
	keys := make([]string, 0, len(s.attrs))
	for k := range s.attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]any, 0, 2*len(keys)+6)
	args = append(args,
		"span", s.name,
		"trace_id", s.traceID,
		"elapsed_ms", elapsed.Milliseconds(),
	)
	for _, k := range keys {
		args = append(args, k, s.attrs[k])
	}
	s.mu.Unlock()

	slog.Debug("span finished", args...)
}
