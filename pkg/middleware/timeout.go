package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// Timeout bounds each request with a deadline on its context and answers
// 504 if the handler has not written anything by then. A handler that
// already started its response is left alone; truncating a partial body
// would corrupt it.
func Timeout(limit time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), limit)
			defer cancel()

			guarded := &guardedWriter{ResponseWriter: w}
			finished := make(chan struct{})
			go func() {
				defer close(finished)
				next.ServeHTTP(guarded, r.WithContext(ctx))
			}()

			select {
			case <-finished:
			case <-ctx.Done():
				if guarded.started.CompareAndSwap(false, true) {
					slog.Warn("request deadline exceeded",
						"method", r.Method,
						"path", r.URL.Path,
						"limit", limit,
					)
					http.Error(w, `{"error":"request timeout"}`, http.StatusGatewayTimeout)
				}
			}
		})
	}
}

// guardedWriter tracks whether the handler started writing, so the timeout
// path and the handler never both write a response.
type guardedWriter struct {
	http.ResponseWriter
	started atomic.Bool
}

func (g *guardedWriter) WriteHeader(code int) {
	if g.started.CompareAndSwap(false, true) {
		g.ResponseWriter.WriteHeader(code)
	}
}

func (g *guardedWriter) Write(b []byte) (int, error) {
	g.started.Store(true)
	return g.ResponseWriter.Write(b)
}
