package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// Timeout bounds each request to d. The shortened context travels into
// the handler, so API calls made with it are cancelled together with
// the request. When the deadline passes before the handler answers, the
// client gets a 503.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			done := make(chan struct{})
			ow := &onceWriter{ResponseWriter: w}

			go func() {
				next.ServeHTTP(ow, r.WithContext(ctx))
				close(done)
			}()

			select {
			case <-done:
			case <-ctx.Done():
				ow.mu.Lock()
				defer ow.mu.Unlock()
				if !ow.wrote {
					w.Header().Set("Content-Type", "text/plain; charset=utf-8")
					w.WriteHeader(http.StatusServiceUnavailable)
					_, _ = w.Write([]byte("Request timeout"))
				}
			}
		})
	}
}

// onceWriter lets only the first writer through. The handler goroutine
// and the timeout branch race for the response; whoever writes first
// owns it.
type onceWriter struct {
	http.ResponseWriter
	mu    sync.Mutex
	wrote bool
}

func (ow *onceWriter) WriteHeader(code int) {
	ow.mu.Lock()
	defer ow.mu.Unlock()
	if !ow.wrote {
		ow.wrote = true
		ow.ResponseWriter.WriteHeader(code)
	}
}

func (ow *onceWriter) Write(b []byte) (int, error) {
	ow.mu.Lock()
	defer ow.mu.Unlock()
	if !ow.wrote {
		ow.wrote = true
		ow.ResponseWriter.WriteHeader(http.StatusOK)
	}
	return ow.ResponseWriter.Write(b)
}
