package logtide

import (
	"net/http"
	"runtime/debug"
	"time"
)

// DefaultTraceHeader is the request header the middleware reads an incoming
// trace identifier from.
const DefaultTraceHeader = "X-Trace-Id"

// MiddlewareOptions configures the request-logging middleware.
type MiddlewareOptions struct {
	// Service names the emitting service in request records. Defaults to
	// "http".
	Service string
	// TraceHeader overrides the header carrying an incoming trace ID.
	TraceHeader string
	// SkipPaths lists exact request paths that are not logged, in addition
	// to /health, /healthz, and /metrics.
	SkipPaths []string
}

// Middleware returns a net/http middleware that correlates each request with
// a trace identifier on client and logs the request and its outcome through
// it. The completion record's level follows the response status: Info below
// 400, Warn for 4xx, Error for 5xx. A panic in the handler chain is logged
// at error level with its stack, then re-raised.
//
// The trace identifier is installed via the client's scoped override, so a
// client shared by concurrent requests observes interleaved overrides: a
// record logged during one request can carry the trace ID of another
// request in flight at the same time, or none once that request restores
// the previous value.
func Middleware(client *Client, opts MiddlewareOptions) func(http.Handler) http.Handler {
	service := opts.Service
	if service == "" {
		service = "http"
	}
	header := opts.TraceHeader
	if header == "" {
		header = DefaultTraceHeader
	}
	skip := map[string]struct{}{
		"/health":  {},
		"/healthz": {},
		"/metrics": {},
	}
	for _, p := range opts.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := skip[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			traceID := r.Header.Get(header)
			if traceID == "" {
				traceID = NewTraceID()
			}

			client.WithTraceID(traceID, func() {
				start := time.Now()
				rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

				_ = client.Info(r.Context(), service, "request started", requestMetadata(r, -1, 0))

				defer func() {
					if rec := recover(); rec != nil {
						perr := &panicError{value: rec, stack: debug.Stack()}
						_ = client.ErrorWithError(r.Context(), service, "request panicked", perr)
						panic(rec)
					}

					duration := time.Since(start)
					md := requestMetadata(r, rw.status, duration)
					msg := "request completed"
					switch {
					case rw.status >= 500:
						_ = client.Error(r.Context(), service, msg, md)
					case rw.status >= 400:
						_ = client.Warn(r.Context(), service, msg, md)
					default:
						_ = client.Info(r.Context(), service, msg, md)
					}
				}()

				next.ServeHTTP(rw, r)
			})
		})
	}
}

func requestMetadata(r *http.Request, status int, duration time.Duration) map[string]any {
	md := map[string]any{
		"method": r.Method,
		"path":   r.URL.Path,
	}
	if r.URL.RawQuery != "" {
		md["query"] = r.URL.RawQuery
	}
	if status >= 0 {
		md["status"] = status
		md["duration_ms"] = duration.Milliseconds()
	}
	return md
}

// statusRecorder captures the HTTP status code written by the handler chain.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
