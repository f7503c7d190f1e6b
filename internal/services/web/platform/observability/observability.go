// Package observability provides request logging for the web service.
package observability

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/prestigeprep/prep/internal/services/web/platform/httpx"
)

// RequestLogger writes one log entry per request. Server errors log at
// error level, client errors at warn. When the request carries a sampled
// span the entry includes its trace id.
func RequestLogger(logger *zap.Logger) httpx.Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			level := zapcore.InfoLevel
			switch {
			case status >= 500:
				level = zapcore.ErrorLevel
			case status >= 400:
				level = zapcore.WarnLevel
			}
			ce := logger.Check(level, "http request")
			if ce == nil {
				return
			}
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", rec.bytes),
				zap.Duration("latency", time.Since(start)),
				zap.String("request_id", r.Header.Get(httpx.RequestIDHeader)),
			}
			if sc := trace.SpanContextFromContext(r.Context()); sc.IsValid() {
				fields = append(fields, zap.String("trace_id", sc.TraceID().String()))
			}
			ce.Write(fields...)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(p)
	r.bytes += n
	return n, err
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack supports websocket upgrades.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	if r.status == 0 {
		r.status = http.StatusSwitchingProtocols
	}
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }
