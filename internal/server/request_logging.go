package server

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

type requestMetaKey struct{}

// requestMeta is shared by pointer so inner handlers can report the
// matched route back to the logging middleware.
type requestMeta struct {
	id    string
	route string
}

type loggingResponseWriter struct {
	http.ResponseWriter
	status int
}

func (w *loggingResponseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *loggingResponseWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(p)
}

func (w *loggingResponseWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func (w *loggingResponseWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (w *loggingResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

func (s *Server) withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)
		meta := &requestMeta{id: requestID}
		r = r.WithContext(context.WithValue(r.Context(), requestMetaKey{}, meta))

		start := time.Now()
		rw := &loggingResponseWriter{ResponseWriter: w}
		next.ServeHTTP(rw, r)
		elapsed := time.Since(start)

		route := meta.route
		s.metrics.ObserveHTTPRequest(r.Method, route, rw.Status(), elapsed)

		if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			return
		}

		fields := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.Status(),
			"duration_ms", elapsed.Milliseconds(),
			"remote_addr", r.RemoteAddr,
			"request_id", requestID,
		}
		if route != "" {
			fields = append(fields, "route", route)
		}

		if rw.Status() >= 500 {
			s.log().Error("request complete", fields...)
			return
		}
		s.log().Debug("request complete", fields...)
	})
}

// tracked records the matched mux pattern for logging and metrics.
func tracked(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if meta := requestMetaFromContext(r.Context()); meta != nil {
			meta.route = r.Pattern
		}
		next(w, r)
	}
}

func requestMetaFromContext(ctx context.Context) *requestMeta {
	if ctx == nil {
		return nil
	}
	meta, _ := ctx.Value(requestMetaKey{}).(*requestMeta)
	return meta
}

func requestIDFromContext(ctx context.Context) string {
	if meta := requestMetaFromContext(ctx); meta != nil {
		return meta.id
	}
	return ""
}
