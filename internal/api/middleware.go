package api

import (
	"context"
	"net/http"

	"github.com/felixge/httpsnoop"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

const tracerName = "github.com/C-BIAS/ECO-FMM-FASTAPI/internal/api"

type loggerKey struct{}

// loggerFrom returns the request-scoped logger, or fallback if none is set.
func loggerFrom(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
		return l
	}
	return fallback
}

// requestID assigns every request an id, echoes it in the response and
// attaches a logger carrying it. A client-supplied id is kept.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = s.ids.Generate()
		}
		w.Header().Set(RequestIDHeader, id)

		ctx := context.WithValue(r.Context(), loggerKey{}, s.logger.With(zap.String("request_id", id)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// instrument wraps the router with a server span and an access log line.
// It must sit directly around the ServeMux so the matched pattern is visible
// on the request it passes down.
func (s *Server) instrument(next http.Handler) http.Handler {
	tracer := otel.Tracer(tracerName)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("url.path", r.URL.Path),
			),
		)
		defer span.End()

		req := r.WithContext(ctx)
		m := httpsnoop.CaptureMetrics(next, w, req)

		if req.Pattern != "" {
			span.SetName(req.Pattern)
			span.SetAttributes(attribute.String("http.route", req.Pattern))
		}
		span.SetAttributes(attribute.Int("http.response.status_code", m.Code))
		if m.Code >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(m.Code))
		}

		loggerFrom(ctx, s.logger).Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("pattern", req.Pattern),
			zap.Int("status", m.Code),
			zap.Int64("bytes", m.Written),
			zap.Duration("duration", m.Duration),
			zap.String("remote", r.RemoteAddr),
		)
	})
}

// guard runs h only for requests carrying the configured bearer token.
// Rejected requests never reach storage.
func (s *Server) guard(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.gate.AuthorizeRequest(r); err != nil {
			s.writeError(w, r, err)
			return
		}
		h(w, r)
	})
}
