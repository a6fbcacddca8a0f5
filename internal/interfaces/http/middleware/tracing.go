package middleware

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attributes set on BFF server spans
const (
	AttrRequestID = attribute.Key("request_id")
	AttrCompanyID = attribute.Key("empresa_id")
	AttrSeries    = attribute.Key("serie")
	AttrCertID    = attribute.Key("certificado_id")
)

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	// ServiceName is the name of the service for trace identification.
	ServiceName string
	// Enabled controls whether tracing is active.
	Enabled bool
	// SkipPaths are request paths that never get a span, e.g. health probes
	SkipPaths []string
}

// Tracing returns the otelgin server middleware, or a pass-through when disabled.
// Span names follow "METHOD route", e.g. "GET /api/v1/numeracion/siguiente/:serie".
func Tracing(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	var opts []otelgin.Option
	if len(cfg.SkipPaths) > 0 {
		skip := slices.Clone(cfg.SkipPaths)
		opts = append(opts, otelgin.WithFilter(func(r *http.Request) bool {
			return !slices.Contains(skip, r.URL.Path)
		}))
	}
	return otelgin.Middleware(cfg.ServiceName, opts...)
}

// SpanAttributes tags the server span with the correlation ids and the
// series or certificate a route acts on, and marks 4xx and 5xx answers as
// failed. It must run inside Tracing and after Session.
func SpanAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			c.Next()
			return
		}

		attrs := make([]attribute.KeyValue, 0, 4)
		if id := GetRequestID(c); id != "" {
			attrs = append(attrs, AttrRequestID.String(id))
		}
		if id := GetCompanyID(c); id != "" {
			attrs = append(attrs, AttrCompanyID.String(id))
		}
		if series := c.Param("serie"); series != "" {
			attrs = append(attrs, AttrSeries.String(series))
		}
		if certID := c.Param("certId"); certID != "" {
			attrs = append(attrs, AttrCertID.String(certID))
		}
		span.SetAttributes(attrs...)

		c.Next()

		if status := c.Writer.Status(); status >= http.StatusBadRequest {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
