package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Attribute keys shared by the authority client metrics and spans
var (
	AttrOperation  = attribute.Key("authority.operation")
	AttrHTTPMethod = attribute.Key("http.method")
	AttrStatusCode = attribute.Key("http.status_code")
	AttrOutcome    = attribute.Key("outcome")
	AttrCompanyID  = attribute.Key("company_id")
	AttrSeries     = attribute.Key("series_code")
	AttrCacheHit   = attribute.Key("cache.hit")
)

// HTTPDurationBuckets are bucket boundaries for HTTP request duration (seconds).
var HTTPDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// ClientMetrics records calls made to the invoicing authority
type ClientMetrics struct {
	requests  metric.Int64Counter
	duration  metric.Float64Histogram
	cacheHits metric.Int64Counter
}

// NewClientMetrics creates the authority client instruments on meter
func NewClientMetrics(meter metric.Meter) (*ClientMetrics, error) {
	requests, err := meter.Int64Counter(
		"authority_client_requests_total",
		metric.WithDescription("Requests sent to the invoicing authority"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter authority_client_requests_total: %w", err)
	}

	duration, err := meter.Float64Histogram(
		"authority_client_request_duration_seconds",
		metric.WithDescription("Latency of requests sent to the invoicing authority"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(HTTPDurationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram authority_client_request_duration_seconds: %w", err)
	}

	cacheHits, err := meter.Int64Counter(
		"authority_client_cache_hits_total",
		metric.WithDescription("Authority reads answered from the response cache"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter authority_client_cache_hits_total: %w", err)
	}

	return &ClientMetrics{requests: requests, duration: duration, cacheHits: cacheHits}, nil
}

// RecordRequest records one finished request
func (m *ClientMetrics) RecordRequest(ctx context.Context, operation, method string, status int, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		AttrOperation.String(operation),
		AttrHTTPMethod.String(method),
		AttrStatusCode.Int(status),
		AttrOutcome.String(outcome),
	)
	m.requests.Add(ctx, 1, attrs)
	m.duration.Record(ctx, d.Seconds(), attrs)
}

// RecordCacheHit records a read served from cache
func (m *ClientMetrics) RecordCacheHit(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.cacheHits.Add(ctx, 1, metric.WithAttributes(AttrOperation.String(operation)))
}
