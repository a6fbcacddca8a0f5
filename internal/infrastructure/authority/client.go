package authority

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/domain/shared"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/infrastructure/auth"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/infrastructure/logger"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// HeaderRequestID carries the correlation ID to the authority
const HeaderRequestID = "X-Request-ID"

// Outcomes recorded on the request metrics
const (
	outcomeOK        = "ok"
	outcomeTransport = "transport_error"
	outcomeRejected  = "remote_rejected"
)

// Client talks JSON over HTTP to the invoicing authority. Every request
// carries the caller's bearer token; reads may be served from the response
// cache and writes invalidate the cached reads of the same resource family.
type Client struct {
	baseURL         string
	httpClient      *http.Client
	tokens          auth.TokenProvider
	cache           shared.Cache
	cacheTTL        time.Duration
	maxResponseSize int64
	metrics         *telemetry.ClientMetrics
	logger          *zap.Logger
	now             func() time.Time
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client; its timeout is kept as-is
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithCache enables the response cache
func WithCache(cache shared.Cache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// WithMetrics records request metrics
func WithMetrics(m *telemetry.ClientMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a client for the authority described by cfg
func NewClient(cfg *Config, tokens auth.TokenProvider, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if tokens == nil {
		return nil, errors.New("authority: token provider is required")
	}

	c := &Client{
		baseURL:         cfg.BaseURL,
		httpClient:      &http.Client{Timeout: cfg.Timeout},
		tokens:          tokens,
		cache:           shared.NopCache{},
		cacheTTL:        cfg.CacheTTL,
		maxResponseSize: cfg.MaxResponseSize,
		logger:          zap.NewNop(),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// request describes one authority call
type request struct {
	op          string
	method      string
	path        string
	body        any
	// company owns the resource; "" means the company the token claims
	company     string
	// cached marks GET responses that may be stored in the response cache
	cached      bool
	// invalidates lists path prefixes whose cached reads a write makes stale
	invalidates []string
}

// do runs r and decodes the payload into out (which may be nil).
// A missing token fails locally without a round trip.
func (c *Client) do(ctx context.Context, r request, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	scope := auth.Scope(token)
	company := r.company
	if company == "" {
		company = auth.ClaimedCompany(token, c.now())
	}

	var key string
	if r.cached {
		key = cacheKey(scope, r.path, c.generation(ctx, company))
		if c.readCache(ctx, r.op, key, out) {
			return nil
		}
	}
	if len(r.invalidates) > 0 {
		// Writes that reached the network may have changed remote state even when rejected
		defer c.invalidate(ctx, scope, company, r.invalidates)
	}

	payload, err := c.roundTrip(ctx, r, token)
	if err != nil {
		return err
	}

	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			logger.Enrich(ctx, c.logger).Warn("Unexpected authority response",
				zap.String("operation", r.op),
				zap.Error(err))
			return shared.NewDomainError(shared.CodeTransport,
				fmt.Sprintf("Unexpected response from the invoicing service for %s", r.op))
		}
	}

	if r.cached {
		if err := c.cache.Set(ctx, key, payload, c.cacheTTL); err != nil {
			c.logger.Warn("Failed to cache authority response", zap.String("operation", r.op), zap.Error(err))
		}
	}
	return nil
}

// generation returns the current cache generation of company. Reads of
// every session are keyed by it, so a write by any session of the company
// makes them all stale at once.
func (c *Client) generation(ctx context.Context, company string) string {
	if company == "" {
		return ""
	}
	data, err := c.cache.Get(ctx, generationKey(company))
	if err != nil {
		return ""
	}
	return string(data)
}

func (c *Client) readCache(ctx context.Context, op, key string, out any) bool {
	data, err := c.cache.Get(ctx, key)
	if err != nil {
		return false
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return false
		}
	}
	c.metrics.RecordCacheHit(ctx, op)
	return true
}

func (c *Client) invalidate(ctx context.Context, scope, company string, prefixes []string) {
	// The caller's context may already be cancelled; the cache must still be cleared
	ctx = context.WithoutCancel(ctx)
	for _, prefix := range prefixes {
		if err := c.cache.DeletePrefix(ctx, scope+" "+prefix); err != nil {
			c.logger.Warn("Failed to invalidate cached reads", zap.String("prefix", prefix), zap.Error(err))
		}
	}
	if company == "" {
		return
	}
	if err := c.cache.Set(ctx, generationKey(company), []byte(uuid.NewString()), c.cacheTTL); err != nil {
		c.logger.Warn("Failed to advance cache generation", zap.String("empresa_id", company), zap.Error(err))
	}
}

// roundTrip sends the request and returns the unwrapped 2xx payload
func (c *Client) roundTrip(ctx context.Context, r request, token string) (payload json.RawMessage, err error) {
	ctx, span := telemetry.StartSpan(ctx, "authority."+r.op, trace.SpanKindClient,
		telemetry.AttrOperation.String(r.op),
		telemetry.AttrHTTPMethod.String(r.method),
		attribute.String("url.path", r.path),
	)
	defer span.End()

	start := time.Now()
	status := 0
	defer func() {
		outcome := outcomeOK
		switch shared.ErrorCode(err) {
		case shared.CodeTransport:
			outcome = outcomeTransport
		case shared.CodeRemoteRejected:
			outcome = outcomeRejected
		}
		if err != nil {
			telemetry.RecordError(span, err)
		}
		span.SetAttributes(telemetry.AttrStatusCode.Int(status))
		c.metrics.RecordRequest(ctx, r.op, r.method, status, outcome, time.Since(start))
	}()

	var body io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("authority: failed to encode %s request: %w", r.op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return nil, fmt.Errorf("authority: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := logger.GetRequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set(HeaderRequestID, requestID)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	log := logger.Enrich(ctx, c.logger).With(
		zap.String("operation", r.op),
		zap.String("method", r.method),
		zap.String("path", r.path),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn("Authority unreachable", zap.Error(err))
		return nil, shared.NewTransportError(err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseSize))
	if err != nil {
		log.Warn("Failed to read authority response", zap.Error(err))
		return nil, shared.NewTransportError(err)
	}

	if status < 200 || status >= 300 {
		rejected := parseRemoteError(status, data)
		log.Warn("Authority rejected request", zap.Int("status", status), zap.String("message", shared.Message(rejected)))
		return nil, rejected
	}

	payload, err = unwrap(status, data)
	if err != nil {
		log.Warn("Authority reported failure", zap.Int("status", status), zap.String("message", shared.Message(err)))
		return nil, err
	}

	log.Debug("Authority request completed",
		zap.Int("status", status),
		zap.Duration("latency", time.Since(start)))
	return payload, nil
}
