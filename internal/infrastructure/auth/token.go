package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/domain/shared"
)

// Common errors
var (
	ErrExpiredToken = errors.New("token has expired")
	ErrOpaqueToken  = errors.New("token is not a JWT")
)

// Claims are the claims the invoicing backend puts into its access tokens.
// Tokens are only inspected here; the backend verifies signatures.
type Claims struct {
	jwt.RegisteredClaims
	CompanyID string `json:"empresa_id,omitempty"`
	Username  string `json:"username,omitempty"`
	Role      string `json:"rol,omitempty"`
}

// Inspect decodes a JWT without verifying its signature and checks its
// expiry against now. Tokens that are not JWTs yield ErrOpaqueToken.
func Inspect(token string, now time.Time) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, ErrOpaqueToken
	}
	if claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time) {
		return claims, ErrExpiredToken
	}
	return claims, nil
}

// Usable reports whether token may be sent to the backend. Empty tokens and
// expired JWTs are not usable; opaque tokens are passed through as-is.
func Usable(token string, now time.Time) bool {
	if strings.TrimSpace(token) == "" {
		return false
	}
	_, err := Inspect(token, now)
	return !errors.Is(err, ErrExpiredToken)
}

// ExtractBearer returns the token of an "Authorization: Bearer <token>" header
func ExtractBearer(header string) string {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// TokenProvider supplies the bearer token for an outgoing request
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenProvider always returns the same token; used by the CLI
type StaticTokenProvider struct {
	token string
	now   func() time.Time
}

// NewStaticTokenProvider creates a provider for a fixed token
func NewStaticTokenProvider(token string) *StaticTokenProvider {
	return &StaticTokenProvider{token: token, now: time.Now}
}

// Token returns the configured token or shared.ErrNotAuthenticated
func (p *StaticTokenProvider) Token(context.Context) (string, error) {
	if !Usable(p.token, p.now()) {
		return "", shared.ErrNotAuthenticated
	}
	return p.token, nil
}

type tokenKey struct{}

// WithToken attaches the caller's token to ctx
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the token attached with WithToken
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// ContextTokenProvider forwards the token carried by the request context.
// The BFF uses it so each proxied call runs with the caller's session.
type ContextTokenProvider struct {
	now func() time.Time
}

// NewContextTokenProvider creates a provider reading tokens from context
func NewContextTokenProvider() *ContextTokenProvider {
	return &ContextTokenProvider{now: time.Now}
}

// Token returns the context token or shared.ErrNotAuthenticated
func (p *ContextTokenProvider) Token(ctx context.Context) (string, error) {
	token := TokenFromContext(ctx)
	if !Usable(token, p.now()) {
		return "", shared.ErrNotAuthenticated
	}
	return token, nil
}

var (
	_ TokenProvider = (*StaticTokenProvider)(nil)
	_ TokenProvider = (*ContextTokenProvider)(nil)
)
