package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/infrastructure/auth"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/infrastructure/logger"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/interfaces/http/dto"
)

// Gin context keys set by Session
const (
	SessionScopeKey = "session_scope"
	CompanyIDKey    = "empresa_id"
)

// SessionConfig configures the session middleware
type SessionConfig struct {
	// Now is the clock used for expiry checks
	Now func() time.Time
}

// Session forwards the caller's bearer token. The token is attached to the
// request context for the authority client and never verified here: the
// invoicing backend owns verification. Expired JWTs count as missing.
// The session scope is a digest of the token; the company the token claims
// is recorded for logging and request narrowing only.
func Session(cfg SessionConfig) gin.HandlerFunc {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return func(c *gin.Context) {
		token := auth.ExtractBearer(c.GetHeader("Authorization"))
		now := cfg.Now()

		if !auth.Usable(token, now) {
			c.Next()
			return
		}

		ctx := auth.WithToken(c.Request.Context(), token)
		if company := auth.ClaimedCompany(token, now); company != "" {
			c.Set(CompanyIDKey, company)
			ctx, _ = logger.WithCompanyID(ctx, logger.FromContext(ctx), company)
		}
		c.Set(SessionScopeKey, auth.Scope(token))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireSession rejects requests that Session found no usable token on
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetSessionScope(c) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeUnauthorized, "Not authenticated", GetRequestID(c)))
			return
		}
		c.Next()
	}
}

// GetSessionScope returns the scope of the caller's session, or "" without one
func GetSessionScope(c *gin.Context) string {
	return c.GetString(SessionScopeKey)
}

// GetCompanyID returns the unverified company named by the caller's token
func GetCompanyID(c *gin.Context) string {
	return c.GetString(CompanyIDKey)
}
