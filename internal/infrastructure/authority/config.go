package authority

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/jonathanEDR/facturadorfront-sub001/internal/infrastructure/config"
)

const (
	// DefaultTimeout bounds one round trip to the authority
	DefaultTimeout = 30 * time.Second
	// DefaultMaxResponseSize is the largest response body read (10MB)
	DefaultMaxResponseSize = 10 << 20
)

// Errors for authority client configuration
var (
	ErrConfigMissingBaseURL = errors.New("authority: base URL is required")
	ErrConfigInvalidBaseURL = errors.New("authority: base URL must be absolute")
)

// Config holds the settings of the authority client
type Config struct {
	// BaseURL is the API root, e.g. https://api.example.pe/api
	BaseURL string
	// Timeout is the HTTP request timeout
	Timeout time.Duration
	// MaxResponseSize caps the bytes read from one response
	MaxResponseSize int64
	// CacheTTL is how long GET responses stay in the response cache
	CacheTTL time.Duration
}

// NewConfig builds a client configuration from application configuration
func NewConfig(authority config.AuthorityConfig, cache config.CacheConfig) *Config {
	return &Config{
		BaseURL:         authority.BaseURL,
		Timeout:         authority.Timeout,
		MaxResponseSize: authority.MaxResponseSize,
		CacheTTL:        cache.TTL,
	}
}

// Validate validates the configuration and fills defaults
func (c *Config) Validate() error {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		return ErrConfigMissingBaseURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ErrConfigInvalidBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxResponseSize <= 0 {
		c.MaxResponseSize = DefaultMaxResponseSize
	}
	if c.CacheTTL < 0 {
		c.CacheTTL = 0
	}
	return nil
}
