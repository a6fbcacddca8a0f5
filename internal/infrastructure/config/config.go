package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Authority   AuthorityConfig
	Cache       CacheConfig
	Redis       RedisConfig
	Log         LogConfig
	HTTP        HTTPConfig
	Telemetry   TelemetryConfig
	Certificate CertificateConfig
	Sessions    SessionsConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// AuthorityConfig holds settings of the remote invoicing backend
type AuthorityConfig struct {
	BaseURL         string
	Timeout         time.Duration
	MaxResponseSize int64
	// Token is an optional static bearer token, used by the CLI
	Token string
}

// CacheConfig holds response cache settings
type CacheConfig struct {
	Backend               string // memory, redis, none
	TTL                   time.Duration
	KeyPrefix             string
	AllowInMemoryFallback bool
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	CORSAllowOrigins []string
	TrustedProxies   []string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	MetricsInterval   time.Duration
}

// CertificateConfig holds certificate bridge settings
type CertificateConfig struct {
	// PreferHybrid keeps legacy and registry certificates side by side when both exist
	PreferHybrid bool
	// AutoMigrate runs the legacy migration as soon as a legacy-only company is loaded
	AutoMigrate bool
	// ExpiryWarningDays is the threshold for expiry warnings
	ExpiryWarningDays int
}

// SessionsConfig bounds the per-session numbering registries
type SessionsConfig struct {
	MaxSessions int           // live registries kept before the least recently used is dropped
	IdleTTL     time.Duration // registries unused for this long are dropped
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with FACTURADOR_ prefix (e.g., FACTURADOR_AUTHORITY_BASE_URL)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom loads configuration from an explicit file; an empty path searches
// the default locations.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/facturador")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetDefault("cache.allow_in_memory_fallback", true)

	v.SetEnvPrefix("FACTURADOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Authority: AuthorityConfig{
			BaseURL:         v.GetString("authority.base_url"),
			Timeout:         v.GetDuration("authority.timeout"),
			MaxResponseSize: v.GetInt64("authority.max_response_size"),
			Token:           v.GetString("authority.token"),
		},
		Cache: CacheConfig{
			Backend:               v.GetString("cache.backend"),
			TTL:                   v.GetDuration("cache.ttl"),
			KeyPrefix:             v.GetString("cache.key_prefix"),
			AllowInMemoryFallback: v.GetBool("cache.allow_in_memory_fallback"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
		},
		Certificate: CertificateConfig{
			PreferHybrid:      v.GetBool("certificate.prefer_hybrid"),
			AutoMigrate:       v.GetBool("certificate.auto_migrate"),
			ExpiryWarningDays: v.GetInt("certificate.expiry_warning_days"),
		},
		Sessions: SessionsConfig{
			MaxSessions: v.GetInt("sessions.max_sessions"),
			IdleTTL:     v.GetDuration("sessions.idle_ttl"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "facturador-front"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Authority.BaseURL == "" {
		cfg.Authority.BaseURL = "http://localhost:5000/api"
	}
	cfg.Authority.BaseURL = strings.TrimRight(cfg.Authority.BaseURL, "/")
	if cfg.Authority.Timeout == 0 {
		cfg.Authority.Timeout = 30 * time.Second
	}
	if cfg.Authority.MaxResponseSize == 0 {
		cfg.Authority.MaxResponseSize = 10 << 20 // 10MB
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "memory"
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 30 * time.Second
	}
	if cfg.Cache.KeyPrefix == "" {
		cfg.Cache.KeyPrefix = "facturador:api:"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 45 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "facturador-front"
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
	if cfg.Certificate.ExpiryWarningDays == 0 {
		cfg.Certificate.ExpiryWarningDays = 30
	}
	if cfg.Sessions.MaxSessions == 0 {
		cfg.Sessions.MaxSessions = 10000
	}
	if cfg.Sessions.IdleTTL == 0 {
		cfg.Sessions.IdleTTL = 30 * time.Minute
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	u, err := url.Parse(c.Authority.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("authority.base_url must be an absolute URL, got %q", c.Authority.BaseURL)
	}

	switch c.Cache.Backend {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("cache.backend must be one of memory, redis, none; got %q", c.Cache.Backend)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl cannot be negative")
	}

	if c.App.Env == "production" {
		if u.Scheme != "https" {
			return fmt.Errorf("authority.base_url must use https in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	if c.Certificate.ExpiryWarningDays < 0 {
		return fmt.Errorf("certificate.expiry_warning_days cannot be negative")
	}
	if c.Sessions.MaxSessions < 0 || c.Sessions.IdleTTL < 0 {
		return fmt.Errorf("sessions.max_sessions and sessions.idle_ttl cannot be negative")
	}

	return nil
}

// Addr returns the Redis address in host:port form
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
