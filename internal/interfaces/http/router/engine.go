package router

import (
	"github.com/gin-gonic/gin"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/infrastructure/logger"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// EngineConfig holds what the HTTP engine needs besides the handlers
type EngineConfig struct {
	Logger         *zap.Logger
	CORS           middleware.CORSConfig
	Tracing        middleware.TracingConfig
	Session        middleware.SessionConfig
	MaxBodyBytes   int64
	TrustedProxies []string
}

// NewEngine builds the gin engine with the global middleware chain. Public
// routes are registered at the root; api routes under APIPrefix require a
// caller session.
func NewEngine(cfg EngineConfig, public RouteRegistrar, api ...RouteRegistrar) (*gin.Engine, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(
		logger.Recovery(cfg.Logger),
		middleware.RequestID(),
		middleware.Tracing(cfg.Tracing),
		logger.GinMiddleware(cfg.Logger, logger.WithSkipPaths("/health")),
		middleware.Secure(),
		middleware.CORSWithConfig(cfg.CORS),
		middleware.BodyLimit(cfg.MaxBodyBytes),
		middleware.Session(cfg.Session),
		middleware.SpanAttributes(),
	)

	NewRouter(engine).
		Mount("", nil, public).
		Mount(APIPrefix, []gin.HandlerFunc{middleware.RequireSession()}, api...).
		Setup()
	return engine, nil
}
