package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	appcert "github.com/jonathanEDR/facturadorfront-sub001/internal/application/certificate"
	appnumbering "github.com/jonathanEDR/facturadorfront-sub001/internal/application/numbering"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/domain/certificate"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/domain/shared"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/infrastructure/auth"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/infrastructure/authority"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/infrastructure/cache"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/infrastructure/config"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/infrastructure/logger"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/infrastructure/telemetry"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/interfaces/http/handler"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/interfaces/http/middleware"
	"github.com/jonathanEDR/facturadorfront-sub001/internal/interfaces/http/router"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := logger.NewConfig(cfg.Log, cfg.App.Name)
	log, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting invoicing front-end",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("authority", cfg.Authority.BaseURL),
	)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	providers, err := telemetry.Setup(ctx, telemetry.NewConfig(cfg.Telemetry), log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	if providers.Enabled() {
		logCfg.Cores = []zapcore.Core{providers.LogCore(cfg.App.Name, logger.ParseLevel(cfg.Log.Level))}
		bridged, err := logger.New(logCfg)
		if err != nil {
			log.Fatal("Failed to attach log exporter", zap.Error(err))
		}
		_ = log.Sync()
		log = bridged
	}
	clientMetrics, err := providers.ClientMetrics()
	if err != nil {
		log.Fatal("Failed to create client metrics", zap.Error(err))
	}

	responseCache, err := cache.NewFactory(cfg.Cache, cfg.Redis, cache.WithLogger(log)).Create()
	if err != nil {
		log.Fatal("Failed to create response cache", zap.Error(err))
	}
	defer func() {
		if err := responseCache.Close(); err != nil {
			log.Error("Error closing response cache", zap.Error(err))
		}
	}()

	client, err := authority.NewClient(
		authority.NewConfig(cfg.Authority, cfg.Cache),
		auth.NewContextTokenProvider(),
		authority.WithCache(responseCache),
		authority.WithMetrics(clientMetrics),
		authority.WithLogger(log),
	)
	if err != nil {
		log.Fatal("Failed to create authority client", zap.Error(err))
	}

	sessions := appnumbering.NewSessions(client, log,
		appnumbering.WithMaxSessions(cfg.Sessions.MaxSessions),
		appnumbering.WithIdleTTL(cfg.Sessions.IdleTTL))
	defer sessions.Close()

	certificates := handler.NewCertificateHandler(client,
		appcert.WithPreferHybrid(cfg.Certificate.PreferHybrid),
		appcert.WithAutoMigrate(cfg.Certificate.AutoMigrate),
		appcert.WithExpiryWarningDays(cfg.Certificate.ExpiryWarningDays),
		appcert.WithLogger(log),
		appcert.WithConfigChange(func(ctx context.Context, view certificate.LegacyView) {
			logger.L(ctx).Info("Certificate configuration changed",
				zap.String("company_id", view.CompanyID),
				zap.String("source", string(view.Source)),
				zap.String("active_id", view.ActiveID),
			)
		}),
	)

	system := handler.NewSystemHandler(cfg.App.Name, version, map[string]handler.HealthCheck{
		"cache": func(ctx context.Context) error {
			if _, err := responseCache.Get(ctx, "health:probe"); err != nil && !errors.Is(err, shared.ErrCacheMiss) {
				return err
			}
			return nil
		},
	})

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins

	tracing := middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
		SkipPaths:   []string{"/health"},
	}

	engine, err := router.NewEngine(router.EngineConfig{
		Logger:         log,
		CORS:           cors,
		Tracing:        tracing,
		TrustedProxies: cfg.HTTP.TrustedProxies,
	}, system,
		handler.NewNumberingHandler(sessions),
		certificates,
	)
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Error("Telemetry shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
