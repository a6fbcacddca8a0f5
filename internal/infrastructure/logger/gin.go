package logger

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const ginLoggerKey = "logger"

type ginOptions struct {
	skip map[string]bool
}

// GinOption configures GinMiddleware
type GinOption func(*ginOptions)

// WithSkipPaths silences successful requests on the given paths, typically
// health probes. Failures on them are still logged.
func WithSkipPaths(paths ...string) GinOption {
	return func(o *ginOptions) {
		for _, p := range paths {
			o.skip[p] = true
		}
	}
}

// GinMiddleware logs every proxied request and stores a request-scoped logger
// both in the gin context and in the request context, so application code can
// reach it through L(ctx). The company and series path parameters of the BFF
// routes are attached as fields.
func GinMiddleware(logger *zap.Logger, opts ...GinOption) gin.HandlerFunc {
	o := ginOptions{skip: map[string]bool{}}
	for _, opt := range opts {
		opt(&o)
	}

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		reqLogger := logger.With(zap.String("method", c.Request.Method), zap.String("path", path))
		if route := c.FullPath(); route != "" {
			reqLogger = reqLogger.With(zap.String("route", route))
		}
		if series := c.Param("serie"); series != "" {
			reqLogger = reqLogger.With(zap.String("serie", series))
		}
		ctx, reqLogger := WithRequestID(c.Request.Context(), reqLogger, c.GetString("request_id"))
		if companyID := c.Param("id"); companyID != "" {
			ctx, reqLogger = WithCompanyID(ctx, reqLogger, companyID)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Set(ginLoggerKey, reqLogger)

		c.Next()

		status := c.Writer.Status()
		if status < http.StatusBadRequest && o.skip[path] {
			return
		}

		fields := []zap.Field{
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("body_size", c.Writer.Size()),
		}
		if query := c.Request.URL.RawQuery; query != "" {
			fields = append(fields, zap.String("query", query))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		const msg = "HTTP Request"
		switch {
		case status == http.StatusBadGateway:
			reqLogger.Error("Invoicing backend unavailable", fields...)
		case status >= http.StatusInternalServerError:
			reqLogger.Error(msg, fields...)
		case status >= http.StatusBadRequest:
			reqLogger.Warn(msg, fields...)
		default:
			reqLogger.Info(msg, fields...)
		}
	}
}

// Recovery recovers from panics, logs them and answers 500
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("Panic recovered",
					zap.String("request_id", c.GetString("request_id")),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.Any("error", err),
					zap.Stack("stacktrace"),
				)
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}

// GetGinLogger retrieves the request logger from the gin context
func GetGinLogger(c *gin.Context) *zap.Logger {
	if l, ok := c.Get(ginLoggerKey); ok {
		if zl, ok := l.(*zap.Logger); ok {
			return zl
		}
	}
	return zap.NewNop()
}
