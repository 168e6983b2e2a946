package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter configura el router de Gin con middlewares y rutas base.
func NewRouter(
	logger *zap.Logger,
	profileH *ProfileHandler,
	wsH *WSHandler,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging y recovery.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery())

	api := r.Group("/api")
	api.GET("/profile/:userId", profileH.GetProfile)

	r.GET("/ws", wsH.Handle)
	r.GET("/healthz", profileH.Health)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
