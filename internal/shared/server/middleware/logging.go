package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"coop-site/internal/shared/telemetry"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
			"admin":       IsAdmin(c),
		}
		if week, ok := c.Get("week"); ok {
			fields["week"] = week
		}
		if backend, ok := c.Get("storageBackend"); ok {
			fields["storage_backend"] = backend
		}
		telemetry.Info("request.complete", fields)
	}
}
