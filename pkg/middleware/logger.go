package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestLogger writes one log line per request
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(
			c.Request.Context(),
			level,
			fmt.Sprintf("%s %s %d", c.Request.Method, c.Request.URL.Path, status),
			"component", "http",
			"route", route,
			"status", status,
			"duration", time.Since(start).String(),
			"bytes", c.Writer.Size(),
		)
	}
}
