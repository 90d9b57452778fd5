package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"ebook-ai-api/pkg/logger"
)

// AuditConfig 访问日志配置
type AuditConfig struct {
	Enabled bool
	// SkipPaths 按前缀跳过（探活与指标接口）
	SkipPaths []string
}

// Audit 访问日志，5xx 记为 error，4xx 记为 warn
func Audit(cfg AuditConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, p := range cfg.SkipPaths {
			if strings.HasPrefix(path, p) {
				c.Next()
				return
			}
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		kv := []any{
			"method", c.Request.Method,
			"path", path,
			"route", c.FullPath(),
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", c.ClientIP(),
			"user_id", GetUserIDFromGin(c),
			"body_size", c.Writer.Size(),
		}

		ctx := c.Request.Context()
		switch {
		case status >= http.StatusInternalServerError:
			var err error
			if last := c.Errors.Last(); last != nil {
				err = last
			}
			logger.Error(ctx, "api request failed", err, kv...)
		case status >= http.StatusBadRequest:
			logger.Warn(ctx, "api request rejected", kv...)
		default:
			logger.Info(ctx, "api request", kv...)
		}
	}
}
