package middleware

import (
	"github.com/gin-gonic/gin"

	apperrors "ebook-ai-api/pkg/errors"
)

// abortWith 终止请求，响应体与 dto.ErrorResponse 同构
func abortWith(c *gin.Context, status int, code apperrors.ErrorCode, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"code":     status,
		"message":  msg,
		"error":    gin.H{"error_code": code},
		"trace_id": c.GetString("trace_id"),
	})
}
