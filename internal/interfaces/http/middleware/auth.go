// Package middleware 提供 HTTP 中间件
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "ebook-ai-api/pkg/errors"
	"ebook-ai-api/pkg/logger"
	"ebook-ai-api/pkg/utils"
)

// Gin Context 中的认证信息键
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
	ContextTier   = "subscription_tier"
)

// TokenParser 解析访问令牌
type TokenParser interface {
	ParseToken(token string) (*utils.Claims, error)
}

// AuthConfig 认证配置
type AuthConfig struct {
	// SkipPaths 跳过认证的路径前缀
	SkipPaths []string
}

// Auth 认证中间件
func Auth(cfg AuthConfig, parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, path := range cfg.SkipPaths {
			if strings.HasPrefix(c.Request.URL.Path, path) {
				c.Next()
				return
			}
		}

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortWith(c, http.StatusUnauthorized, apperrors.CodeTokenMissing, "missing or malformed bearer token")
			return
		}

		claims, err := parser.ParseToken(token)
		switch {
		case errors.Is(err, utils.ErrExpiredToken):
			abortWith(c, http.StatusUnauthorized, apperrors.CodeTokenExpired, "token expired")
			return
		case err != nil:
			abortWith(c, http.StatusUnauthorized, apperrors.CodeTokenInvalid, "invalid token")
			return
		case claims.Type != utils.TokenTypeAccess:
			// RefreshToken 不能访问业务接口
			abortWith(c, http.StatusUnauthorized, apperrors.CodeTokenInvalid, "invalid token type")
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextRole, claims.Role)
		c.Set(ContextTier, claims.Tier)

		ctx := logger.WithContext(c.Request.Context(), logger.UserIDKey, claims.UserID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetUserIDFromGin 从 Gin Context 中获取用户 ID
func GetUserIDFromGin(c *gin.Context) int64 {
	return c.GetInt64(ContextUserID)
}

// GetRoleFromGin 从 Gin Context 中获取角色
func GetRoleFromGin(c *gin.Context) string {
	return c.GetString(ContextRole)
}

// GetTierFromGin 从 Gin Context 中获取订阅等级
func GetTierFromGin(c *gin.Context) string {
	return c.GetString(ContextTier)
}

// bearerToken 解析 "Bearer <token>"，scheme 不区分大小写
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// DefaultSkipPaths 默认跳过认证的路径
var DefaultSkipPaths = []string{
	"/health",
	"/ready",
	"/live",
	"/metrics",
}
