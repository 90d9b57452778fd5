package handler

import (
	"github.com/gin-gonic/gin"

	"ebook-ai-api/internal/domain/entity"
	"ebook-ai-api/internal/interfaces/http/dto"
	"ebook-ai-api/internal/interfaces/http/middleware"
	apperrors "ebook-ai-api/pkg/errors"
	"ebook-ai-api/pkg/logger"
)

type validatable interface {
	Validate() error
}

// bindJSON 绑定并校验请求体，失败时已写出响应
func bindJSON(c *gin.Context, req validatable) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return false
	}
	if err := req.Validate(); err != nil {
		dto.ValidationFailed(c, err)
		return false
	}
	return true
}

// pathID 解析路径中的数字 ID
func pathID(c *gin.Context, name string) (int64, bool) {
	id, ok := dto.BindID(c, name)
	if !ok {
		dto.BadRequest(c, "invalid "+name)
	}
	return id, ok
}

// writeError 输出应用错误，5xx 记录日志
func writeError(c *gin.Context, op string, err error) {
	if apperrors.AsAppError(err).HTTPStatus >= 500 {
		logger.Error(c.Request.Context(), op+" failed", err)
	}
	dto.AppError(c, err)
}

// caller 由令牌声明构造当前用户，仅包含身份与等级
func caller(c *gin.Context) *entity.User {
	return &entity.User{
		ID:               middleware.GetUserIDFromGin(c),
		Role:             entity.UserRole(middleware.GetRoleFromGin(c)),
		SubscriptionTier: entity.SubscriptionTier(middleware.GetTierFromGin(c)),
	}
}
