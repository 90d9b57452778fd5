package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ebook-ai-api/internal/domain/repository"
	apperrors "ebook-ai-api/pkg/errors"
	"ebook-ai-api/pkg/logger"
)

// errRollbackOnly 响应已写出，仅用于触发回滚
var errRollbackOnly = errors.New("request failed, rolling back")

// DBTransaction 将整个请求包裹在一个数据库事务中
// 状态码 >= 400 或存在 Gin 错误时回滚，否则提交
// 只用于短请求（管理端写操作），不能挂在调用 LLM 的接口上
func DBTransaction(tx repository.Transactor) gin.HandlerFunc {
	if tx == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()

		err := tx.WithTransaction(ctx, func(txCtx context.Context) error {
			c.Request = c.Request.WithContext(txCtx)
			c.Next()
			if requestFailed(c) {
				return errRollbackOnly
			}
			return nil
		})
		if err == nil || errors.Is(err, errRollbackOnly) {
			return
		}

		// 提交失败
		logger.Error(ctx, "db transaction failed", err, "path", c.FullPath())
		if !c.Writer.Written() {
			abortWith(c, http.StatusInternalServerError, apperrors.CodeDatabaseError, "internal server error")
		}
	}
}

func requestFailed(c *gin.Context) bool {
	return c.Writer.Status() >= http.StatusBadRequest || len(c.Errors) > 0
}
