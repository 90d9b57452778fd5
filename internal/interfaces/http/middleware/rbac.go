package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ebook-ai-api/internal/domain/entity"
	apperrors "ebook-ai-api/pkg/errors"
)

// Permission 权限
type Permission string

const (
	PermEbookRead      Permission = "ebook:read"
	PermEbookWrite     Permission = "ebook:write"
	PermEbookGenerate  Permission = "ebook:generate"
	PermTemplateManage Permission = "template:manage"
	PermUserManage     Permission = "user:manage"
)

type permissionSet map[Permission]struct{}

func newPermissionSet(perms ...Permission) permissionSet {
	s := make(permissionSet, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

var (
	userPermissions  = newPermissionSet(PermEbookRead, PermEbookWrite, PermEbookGenerate)
	adminPermissions = newPermissionSet(PermEbookRead, PermEbookWrite, PermEbookGenerate, PermTemplateManage, PermUserManage)
)

// HasPermission 未知角色没有任何权限
func HasPermission(role entity.UserRole, perm Permission) bool {
	var set permissionSet
	switch role {
	case entity.UserRoleAdmin:
		set = adminPermissions
	case entity.UserRoleUser:
		set = userPermissions
	default:
		return false
	}
	_, ok := set[perm]
	return ok
}

// RequirePermission 按 JWT 中的角色检查权限，需挂在 Auth 之后
func RequirePermission(perm Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !HasPermission(entity.UserRole(GetRoleFromGin(c)), perm) {
			abortWith(c, http.StatusForbidden, apperrors.CodePermissionDenied, "permission denied: "+string(perm))
			return
		}
		c.Next()
	}
}

// RequireAdmin 模板管理等管理端接口
func RequireAdmin() gin.HandlerFunc {
	return RequirePermission(PermTemplateManage)
}
