package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"ebook-ai-api/internal/application/account"
	"ebook-ai-api/internal/domain/entity"
	"ebook-ai-api/internal/domain/repository"
	"ebook-ai-api/internal/interfaces/http/dto"
	"ebook-ai-api/internal/interfaces/http/middleware"
)

// AccountService 个人资料与管理后台用例
type AccountService interface {
	Profile(ctx context.Context, userID int64) (*entity.User, error)
	UpdateProfile(ctx context.Context, userID int64, in account.ProfileInput) (*entity.User, error)
	ChangePassword(ctx context.Context, userID int64, current, next string) error
	Stats(ctx context.Context) (*account.Stats, error)
	ListUsers(ctx context.Context, filter *repository.UserFilter, page repository.Pagination) (*repository.PagedResult[*entity.User], error)
	GetUser(ctx context.Context, id int64) (*account.UserDetail, error)
	UpdateUser(ctx context.Context, actorID, id int64, in account.AdminUpdateInput) (*entity.User, error)
	DeleteUser(ctx context.Context, actorID, id int64) error
	ListEbooks(ctx context.Context, filter *repository.EbookFilter, page repository.Pagination) (*repository.PagedResult[*entity.Ebook], error)
}

var _ AccountService = (*account.Service)(nil)

// UserHandler 用户处理器
type UserHandler struct {
	svc      EbookService
	accounts AccountService
}

// NewUserHandler 创建用户处理器
func NewUserHandler(svc EbookService, accounts AccountService) *UserHandler {
	return &UserHandler{svc: svc, accounts: accounts}
}

// GetMe 获取个人资料
// @Summary 获取个人资料
// @Tags Users
// @Produce json
// @Success 200 {object} dto.Response[dto.UserDTO]
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/users/me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	user, err := h.accounts.Profile(c.Request.Context(), middleware.GetUserIDFromGin(c))
	if err != nil {
		writeError(c, "get profile", err)
		return
	}
	dto.Success(c, dto.ToUserDTO(user))
}

// UpdateMe 修改个人资料
// @Summary 修改个人资料
// @Description 修改姓名或邮箱，邮箱已被占用时返回 409
// @Tags Users
// @Accept json
// @Produce json
// @Param body body dto.UpdateProfileRequest true "更新内容"
// @Success 200 {object} dto.Response[dto.UserDTO]
// @Failure 409 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Router /api/v1/users/me [put]
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req dto.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.accounts.UpdateProfile(c.Request.Context(), middleware.GetUserIDFromGin(c), req.ToInput())
	if err != nil {
		writeError(c, "update profile", err)
		return
	}
	dto.Success(c, dto.ToUserDTO(user))
}

// ChangePassword 修改密码
// @Summary 修改密码
// @Tags Users
// @Accept json
// @Produce json
// @Param body body dto.ChangePasswordRequest true "当前密码与新密码"
// @Success 200 {object} dto.Response[map[string]string]
// @Failure 401 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Router /api/v1/users/me/password [put]
func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req dto.ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.accounts.ChangePassword(c.Request.Context(), middleware.GetUserIDFromGin(c), req.CurrentPassword, req.NewPassword); err != nil {
		writeError(c, "change password", err)
		return
	}
	dto.Success(c, gin.H{"message": "password updated"})
}

// GetUsage 获取当前用户用量
// @Summary 获取用量统计
// @Description 各状态电子书数量、累计字数与剩余额度
// @Tags Users
// @Produce json
// @Success 200 {object} dto.Response[ebook.Usage]
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/v1/users/me/usage [get]
func (h *UserHandler) GetUsage(c *gin.Context) {
	usage, err := h.svc.Usage(c.Request.Context(), middleware.GetUserIDFromGin(c))
	if err != nil {
		writeError(c, "get usage", err)
		return
	}
	dto.Success(c, usage)
}
