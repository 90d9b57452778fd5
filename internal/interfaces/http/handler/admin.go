package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"ebook-ai-api/internal/domain/entity"
	"ebook-ai-api/internal/domain/repository"
	"ebook-ai-api/internal/interfaces/http/dto"
	"ebook-ai-api/internal/interfaces/http/middleware"
)

// AdminHandler 管理后台处理器
type AdminHandler struct {
	accounts AccountService
}

// NewAdminHandler 创建管理后台处理器
func NewAdminHandler(accounts AccountService) *AdminHandler {
	return &AdminHandler{accounts: accounts}
}

// Stats 系统概览
// @Summary 系统概览
// @Description 用户与电子书总数及近 30 天新增
// @Tags Admin
// @Produce json
// @Success 200 {object} dto.Response[account.Stats]
// @Failure 403 {object} dto.ErrorResponse
// @Router /api/v1/admin/stats [get]
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.accounts.Stats(c.Request.Context())
	if err != nil {
		writeError(c, "admin stats", err)
		return
	}
	dto.Success(c, stats)
}

// ListUsers 用户列表
// @Summary 用户列表
// @Tags Admin
// @Produce json
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Param search query string false "邮箱或姓名"
// @Param tier query string false "订阅等级"
// @Success 200 {object} dto.Response[[]dto.UserDTO]
// @Failure 403 {object} dto.ErrorResponse
// @Router /api/v1/admin/users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	var q dto.ListUsersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		dto.BadRequest(c, "invalid query: "+err.Error())
		return
	}
	if err := q.Validate(); err != nil {
		dto.ValidationFailed(c, err)
		return
	}
	page := dto.BindPage(c)

	filter := &repository.UserFilter{
		Search: strings.TrimSpace(q.Search),
		Tier:   entity.SubscriptionTier(q.Tier),
	}
	result, err := h.accounts.ListUsers(c.Request.Context(), filter, page.Pagination())
	if err != nil {
		writeError(c, "list users", err)
		return
	}
	dto.SuccessWithPage(c, dto.ToUserDTOs(result.Items), dto.NewPageMeta(result.Page, result.PageSize, result.Total, result.TotalPages))
}

// GetUser 用户详情
// @Summary 用户详情（含电子书统计）
// @Tags Admin
// @Produce json
// @Param id path int true "用户 ID"
// @Success 200 {object} dto.Response[dto.AdminUserDTO]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/admin/users/{id} [get]
func (h *AdminHandler) GetUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	detail, err := h.accounts.GetUser(c.Request.Context(), id)
	if err != nil {
		writeError(c, "get user", err)
		return
	}
	dto.Success(c, dto.ToAdminUserDTO(detail))
}

// UpdateUser 修改用户
// @Summary 修改用户角色、等级或额度
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path int true "用户 ID"
// @Param body body dto.AdminUpdateUserRequest true "更新内容"
// @Success 200 {object} dto.Response[dto.UserDTO]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /api/v1/admin/users/{id} [put]
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.AdminUpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.accounts.UpdateUser(c.Request.Context(), middleware.GetUserIDFromGin(c), id, req.ToInput())
	if err != nil {
		writeError(c, "update user", err)
		return
	}
	dto.Success(c, dto.ToUserDTO(user))
}

// DeleteUser 删除用户
// @Summary 删除用户及其电子书
// @Tags Admin
// @Param id path int true "用户 ID"
// @Success 204
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /api/v1/admin/users/{id} [delete]
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.accounts.DeleteUser(c.Request.Context(), middleware.GetUserIDFromGin(c), id); err != nil {
		writeError(c, "delete user", err)
		return
	}
	dto.NoContent(c)
}

// ListEbooks 全部电子书
// @Summary 全部用户的电子书
// @Tags Admin
// @Produce json
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Param status query string false "状态"
// @Param search query string false "标题或主题"
// @Success 200 {object} dto.Response[[]entity.Ebook]
// @Failure 403 {object} dto.ErrorResponse
// @Router /api/v1/admin/ebooks [get]
func (h *AdminHandler) ListEbooks(c *gin.Context) {
	var q dto.ListEbooksQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		dto.BadRequest(c, "invalid query: "+err.Error())
		return
	}
	if err := q.Validate(); err != nil {
		dto.ValidationFailed(c, err)
		return
	}
	page := dto.BindPage(c)

	filter := &repository.EbookFilter{
		Status: entity.EbookStatus(q.Status),
		Search: strings.TrimSpace(q.Search),
	}
	result, err := h.accounts.ListEbooks(c.Request.Context(), filter, page.Pagination())
	if err != nil {
		writeError(c, "admin list ebooks", err)
		return
	}
	dto.SuccessWithPage(c, result.Items, dto.NewPageMeta(result.Page, result.PageSize, result.Total, result.TotalPages))
}
