package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"ebook-ai-api/internal/application/template"
	"ebook-ai-api/internal/domain/entity"
	"ebook-ai-api/internal/interfaces/http/dto"
)

// TemplateService 模板用例
type TemplateService interface {
	List(ctx context.Context, category string, user *entity.User) ([]*entity.Template, error)
	Get(ctx context.Context, id int64, user *entity.User) (*entity.Template, error)
	Create(ctx context.Context, in template.Input) (*entity.Template, error)
	Update(ctx context.Context, id int64, in template.Input) (*entity.Template, error)
	Delete(ctx context.Context, id int64) error
}

// TemplateHandler 模板处理器
type TemplateHandler struct {
	svc TemplateService
}

// NewTemplateHandler 创建模板处理器
func NewTemplateHandler(svc TemplateService) *TemplateHandler {
	return &TemplateHandler{svc: svc}
}

// ListTemplates 模板列表
// @Summary 获取模板列表
// @Description 按使用次数倒序，免费用户不返回高级模板
// @Tags Templates
// @Produce json
// @Param category query string false "分类"
// @Success 200 {object} dto.Response[[]entity.Template]
// @Router /api/v1/templates [get]
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context(), c.Query("category"), caller(c))
	if err != nil {
		writeError(c, "list templates", err)
		return
	}
	if items == nil {
		items = []*entity.Template{}
	}
	dto.Success(c, items)
}

// GetTemplate 模板详情
// @Summary 获取模板详情
// @Tags Templates
// @Produce json
// @Param id path int true "模板 ID"
// @Success 200 {object} dto.Response[entity.Template]
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/templates/{id} [get]
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	tpl, err := h.svc.Get(c.Request.Context(), id, caller(c))
	if err != nil {
		writeError(c, "get template", err)
		return
	}
	dto.Success(c, tpl)
}

// CreateTemplate 创建模板（管理员）
// @Summary 创建模板
// @Tags Templates
// @Accept json
// @Produce json
// @Param body body dto.TemplateRequest true "模板"
// @Success 201 {object} dto.Response[entity.Template]
// @Failure 403 {object} dto.ErrorResponse
// @Router /api/v1/templates [post]
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	var req dto.TemplateRequest
	if !bindJSON(c, &req) {
		return
	}

	tpl, err := h.svc.Create(c.Request.Context(), req.ToInput())
	if err != nil {
		writeError(c, "create template", err)
		return
	}
	dto.Created(c, tpl)
}

// UpdateTemplate 更新模板（管理员）
// @Summary 更新模板
// @Tags Templates
// @Accept json
// @Produce json
// @Param id path int true "模板 ID"
// @Param body body dto.TemplateRequest true "模板"
// @Success 200 {object} dto.Response[entity.Template]
// @Router /api/v1/templates/{id} [put]
func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.TemplateRequest
	if !bindJSON(c, &req) {
		return
	}

	tpl, err := h.svc.Update(c.Request.Context(), id, req.ToInput())
	if err != nil {
		writeError(c, "update template", err)
		return
	}
	dto.Success(c, tpl)
}

// DeleteTemplate 删除模板（管理员）
// @Router /api/v1/templates/{id} [delete]
func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		writeError(c, "delete template", err)
		return
	}
	dto.NoContent(c)
}
