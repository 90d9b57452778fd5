package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"ebook-ai-api/internal/application/ebook"
	"ebook-ai-api/internal/application/export"
	"ebook-ai-api/internal/application/generation"
	"ebook-ai-api/internal/domain/entity"
	"ebook-ai-api/internal/domain/repository"
	"ebook-ai-api/internal/interfaces/http/dto"
	"ebook-ai-api/internal/interfaces/http/middleware"
	"ebook-ai-api/pkg/logger"
)

// EbookService 电子书用例
type EbookService interface {
	Create(ctx context.Context, userID int64, in ebook.CreateInput) (*entity.Ebook, error)
	List(ctx context.Context, userID int64, filter *repository.EbookFilter, page repository.Pagination) (*repository.PagedResult[*entity.Ebook], error)
	Get(ctx context.Context, userID, id int64) (*entity.Ebook, error)
	Update(ctx context.Context, userID, id int64, in ebook.UpdateInput) (*entity.Ebook, error)
	Delete(ctx context.Context, userID, id int64) error
	StartGeneration(ctx context.Context, userID, id int64) (*entity.Ebook, error)
	RegenerateChapter(ctx context.Context, userID, ebookID, chapterID int64) (*entity.Chapter, error)
	EditChapter(ctx context.Context, userID, ebookID, chapterID int64, content, title *string) (*entity.Chapter, error)
	ImproveChapter(ctx context.Context, userID, ebookID, chapterID int64, instruction string) (*generation.ChapterText, error)
	Export(ctx context.Context, userID, id int64, format string) (*export.Result, error)
	Usage(ctx context.Context, userID int64) (*ebook.Usage, error)
}

// EbookHandler 电子书处理器
type EbookHandler struct {
	svc EbookService
}

// NewEbookHandler 创建电子书处理器
func NewEbookHandler(svc EbookService) *EbookHandler {
	return &EbookHandler{svc: svc}
}

// CreateEbook 创建电子书
// @Summary 创建电子书草稿
// @Description 可指定模板，模板章节标题将作为目录
// @Tags Ebooks
// @Accept json
// @Produce json
// @Param body body dto.CreateEbookRequest true "电子书信息"
// @Success 201 {object} dto.Response[entity.Ebook]
// @Failure 402 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Router /api/v1/ebooks [post]
func (h *EbookHandler) CreateEbook(c *gin.Context) {
	var req dto.CreateEbookRequest
	if !bindJSON(c, &req) {
		return
	}

	e, err := h.svc.Create(c.Request.Context(), middleware.GetUserIDFromGin(c), req.ToInput())
	if err != nil {
		writeError(c, "create ebook", err)
		return
	}
	dto.Created(c, e)
}

// ListEbooks 获取电子书列表
// @Summary 获取我的电子书
// @Tags Ebooks
// @Produce json
// @Param status query string false "状态过滤"
// @Param search query string false "标题关键字"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(10)
// @Success 200 {object} dto.Response[[]entity.Ebook]
// @Router /api/v1/ebooks [get]
func (h *EbookHandler) ListEbooks(c *gin.Context) {
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
	result, err := h.svc.List(c.Request.Context(), middleware.GetUserIDFromGin(c), filter, page.Pagination())
	if err != nil {
		writeError(c, "list ebooks", err)
		return
	}

	dto.SuccessWithPage(c, result.Items, dto.NewPageMeta(result.Page, result.PageSize, result.Total, result.TotalPages))
}

// GetEbook 获取电子书详情
// @Summary 获取电子书详情（含章节）
// @Tags Ebooks
// @Produce json
// @Param id path int true "电子书 ID"
// @Success 200 {object} dto.Response[entity.Ebook]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/ebooks/{id} [get]
func (h *EbookHandler) GetEbook(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	e, err := h.svc.Get(c.Request.Context(), middleware.GetUserIDFromGin(c), id)
	if err != nil {
		writeError(c, "get ebook", err)
		return
	}
	dto.Success(c, e)
}

// UpdateEbook 更新电子书
// @Summary 部分更新电子书
// @Tags Ebooks
// @Accept json
// @Produce json
// @Param id path int true "电子书 ID"
// @Param body body dto.UpdateEbookRequest true "更新内容"
// @Success 200 {object} dto.Response[entity.Ebook]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/ebooks/{id} [put]
func (h *EbookHandler) UpdateEbook(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateEbookRequest
	if !bindJSON(c, &req) {
		return
	}

	e, err := h.svc.Update(c.Request.Context(), middleware.GetUserIDFromGin(c), id, req.ToInput())
	if err != nil {
		writeError(c, "update ebook", err)
		return
	}
	dto.Success(c, e)
}

// DeleteEbook 删除电子书
// @Summary 删除电子书
// @Tags Ebooks
// @Param id path int true "电子书 ID"
// @Success 204
// @Failure 409 {object} dto.ErrorResponse
// @Router /api/v1/ebooks/{id} [delete]
func (h *EbookHandler) DeleteEbook(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), middleware.GetUserIDFromGin(c), id); err != nil {
		writeError(c, "delete ebook", err)
		return
	}
	dto.NoContent(c)
}

// GenerateEbook 发起整本生成
// @Summary 生成电子书
// @Description 同步生成目录与章节占位，正文在后台逐章生成
// @Tags Ebooks
// @Produce json
// @Param id path int true "电子书 ID"
// @Success 202 {object} dto.Response[entity.Ebook]
// @Failure 402 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /api/v1/ebooks/{id}/generate [post]
func (h *EbookHandler) GenerateEbook(c *gin.Context) {
	ctx := c.Request.Context()
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	e, err := h.svc.StartGeneration(ctx, middleware.GetUserIDFromGin(c), id)
	if err != nil {
		writeError(c, "start generation", err)
		return
	}
	logger.Info(ctx, "ebook generation accepted", "ebook_id", id, "chapters", len(e.Chapters))
	dto.Accepted(c, e)
}

// GenerateChapter 重新生成单章
// @Summary 重新生成单个章节
// @Tags Ebooks
// @Accept json
// @Produce json
// @Param id path int true "电子书 ID"
// @Param body body dto.GenerateChapterRequest true "章节"
// @Success 200 {object} dto.Response[entity.Chapter]
// @Failure 404 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Router /api/v1/ebooks/{id}/generate-chapter [post]
func (h *EbookHandler) GenerateChapter(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.GenerateChapterRequest
	if !bindJSON(c, &req) {
		return
	}

	ch, err := h.svc.RegenerateChapter(c.Request.Context(), middleware.GetUserIDFromGin(c), id, req.ChapterID)
	if err != nil {
		writeError(c, "regenerate chapter", err)
		return
	}
	dto.Success(c, ch)
}

// ExportEbook 导出电子书
// @Summary 导出电子书
// @Description 渲染为 markdown / txt 并上传对象存储，返回预签名下载地址
// @Tags Ebooks
// @Accept json
// @Produce json
// @Param id path int true "电子书 ID"
// @Param body body dto.ExportRequest false "导出格式"
// @Success 200 {object} dto.Response[export.Result]
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/ebooks/{id}/export [post]
func (h *EbookHandler) ExportEbook(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.ExportRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			dto.BadRequest(c, "invalid request body: "+err.Error())
			return
		}
	}
	if req.Format == "" {
		req.Format = c.Query("format")
	}

	result, err := h.svc.Export(c.Request.Context(), middleware.GetUserIDFromGin(c), id, req.Format)
	if err != nil {
		writeError(c, "export ebook", err)
		return
	}
	dto.Success(c, result)
}
