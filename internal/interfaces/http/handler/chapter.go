package handler

import (
	"github.com/gin-gonic/gin"

	"ebook-ai-api/internal/interfaces/http/dto"
	"ebook-ai-api/internal/interfaces/http/middleware"
)

// ChapterHandler 章节处理器
type ChapterHandler struct {
	svc EbookService
}

// NewChapterHandler 创建章节处理器
func NewChapterHandler(svc EbookService) *ChapterHandler {
	return &ChapterHandler{svc: svc}
}

// chapterPath 解析 :id 与 :chapterId
func chapterPath(c *gin.Context) (int64, int64, bool) {
	ebookID, ok := pathID(c, "id")
	if !ok {
		return 0, 0, false
	}
	chapterID, ok := pathID(c, "chapterId")
	if !ok {
		return 0, 0, false
	}
	return ebookID, chapterID, true
}

// UpdateChapter 编辑章节
// @Summary 手动编辑章节
// @Description 修改内容后状态变为 edited，并重算全书字数
// @Tags Chapters
// @Accept json
// @Produce json
// @Param id path int true "电子书 ID"
// @Param chapterId path int true "章节 ID"
// @Param body body dto.UpdateChapterRequest true "章节内容"
// @Success 200 {object} dto.Response[entity.Chapter]
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /api/v1/ebooks/{id}/chapters/{chapterId} [put]
func (h *ChapterHandler) UpdateChapter(c *gin.Context) {
	ebookID, chapterID, ok := chapterPath(c)
	if !ok {
		return
	}
	var req dto.UpdateChapterRequest
	if !bindJSON(c, &req) {
		return
	}

	ch, err := h.svc.EditChapter(c.Request.Context(), middleware.GetUserIDFromGin(c), ebookID, chapterID, req.Content, req.Title)
	if err != nil {
		writeError(c, "edit chapter", err)
		return
	}
	dto.Success(c, ch)
}

// ImproveChapter AI 改写章节
// @Summary AI 改写章节
// @Description 按指令改写章节正文，结果仅返回不保存
// @Tags Chapters
// @Accept json
// @Produce json
// @Param id path int true "电子书 ID"
// @Param chapterId path int true "章节 ID"
// @Param body body dto.ImproveChapterRequest true "改写指令"
// @Success 200 {object} dto.Response[dto.ImproveChapterResponse]
// @Failure 429 {object} dto.ErrorResponse
// @Router /api/v1/ebooks/{id}/chapters/{chapterId}/improve [post]
func (h *ChapterHandler) ImproveChapter(c *gin.Context) {
	ebookID, chapterID, ok := chapterPath(c)
	if !ok {
		return
	}
	var req dto.ImproveChapterRequest
	if !bindJSON(c, &req) {
		return
	}

	text, err := h.svc.ImproveChapter(c.Request.Context(), middleware.GetUserIDFromGin(c), ebookID, chapterID, req.Instruction)
	if err != nil {
		writeError(c, "improve chapter", err)
		return
	}
	dto.Success(c, &dto.ImproveChapterResponse{
		Content:   text.Content,
		WordCount: text.WordCount,
		Model:     text.Model,
	})
}
