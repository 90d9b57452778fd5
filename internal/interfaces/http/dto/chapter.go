package dto

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// GenerateChapterRequest 单章重生成请求
type GenerateChapterRequest struct {
	ChapterID int64 `json:"chapter_id"`
}

// Validate 校验章节 ID
func (r GenerateChapterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ChapterID, validation.Required, validation.Min(int64(1))),
	)
}

// UpdateChapterRequest 章节编辑请求
type UpdateChapterRequest struct {
	Content *string `json:"content"`
	Title   *string `json:"title"`
}

// Validate 至少提供一个字段
func (r UpdateChapterRequest) Validate() error {
	if r.Content == nil && r.Title == nil {
		return validation.Errors{"content": validation.NewError("validation_required", "content or title is required")}
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Length(0, 255)),
	)
}

// ImproveChapterRequest AI 改写请求
type ImproveChapterRequest struct {
	Instruction string `json:"instruction"`
}

// Validate 校验改写指令
func (r ImproveChapterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Instruction, validation.By(notBlank("instruction is required")), validation.Length(1, 2000)),
	)
}

// ImproveChapterResponse AI 改写结果（未保存）
type ImproveChapterResponse struct {
	Content   string `json:"content"`
	WordCount int    `json:"word_count"`
	Model     string `json:"model,omitempty"`
}
