package dto

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"ebook-ai-api/internal/application/ebook"
	"ebook-ai-api/internal/domain/entity"
)

// 规模上限
const (
	MaxChapters        = 50
	MaxWordsPerChapter = 5000
)

// CreateEbookRequest 创建电子书请求
type CreateEbookRequest struct {
	Title           string   `json:"title"`
	Topic           string   `json:"topic"`
	Description     string   `json:"description"`
	NumChapters     int      `json:"num_chapters"`
	WordsPerChapter int      `json:"words_per_chapter"`
	Tone            string   `json:"tone"`
	TargetAudience  string   `json:"target_audience"`
	Language        string   `json:"language"`
	TemplateID      *int64   `json:"template_id"`
	ChapterTitles   []string `json:"chapter_titles"`
}

// Validate 校验创建参数，数值字段为 0 时使用默认值
func (r CreateEbookRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.By(notBlank("title is required")), validation.Length(1, 255)),
		validation.Field(&r.Topic, validation.By(notBlank("topic is required"))),
		validation.Field(&r.NumChapters, validation.Min(0), validation.Max(MaxChapters)),
		validation.Field(&r.WordsPerChapter, validation.Min(0), validation.Max(MaxWordsPerChapter)),
		validation.Field(&r.Tone, validation.Length(0, 50)),
		validation.Field(&r.Language, validation.Length(0, 50)),
		validation.Field(&r.TargetAudience, validation.Length(0, 255)),
		validation.Field(&r.TemplateID, validation.When(r.TemplateID != nil, validation.Min(int64(1)))),
		validation.Field(&r.ChapterTitles, validation.Length(0, MaxChapters)),
	)
}

// ToInput 转换为用例参数
func (r CreateEbookRequest) ToInput() ebook.CreateInput {
	return ebook.CreateInput{
		Title:           r.Title,
		Topic:           r.Topic,
		Description:     r.Description,
		NumChapters:     r.NumChapters,
		WordsPerChapter: r.WordsPerChapter,
		Tone:            r.Tone,
		TargetAudience:  r.TargetAudience,
		Language:        r.Language,
		TemplateID:      r.TemplateID,
		ChapterTitles:   r.ChapterTitles,
	}
}

// UpdateEbookRequest 部分更新请求
type UpdateEbookRequest struct {
	Title          *string               `json:"title"`
	Topic          *string               `json:"topic"`
	Description    *string               `json:"description"`
	Tone           *string               `json:"tone"`
	TargetAudience *string               `json:"target_audience"`
	CoverImage     *string               `json:"cover_image"`
	Metadata       *entity.EbookMetadata `json:"metadata"`
}

// Validate 校验更新参数，出现的标题与主题不能为空
func (r UpdateEbookRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.When(r.Title != nil, validation.By(notBlank("title cannot be empty")))),
		validation.Field(&r.Topic, validation.When(r.Topic != nil, validation.By(notBlank("topic cannot be empty")))),
		validation.Field(&r.Tone, validation.Length(0, 50)),
		validation.Field(&r.CoverImage, validation.Length(0, 512)),
	)
}

// ToInput 转换为用例参数
func (r UpdateEbookRequest) ToInput() ebook.UpdateInput {
	return ebook.UpdateInput{
		Title:          r.Title,
		Topic:          r.Topic,
		Description:    r.Description,
		Tone:           r.Tone,
		TargetAudience: r.TargetAudience,
		CoverImage:     r.CoverImage,
		Metadata:       r.Metadata,
	}
}

// ListEbooksQuery 列表过滤参数
type ListEbooksQuery struct {
	Status string `form:"status"`
	Search string `form:"search"`
}

// Validate 校验状态取值
func (q ListEbooksQuery) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.Status, validation.In(
			string(entity.EbookStatusDraft),
			string(entity.EbookStatusGenerating),
			string(entity.EbookStatusCompleted),
			string(entity.EbookStatusFailed),
		)),
	)
}

// ExportRequest 导出请求
type ExportRequest struct {
	Format string `json:"format"`
}

// notBlank 与 validation.Required 不同，纯空白也视为缺失
func notBlank(msg string) validation.RuleFunc {
	return func(value interface{}) error {
		var s string
		switch v := value.(type) {
		case string:
			s = v
		case *string:
			if v != nil {
				s = *v
			}
		}
		if strings.TrimSpace(s) == "" {
			return validation.NewError("validation_blank", msg)
		}
		return nil
	}
}
