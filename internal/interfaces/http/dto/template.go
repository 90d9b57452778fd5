package dto

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"ebook-ai-api/internal/application/template"
)

// TemplateRequest 创建/更新模板请求（管理员）
type TemplateRequest struct {
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	Description  string   `json:"description"`
	PreviewImage string   `json:"preview_image"`
	Chapters     []string `json:"chapters"`
	IsPremium    bool     `json:"is_premium"`
}

// Validate 校验模板参数
func (r TemplateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.By(notBlank("name is required")), validation.Length(1, 255)),
		validation.Field(&r.Category, validation.By(notBlank("category is required")), validation.Length(1, 100)),
		validation.Field(&r.PreviewImage, validation.Length(0, 512)),
		validation.Field(&r.Chapters, validation.Required.Error("at least one chapter is required"), validation.Length(1, MaxChapters)),
	)
}

// ToInput 转换为用例参数
func (r TemplateRequest) ToInput() template.Input {
	return template.Input{
		Name:         r.Name,
		Category:     r.Category,
		Description:  r.Description,
		PreviewImage: r.PreviewImage,
		Chapters:     r.Chapters,
		IsPremium:    r.IsPremium,
	}
}
