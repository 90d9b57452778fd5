package repository

import (
	"context"

	"ebook-ai-api/internal/domain/entity"
)

// TemplateFilter 模板过滤条件
type TemplateFilter struct {
	Category       string
	IncludePremium bool
}

// TemplateRepository 模板仓储接口
type TemplateRepository interface {
	Create(ctx context.Context, tpl *entity.Template) error
	GetByID(ctx context.Context, id int64) (*entity.Template, error)
	Update(ctx context.Context, tpl *entity.Template) error
	Delete(ctx context.Context, id int64) error
	// List 按使用次数倒序
	List(ctx context.Context, filter TemplateFilter) ([]*entity.Template, error)
	IncrementUsage(ctx context.Context, id int64) error
}
