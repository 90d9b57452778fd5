package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"ebook-ai-api/internal/domain/entity"
	"ebook-ai-api/internal/domain/repository"
)

// TemplateRepository 模板仓储实现
type TemplateRepository struct {
	client *Client
}

// NewTemplateRepository 创建模板仓储
func NewTemplateRepository(client *Client) *TemplateRepository {
	return &TemplateRepository{client: client}
}

// Create 创建模板
func (r *TemplateRepository) Create(ctx context.Context, tpl *entity.Template) error {
	ctx, span := tracer.Start(ctx, "postgres.TemplateRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(tpl).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取模板
func (r *TemplateRepository) GetByID(ctx context.Context, id int64) (*entity.Template, error) {
	ctx, span := tracer.Start(ctx, "postgres.TemplateRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var tpl entity.Template
	if err := db.First(&tpl, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return &tpl, nil
}

// Update 更新模板
func (r *TemplateRepository) Update(ctx context.Context, tpl *entity.Template) error {
	ctx, span := tracer.Start(ctx, "postgres.TemplateRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	result := db.Model(&entity.Template{ID: tpl.ID}).
		Select("name", "category", "description", "preview_image", "structure", "is_premium").
		Updates(tpl)
	return affected(span, result, "update template")
}

// Delete 删除模板
func (r *TemplateRepository) Delete(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "postgres.TemplateRepository.Delete")
	defer span.End()

	db := getDB(ctx, r.client.db)
	return affected(span, db.Delete(&entity.Template{}, "id = ?", id), "delete template")
}

// List 按使用次数倒序列出模板
func (r *TemplateRepository) List(ctx context.Context, filter repository.TemplateFilter) ([]*entity.Template, error) {
	ctx, span := tracer.Start(ctx, "postgres.TemplateRepository.List")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.Template{})
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if !filter.IncludePremium {
		query = query.Where("is_premium = ?", false)
	}

	var templates []*entity.Template
	if err := query.Order("usage_count DESC").Order("id ASC").Find(&templates).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, nil
}

// IncrementUsage 使用次数 +1
func (r *TemplateRepository) IncrementUsage(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "postgres.TemplateRepository.IncrementUsage")
	defer span.End()

	db := getDB(ctx, r.client.db)
	result := db.Model(&entity.Template{}).Where("id = ?", id).
		Update("usage_count", gorm.Expr("usage_count + 1"))
	return affected(span, result, "increment template usage")
}
