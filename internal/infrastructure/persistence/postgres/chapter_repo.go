// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"ebook-ai-api/internal/domain/entity"
	"ebook-ai-api/internal/domain/repository"
)

// ChapterRepository 章节仓储实现
type ChapterRepository struct {
	client *Client
}

// NewChapterRepository 创建章节仓储
func NewChapterRepository(client *Client) *ChapterRepository {
	return &ChapterRepository{client: client}
}

// CreateBatch 批量创建章节
func (r *ChapterRepository) CreateBatch(ctx context.Context, chapters []*entity.Chapter) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.CreateBatch")
	defer span.End()

	if len(chapters) == 0 {
		return nil
	}
	db := getDB(ctx, r.client.db)
	if err := db.CreateInBatches(chapters, 100).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create chapters: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取章节
func (r *ChapterRepository) GetByID(ctx context.Context, id int64) (*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var chapter entity.Chapter
	if err := db.First(&chapter, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get chapter: %w", err)
	}
	return &chapter, nil
}

// GetByEbookAndID 获取属于指定电子书的章节
func (r *ChapterRepository) GetByEbookAndID(ctx context.Context, ebookID, chapterID int64) (*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.GetByEbookAndID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var chapter entity.Chapter
	if err := db.First(&chapter, "id = ? AND ebook_id = ?", chapterID, ebookID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get chapter by ebook: %w", err)
	}
	return &chapter, nil
}

// ListByEbook 获取电子书全部章节
func (r *ChapterRepository) ListByEbook(ctx context.Context, ebookID int64) ([]*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.ListByEbook")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var chapters []*entity.Chapter
	if err := db.Where("ebook_id = ?", ebookID).
		Order("chapter_number ASC").
		Find(&chapters).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list chapters: %w", err)
	}
	return chapters, nil
}

// DeleteByEbook 删除电子书全部章节
func (r *ChapterRepository) DeleteByEbook(ctx context.Context, ebookID int64) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.DeleteByEbook")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Where("ebook_id = ?", ebookID).Delete(&entity.Chapter{}).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete chapters: %w", err)
	}
	return nil
}

// UpdateStatus 更新章节状态
func (r *ChapterRepository) UpdateStatus(ctx context.Context, id int64, status entity.ChapterStatus) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.UpdateStatus")
	defer span.End()

	db := getDB(ctx, r.client.db)
	result := db.Model(&entity.Chapter{}).Where("id = ?", id).Update("status", status)
	return affected(span, result, "update chapter status")
}

// SaveResult 写入生成结果
func (r *ChapterRepository) SaveResult(ctx context.Context, id int64, res repository.ChapterResult) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.SaveResult")
	defer span.End()

	db := getDB(ctx, r.client.db)
	result := db.Model(&entity.Chapter{}).Where("id = ?", id).Updates(map[string]interface{}{
		"content":         res.Content,
		"word_count":      res.WordCount,
		"status":          res.Status,
		"generated_model": res.Model,
	})
	return affected(span, result, "save chapter result")
}

// UpdateContent 写入用户编辑
func (r *ChapterRepository) UpdateContent(ctx context.Context, chapter *entity.Chapter) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.UpdateContent")
	defer span.End()

	db := getDB(ctx, r.client.db)
	result := db.Model(&entity.Chapter{}).Where("id = ?", chapter.ID).Updates(map[string]interface{}{
		"title":      chapter.Title,
		"content":    chapter.Content,
		"word_count": chapter.WordCount,
		"status":     chapter.Status,
	})
	return affected(span, result, "update chapter content")
}

// SumWordCount 统计电子书总字数
func (r *ChapterRepository) SumWordCount(ctx context.Context, ebookID int64) (int, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.SumWordCount")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var total int64
	if err := db.Model(&entity.Chapter{}).
		Select("COALESCE(SUM(word_count), 0)").
		Where("ebook_id = ?", ebookID).
		Scan(&total).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to sum chapter words: %w", err)
	}
	return int(total), nil
}
