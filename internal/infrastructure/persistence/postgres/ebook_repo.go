package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"ebook-ai-api/internal/domain/entity"
	"ebook-ai-api/internal/domain/repository"
)

// EbookRepository 电子书仓储实现
type EbookRepository struct {
	client *Client
}

// NewEbookRepository 创建电子书仓储
func NewEbookRepository(client *Client) *EbookRepository {
	return &EbookRepository{client: client}
}

// Create 创建电子书
func (r *EbookRepository) Create(ctx context.Context, ebook *entity.Ebook) error {
	ctx, span := tracer.Start(ctx, "postgres.EbookRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Omit("Chapters").Create(ebook).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create ebook: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取电子书
func (r *EbookRepository) GetByID(ctx context.Context, id int64) (*entity.Ebook, error) {
	ctx, span := tracer.Start(ctx, "postgres.EbookRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var ebook entity.Ebook
	if err := db.First(&ebook, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get ebook: %w", err)
	}
	return &ebook, nil
}

// GetForUser 获取用户拥有的电子书
func (r *EbookRepository) GetForUser(ctx context.Context, id, userID int64, withChapters bool) (*entity.Ebook, error) {
	ctx, span := tracer.Start(ctx, "postgres.EbookRepository.GetForUser")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if withChapters {
		db = db.Preload("Chapters", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("chapter_number ASC")
		})
	}

	var ebook entity.Ebook
	if err := db.First(&ebook, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get ebook for user: %w", err)
	}
	return &ebook, nil
}

// Update 更新可编辑字段
func (r *EbookRepository) Update(ctx context.Context, ebook *entity.Ebook) error {
	ctx, span := tracer.Start(ctx, "postgres.EbookRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	result := db.Model(&entity.Ebook{ID: ebook.ID}).
		Select("title", "topic", "description", "tone", "target_audience", "language",
			"num_chapters", "words_per_chapter", "metadata", "cover_image").
		Updates(ebook)
	return affected(span, result, "update ebook")
}

// Delete 删除电子书
func (r *EbookRepository) Delete(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "postgres.EbookRepository.Delete")
	defer span.End()

	db := getDB(ctx, r.client.db)
	return affected(span, db.Delete(&entity.Ebook{}, "id = ?", id), "delete ebook")
}

// ListByUser 分页获取用户电子书
func (r *EbookRepository) ListByUser(ctx context.Context, userID int64, filter *repository.EbookFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.Ebook], error) {
	ctx, span := tracer.Start(ctx, "postgres.EbookRepository.ListByUser")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := applyEbookFilter(db.Model(&entity.Ebook{}).Where("user_id = ?", userID), filter)
	return r.page(span, query, pagination)
}

// ListAll 管理端分页查询全部电子书
func (r *EbookRepository) ListAll(ctx context.Context, filter *repository.EbookFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.Ebook], error) {
	ctx, span := tracer.Start(ctx, "postgres.EbookRepository.ListAll")
	defer span.End()

	db := getDB(ctx, r.client.db)
	return r.page(span, applyEbookFilter(db.Model(&entity.Ebook{}), filter), pagination)
}

func applyEbookFilter(query *gorm.DB, filter *repository.EbookFilter) *gorm.DB {
	if filter == nil {
		return query
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		query = query.Where("title ILIKE ?", "%"+s+"%")
	}
	return query
}

func (r *EbookRepository) page(span trace.Span, query *gorm.DB, pagination repository.Pagination) (*repository.PagedResult[*entity.Ebook], error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count ebooks: %w", err)
	}

	var ebooks []*entity.Ebook
	if err := query.Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&ebooks).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list ebooks: %w", err)
	}

	return repository.NewPagedResult(ebooks, total, pagination), nil
}

// MarkGenerating 条件更新：仅当不在 generating 状态时切换
func (r *EbookRepository) MarkGenerating(ctx context.Context, id int64) (bool, error) {
	ctx, span := tracer.Start(ctx, "postgres.EbookRepository.MarkGenerating")
	defer span.End()

	db := getDB(ctx, r.client.db)
	result := db.Model(&entity.Ebook{}).
		Where("id = ? AND status <> ?", id, entity.EbookStatusGenerating).
		Updates(map[string]interface{}{
			"status":              entity.EbookStatusGenerating,
			"generation_progress": 0,
			"total_words":         0,
		})
	if result.Error != nil {
		span.RecordError(result.Error)
		return false, fmt.Errorf("failed to mark ebook generating: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	var count int64
	if err := db.Model(&entity.Ebook{}).Where("id = ?", id).Count(&count).Error; err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("failed to check ebook: %w", err)
	}
	if count == 0 {
		return false, repository.ErrNotFound
	}
	return false, nil
}

// SetTableOfContents 保存目录
func (r *EbookRepository) SetTableOfContents(ctx context.Context, id int64, toc []string) error {
	ctx, span := tracer.Start(ctx, "postgres.EbookRepository.SetTableOfContents")
	defer span.End()

	db := getDB(ctx, r.client.db)
	result := db.Model(&entity.Ebook{}).Where("id = ?", id).
		Update("table_of_contents", pq.StringArray(toc))
	return affected(span, result, "set table of contents")
}

// UpdateProgress 更新进度与累计字数
func (r *EbookRepository) UpdateProgress(ctx context.Context, id int64, progress, totalWords int) error {
	ctx, span := tracer.Start(ctx, "postgres.EbookRepository.UpdateProgress")
	defer span.End()

	db := getDB(ctx, r.client.db)
	result := db.Model(&entity.Ebook{}).Where("id = ?", id).Updates(map[string]interface{}{
		"generation_progress": progress,
		"total_words":         totalWords,
	})
	return affected(span, result, "update ebook progress")
}

// UpdateTotalWords 仅更新累计字数
func (r *EbookRepository) UpdateTotalWords(ctx context.Context, id int64, totalWords int) error {
	ctx, span := tracer.Start(ctx, "postgres.EbookRepository.UpdateTotalWords")
	defer span.End()

	db := getDB(ctx, r.client.db)
	result := db.Model(&entity.Ebook{}).Where("id = ?", id).Update("total_words", totalWords)
	return affected(span, result, "update ebook total words")
}

// Complete 标记生成完成
func (r *EbookRepository) Complete(ctx context.Context, id int64, totalWords int) error {
	ctx, span := tracer.Start(ctx, "postgres.EbookRepository.Complete")
	defer span.End()

	db := getDB(ctx, r.client.db)
	result := db.Model(&entity.Ebook{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":              entity.EbookStatusCompleted,
		"generation_progress": 100,
		"total_words":         totalWords,
	})
	return affected(span, result, "complete ebook")
}

// MarkFailed 标记生成失败
func (r *EbookRepository) MarkFailed(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "postgres.EbookRepository.MarkFailed")
	defer span.End()

	db := getDB(ctx, r.client.db)
	result := db.Model(&entity.Ebook{}).Where("id = ?", id).Update("status", entity.EbookStatusFailed)
	return affected(span, result, "mark ebook failed")
}

// UsageByUser 用户电子书统计
func (r *EbookRepository) UsageByUser(ctx context.Context, userID int64) (*repository.EbookUsage, error) {
	ctx, span := tracer.Start(ctx, "postgres.EbookRepository.UsageByUser")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var rows []struct {
		Status entity.EbookStatus
		Count  int64
		Words  int64
	}
	if err := db.Model(&entity.Ebook{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(total_words), 0) AS words").
		Where("user_id = ?", userID).
		Group("status").
		Scan(&rows).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to aggregate ebook usage: %w", err)
	}

	usage := &repository.EbookUsage{ByStatus: make(map[entity.EbookStatus]int64, len(rows))}
	for _, row := range rows {
		usage.ByStatus[row.Status] = row.Count
		usage.Total += row.Count
		usage.TotalWords += row.Words
	}
	return usage, nil
}

// CountSince 统计电子书数量
func (r *EbookRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.EbookRepository.CountSince")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.Ebook{})
	if !since.IsZero() {
		query = query.Where("created_at >= ?", since)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count ebooks: %w", err)
	}
	return count, nil
}

// DeleteByUser 删除用户的全部电子书，章节级联删除
func (r *EbookRepository) DeleteByUser(ctx context.Context, userID int64) error {
	ctx, span := tracer.Start(ctx, "postgres.EbookRepository.DeleteByUser")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.Ebook{}, "user_id = ?", userID).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete user ebooks: %w", err)
	}
	return nil
}
