// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"ebook-ai-api/internal/domain/entity"
)

// ChapterResult 单章生成结果的持久化字段
type ChapterResult struct {
	Content   string
	WordCount int
	Status    entity.ChapterStatus
	Model     string
}

// ChapterRepository 章节仓储接口
type ChapterRepository interface {
	// CreateBatch 按顺序批量创建章节
	CreateBatch(ctx context.Context, chapters []*entity.Chapter) error

	// GetByID 根据 ID 获取章节
	GetByID(ctx context.Context, id int64) (*entity.Chapter, error)

	// GetByEbookAndID 获取属于指定电子书的章节
	GetByEbookAndID(ctx context.Context, ebookID, chapterID int64) (*entity.Chapter, error)

	// ListByEbook 获取电子书全部章节（按章节号升序）
	ListByEbook(ctx context.Context, ebookID int64) ([]*entity.Chapter, error)

	// DeleteByEbook 删除电子书的全部章节
	DeleteByEbook(ctx context.Context, ebookID int64) error

	// UpdateStatus 更新章节状态
	UpdateStatus(ctx context.Context, id int64, status entity.ChapterStatus) error

	// SaveResult 写入内容、字数、状态
	SaveResult(ctx context.Context, id int64, result ChapterResult) error

	// UpdateContent 用户编辑章节（状态置为 edited）
	UpdateContent(ctx context.Context, chapter *entity.Chapter) error

	// SumWordCount 统计电子书总字数
	SumWordCount(ctx context.Context, ebookID int64) (int, error)
}
