package repository

import (
	"context"
	"time"

	"ebook-ai-api/internal/domain/entity"
)

// EbookFilter 电子书过滤条件
type EbookFilter struct {
	Status entity.EbookStatus
	Search string
}

// EbookUsage 用户维度的电子书统计
type EbookUsage struct {
	Total      int64                        `json:"total"`
	ByStatus   map[entity.EbookStatus]int64 `json:"by_status"`
	TotalWords int64                        `json:"total_words"`
}

// EbookRepository 电子书仓储接口
// 所有按 ID 修改的方法在记录不存在时返回 ErrNotFound
type EbookRepository interface {
	// Create 创建电子书
	Create(ctx context.Context, ebook *entity.Ebook) error

	// GetByID 根据 ID 获取电子书（不存在返回 nil, nil）
	GetByID(ctx context.Context, id int64) (*entity.Ebook, error)

	// GetForUser 获取用户拥有的电子书，withChapters 时按章节号预加载章节
	GetForUser(ctx context.Context, id, userID int64, withChapters bool) (*entity.Ebook, error)

	// Update 更新可编辑字段
	Update(ctx context.Context, ebook *entity.Ebook) error

	// Delete 删除电子书（章节级联删除）
	Delete(ctx context.Context, id int64) error

	// ListByUser 分页获取用户电子书
	ListByUser(ctx context.Context, userID int64, filter *EbookFilter, pagination Pagination) (*PagedResult[*entity.Ebook], error)

	// MarkGenerating 原子地切换到 generating，已在生成中时返回 false
	MarkGenerating(ctx context.Context, id int64) (bool, error)

	// SetTableOfContents 保存目录
	SetTableOfContents(ctx context.Context, id int64, toc []string) error

	// UpdateProgress 更新进度与累计字数
	UpdateProgress(ctx context.Context, id int64, progress, totalWords int) error

	// UpdateTotalWords 仅更新累计字数
	UpdateTotalWords(ctx context.Context, id int64, totalWords int) error

	// Complete 标记生成完成，进度置为 100
	Complete(ctx context.Context, id int64, totalWords int) error

	// MarkFailed 标记生成失败
	MarkFailed(ctx context.Context, id int64) error

	// UsageByUser 用户电子书统计
	UsageByUser(ctx context.Context, userID int64) (*EbookUsage, error)

	// ListAll 管理端分页查询全部电子书
	ListAll(ctx context.Context, filter *EbookFilter, pagination Pagination) (*PagedResult[*entity.Ebook], error)

	// CountSince 统计 since 之后创建的电子书，零值统计全部
	CountSince(ctx context.Context, since time.Time) (int64, error)

	// DeleteByUser 删除用户的全部电子书
	DeleteByUser(ctx context.Context, userID int64) error
}
