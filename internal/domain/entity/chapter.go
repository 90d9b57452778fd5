package entity

import (
	"strings"
	"time"
)

// ChapterStatus 章节状态
type ChapterStatus string

const (
	ChapterStatusPending    ChapterStatus = "pending"
	ChapterStatusGenerating ChapterStatus = "generating"
	ChapterStatusCompleted  ChapterStatus = "completed"
	ChapterStatusEdited     ChapterStatus = "edited"
	ChapterStatusFailed     ChapterStatus = "failed"
)

// Chapter 章节实体
type Chapter struct {
	ID             int64         `json:"id" gorm:"primaryKey;autoIncrement"`
	EbookID        int64         `json:"ebook_id" gorm:"not null;uniqueIndex:idx_chapters_ebook_number,priority:1"`
	ChapterNumber  int           `json:"chapter_number" gorm:"not null;uniqueIndex:idx_chapters_ebook_number,priority:2"`
	Title          string        `json:"title" gorm:"type:varchar(255);not null"`
	Content        string        `json:"content,omitempty" gorm:"type:text"`
	WordCount      int           `json:"word_count" gorm:"default:0"`
	Status         ChapterStatus `json:"status" gorm:"type:varchar(20);default:'pending'"`
	GeneratedModel string        `json:"generated_model,omitempty" gorm:"type:varchar(100)"`
	CreatedAt      time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Chapter) TableName() string {
	return "chapters"
}

// NewChapter 创建待生成章节
func NewChapter(ebookID int64, number int, title string) *Chapter {
	now := time.Now()
	return &Chapter{
		EbookID:       ebookID,
		ChapterNumber: number,
		Title:         title,
		Status:        ChapterStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// NewChaptersFromTitles 按目录顺序创建章节，编号从 1 开始连续递增，标题原样使用
func NewChaptersFromTitles(ebookID int64, titles []string) []*Chapter {
	chapters := make([]*Chapter, 0, len(titles))
	for i, title := range titles {
		chapters = append(chapters, NewChapter(ebookID, i+1, title))
	}
	return chapters
}

// CountWords 统计以空白分隔的词数
func CountWords(content string) int {
	return len(strings.Fields(content))
}

// SetGenerated 写入生成结果
func (c *Chapter) SetGenerated(content, model string) {
	c.Content = content
	c.WordCount = CountWords(content)
	c.GeneratedModel = model
	c.Status = ChapterStatusCompleted
	c.UpdatedAt = time.Now()
}

// Edit 用户手动编辑，title 为空时保持原标题
func (c *Chapter) Edit(content, title string) {
	c.Content = content
	c.WordCount = CountWords(content)
	if strings.TrimSpace(title) != "" {
		c.Title = title
	}
	c.Status = ChapterStatusEdited
	c.UpdatedAt = time.Now()
}

// IsSettled 章节是否已结束本轮生成（成功或失败）
func (c *Chapter) IsSettled() bool {
	switch c.Status {
	case ChapterStatusCompleted, ChapterStatusEdited, ChapterStatusFailed:
		return true
	default:
		return false
	}
}
