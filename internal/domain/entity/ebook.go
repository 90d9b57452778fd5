// Package entity 定义领域实体
package entity

import (
	"math"
	"time"

	"github.com/lib/pq"
)

// EbookStatus 电子书状态
type EbookStatus string

const (
	EbookStatusDraft      EbookStatus = "draft"
	EbookStatusGenerating EbookStatus = "generating"
	EbookStatusCompleted  EbookStatus = "completed"
	EbookStatusFailed     EbookStatus = "failed"
)

// 创建电子书时的默认值
const (
	DefaultNumChapters     = 10
	DefaultWordsPerChapter = 1000
	DefaultTone            = "professional"
	DefaultLanguage        = "English"
	DefaultTargetAudience  = "General readers"
)

// EbookMetadata 电子书附加元数据
type EbookMetadata struct {
	// ChapterTitles 模板预置的章节标题，非空时跳过目录生成
	ChapterTitles []string       `json:"chapter_titles,omitempty"`
	Extra         map[string]any `json:"extra,omitempty"`
}

// Ebook 电子书实体，同时是一次生成任务的载体
type Ebook struct {
	ID                 int64          `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID             int64          `json:"user_id" gorm:"index;not null"`
	TemplateID         *int64         `json:"template_id,omitempty" gorm:"index"`
	Title              string         `json:"title" gorm:"type:varchar(255);not null"`
	Topic              string         `json:"topic" gorm:"type:text;not null"`
	Description        string         `json:"description,omitempty" gorm:"type:text"`
	Tone               string         `json:"tone" gorm:"type:varchar(50);default:'professional'"`
	TargetAudience     string         `json:"target_audience,omitempty" gorm:"type:varchar(255)"`
	Language           string         `json:"language" gorm:"type:varchar(50);default:'English'"`
	NumChapters        int            `json:"num_chapters" gorm:"default:10"`
	WordsPerChapter    int            `json:"words_per_chapter" gorm:"default:1000"`
	Status             EbookStatus    `json:"status" gorm:"type:varchar(20);index;default:'draft'"`
	GenerationProgress int            `json:"generation_progress" gorm:"default:0"`
	TotalWords         int            `json:"total_words" gorm:"default:0"`
	TableOfContents    pq.StringArray `json:"table_of_contents,omitempty" gorm:"type:text[]"`
	Metadata           *EbookMetadata `json:"metadata,omitempty" gorm:"type:jsonb;serializer:json"`
	CoverImage         string         `json:"cover_image,omitempty" gorm:"type:varchar(512)"`
	Chapters           []*Chapter     `json:"chapters,omitempty" gorm:"foreignKey:EbookID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt          time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Ebook) TableName() string {
	return "ebooks"
}

// NewEbook 创建草稿电子书并填充默认值
func NewEbook(userID int64, title, topic string) *Ebook {
	now := time.Now()
	return &Ebook{
		UserID:          userID,
		Title:           title,
		Topic:           topic,
		Tone:            DefaultTone,
		Language:        DefaultLanguage,
		NumChapters:     DefaultNumChapters,
		WordsPerChapter: DefaultWordsPerChapter,
		Status:          EbookStatusDraft,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// TemplateTitles 返回模板预置的章节标题（无则为 nil）
func (e *Ebook) TemplateTitles() []string {
	if e.Metadata == nil || len(e.Metadata.ChapterTitles) == 0 {
		return nil
	}
	return e.Metadata.ChapterTitles
}

// SetTemplateTitles 写入模板章节标题，空列表不覆盖
func (e *Ebook) SetTemplateTitles(titles []string) {
	if len(titles) == 0 {
		return
	}
	if e.Metadata == nil {
		e.Metadata = &EbookMetadata{}
	}
	e.Metadata.ChapterTitles = append([]string(nil), titles...)
}

// Audience 返回目标读者，未设置时使用默认值
func (e *Ebook) Audience() string {
	if e.TargetAudience == "" {
		return DefaultTargetAudience
	}
	return e.TargetAudience
}

// IsGenerating 是否正在生成
func (e *Ebook) IsGenerating() bool {
	return e.Status == EbookStatusGenerating
}

// CanExport 只有生成完成的电子书可以导出
func (e *Ebook) CanExport() bool {
	return e.Status == EbookStatusCompleted
}

// GenerationProgressOf 计算进度百分比 round(100 × done ÷ total)，结果限制在 0..100
func GenerationProgressOf(done, total int) int {
	if total <= 0 {
		return 100
	}
	p := int(math.Round(100 * float64(done) / float64(total)))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
