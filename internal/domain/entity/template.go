package entity

import (
	"time"
)

// TemplateStructure 模板结构
type TemplateStructure struct {
	Chapters []string `json:"chapters"`
}

// Template 电子书模板
type Template struct {
	ID           int64             `json:"id" gorm:"primaryKey;autoIncrement"`
	Name         string            `json:"name" gorm:"type:varchar(255);not null"`
	Category     string            `json:"category" gorm:"type:varchar(100);index;not null"`
	Description  string            `json:"description,omitempty" gorm:"type:text"`
	PreviewImage string            `json:"preview_image,omitempty" gorm:"type:varchar(512)"`
	Structure    TemplateStructure `json:"structure" gorm:"type:jsonb;serializer:json;not null"`
	IsPremium    bool              `json:"is_premium" gorm:"default:false"`
	UsageCount   int               `json:"usage_count" gorm:"default:0"`
	CreatedAt    time.Time         `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time         `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Template) TableName() string {
	return "templates"
}

// ChapterTitles 返回模板的章节标题副本
func (t *Template) ChapterTitles() []string {
	return append([]string(nil), t.Structure.Chapters...)
}

// AccessibleBy 免费用户不能使用高级模板
func (t *Template) AccessibleBy(u *User) bool {
	if !t.IsPremium {
		return true
	}
	return u != nil && u.CanUsePremium()
}
