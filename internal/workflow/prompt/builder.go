package prompt

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/cloudwego/eino/schema"

	"ebook-ai-api/internal/domain/entity"
)

const (
	firstChapterDirective = "This is the first chapter, so include an engaging introduction that sets the stage for the entire ebook."
	finalChapterDirective = "This is the final chapter, so provide a strong conclusion that ties everything together."
)

var extraBlankLines = regexp.MustCompile(`\n{3,}`)

// Builder 由电子书与章节元数据构建 LLM 消息，输出只依赖输入
type Builder struct {
	registry *Registry
}

// NewBuilder 创建 Builder
func NewBuilder(registry *Registry) *Builder {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Builder{registry: registry}
}

// TableOfContents 构建目录生成消息
func (b *Builder) TableOfContents(ctx context.Context, e *entity.Ebook) ([]*schema.Message, error) {
	if e == nil {
		return nil, fmt.Errorf("ebook is nil")
	}
	vars := ebookVars(e)
	vars["num_chapters"] = e.NumChapters
	return b.format(ctx, PromptTableOfContentsV1, vars)
}

// Chapter 构建单章生成消息，siblings 为该书全部章节（用于目录上下文）
func (b *Builder) Chapter(ctx context.Context, e *entity.Ebook, ch *entity.Chapter, siblings []*entity.Chapter) ([]*schema.Message, error) {
	if e == nil || ch == nil {
		return nil, fmt.Errorf("ebook and chapter are required")
	}

	ordered := make([]*entity.Chapter, 0, len(siblings))
	for _, s := range siblings {
		if s != nil {
			ordered = append(ordered, s)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ChapterNumber < ordered[j].ChapterNumber })

	total := len(ordered)
	if total == 0 {
		total = e.NumChapters
	}

	vars := ebookVars(e)
	vars["chapter_number"] = ch.ChapterNumber
	vars["chapter_title"] = strings.TrimSpace(ch.Title)
	vars["words_per_chapter"] = e.WordsPerChapter
	vars["min_words"] = int(math.Floor(float64(e.WordsPerChapter) * 0.9))
	vars["max_words"] = int(math.Ceil(float64(e.WordsPerChapter) * 1.1))
	vars["table_of_contents"] = tableOfContents(ordered)
	vars["position_directive"] = positionDirective(ch.ChapterNumber, total)

	return b.format(ctx, PromptChapterV1, vars)
}

// Improve 构建内容改写消息
func (b *Builder) Improve(ctx context.Context, content, instruction string) ([]*schema.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("content is required")
	}
	if strings.TrimSpace(instruction) == "" {
		return nil, fmt.Errorf("instruction is required")
	}
	return b.format(ctx, PromptImproveV1, map[string]any{
		"content":     strings.TrimSpace(content),
		"instruction": strings.TrimSpace(instruction),
	})
}

func (b *Builder) format(ctx context.Context, id PromptID, vars map[string]any) ([]*schema.Message, error) {
	tpl, err := b.registry.ChatTemplate(id)
	if err != nil {
		return nil, err
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("format prompt %s: %w", id, err)
	}
	for _, m := range msgs {
		m.Content = strings.TrimSpace(extraBlankLines.ReplaceAllString(m.Content, "\n\n"))
	}
	return msgs, nil
}

func ebookVars(e *entity.Ebook) map[string]any {
	language := strings.TrimSpace(e.Language)
	if language == "" {
		language = entity.DefaultLanguage
	}
	tone := strings.TrimSpace(e.Tone)
	if tone == "" {
		tone = entity.DefaultTone
	}
	return map[string]any{
		"title":           strings.TrimSpace(e.Title),
		"topic":           strings.TrimSpace(e.Topic),
		"tone":            tone,
		"target_audience": e.Audience(),
		"language":        language,
	}
}

func tableOfContents(chapters []*entity.Chapter) string {
	lines := make([]string, 0, len(chapters))
	for _, c := range chapters {
		lines = append(lines, fmt.Sprintf("%d. %s", c.ChapterNumber, strings.TrimSpace(c.Title)))
	}
	return strings.Join(lines, "\n")
}

func positionDirective(number, total int) string {
	var parts []string
	if number == 1 {
		parts = append(parts, firstChapterDirective)
	}
	if number == total {
		parts = append(parts, finalChapterDirective)
	}
	return strings.Join(parts, "\n")
}
