package generation

import (
	"context"
	"fmt"

	"ebook-ai-api/internal/domain/entity"
	"ebook-ai-api/internal/domain/service"
	"ebook-ai-api/internal/workflow/node"
	"ebook-ai-api/internal/workflow/port"
	"ebook-ai-api/internal/workflow/prompt"
)

// ContentOptions 生成参数
type ContentOptions struct {
	TOCMaxTokens     int
	MaxTokensCeiling int
	Temperature      float32
}

// ChapterText 单章生成结果
type ChapterText struct {
	Content   string
	WordCount int
	Model     string
}

// ContentGenerator 构建 prompt 并经由重试控制器调用模型
type ContentGenerator struct {
	builder *prompt.Builder
	retry   *RetryController
	opts    ContentOptions
}

// NewContentGenerator 创建内容生成器
func NewContentGenerator(builder *prompt.Builder, retry *RetryController, opts ContentOptions) *ContentGenerator {
	if opts.TOCMaxTokens <= 0 {
		opts.TOCMaxTokens = 1024
	}
	if opts.MaxTokensCeiling <= 0 {
		opts.MaxTokensCeiling = 8000
	}
	return &ContentGenerator{builder: builder, retry: retry, opts: opts}
}

// GenerateTableOfContents 生成目录，返回最多 NumChapters 个标题
func (g *ContentGenerator) GenerateTableOfContents(ctx context.Context, e *entity.Ebook) ([]string, error) {
	msgs, err := g.builder.TableOfContents(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("build toc prompt: %w", err)
	}

	out, err := g.retry.Complete(ctx, port.CompletionRequest{
		Workflow:    service.WorkflowTableOfContents,
		Messages:    msgs,
		MaxTokens:   g.opts.TOCMaxTokens,
		Temperature: g.opts.Temperature,
	})
	if err != nil {
		return nil, err
	}
	return node.ParseTableOfContents(out.Text, e.NumChapters), nil
}

// GenerateChapter 生成单章正文
func (g *ContentGenerator) GenerateChapter(ctx context.Context, e *entity.Ebook, ch *entity.Chapter, siblings []*entity.Chapter) (*ChapterText, error) {
	msgs, err := g.builder.Chapter(ctx, e, ch, siblings)
	if err != nil {
		return nil, &service.GenerationFailure{Err: fmt.Errorf("build chapter prompt: %w", err)}
	}

	out, err := g.retry.Complete(ctx, port.CompletionRequest{
		Workflow:    service.WorkflowChapter,
		Messages:    msgs,
		MaxTokens:   node.TokenBudget(e.WordsPerChapter, g.opts.MaxTokensCeiling),
		Temperature: g.opts.Temperature,
	})
	if err != nil {
		return nil, err
	}
	return &ChapterText{
		Content:   out.Text,
		WordCount: entity.CountWords(out.Text),
		Model:     out.Model,
	}, nil
}

// Improve 按指令改写一段内容
func (g *ContentGenerator) Improve(ctx context.Context, content, instruction string) (*ChapterText, error) {
	msgs, err := g.builder.Improve(ctx, content, instruction)
	if err != nil {
		return nil, err
	}

	out, err := g.retry.Complete(ctx, port.CompletionRequest{
		Workflow:    service.WorkflowImprove,
		Messages:    msgs,
		MaxTokens:   node.TokenBudget(entity.CountWords(content), g.opts.MaxTokensCeiling),
		Temperature: g.opts.Temperature,
	})
	if err != nil {
		return nil, err
	}
	return &ChapterText{
		Content:   out.Text,
		WordCount: entity.CountWords(out.Text),
		Model:     out.Model,
	}, nil
}
