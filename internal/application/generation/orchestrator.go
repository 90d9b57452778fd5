package generation

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/trace"

	"ebook-ai-api/internal/domain/entity"
	"ebook-ai-api/internal/domain/repository"
	"ebook-ai-api/internal/domain/service"
	"ebook-ai-api/pkg/logger"
	"ebook-ai-api/pkg/metrics"
	"ebook-ai-api/pkg/tracer"
)

// DefaultInterChapterDelay 章节之间的固定间隔
const DefaultInterChapterDelay = 2 * time.Second

// 编排阶段，用于 OrchestrationFailure.Stage
const (
	StageLoad     = "load"
	StageTOC      = "table_of_contents"
	StageChapters = "chapters"
	StageRun      = "run"
	StageFinalize = "finalize"
)

var (
	// ErrEbookMissing 电子书记录不存在
	ErrEbookMissing = errors.New("ebook not found")
	// ErrEmptyTableOfContents 目录为空
	ErrEmptyTableOfContents = errors.New("table of contents is empty")
	// ErrNoChapters 没有可生成的章节
	ErrNoChapters = errors.New("ebook has no chapters")
)

// ContentWriter 目录与章节内容的生成能力
type ContentWriter interface {
	GenerateTableOfContents(ctx context.Context, e *entity.Ebook) ([]string, error)
	GenerateChapter(ctx context.Context, e *entity.Ebook, ch *entity.Chapter, siblings []*entity.Chapter) (*ChapterText, error)
}

// ChapterResult 单章状态转移结果，Err 非空时 Status 为 failed
type ChapterResult struct {
	ChapterID int64
	Status    entity.ChapterStatus
	Content   string
	WordCount int
	Model     string
	Err       error
}

// Succeeded 章节是否生成成功
func (r ChapterResult) Succeeded() bool {
	return r.Err == nil && r.Status == entity.ChapterStatusCompleted
}

// Record 转换为仓储写入字段
func (r ChapterResult) Record() repository.ChapterResult {
	return repository.ChapterResult{
		Content:   r.Content,
		WordCount: r.WordCount,
		Status:    r.Status,
		Model:     r.Model,
	}
}

// Orchestrator 驱动整本书的生成：目录、章节占位、逐章生成、进度与终态
type Orchestrator struct {
	ebooks   repository.EbookRepository
	chapters repository.ChapterRepository
	tx       repository.Transactor
	writer   ContentWriter
	sleep    Sleeper
	delay    time.Duration
}

// NewOrchestrator 创建编排器
func NewOrchestrator(
	ebooks repository.EbookRepository,
	chapters repository.ChapterRepository,
	tx repository.Transactor,
	writer ContentWriter,
	delay time.Duration,
	sleep Sleeper,
) *Orchestrator {
	if sleep == nil {
		sleep = SleepContext
	}
	if delay < 0 {
		delay = 0
	}
	return &Orchestrator{
		ebooks:   ebooks,
		chapters: chapters,
		tx:       tx,
		writer:   writer,
		sleep:    sleep,
		delay:    delay,
	}
}

// Generate 完整执行一次生成（Prepare + Run）
func (o *Orchestrator) Generate(ctx context.Context, ebookID int64) error {
	if _, err := o.Prepare(ctx, ebookID); err != nil {
		return err
	}
	return o.Run(ctx, ebookID)
}

// Prepare 解析目录并创建章节占位，旧章节会被替换
// 电子书不存在时不写入任何记录
func (o *Orchestrator) Prepare(ctx context.Context, ebookID int64) ([]*entity.Chapter, error) {
	ctx = logger.WithContext(ctx, logger.EbookIDKey, ebookID)
	ctx, span := tracer.StartEbookSpan(ctx, "generation.Orchestrator.Prepare", ebookID)
	defer span.End()

	ebook, err := o.loadEbook(ctx, ebookID)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	titles := ebook.TemplateTitles()
	if len(titles) == 0 {
		titles, err = o.writer.GenerateTableOfContents(ctx, ebook)
		if err != nil {
			return nil, o.abort(ctx, ebookID, StageTOC, err)
		}
	}
	if len(titles) == 0 {
		return nil, o.abort(ctx, ebookID, StageTOC, ErrEmptyTableOfContents)
	}

	chapters := entity.NewChaptersFromTitles(ebookID, titles)
	toc := make([]string, len(chapters))
	for i, ch := range chapters {
		toc[i] = ch.Title
	}

	err = o.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := o.ebooks.SetTableOfContents(txCtx, ebookID, toc); err != nil {
			return err
		}
		if err := o.chapters.DeleteByEbook(txCtx, ebookID); err != nil {
			return err
		}
		return o.chapters.CreateBatch(txCtx, chapters)
	})
	if err != nil {
		return nil, o.abort(ctx, ebookID, StageChapters, err)
	}

	logger.Info(ctx, "chapter placeholders created",
		"chapters", len(chapters),
		"from_template", len(ebook.TemplateTitles()) > 0,
	)
	return chapters, nil
}

// Run 按章节号顺序逐章生成
// 单章失败只把该章标记为 failed，循环之外的错误把整本书标记为 failed 并返回 *OrchestrationFailure
// 运行开始后不响应调用方的取消，每个章节都会落到 completed 或 failed
func (o *Orchestrator) Run(ctx context.Context, ebookID int64) error {
	ctx = logger.WithContext(context.WithoutCancel(ctx), logger.EbookIDKey, ebookID)
	ctx, span := tracer.StartEbookSpan(ctx, "generation.Orchestrator.Run", ebookID)
	defer span.End()

	started := time.Now()
	metrics.ActiveGenerations.Inc()
	defer metrics.ActiveGenerations.Dec()

	ebook, err := o.loadEbook(ctx, ebookID)
	if err != nil {
		tracer.RecordError(span, err)
		metrics.EbookGenerationTotal.WithLabelValues(string(entity.EbookStatusFailed)).Inc()
		return err
	}
	if ebook.Status == entity.EbookStatusCompleted {
		logger.Info(ctx, "ebook already completed, skipping run")
		return nil
	}

	chapters, err := o.chapters.ListByEbook(ctx, ebookID)
	if err != nil {
		return o.fail(ctx, span, ebookID, StageRun, err)
	}
	if len(chapters) == 0 {
		return o.fail(ctx, span, ebookID, StageRun, ErrNoChapters)
	}

	total := len(chapters)
	totalWords := 0
	failed := 0

	for i, ch := range chapters {
		if i > 0 {
			if err := o.sleep(ctx, o.delay); err != nil {
				return o.fail(ctx, span, ebookID, StageRun, err)
			}
		}

		if err := o.chapters.UpdateStatus(ctx, ch.ID, entity.ChapterStatusGenerating); err != nil {
			return o.fail(ctx, span, ebookID, StageRun, err)
		}

		result := o.Advance(ctx, ebook, ch, chapters)

		if result.Succeeded() {
			if err := o.chapters.SaveResult(ctx, ch.ID, result.Record()); err != nil {
				return o.fail(ctx, span, ebookID, StageRun, err)
			}
			ch.Content, ch.WordCount, ch.Status = result.Content, result.WordCount, result.Status
			totalWords += result.WordCount
			metrics.ChapterGenerationTotal.WithLabelValues("run", "completed").Inc()
			metrics.ChapterWordCount.Observe(float64(result.WordCount))
		} else {
			failed++
			logger.Warn(ctx, "chapter generation failed",
				"chapter_id", ch.ID,
				"chapter_number", ch.ChapterNumber,
				"error", result.Err.Error(),
			)
			if err := o.chapters.UpdateStatus(ctx, ch.ID, entity.ChapterStatusFailed); err != nil {
				return o.fail(ctx, span, ebookID, StageRun, err)
			}
			ch.Status = entity.ChapterStatusFailed
			totalWords += ch.WordCount
			metrics.ChapterGenerationTotal.WithLabelValues("run", "failed").Inc()
		}

		progress := entity.GenerationProgressOf(i+1, total)
		if err := o.ebooks.UpdateProgress(ctx, ebookID, progress, totalWords); err != nil {
			return o.fail(ctx, span, ebookID, StageRun, err)
		}
	}

	// 所有章节都失败时整本书仍然是 completed，失败章节需要单独重新生成
	if err := o.ebooks.Complete(ctx, ebookID, totalWords); err != nil {
		return o.fail(ctx, span, ebookID, StageFinalize, err)
	}

	metrics.EbookGenerationTotal.WithLabelValues(string(entity.EbookStatusCompleted)).Inc()
	metrics.EbookGenerationDuration.Observe(time.Since(started).Seconds())
	logger.Info(ctx, "ebook generation completed",
		"chapters", total,
		"failed_chapters", failed,
		"total_words", totalWords,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return nil
}

// Advance 生成单章内容，不做任何持久化
func (o *Orchestrator) Advance(ctx context.Context, ebook *entity.Ebook, ch *entity.Chapter, siblings []*entity.Chapter) ChapterResult {
	ctx, span := tracer.StartEbookSpan(ctx, "generation.Orchestrator.Advance", ebook.ID)
	defer span.End()

	out, err := o.writer.GenerateChapter(ctx, ebook, ch, siblings)
	if err == nil && out == nil {
		err = &service.GenerationFailure{Err: errors.New("empty chapter result")}
	}
	if err != nil {
		tracer.RecordError(span, err)
		return ChapterResult{ChapterID: ch.ID, Status: entity.ChapterStatusFailed, Err: err}
	}
	return ChapterResult{
		ChapterID: ch.ID,
		Status:    entity.ChapterStatusCompleted,
		Content:   out.Content,
		WordCount: out.WordCount,
		Model:     out.Model,
	}
}

// RegenerateChapter 单独重新生成一个章节
// 成功时重新统计电子书总字数，进度与状态保持不变
func (o *Orchestrator) RegenerateChapter(ctx context.Context, ebookID, chapterID int64) (*entity.Chapter, ChapterResult, error) {
	ctx, span := tracer.StartEbookSpan(ctx, "generation.Orchestrator.RegenerateChapter", ebookID)
	defer span.End()

	ebook, err := o.ebooks.GetByID(ctx, ebookID)
	if err != nil {
		return nil, ChapterResult{}, err
	}
	if ebook == nil {
		return nil, ChapterResult{}, ErrEbookMissing
	}

	chapters, err := o.chapters.ListByEbook(ctx, ebookID)
	if err != nil {
		return nil, ChapterResult{}, err
	}
	var target *entity.Chapter
	for _, ch := range chapters {
		if ch.ID == chapterID {
			target = ch
			break
		}
	}
	if target == nil {
		return nil, ChapterResult{}, repository.ErrNotFound
	}

	if err := o.chapters.UpdateStatus(ctx, target.ID, entity.ChapterStatusGenerating); err != nil {
		return nil, ChapterResult{}, err
	}

	result := o.Advance(ctx, ebook, target, chapters)
	if result.Succeeded() {
		err := o.tx.WithTransaction(ctx, func(txCtx context.Context) error {
			if err := o.chapters.SaveResult(txCtx, target.ID, result.Record()); err != nil {
				return err
			}
			total, err := o.chapters.SumWordCount(txCtx, ebookID)
			if err != nil {
				return err
			}
			return o.ebooks.UpdateTotalWords(txCtx, ebookID, total)
		})
		if err != nil {
			return nil, result, err
		}
		target.Content, target.WordCount, target.Status, target.GeneratedModel =
			result.Content, result.WordCount, result.Status, result.Model
		metrics.ChapterGenerationTotal.WithLabelValues("regenerate", "completed").Inc()
		return target, result, nil
	}

	if err := o.chapters.UpdateStatus(context.WithoutCancel(ctx), target.ID, entity.ChapterStatusFailed); err != nil {
		return nil, result, err
	}
	target.Status = entity.ChapterStatusFailed
	metrics.ChapterGenerationTotal.WithLabelValues("regenerate", "failed").Inc()
	return target, result, nil
}

func (o *Orchestrator) loadEbook(ctx context.Context, ebookID int64) (*entity.Ebook, error) {
	ebook, err := o.ebooks.GetByID(ctx, ebookID)
	if err != nil {
		return nil, &service.OrchestrationFailure{EbookID: ebookID, Stage: StageLoad, Err: err}
	}
	if ebook == nil {
		return nil, &service.OrchestrationFailure{EbookID: ebookID, Stage: StageLoad, Err: ErrEbookMissing}
	}
	return ebook, nil
}

// abort 标记失败并返回 OrchestrationFailure
func (o *Orchestrator) abort(ctx context.Context, ebookID int64, stage string, cause error) error {
	failure := &service.OrchestrationFailure{EbookID: ebookID, Stage: stage, Err: cause}
	if err := o.ebooks.MarkFailed(context.WithoutCancel(ctx), ebookID); err != nil {
		logger.Error(ctx, "failed to mark ebook failed", err)
	}
	logger.Error(ctx, "ebook generation aborted", failure, "stage", stage)
	return failure
}

func (o *Orchestrator) fail(ctx context.Context, span trace.Span, ebookID int64, stage string, cause error) error {
	err := o.abort(ctx, ebookID, stage, cause)
	tracer.RecordError(span, err)
	metrics.EbookGenerationTotal.WithLabelValues(string(entity.EbookStatusFailed)).Inc()
	return err
}
