// Package ebook 提供电子书生命周期用例：创建、生成、编辑、导出
package ebook

import (
	"context"
	"errors"
	"strings"
	"time"

	"ebook-ai-api/internal/application/export"
	"ebook-ai-api/internal/application/generation"
	"ebook-ai-api/internal/application/quota"
	"ebook-ai-api/internal/domain/entity"
	"ebook-ai-api/internal/domain/repository"
	"ebook-ai-api/internal/domain/service"
	apperrors "ebook-ai-api/pkg/errors"
	"ebook-ai-api/pkg/logger"
	"ebook-ai-api/pkg/tracer"
)

// Generator 目录准备与单章重生成，由 generation.Orchestrator 实现
type Generator interface {
	Prepare(ctx context.Context, ebookID int64) ([]*entity.Chapter, error)
	RegenerateChapter(ctx context.Context, ebookID, chapterID int64) (*entity.Chapter, generation.ChapterResult, error)
}

// Improver AI 辅助改写
type Improver interface {
	Improve(ctx context.Context, content, instruction string) (*generation.ChapterText, error)
}

// Exporter 渲染并上传电子书
type Exporter interface {
	Export(ctx context.Context, e *entity.Ebook, f export.Format) (*export.Result, error)
}

// TemplateProvider 读取模板并记录使用
type TemplateProvider interface {
	Use(ctx context.Context, id int64, user *entity.User) (*entity.Template, error)
}

// Defaults 创建电子书时的默认规模
type Defaults struct {
	NumChapters     int
	WordsPerChapter int
}

// Deps 电子书服务依赖
type Deps struct {
	Ebooks     repository.EbookRepository
	Chapters   repository.ChapterRepository
	Users      repository.UserRepository
	Tx         repository.Transactor
	Credits    *quota.CreditGuard
	Templates  TemplateProvider
	Generator  Generator
	Improver   Improver
	Exporter   Exporter
	Dispatcher service.GenerationDispatcher
	Defaults   Defaults
}

// Service 电子书用例服务
type Service struct {
	Deps
	now func() time.Time
}

// NewService 创建电子书服务
func NewService(deps Deps) *Service {
	if deps.Defaults.NumChapters <= 0 {
		deps.Defaults.NumChapters = entity.DefaultNumChapters
	}
	if deps.Defaults.WordsPerChapter <= 0 {
		deps.Defaults.WordsPerChapter = entity.DefaultWordsPerChapter
	}
	return &Service{Deps: deps, now: time.Now}
}

// CreateInput 创建电子书参数，零值字段使用默认值
type CreateInput struct {
	Title           string
	Topic           string
	Description     string
	NumChapters     int
	WordsPerChapter int
	Tone            string
	TargetAudience  string
	Language        string
	TemplateID      *int64
	ChapterTitles   []string
}

// UpdateInput 部分更新，nil 字段保持不变
type UpdateInput struct {
	Title          *string
	Topic          *string
	Description    *string
	Tone           *string
	TargetAudience *string
	CoverImage     *string
	Metadata       *entity.EbookMetadata
}

// Usage 用户用量
type Usage struct {
	*repository.EbookUsage
	CreditsRemaining int                     `json:"credits_remaining"`
	Tier             entity.SubscriptionTier `json:"subscription_tier"`
	Unlimited        bool                    `json:"unlimited"`
}

// Create 创建草稿电子书
// 显式传入的章节标题优先于模板标题
func (s *Service) Create(ctx context.Context, userID int64, in CreateInput) (*entity.Ebook, error) {
	user, err := s.Credits.Check(ctx, userID)
	if err != nil {
		return nil, err
	}

	e := entity.NewEbook(userID, strings.TrimSpace(in.Title), strings.TrimSpace(in.Topic))
	e.Description = in.Description
	e.TargetAudience = in.TargetAudience
	e.NumChapters = firstPositive(in.NumChapters, s.Defaults.NumChapters)
	e.WordsPerChapter = firstPositive(in.WordsPerChapter, s.Defaults.WordsPerChapter)
	if tone := strings.TrimSpace(in.Tone); tone != "" {
		e.Tone = tone
	}
	if lang := strings.TrimSpace(in.Language); lang != "" {
		e.Language = lang
	}

	titles := cleanTitles(in.ChapterTitles)
	if in.TemplateID != nil {
		tpl, err := s.Templates.Use(ctx, *in.TemplateID, user)
		if err != nil {
			return nil, err
		}
		e.TemplateID = in.TemplateID
		if len(titles) == 0 {
			titles = tpl.ChapterTitles()
		}
	}
	if len(titles) > 0 {
		e.SetTemplateTitles(titles)
		e.NumChapters = len(titles)
	}

	if err := s.Ebooks.Create(ctx, e); err != nil {
		return nil, err
	}
	logger.Info(ctx, "ebook created", "ebook_id", e.ID, "template_titles", len(titles))
	return e, nil
}

// List 分页列出用户电子书
func (s *Service) List(ctx context.Context, userID int64, filter *repository.EbookFilter, page repository.Pagination) (*repository.PagedResult[*entity.Ebook], error) {
	return s.Ebooks.ListByUser(ctx, userID, filter, page)
}

// Get 获取电子书及章节
func (s *Service) Get(ctx context.Context, userID, id int64) (*entity.Ebook, error) {
	return s.owned(ctx, userID, id, true)
}

// Update 更新可编辑字段
func (s *Service) Update(ctx context.Context, userID, id int64, in UpdateInput) (*entity.Ebook, error) {
	e, err := s.owned(ctx, userID, id, false)
	if err != nil {
		return nil, err
	}

	setString(&e.Title, in.Title)
	setString(&e.Topic, in.Topic)
	setString(&e.Description, in.Description)
	setString(&e.Tone, in.Tone)
	setString(&e.TargetAudience, in.TargetAudience)
	setString(&e.CoverImage, in.CoverImage)
	if in.Metadata != nil {
		e.Metadata = in.Metadata
	}

	if err := s.Ebooks.Update(ctx, e); err != nil {
		return nil, notFound(err, apperrors.ErrEbookNotFound)
	}
	return e, nil
}

// Delete 删除电子书，生成中的电子书不能删除
func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	e, err := s.owned(ctx, userID, id, false)
	if err != nil {
		return err
	}
	if e.IsGenerating() {
		return apperrors.ErrEbookGenerating
	}
	return notFound(s.Ebooks.Delete(ctx, id), apperrors.ErrEbookNotFound)
}

// StartGeneration 同步准备目录与章节占位，扣减额度后派发后台生成
func (s *Service) StartGeneration(ctx context.Context, userID, id int64) (*entity.Ebook, error) {
	ctx, span := tracer.StartEbookSpan(ctx, "ebook.Service.StartGeneration", id)
	defer span.End()

	if _, err := s.owned(ctx, userID, id, false); err != nil {
		return nil, err
	}
	user, err := s.Credits.Check(ctx, userID)
	if err != nil {
		return nil, err
	}

	ok, err := s.Ebooks.MarkGenerating(ctx, id)
	if err != nil {
		return nil, notFound(err, apperrors.ErrEbookNotFound)
	}
	if !ok {
		return nil, apperrors.ErrEbookGenerating
	}

	if _, err := s.Generator.Prepare(ctx, id); err != nil {
		tracer.RecordError(span, err)
		return nil, service.ToAppError(err)
	}

	if err := s.Credits.Consume(ctx, user); err != nil {
		s.markFailed(ctx, id, "consume credit", err)
		return nil, err
	}

	task := service.GenerationTask{EbookID: id, UserID: userID, RequestedAt: s.now()}
	if err := s.Dispatcher.Dispatch(ctx, task); err != nil {
		tracer.RecordError(span, err)
		s.markFailed(ctx, id, "dispatch generation", err)
		return nil, apperrors.ErrServiceUnavailable.WithError(err)
	}

	logger.Info(ctx, "ebook generation dispatched", "ebook_id", id)
	return s.owned(ctx, userID, id, true)
}

// RegenerateChapter 同步重生成单个章节
func (s *Service) RegenerateChapter(ctx context.Context, userID, ebookID, chapterID int64) (*entity.Chapter, error) {
	e, err := s.owned(ctx, userID, ebookID, false)
	if err != nil {
		return nil, err
	}
	if e.IsGenerating() {
		return nil, apperrors.ErrEbookGenerating
	}

	ch, result, err := s.Generator.RegenerateChapter(ctx, ebookID, chapterID)
	switch {
	case errors.Is(err, generation.ErrEbookMissing):
		return nil, apperrors.ErrEbookNotFound
	case errors.Is(err, repository.ErrNotFound):
		return nil, apperrors.ErrChapterNotFound
	case err != nil:
		return nil, err
	}
	if result.Err != nil {
		return nil, service.ToAppError(result.Err)
	}
	return ch, nil
}

// EditChapter 用户编辑章节，重新统计电子书总字数
func (s *Service) EditChapter(ctx context.Context, userID, ebookID, chapterID int64, content, title *string) (*entity.Chapter, error) {
	e, err := s.owned(ctx, userID, ebookID, false)
	if err != nil {
		return nil, err
	}
	if e.IsGenerating() {
		return nil, apperrors.ErrEbookGenerating
	}
	ch, err := s.chapter(ctx, ebookID, chapterID)
	if err != nil {
		return nil, err
	}

	switch {
	case content != nil:
		t := ""
		if title != nil {
			t = *title
		}
		ch.Edit(*content, t)
	case title != nil && strings.TrimSpace(*title) != "":
		ch.Title = strings.TrimSpace(*title)
	default:
		return ch, nil
	}

	err = s.Tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.Chapters.UpdateContent(txCtx, ch); err != nil {
			return err
		}
		total, err := s.Chapters.SumWordCount(txCtx, ebookID)
		if err != nil {
			return err
		}
		return s.Ebooks.UpdateTotalWords(txCtx, ebookID, total)
	})
	if err != nil {
		return nil, notFound(err, apperrors.ErrChapterNotFound)
	}
	return ch, nil
}

// ImproveChapter 按指令改写章节内容，结果不落库
func (s *Service) ImproveChapter(ctx context.Context, userID, ebookID, chapterID int64, instruction string) (*generation.ChapterText, error) {
	if _, err := s.owned(ctx, userID, ebookID, false); err != nil {
		return nil, err
	}
	ch, err := s.chapter(ctx, ebookID, chapterID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(ch.Content) == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("chapter has no content to improve")
	}

	out, err := s.Improver.Improve(ctx, ch.Content, instruction)
	if err != nil {
		return nil, service.ToAppError(err)
	}
	return out, nil
}

// Export 导出已完成的电子书
func (s *Service) Export(ctx context.Context, userID, id int64, format string) (*export.Result, error) {
	f, ok := export.ParseFormat(format)
	if !ok {
		return nil, apperrors.ErrUnsupportedExportFormat.WithDetail(format)
	}
	e, err := s.owned(ctx, userID, id, true)
	if err != nil {
		return nil, err
	}
	return s.Exporter.Export(ctx, e, f)
}

// Usage 电子书统计与剩余额度
func (s *Service) Usage(ctx context.Context, userID int64) (*Usage, error) {
	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.ErrUserNotFound
	}
	stats, err := s.Ebooks.UsageByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Usage{
		EbookUsage:       stats,
		CreditsRemaining: user.CreditsRemaining,
		Tier:             user.SubscriptionTier,
		Unlimited:        user.HasUnlimitedCredits(),
	}, nil
}

func (s *Service) owned(ctx context.Context, userID, id int64, withChapters bool) (*entity.Ebook, error) {
	e, err := s.Ebooks.GetForUser(ctx, id, userID, withChapters)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, apperrors.ErrEbookNotFound
	}
	return e, nil
}

func (s *Service) chapter(ctx context.Context, ebookID, chapterID int64) (*entity.Chapter, error) {
	ch, err := s.Chapters.GetByEbookAndID(ctx, ebookID, chapterID)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, apperrors.ErrChapterNotFound
	}
	return ch, nil
}

func (s *Service) markFailed(ctx context.Context, id int64, step string, cause error) {
	logger.Error(ctx, "ebook generation not started", cause, "ebook_id", id, "step", step)
	if err := s.Ebooks.MarkFailed(context.WithoutCancel(ctx), id); err != nil {
		logger.Error(ctx, "failed to mark ebook failed", err, "ebook_id", id)
	}
}

func notFound(err error, mapped *apperrors.AppError) error {
	if errors.Is(err, repository.ErrNotFound) {
		return mapped
	}
	return err
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func firstPositive(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func cleanTitles(titles []string) []string {
	out := make([]string, 0, len(titles))
	for _, t := range titles {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
