package ebook

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ebook-ai-api/internal/application/export"
	"ebook-ai-api/internal/application/generation"
	"ebook-ai-api/internal/domain/entity"
	"ebook-ai-api/internal/domain/repository"
	"ebook-ai-api/internal/domain/service"
	apperrors "ebook-ai-api/pkg/errors"
)

func strPtr(s string) *string { return &s }

func TestCreateAppliesDefaults(t *testing.T) {
	h := newHarness()
	u := h.addUser(entity.TierFree, 3)

	e, err := h.svc.Create(context.Background(), u.ID, CreateInput{Title: " Go ", Topic: "concurrency"})
	require.NoError(t, err)

	assert.Equal(t, "Go", e.Title)
	assert.Equal(t, entity.DefaultNumChapters, e.NumChapters)
	assert.Equal(t, entity.DefaultWordsPerChapter, e.WordsPerChapter)
	assert.Equal(t, "professional", e.Tone)
	assert.Equal(t, "English", e.Language)
	assert.Equal(t, entity.EbookStatusDraft, e.Status)
	assert.Nil(t, e.TemplateTitles())
}

func TestCreateCopiesTemplateTitles(t *testing.T) {
	h := newHarness()
	u := h.addUser(entity.TierBasic, 1)
	h.templates.tpl = &entity.Template{ID: 5, Structure: entity.TemplateStructure{Chapters: []string{"A", " B: Basics ", "C"}}}
	tplID := int64(5)

	e, err := h.svc.Create(context.Background(), u.ID, CreateInput{Title: "T", Topic: "t", TemplateID: &tplID})
	require.NoError(t, err)

	assert.Equal(t, []string{"A", " B: Basics ", "C"}, e.TemplateTitles())
	assert.Equal(t, 3, e.NumChapters)
	assert.Equal(t, []int64{5}, h.templates.used)
}

func TestCreateExplicitTitlesWinOverTemplate(t *testing.T) {
	h := newHarness()
	u := h.addUser(entity.TierBasic, 1)
	h.templates.tpl = &entity.Template{ID: 5, Structure: entity.TemplateStructure{Chapters: []string{"A", "B"}}}
	tplID := int64(5)

	e, err := h.svc.Create(context.Background(), u.ID, CreateInput{
		Title: "T", Topic: "t", TemplateID: &tplID, ChapterTitles: []string{"Mine"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Mine"}, e.TemplateTitles())
	assert.Equal(t, int64(5), *e.TemplateID)
}

func TestCreateRequiresCredits(t *testing.T) {
	h := newHarness()
	broke := h.addUser(entity.TierFree, 0)
	pro := h.addUser(entity.TierPro, 0)

	_, err := h.svc.Create(context.Background(), broke.ID, CreateInput{Title: "T", Topic: "t"})
	assert.ErrorIs(t, err, apperrors.ErrInsufficientCredit)

	_, err = h.svc.Create(context.Background(), pro.ID, CreateInput{Title: "T", Topic: "t"})
	assert.NoError(t, err)
}

func TestGetScopedToOwner(t *testing.T) {
	h := newHarness()
	owner := h.addUser(entity.TierFree, 1)
	other := h.addUser(entity.TierFree, 1)
	e := h.addEbook(owner.ID, entity.EbookStatusDraft)
	h.addChapter(e.ID, 2, 0)
	h.addChapter(e.ID, 1, 0)

	got, err := h.svc.Get(context.Background(), owner.ID, e.ID)
	require.NoError(t, err)
	require.Len(t, got.Chapters, 2)
	assert.Equal(t, 1, got.Chapters[0].ChapterNumber)

	_, err = h.svc.Get(context.Background(), other.ID, e.ID)
	assert.ErrorIs(t, err, apperrors.ErrEbookNotFound)
}

func TestUpdateIsPartial(t *testing.T) {
	h := newHarness()
	u := h.addUser(entity.TierFree, 1)
	e := h.addEbook(u.ID, entity.EbookStatusDraft)

	got, err := h.svc.Update(context.Background(), u.ID, e.ID, UpdateInput{Tone: strPtr("casual")})
	require.NoError(t, err)
	assert.Equal(t, "casual", got.Tone)
	assert.Equal(t, "Title", got.Title)
	assert.Equal(t, "casual", h.ebooks[e.ID].Tone)
}

func TestDeleteRejectsGenerating(t *testing.T) {
	h := newHarness()
	u := h.addUser(entity.TierFree, 1)
	busy := h.addEbook(u.ID, entity.EbookStatusGenerating)
	done := h.addEbook(u.ID, entity.EbookStatusCompleted)

	assert.ErrorIs(t, h.svc.Delete(context.Background(), u.ID, busy.ID), apperrors.ErrEbookGenerating)
	require.NoError(t, h.svc.Delete(context.Background(), u.ID, done.ID))
	assert.NotContains(t, h.ebooks, done.ID)
}

func TestStartGenerationDispatchesAndChargesOnce(t *testing.T) {
	h := newHarness()
	u := h.addUser(entity.TierFree, 2)
	e := h.addEbook(u.ID, entity.EbookStatusDraft)

	got, err := h.svc.StartGeneration(context.Background(), u.ID, e.ID)
	require.NoError(t, err)

	assert.Equal(t, entity.EbookStatusGenerating, got.Status)
	assert.Equal(t, []int64{e.ID}, h.generator.prepared)
	require.Len(t, h.dispatcher.tasks, 1)
	assert.Equal(t, service.GenerationTask{EbookID: e.ID, UserID: u.ID, RequestedAt: h.svc.now()}, h.dispatcher.tasks[0])
	assert.Equal(t, 1, h.credits[u.ID])
}

func TestStartGenerationConflictWhenAlreadyGenerating(t *testing.T) {
	h := newHarness()
	u := h.addUser(entity.TierFree, 2)
	e := h.addEbook(u.ID, entity.EbookStatusGenerating)

	_, err := h.svc.StartGeneration(context.Background(), u.ID, e.ID)
	assert.ErrorIs(t, err, apperrors.ErrEbookGenerating)
	assert.Empty(t, h.generator.prepared)
	assert.Equal(t, 2, h.credits[u.ID])
}

func TestStartGenerationUnlimitedTierNotCharged(t *testing.T) {
	h := newHarness()
	u := h.addUser(entity.TierEnterprise, 0)
	e := h.addEbook(u.ID, entity.EbookStatusFailed)

	_, err := h.svc.StartGeneration(context.Background(), u.ID, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, h.credits[u.ID])
	assert.Len(t, h.dispatcher.tasks, 1)
}

func TestStartGenerationPrepareFailure(t *testing.T) {
	h := newHarness()
	u := h.addUser(entity.TierFree, 1)
	e := h.addEbook(u.ID, entity.EbookStatusDraft)
	h.generator.prepareErr = &service.OrchestrationFailure{EbookID: e.ID, Stage: generation.StageTOC, Err: errors.New("boom")}

	_, err := h.svc.StartGeneration(context.Background(), u.ID, e.ID)
	assert.ErrorIs(t, err, apperrors.ErrGenerationAborted)
	assert.Empty(t, h.dispatcher.tasks)
	assert.Equal(t, 1, h.credits[u.ID])
}

func TestStartGenerationDispatchFailureMarksFailed(t *testing.T) {
	h := newHarness()
	u := h.addUser(entity.TierFree, 1)
	e := h.addEbook(u.ID, entity.EbookStatusDraft)
	h.dispatcher.err = errors.New("redis down")

	_, err := h.svc.StartGeneration(context.Background(), u.ID, e.ID)
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavailable)
	assert.Equal(t, entity.EbookStatusFailed, h.ebooks[e.ID].Status)
}

func TestRegenerateChapterMapsErrors(t *testing.T) {
	h := newHarness()
	u := h.addUser(entity.TierFree, 1)
	e := h.addEbook(u.ID, entity.EbookStatusCompleted)

	h.generator.regenErr = repository.ErrNotFound
	_, err := h.svc.RegenerateChapter(context.Background(), u.ID, e.ID, 999)
	assert.ErrorIs(t, err, apperrors.ErrChapterNotFound)

	h.generator.regenErr = nil
	h.generator.regen = generation.ChapterResult{
		Status: entity.ChapterStatusFailed,
		Err:    &service.RateLimitExceededError{Retries: 3, Err: errors.New("429")},
	}
	_, err = h.svc.RegenerateChapter(context.Background(), u.ID, e.ID, 1)
	assert.ErrorIs(t, err, apperrors.ErrLLMRateLimitExceeded)

	h.generator.regen = generation.ChapterResult{Status: entity.ChapterStatusCompleted}
	ch, err := h.svc.RegenerateChapter(context.Background(), u.ID, e.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, entity.ChapterStatusCompleted, ch.Status)
}

func TestRegenerateChapterRejectedWhileGenerating(t *testing.T) {
	h := newHarness()
	u := h.addUser(entity.TierFree, 1)
	e := h.addEbook(u.ID, entity.EbookStatusGenerating)

	_, err := h.svc.RegenerateChapter(context.Background(), u.ID, e.ID, 1)
	assert.ErrorIs(t, err, apperrors.ErrEbookGenerating)
}

func TestEditChapterRecomputesTotalWords(t *testing.T) {
	h := newHarness()
	u := h.addUser(entity.TierFree, 1)
	e := h.addEbook(u.ID, entity.EbookStatusCompleted)
	ch := h.addChapter(e.ID, 1, 10)
	h.addChapter(e.ID, 2, 5)

	got, err := h.svc.EditChapter(context.Background(), u.ID, e.ID, ch.ID, strPtr("one two three"), strPtr("Renamed"))
	require.NoError(t, err)

	assert.Equal(t, entity.ChapterStatusEdited, got.Status)
	assert.Equal(t, 3, got.WordCount)
	assert.Equal(t, "Renamed", h.chapters[ch.ID].Title)
	assert.Equal(t, 8, h.ebooks[e.ID].TotalWords)
}

func TestEditChapterTitleOnlyKeepsStatus(t *testing.T) {
	h := newHarness()
	u := h.addUser(entity.TierFree, 1)
	e := h.addEbook(u.ID, entity.EbookStatusCompleted)
	ch := h.addChapter(e.ID, 1, 10)
	h.chapters[ch.ID].Status = entity.ChapterStatusCompleted

	got, err := h.svc.EditChapter(context.Background(), u.ID, e.ID, ch.ID, nil, strPtr(" New "))
	require.NoError(t, err)
	assert.Equal(t, "New", got.Title)
	assert.Equal(t, entity.ChapterStatusCompleted, got.Status)
	assert.Equal(t, 10, h.ebooks[e.ID].TotalWords)
}

func TestEditChapterNotFound(t *testing.T) {
	h := newHarness()
	u := h.addUser(entity.TierFree, 1)
	e := h.addEbook(u.ID, entity.EbookStatusCompleted)
	other := h.addEbook(u.ID, entity.EbookStatusCompleted)
	ch := h.addChapter(other.ID, 1, 1)

	_, err := h.svc.EditChapter(context.Background(), u.ID, e.ID, ch.ID, strPtr("x"), nil)
	assert.ErrorIs(t, err, apperrors.ErrChapterNotFound)
}

func TestImproveChapter(t *testing.T) {
	h := newHarness()
	u := h.addUser(entity.TierFree, 1)
	e := h.addEbook(u.ID, entity.EbookStatusCompleted)
	empty := h.addChapter(e.ID, 1, 0)
	full := h.addChapter(e.ID, 2, 1)
	h.chapters[full.ID].Content = "draft"

	_, err := h.svc.ImproveChapter(context.Background(), u.ID, e.ID, empty.ID, "tighten")
	assert.ErrorIs(t, err, apperrors.ErrInvalidParam)

	out, err := h.svc.ImproveChapter(context.Background(), u.ID, e.ID, full.ID, "tighten")
	require.NoError(t, err)
	assert.Equal(t, "better draft", out.Content)
	assert.Equal(t, "tighten", h.improver.instruction)
	assert.Equal(t, "draft", h.chapters[full.ID].Content)
}

func TestExport(t *testing.T) {
	h := newHarness()
	u := h.addUser(entity.TierFree, 1)
	e := h.addEbook(u.ID, entity.EbookStatusCompleted)
	h.addChapter(e.ID, 1, 1)

	_, err := h.svc.Export(context.Background(), u.ID, e.ID, "pdf")
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedExportFormat)

	res, err := h.svc.Export(context.Background(), u.ID, e.ID, "txt")
	require.NoError(t, err)
	assert.Equal(t, export.FormatText, res.Format)
	assert.Len(t, h.exporter.got.Chapters, 1)
}

func TestUsage(t *testing.T) {
	h := newHarness()
	u := h.addUser(entity.TierBasic, 2)
	done := h.addEbook(u.ID, entity.EbookStatusCompleted)
	done.TotalWords = 1200
	h.addEbook(u.ID, entity.EbookStatusDraft)

	usage, err := h.svc.Usage(context.Background(), u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, usage.Total)
	assert.EqualValues(t, 1, usage.ByStatus[entity.EbookStatusCompleted])
	assert.EqualValues(t, 1200, usage.TotalWords)
	assert.Equal(t, 2, usage.CreditsRemaining)
	assert.False(t, usage.Unlimited)
}
