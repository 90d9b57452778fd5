package generation

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ebook-ai-api/internal/domain/entity"
	"ebook-ai-api/internal/domain/repository"
	"ebook-ai-api/internal/domain/service"
	"ebook-ai-api/internal/workflow/port"
	"ebook-ai-api/internal/workflow/prompt"
	"ebook-ai-api/pkg/logger"
)

type harness struct {
	store   *memStore
	client  *scriptedClient
	sleeper *recordingSleeper
	orch    *Orchestrator
}

func newHarness() *harness {
	h := &harness{
		store:   newMemStore(),
		client:  &scriptedClient{},
		sleeper: &recordingSleeper{},
	}
	retry := newTestRetry(h.client, h.sleeper)
	writer := NewContentGenerator(prompt.NewBuilder(nil), retry, ContentOptions{
		TOCMaxTokens:     1024,
		MaxTokensCeiling: 8000,
		Temperature:      0.7,
	})
	h.orch = NewOrchestrator(ebookRepo{h.store}, chapterRepo{h.store}, noTx{}, writer, DefaultInterChapterDelay, h.sleeper.Sleep)
	return h
}

func (h *harness) templateEbook(titles ...string) *entity.Ebook {
	e := entity.NewEbook(1, "Field Guide", "urban gardening")
	e.WordsPerChapter = 500
	e.NumChapters = len(titles)
	e.SetTemplateTitles(titles)
	e.Status = entity.EbookStatusGenerating
	return h.store.addEbook(e)
}

func TestGenerateWithTemplateTitles(t *testing.T) {
	h := newHarness()
	e := h.templateEbook("Intro", "Body", "End")

	require.NoError(t, h.orch.Generate(context.Background(), e.ID))

	chapters := h.store.list(e.ID)
	require.Len(t, chapters, 3)
	for i, title := range []string{"Intro", "Body", "End"} {
		assert.Equal(t, i+1, chapters[i].ChapterNumber)
		assert.Equal(t, title, chapters[i].Title)
		assert.Equal(t, entity.ChapterStatusCompleted, chapters[i].Status)
		assert.Equal(t, 3, chapters[i].WordCount)
		assert.Equal(t, "gpt-4o", chapters[i].GeneratedModel)
	}

	got := h.store.ebook(e.ID)
	assert.Equal(t, entity.EbookStatusCompleted, got.Status)
	assert.Equal(t, 100, got.GenerationProgress)
	assert.Equal(t, 9, got.TotalWords)
	assert.Equal(t, []string{"Intro", "Body", "End"}, []string(got.TableOfContents))

	// 模板标题直接使用，不调用目录生成
	require.Len(t, h.client.requests, 3)
	for _, req := range h.client.requests {
		assert.Equal(t, service.WorkflowChapter, req.Workflow)
		assert.Equal(t, 1250, req.MaxTokens)
	}
}

func TestRunProgressIsMonotoneAndDelayOnlyBetweenChapters(t *testing.T) {
	h := newHarness()
	e := h.templateEbook("A", "B", "C")

	require.NoError(t, h.orch.Generate(context.Background(), e.ID))

	assert.Equal(t, []int{33, 67, 100}, h.store.progress)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, h.sleeper.waits)
}

func TestRunChapterFailureDoesNotAbort(t *testing.T) {
	h := newHarness()
	e := h.templateEbook("Intro", "Body", "End")
	h.client.replies = []func(*port.CompletionRequest) (*port.Completion, error){
		reply("one two three four"),
		failing("content policy"),
		reply("five six"),
	}

	require.NoError(t, h.orch.Generate(context.Background(), e.ID))

	chapters := h.store.list(e.ID)
	assert.Equal(t, entity.ChapterStatusCompleted, chapters[0].Status)
	assert.Equal(t, entity.ChapterStatusFailed, chapters[1].Status)
	assert.Equal(t, 0, chapters[1].WordCount)
	assert.Empty(t, chapters[1].Content)
	assert.Equal(t, entity.ChapterStatusCompleted, chapters[2].Status)

	got := h.store.ebook(e.ID)
	assert.Equal(t, entity.EbookStatusCompleted, got.Status)
	assert.Equal(t, 6, got.TotalWords)
}

func TestRunRateLimitExhaustedFailsOnlyThatChapter(t *testing.T) {
	h := newHarness()
	e := h.templateEbook("Only", "Next")
	h.client.replies = []func(*port.CompletionRequest) (*port.Completion, error){
		rateLimited(), rateLimited(), rateLimited(), rateLimited(),
		reply("done"),
	}

	require.NoError(t, h.orch.Generate(context.Background(), e.ID))

	chapters := h.store.list(e.ID)
	assert.Equal(t, entity.ChapterStatusFailed, chapters[0].Status)
	assert.Equal(t, entity.ChapterStatusCompleted, chapters[1].Status)
	// 5s 10s 20s 为重试等待，2s 为章节间隔
	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second, 2 * time.Second}, h.sleeper.waits)
}

func TestRunAllChaptersFailedStillCompletes(t *testing.T) {
	h := newHarness()
	e := h.templateEbook("A", "B")
	h.client.fallback = failing("provider down")

	require.NoError(t, h.orch.Generate(context.Background(), e.ID))

	got := h.store.ebook(e.ID)
	assert.Equal(t, entity.EbookStatusCompleted, got.Status)
	assert.Equal(t, 100, got.GenerationProgress)
	assert.Equal(t, 0, got.TotalWords)
	for _, ch := range h.store.list(e.ID) {
		assert.Equal(t, entity.ChapterStatusFailed, ch.Status)
	}
}

func TestGenerateMissingEbook(t *testing.T) {
	h := newHarness()

	err := h.orch.Generate(context.Background(), 4242)

	var failure *service.OrchestrationFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, int64(4242), failure.EbookID)
	assert.ErrorIs(t, err, ErrEbookMissing)
	assert.Zero(t, h.store.writes)
	assert.Empty(t, h.store.chapters)
	assert.Empty(t, h.client.requests)
}

func TestPrepareGeneratesTableOfContents(t *testing.T) {
	h := newHarness()
	e := entity.NewEbook(1, "Deep Work", "focus")
	e.NumChapters = 3
	h.store.addEbook(e)
	h.client.replies = []func(*port.CompletionRequest) (*port.Completion, error){
		reply("1. Alpha\n2. Beta\n\n3. Gamma\n4. Delta"),
	}

	chapters, err := h.orch.Prepare(context.Background(), e.ID)
	require.NoError(t, err)
	require.Len(t, chapters, 3)
	assert.Equal(t, "Gamma", chapters[2].Title)

	require.Len(t, h.client.requests, 1)
	assert.Equal(t, service.WorkflowTableOfContents, h.client.requests[0].Workflow)
	assert.Equal(t, 1024, h.client.requests[0].MaxTokens)
	assert.Equal(t, []string{"Alpha", "Beta", "Gamma"}, []string(h.store.ebook(e.ID).TableOfContents))
}

func TestPrepareEmptyTableOfContentsFailsEbook(t *testing.T) {
	h := newHarness()
	e := h.store.addEbook(entity.NewEbook(1, "Blank", "nothing"))
	h.client.replies = []func(*port.CompletionRequest) (*port.Completion, error){reply("   \n\n")}

	_, err := h.orch.Prepare(context.Background(), e.ID)

	var failure *service.OrchestrationFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, StageTOC, failure.Stage)
	assert.Equal(t, entity.EbookStatusFailed, h.store.ebook(e.ID).Status)
	assert.Empty(t, h.store.list(e.ID))
}

func TestPrepareReplacesExistingChapters(t *testing.T) {
	h := newHarness()
	e := h.templateEbook("A", "B")

	_, err := h.orch.Prepare(context.Background(), e.ID)
	require.NoError(t, err)
	_, err = h.orch.Prepare(context.Background(), e.ID)
	require.NoError(t, err)

	assert.Len(t, h.store.list(e.ID), 2)
}

func TestRunDatabaseErrorAbortsAndMarksFailed(t *testing.T) {
	h := newHarness()
	e := h.templateEbook("A", "B")
	_, err := h.orch.Prepare(context.Background(), e.ID)
	require.NoError(t, err)
	h.store.failOn = "ebook.progress"

	err = h.orch.Run(context.Background(), e.ID)

	var failure *service.OrchestrationFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, StageRun, failure.Stage)
	assert.Equal(t, entity.EbookStatusFailed, h.store.ebook(e.ID).Status)
}

func TestRunWithoutChaptersFails(t *testing.T) {
	h := newHarness()
	e := h.templateEbook("A")

	err := h.orch.Run(context.Background(), e.ID)

	assert.ErrorIs(t, err, ErrNoChapters)
	assert.Equal(t, entity.EbookStatusFailed, h.store.ebook(e.ID).Status)
}

func TestRunIgnoresCallerCancellation(t *testing.T) {
	h := newHarness()
	e := h.templateEbook("Intro", "Body", "End")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.client.replies = []func(*port.CompletionRequest) (*port.Completion, error){
		reply("one two"),
		func(req *port.CompletionRequest) (*port.Completion, error) {
			cancel()
			return &port.Completion{Text: "three four five", Model: req.Model}, nil
		},
		reply("six"),
	}

	require.NoError(t, h.orch.Generate(ctx, e.ID))

	for _, ch := range h.store.list(e.ID) {
		assert.Equal(t, entity.ChapterStatusCompleted, ch.Status, ch.Title)
	}
	got := h.store.ebook(e.ID)
	assert.Equal(t, entity.EbookStatusCompleted, got.Status)
	assert.Equal(t, 100, got.GenerationProgress)
	assert.Equal(t, 6, got.TotalWords)
	assert.Equal(t, []time.Duration{DefaultInterChapterDelay, DefaultInterChapterDelay}, h.sleeper.waits)
}

func TestGenerateLogsEbookIDOncePerLine(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, "debug", "json")
	t.Cleanup(func() { logger.Init("info", "json") })

	h := newHarness()
	e := h.templateEbook("Intro", "Body")
	h.client.replies = []func(*port.CompletionRequest) (*port.Completion, error){
		reply("one two"), failing("boom"),
	}
	require.NoError(t, h.orch.Generate(context.Background(), e.ID))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	tagged := 0
	for _, line := range lines {
		n := strings.Count(line, `"ebook_id":`)
		assert.LessOrEqual(t, n, 1, line)
		tagged += n
	}
	assert.Positive(t, tagged)
}

func TestRunSkipsCompletedEbook(t *testing.T) {
	h := newHarness()
	e := h.templateEbook("A")
	require.NoError(t, h.orch.Generate(context.Background(), e.ID))
	calls := len(h.client.requests)

	require.NoError(t, h.orch.Run(context.Background(), e.ID))
	assert.Len(t, h.client.requests, calls)
}

func TestRegenerateChapterUpdatesChapterAndTotalWords(t *testing.T) {
	h := newHarness()
	e := h.templateEbook("Intro", "Body", "End")
	h.client.replies = []func(*port.CompletionRequest) (*port.Completion, error){
		reply("a b"), failing("boom"), reply("c d"),
	}
	require.NoError(t, h.orch.Generate(context.Background(), e.ID))

	before := h.store.list(e.ID)
	ebookBefore := h.store.ebook(e.ID)
	h.client.replies = []func(*port.CompletionRequest) (*port.Completion, error){reply("fresh body text here")}

	ch, result, err := h.orch.RegenerateChapter(context.Background(), e.ID, before[1].ID)
	require.NoError(t, err)
	require.NoError(t, result.Err)
	assert.Equal(t, entity.ChapterStatusCompleted, ch.Status)
	assert.Equal(t, 4, ch.WordCount)

	after := h.store.list(e.ID)
	assert.Equal(t, before[0], after[0])
	assert.Equal(t, before[2], after[2])
	assert.Equal(t, "fresh body text here", after[1].Content)

	ebookAfter := h.store.ebook(e.ID)
	assert.Equal(t, ebookBefore.Status, ebookAfter.Status)
	assert.Equal(t, ebookBefore.GenerationProgress, ebookAfter.GenerationProgress)
	assert.Equal(t, 4, ebookBefore.TotalWords)
	assert.Equal(t, 8, ebookAfter.TotalWords)
}

func TestRegenerateChapterFailureMarksChapterFailed(t *testing.T) {
	h := newHarness()
	e := h.templateEbook("Intro")
	require.NoError(t, h.orch.Generate(context.Background(), e.ID))
	target := h.store.list(e.ID)[0]
	h.client.replies = []func(*port.CompletionRequest) (*port.Completion, error){failing("bad")}

	ch, result, err := h.orch.RegenerateChapter(context.Background(), e.ID, target.ID)
	require.NoError(t, err)
	assert.Error(t, result.Err)
	assert.Equal(t, entity.ChapterStatusFailed, ch.Status)
	assert.Equal(t, entity.EbookStatusCompleted, h.store.ebook(e.ID).Status)
}

func TestRegenerateChapterNotFound(t *testing.T) {
	h := newHarness()
	e := h.templateEbook("Intro")

	_, _, err := h.orch.RegenerateChapter(context.Background(), e.ID, 999)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, _, err = h.orch.RegenerateChapter(context.Background(), 999, 1)
	assert.ErrorIs(t, err, ErrEbookMissing)
}

func TestAdvanceWithoutDatabase(t *testing.T) {
	client := &scriptedClient{replies: []func(*port.CompletionRequest) (*port.Completion, error){
		reply("alpha beta gamma"), failing("nope"),
	}}
	writer := NewContentGenerator(prompt.NewBuilder(nil), newTestRetry(client, &recordingSleeper{}), ContentOptions{})
	orch := NewOrchestrator(nil, nil, nil, writer, 0, nil)

	e := entity.NewEbook(1, "T", "topic")
	e.ID = 7
	chapters := entity.NewChaptersFromTitles(e.ID, []string{"One", "Two"})

	ok := orch.Advance(context.Background(), e, chapters[0], chapters)
	assert.True(t, ok.Succeeded())
	assert.Equal(t, 3, ok.WordCount)
	assert.Equal(t, entity.ChapterStatusCompleted, ok.Record().Status)

	bad := orch.Advance(context.Background(), e, chapters[1], chapters)
	assert.False(t, bad.Succeeded())
	assert.Equal(t, entity.ChapterStatusFailed, bad.Status)
	assert.Zero(t, bad.WordCount)
}

func TestInlineDispatcherRunsInBackground(t *testing.T) {
	h := newHarness()
	e := h.templateEbook("A", "B")
	_, err := h.orch.Prepare(context.Background(), e.ID)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	d := NewInlineDispatcher(h.orch)
	require.NoError(t, d.Dispatch(ctx, service.GenerationTask{EbookID: e.ID}))
	cancel()
	d.Wait()

	assert.Equal(t, entity.EbookStatusCompleted, h.store.ebook(e.ID).Status)
}
