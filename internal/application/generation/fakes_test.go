package generation

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"ebook-ai-api/internal/domain/entity"
	"ebook-ai-api/internal/domain/repository"
	"ebook-ai-api/internal/domain/service"
	"ebook-ai-api/internal/workflow/port"
)

// memStore 内存版电子书与章节仓储
type memStore struct {
	mu       sync.Mutex
	ebooks   map[int64]*entity.Ebook
	chapters map[int64]*entity.Chapter
	nextID   int64
	progress []int
	writes   int
	failOn   string
}

func newMemStore() *memStore {
	return &memStore{
		ebooks:   make(map[int64]*entity.Ebook),
		chapters: make(map[int64]*entity.Chapter),
		nextID:   100,
	}
}

var errInjected = errors.New("injected db error")

func (s *memStore) check(op string) error {
	if s.failOn == op {
		return errInjected
	}
	return nil
}

func (s *memStore) addEbook(e *entity.Ebook) *entity.Ebook {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	e.ID = s.nextID
	s.ebooks[e.ID] = e
	return e
}

func (s *memStore) ebook(id int64) *entity.Ebook {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *s.ebooks[id]
	return &cp
}

func (s *memStore) list(ebookID int64) []*entity.Chapter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked(ebookID)
}

func (s *memStore) listLocked(ebookID int64) []*entity.Chapter {
	out := make([]*entity.Chapter, 0)
	for _, ch := range s.chapters {
		if ch.EbookID == ebookID {
			cp := *ch
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChapterNumber < out[j].ChapterNumber })
	return out
}

// ebook repository

type ebookRepo struct{ *memStore }

func (r ebookRepo) Create(_ context.Context, e *entity.Ebook) error {
	r.addEbook(e)
	return nil
}

func (r ebookRepo) GetByID(_ context.Context, id int64) (*entity.Ebook, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check("ebook.get"); err != nil {
		return nil, err
	}
	e, ok := r.ebooks[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (r ebookRepo) GetForUser(ctx context.Context, id, userID int64, withChapters bool) (*entity.Ebook, error) {
	e, err := r.GetByID(ctx, id)
	if err != nil || e == nil || e.UserID != userID {
		return nil, err
	}
	if withChapters {
		e.Chapters = r.list(id)
	}
	return e, nil
}

func (r ebookRepo) Update(_ context.Context, e *entity.Ebook) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ebooks[e.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *e
	r.ebooks[e.ID] = &cp
	return nil
}

func (r ebookRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ebooks, id)
	return nil
}

func (r ebookRepo) ListByUser(context.Context, int64, *repository.EbookFilter, repository.Pagination) (*repository.PagedResult[*entity.Ebook], error) {
	return nil, errors.New("not implemented")
}

func (r ebookRepo) MarkGenerating(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.ebooks[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if e.Status == entity.EbookStatusGenerating {
		return false, nil
	}
	e.Status = entity.EbookStatusGenerating
	e.GenerationProgress = 0
	return true, nil
}

func (r ebookRepo) mutate(id int64, op string, fn func(e *entity.Ebook)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(op); err != nil {
		return err
	}
	e, ok := r.ebooks[id]
	if !ok {
		return repository.ErrNotFound
	}
	r.writes++
	fn(e)
	return nil
}

func (r ebookRepo) SetTableOfContents(_ context.Context, id int64, toc []string) error {
	return r.mutate(id, "ebook.toc", func(e *entity.Ebook) { e.TableOfContents = toc })
}

func (r ebookRepo) UpdateProgress(_ context.Context, id int64, progress, totalWords int) error {
	return r.mutate(id, "ebook.progress", func(e *entity.Ebook) {
		e.GenerationProgress = progress
		e.TotalWords = totalWords
		r.progress = append(r.progress, progress)
	})
}

func (r ebookRepo) UpdateTotalWords(_ context.Context, id int64, totalWords int) error {
	return r.mutate(id, "ebook.words", func(e *entity.Ebook) { e.TotalWords = totalWords })
}

func (r ebookRepo) Complete(_ context.Context, id int64, totalWords int) error {
	return r.mutate(id, "ebook.complete", func(e *entity.Ebook) {
		e.Status = entity.EbookStatusCompleted
		e.GenerationProgress = 100
		e.TotalWords = totalWords
	})
}

func (r ebookRepo) MarkFailed(_ context.Context, id int64) error {
	return r.mutate(id, "ebook.failed", func(e *entity.Ebook) { e.Status = entity.EbookStatusFailed })
}

func (r ebookRepo) UsageByUser(context.Context, int64) (*repository.EbookUsage, error) {
	return &repository.EbookUsage{}, nil
}

func (r ebookRepo) ListAll(context.Context, *repository.EbookFilter, repository.Pagination) (*repository.PagedResult[*entity.Ebook], error) {
	return nil, errors.New("not implemented")
}

func (r ebookRepo) CountSince(context.Context, time.Time) (int64, error) {
	return int64(len(r.ebooks)), nil
}

func (r ebookRepo) DeleteByUser(context.Context, int64) error { return nil }

// chapter repository

type chapterRepo struct{ *memStore }

func (r chapterRepo) CreateBatch(_ context.Context, chapters []*entity.Chapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check("chapter.create"); err != nil {
		return err
	}
	for _, ch := range chapters {
		r.nextID++
		ch.ID = r.nextID
		cp := *ch
		r.chapters[ch.ID] = &cp
		r.writes++
	}
	return nil
}

func (r chapterRepo) GetByID(_ context.Context, id int64) (*entity.Chapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.chapters[id]
	if !ok {
		return nil, nil
	}
	cp := *ch
	return &cp, nil
}

func (r chapterRepo) GetByEbookAndID(ctx context.Context, ebookID, chapterID int64) (*entity.Chapter, error) {
	ch, err := r.GetByID(ctx, chapterID)
	if err != nil || ch == nil || ch.EbookID != ebookID {
		return nil, err
	}
	return ch, nil
}

func (r chapterRepo) ListByEbook(_ context.Context, ebookID int64) ([]*entity.Chapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check("chapter.list"); err != nil {
		return nil, err
	}
	return r.listLocked(ebookID), nil
}

func (r chapterRepo) DeleteByEbook(_ context.Context, ebookID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, ch := range r.chapters {
		if ch.EbookID == ebookID {
			delete(r.chapters, id)
			r.writes++
		}
	}
	return nil
}

func (r chapterRepo) mutate(id int64, op string, fn func(ch *entity.Chapter)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(op); err != nil {
		return err
	}
	ch, ok := r.chapters[id]
	if !ok {
		return repository.ErrNotFound
	}
	r.writes++
	fn(ch)
	return nil
}

func (r chapterRepo) UpdateStatus(_ context.Context, id int64, status entity.ChapterStatus) error {
	return r.mutate(id, "chapter.status", func(ch *entity.Chapter) { ch.Status = status })
}

func (r chapterRepo) SaveResult(_ context.Context, id int64, res repository.ChapterResult) error {
	return r.mutate(id, "chapter.save", func(ch *entity.Chapter) {
		ch.Content = res.Content
		ch.WordCount = res.WordCount
		ch.Status = res.Status
		ch.GeneratedModel = res.Model
	})
}

func (r chapterRepo) UpdateContent(_ context.Context, c *entity.Chapter) error {
	return r.mutate(c.ID, "chapter.content", func(ch *entity.Chapter) {
		ch.Content = c.Content
		ch.Title = c.Title
		ch.WordCount = c.WordCount
		ch.Status = c.Status
	})
}

func (r chapterRepo) SumWordCount(_ context.Context, ebookID int64) (int, error) {
	total := 0
	for _, ch := range r.list(ebookID) {
		total += ch.WordCount
	}
	return total, nil
}

type noTx struct{}

func (noTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// scriptedClient 按调用顺序返回预设结果
type scriptedClient struct {
	mu       sync.Mutex
	replies  []func(req *port.CompletionRequest) (*port.Completion, error)
	fallback func(req *port.CompletionRequest) (*port.Completion, error)
	requests []port.CompletionRequest
}

func (c *scriptedClient) Complete(_ context.Context, req *port.CompletionRequest) (*port.Completion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, *req)
	if len(c.replies) > 0 {
		next := c.replies[0]
		c.replies = c.replies[1:]
		return next(req)
	}
	if c.fallback != nil {
		return c.fallback(req)
	}
	return &port.Completion{Text: "generated words here", Model: req.Model}, nil
}

func reply(text string) func(*port.CompletionRequest) (*port.Completion, error) {
	return func(req *port.CompletionRequest) (*port.Completion, error) {
		return &port.Completion{Text: text, Model: req.Model}, nil
	}
}

func rateLimited() func(*port.CompletionRequest) (*port.Completion, error) {
	return func(req *port.CompletionRequest) (*port.Completion, error) {
		return nil, &service.RateLimitError{Model: req.Model, Err: errors.New("429 too many requests")}
	}
}

func failing(msg string) func(*port.CompletionRequest) (*port.Completion, error) {
	return func(req *port.CompletionRequest) (*port.Completion, error) {
		return nil, &service.GenerationFailure{Model: req.Model, Err: errors.New(msg)}
	}
}

// recordingSleeper 记录等待时间但不真正等待
type recordingSleeper struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return ctx.Err()
}
