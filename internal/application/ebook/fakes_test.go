package ebook

import (
	"context"
	"errors"
	"sort"
	"time"

	"ebook-ai-api/internal/application/export"
	"ebook-ai-api/internal/application/generation"
	"ebook-ai-api/internal/application/quota"
	"ebook-ai-api/internal/domain/entity"
	"ebook-ai-api/internal/domain/repository"
	"ebook-ai-api/internal/domain/service"
)

type store struct {
	ebooks   map[int64]*entity.Ebook
	chapters map[int64]*entity.Chapter
	users    map[int64]*entity.User
	credits  map[int64]int
	nextID   int64
}

func newStore() *store {
	return &store{
		ebooks:   map[int64]*entity.Ebook{},
		chapters: map[int64]*entity.Chapter{},
		users:    map[int64]*entity.User{},
		credits:  map[int64]int{},
		nextID:   10,
	}
}

func (s *store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *store) addUser(tier entity.SubscriptionTier, credits int) *entity.User {
	u := entity.NewUser("u@example.com", "u", credits)
	u.ID = s.id()
	u.SubscriptionTier = tier
	s.users[u.ID] = u
	s.credits[u.ID] = credits
	return u
}

func (s *store) addEbook(userID int64, status entity.EbookStatus) *entity.Ebook {
	e := entity.NewEbook(userID, "Title", "Topic")
	e.ID = s.id()
	e.Status = status
	s.ebooks[e.ID] = e
	return e
}

func (s *store) addChapter(ebookID int64, number, words int) *entity.Chapter {
	ch := entity.NewChapter(ebookID, number, "Ch")
	ch.ID = s.id()
	ch.WordCount = words
	s.chapters[ch.ID] = ch
	return ch
}

type ebookRepo struct{ *store }

func (r ebookRepo) Create(_ context.Context, e *entity.Ebook) error {
	e.ID = r.id()
	r.ebooks[e.ID] = e
	return nil
}

func (r ebookRepo) GetByID(_ context.Context, id int64) (*entity.Ebook, error) {
	e, ok := r.ebooks[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (r ebookRepo) GetForUser(ctx context.Context, id, userID int64, withChapters bool) (*entity.Ebook, error) {
	e, _ := r.GetByID(ctx, id)
	if e == nil || e.UserID != userID {
		return nil, nil
	}
	if withChapters {
		for _, ch := range r.chapters {
			if ch.EbookID == id {
				e.Chapters = append(e.Chapters, ch)
			}
		}
		sort.Slice(e.Chapters, func(i, j int) bool { return e.Chapters[i].ChapterNumber < e.Chapters[j].ChapterNumber })
	}
	return e, nil
}

func (r ebookRepo) Update(_ context.Context, e *entity.Ebook) error {
	if _, ok := r.ebooks[e.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *e
	r.ebooks[e.ID] = &cp
	return nil
}

func (r ebookRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.ebooks[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.ebooks, id)
	return nil
}

func (r ebookRepo) ListByUser(_ context.Context, userID int64, _ *repository.EbookFilter, p repository.Pagination) (*repository.PagedResult[*entity.Ebook], error) {
	var items []*entity.Ebook
	for _, e := range r.ebooks {
		if e.UserID == userID {
			items = append(items, e)
		}
	}
	return repository.NewPagedResult(items, int64(len(items)), p), nil
}

func (r ebookRepo) MarkGenerating(_ context.Context, id int64) (bool, error) {
	e, ok := r.ebooks[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if e.IsGenerating() {
		return false, nil
	}
	e.Status = entity.EbookStatusGenerating
	return true, nil
}

func (r ebookRepo) SetTableOfContents(context.Context, int64, []string) error { return nil }

func (r ebookRepo) UpdateProgress(context.Context, int64, int, int) error { return nil }

func (r ebookRepo) UpdateTotalWords(_ context.Context, id int64, total int) error {
	r.ebooks[id].TotalWords = total
	return nil
}

func (r ebookRepo) Complete(context.Context, int64, int) error { return nil }

func (r ebookRepo) MarkFailed(_ context.Context, id int64) error {
	r.ebooks[id].Status = entity.EbookStatusFailed
	return nil
}

func (r ebookRepo) UsageByUser(_ context.Context, userID int64) (*repository.EbookUsage, error) {
	u := &repository.EbookUsage{ByStatus: map[entity.EbookStatus]int64{}}
	for _, e := range r.ebooks {
		if e.UserID == userID {
			u.Total++
			u.ByStatus[e.Status]++
			u.TotalWords += int64(e.TotalWords)
		}
	}
	return u, nil
}

func (r ebookRepo) ListAll(_ context.Context, _ *repository.EbookFilter, p repository.Pagination) (*repository.PagedResult[*entity.Ebook], error) {
	items := make([]*entity.Ebook, 0, len(r.ebooks))
	for _, e := range r.ebooks {
		items = append(items, e)
	}
	return repository.NewPagedResult(items, int64(len(items)), p), nil
}

func (r ebookRepo) CountSince(context.Context, time.Time) (int64, error) {
	return int64(len(r.ebooks)), nil
}

func (r ebookRepo) DeleteByUser(_ context.Context, userID int64) error {
	for id, e := range r.ebooks {
		if e.UserID == userID {
			delete(r.ebooks, id)
		}
	}
	return nil
}

type chapterRepo struct{ *store }

func (r chapterRepo) CreateBatch(context.Context, []*entity.Chapter) error { return nil }

func (r chapterRepo) GetByID(_ context.Context, id int64) (*entity.Chapter, error) {
	return r.chapters[id], nil
}

func (r chapterRepo) GetByEbookAndID(_ context.Context, ebookID, id int64) (*entity.Chapter, error) {
	ch, ok := r.chapters[id]
	if !ok || ch.EbookID != ebookID {
		return nil, nil
	}
	cp := *ch
	return &cp, nil
}

func (r chapterRepo) ListByEbook(context.Context, int64) ([]*entity.Chapter, error) { return nil, nil }

func (r chapterRepo) DeleteByEbook(context.Context, int64) error { return nil }

func (r chapterRepo) UpdateStatus(context.Context, int64, entity.ChapterStatus) error { return nil }

func (r chapterRepo) SaveResult(context.Context, int64, repository.ChapterResult) error { return nil }

func (r chapterRepo) UpdateContent(_ context.Context, ch *entity.Chapter) error {
	cp := *ch
	r.chapters[ch.ID] = &cp
	return nil
}

func (r chapterRepo) SumWordCount(_ context.Context, ebookID int64) (int, error) {
	total := 0
	for _, ch := range r.chapters {
		if ch.EbookID == ebookID {
			total += ch.WordCount
		}
	}
	return total, nil
}

type userRepo struct{ *store }

func (r userRepo) Create(context.Context, *entity.User) error { return nil }

func (r userRepo) GetByID(_ context.Context, id int64) (*entity.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r userRepo) GetByEmail(context.Context, string) (*entity.User, error) { return nil, nil }

func (r userRepo) ExistsByEmail(context.Context, string) (bool, error) { return false, nil }

func (r userRepo) UpdateLastLogin(context.Context, int64) error { return nil }

func (r userRepo) DeductCredit(_ context.Context, id int64) (bool, error) {
	if r.credits[id] <= 0 {
		return false, nil
	}
	r.credits[id]--
	r.users[id].CreditsRemaining = r.credits[id]
	return true, nil
}

func (r userRepo) Update(_ context.Context, u *entity.User) error {
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r userRepo) UpdatePassword(context.Context, int64, string) error { return nil }

func (r userRepo) Delete(_ context.Context, id int64) error {
	delete(r.users, id)
	return nil
}

func (r userRepo) List(_ context.Context, _ *repository.UserFilter, p repository.Pagination) (*repository.PagedResult[*entity.User], error) {
	items := make([]*entity.User, 0, len(r.users))
	for _, u := range r.users {
		items = append(items, u)
	}
	return repository.NewPagedResult(items, int64(len(items)), p), nil
}

func (r userRepo) CountSince(context.Context, time.Time) (int64, error) {
	return int64(len(r.users)), nil
}

type noTx struct{}

func (noTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeGenerator struct {
	prepared   []int64
	prepareErr error
	regen      generation.ChapterResult
	regenErr   error
}

func (g *fakeGenerator) Prepare(_ context.Context, id int64) ([]*entity.Chapter, error) {
	g.prepared = append(g.prepared, id)
	return nil, g.prepareErr
}

func (g *fakeGenerator) RegenerateChapter(_ context.Context, _, chapterID int64) (*entity.Chapter, generation.ChapterResult, error) {
	if g.regenErr != nil {
		return nil, generation.ChapterResult{}, g.regenErr
	}
	return &entity.Chapter{ID: chapterID, Status: g.regen.Status}, g.regen, nil
}

type fakeImprover struct{ instruction string }

func (f *fakeImprover) Improve(_ context.Context, content, instruction string) (*generation.ChapterText, error) {
	f.instruction = instruction
	return &generation.ChapterText{Content: "better " + content, WordCount: 2}, nil
}

type fakeExporter struct{ got *entity.Ebook }

func (f *fakeExporter) Export(_ context.Context, e *entity.Ebook, format export.Format) (*export.Result, error) {
	f.got = e
	return &export.Result{Format: format, ObjectKey: "k"}, nil
}

type fakeTemplates struct {
	tpl  *entity.Template
	used []int64
}

func (f *fakeTemplates) Use(_ context.Context, id int64, _ *entity.User) (*entity.Template, error) {
	if f.tpl == nil || f.tpl.ID != id {
		return nil, errors.New("template not found")
	}
	f.used = append(f.used, id)
	return f.tpl, nil
}

type fakeDispatcher struct {
	tasks []service.GenerationTask
	err   error
}

func (d *fakeDispatcher) Dispatch(_ context.Context, task service.GenerationTask) error {
	if d.err != nil {
		return d.err
	}
	d.tasks = append(d.tasks, task)
	return nil
}

type harness struct {
	*store
	svc        *Service
	generator  *fakeGenerator
	improver   *fakeImprover
	exporter   *fakeExporter
	templates  *fakeTemplates
	dispatcher *fakeDispatcher
}

func newHarness() *harness {
	s := newStore()
	h := &harness{
		store:      s,
		generator:  &fakeGenerator{},
		improver:   &fakeImprover{},
		exporter:   &fakeExporter{},
		templates:  &fakeTemplates{},
		dispatcher: &fakeDispatcher{},
	}
	h.svc = NewService(Deps{
		Ebooks:     ebookRepo{s},
		Chapters:   chapterRepo{s},
		Users:      userRepo{s},
		Tx:         noTx{},
		Credits:    quota.NewCreditGuard(userRepo{s}),
		Templates:  h.templates,
		Generator:  h.generator,
		Improver:   h.improver,
		Exporter:   h.exporter,
		Dispatcher: h.dispatcher,
	})
	h.svc.now = func() time.Time { return time.Unix(1700000000, 0) }
	return h
}
