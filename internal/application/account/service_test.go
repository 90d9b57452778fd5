package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ebook-ai-api/internal/domain/entity"
	"ebook-ai-api/internal/domain/repository"
	apperrors "ebook-ai-api/pkg/errors"
)

type memUsers struct {
	repository.UserRepository
	byID map[int64]*entity.User
}

func (m *memUsers) GetByID(_ context.Context, id int64) (*entity.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) ExistsByEmail(_ context.Context, email string) (bool, error) {
	for _, u := range m.byID {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *memUsers) Update(_ context.Context, u *entity.User) error {
	if _, ok := m.byID[u.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id int64, hash string) error {
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *memUsers) Delete(_ context.Context, id int64) error {
	if _, ok := m.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memUsers) CountSince(_ context.Context, since time.Time) (int64, error) {
	var n int64
	for _, u := range m.byID {
		if since.IsZero() || !u.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

type memEbooks struct {
	repository.EbookRepository
	items []*entity.Ebook
}

func (m *memEbooks) UsageByUser(_ context.Context, userID int64) (*repository.EbookUsage, error) {
	u := &repository.EbookUsage{ByStatus: map[entity.EbookStatus]int64{}}
	for _, e := range m.items {
		if e.UserID == userID {
			u.Total++
			u.ByStatus[e.Status]++
			u.TotalWords += int64(e.TotalWords)
		}
	}
	return u, nil
}

func (m *memEbooks) CountSince(_ context.Context, since time.Time) (int64, error) {
	var n int64
	for _, e := range m.items {
		if since.IsZero() || !e.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *memEbooks) DeleteByUser(_ context.Context, userID int64) error {
	kept := m.items[:0]
	for _, e := range m.items {
		if e.UserID != userID {
			kept = append(kept, e)
		}
	}
	m.items = kept
	return nil
}

type noTx struct{}

func (noTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	users  *memUsers
	ebooks *memEbooks
	svc    *Service
}

func newHarness() *harness {
	h := &harness{
		users:  &memUsers{byID: map[int64]*entity.User{}},
		ebooks: &memEbooks{},
	}
	h.svc = NewService(Deps{Users: h.users, Ebooks: h.ebooks, Tx: noTx{}})
	h.svc.now = func() time.Time { return now }
	return h
}

func (h *harness) addUser(id int64, email string, created time.Time) *entity.User {
	u := entity.NewUser(email, "name", 3)
	u.ID = id
	u.CreatedAt = created
	_ = u.SetPassword("old-password")
	h.users.byID[id] = u
	return u
}

func (h *harness) addEbook(userID int64, status entity.EbookStatus, created time.Time) {
	e := entity.NewEbook(userID, "t", "topic")
	e.Status = status
	e.CreatedAt = created
	h.ebooks.items = append(h.ebooks.items, e)
}

func strPtr(s string) *string { return &s }

func TestUpdateProfile(t *testing.T) {
	h := newHarness()
	h.addUser(1, "ann@example.com", now)
	h.addUser(2, "bob@example.com", now)
	ctx := context.Background()

	u, err := h.svc.UpdateProfile(ctx, 1, ProfileInput{Name: strPtr(" Ann Lee "), Email: strPtr(" ANN.LEE@example.com ")})
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee", u.Name)
	assert.Equal(t, "ann.lee@example.com", h.users.byID[1].Email)

	_, err = h.svc.UpdateProfile(ctx, 1, ProfileInput{Email: strPtr("bob@example.com")})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = h.svc.UpdateProfile(ctx, 9, ProfileInput{Name: strPtr("x")})
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestChangePassword(t *testing.T) {
	h := newHarness()
	h.addUser(1, "ann@example.com", now)
	ctx := context.Background()

	err := h.svc.ChangePassword(ctx, 1, "wrong", "new-password")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	assert.True(t, h.users.byID[1].CheckPassword("old-password"))

	require.NoError(t, h.svc.ChangePassword(ctx, 1, "old-password", "new-password"))
	assert.True(t, h.users.byID[1].CheckPassword("new-password"))
	assert.False(t, h.users.byID[1].CheckPassword("old-password"))
}

func TestStatsCountsRecentWindow(t *testing.T) {
	h := newHarness()
	old := now.Add(-RecentWindow - time.Hour)
	h.addUser(1, "a@example.com", old)
	h.addUser(2, "b@example.com", now.Add(-time.Hour))
	h.addEbook(1, entity.EbookStatusCompleted, old)
	h.addEbook(1, entity.EbookStatusDraft, now)
	h.addEbook(2, entity.EbookStatusDraft, now)

	st, err := h.svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{TotalUsers: 2, TotalEbooks: 3, RecentUsers: 1, RecentEbooks: 2}, *st)
}

func TestGetUserIncludesUsage(t *testing.T) {
	h := newHarness()
	h.addUser(4, "a@example.com", now)
	h.addEbook(4, entity.EbookStatusCompleted, now)
	h.addEbook(5, entity.EbookStatusCompleted, now)

	d, err := h.svc.GetUser(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, int64(4), d.User.ID)
	assert.Equal(t, int64(1), d.Usage.Total)
}

func TestAdminUpdateUser(t *testing.T) {
	h := newHarness()
	h.addUser(1, "admin@example.com", now).Role = entity.UserRoleAdmin
	h.addUser(2, "b@example.com", now)
	ctx := context.Background()

	tier := entity.TierPro
	credits := 0
	role := entity.UserRoleAdmin
	u, err := h.svc.UpdateUser(ctx, 1, 2, AdminUpdateInput{SubscriptionTier: &tier, CreditsRemaining: &credits, Role: &role})
	require.NoError(t, err)
	assert.Equal(t, entity.TierPro, u.SubscriptionTier)
	assert.Equal(t, 0, h.users.byID[2].CreditsRemaining)
	assert.True(t, h.users.byID[2].IsAdmin())

	demote := entity.UserRoleUser
	_, err = h.svc.UpdateUser(ctx, 1, 1, AdminUpdateInput{Role: &demote})
	assert.ErrorIs(t, err, apperrors.ErrInvalidParam)
	assert.True(t, h.users.byID[1].IsAdmin())
}

func TestDeleteUser(t *testing.T) {
	h := newHarness()
	h.addUser(1, "admin@example.com", now)
	h.addUser(2, "b@example.com", now)
	h.addUser(3, "c@example.com", now)
	h.addEbook(2, entity.EbookStatusCompleted, now)
	h.addEbook(3, entity.EbookStatusGenerating, now)
	ctx := context.Background()

	assert.ErrorIs(t, h.svc.DeleteUser(ctx, 1, 1), apperrors.ErrInvalidParam)
	assert.ErrorIs(t, h.svc.DeleteUser(ctx, 1, 3), apperrors.ErrConflict)
	assert.ErrorIs(t, h.svc.DeleteUser(ctx, 1, 99), apperrors.ErrUserNotFound)

	require.NoError(t, h.svc.DeleteUser(ctx, 1, 2))
	assert.NotContains(t, h.users.byID, int64(2))
	require.Len(t, h.ebooks.items, 1)
	assert.Equal(t, int64(3), h.ebooks.items[0].UserID)
}

func TestNotFoundMapping(t *testing.T) {
	assert.ErrorIs(t, notFound(repository.ErrNotFound), apperrors.ErrUserNotFound)
	other := errors.New("db down")
	assert.Equal(t, other, notFound(other))
}
