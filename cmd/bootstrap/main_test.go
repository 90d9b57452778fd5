package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ebook-ai-api/internal/domain/entity"
	"ebook-ai-api/internal/domain/repository"
)

type memTemplates struct {
	repository.TemplateRepository
	items []*entity.Template
}

func (m *memTemplates) List(_ context.Context, _ repository.TemplateFilter) ([]*entity.Template, error) {
	return m.items, nil
}

func (m *memTemplates) Create(_ context.Context, t *entity.Template) error {
	t.ID = int64(len(m.items) + 1)
	m.items = append(m.items, t)
	return nil
}

type memUsers struct {
	repository.UserRepository
	byEmail map[string]*entity.User
}

func (m *memUsers) ExistsByEmail(_ context.Context, email string) (bool, error) {
	_, ok := m.byEmail[email]
	return ok, nil
}

func (m *memUsers) Create(_ context.Context, u *entity.User) error {
	m.byEmail[u.Email] = u
	return nil
}

func TestSeedTemplatesIsIdempotent(t *testing.T) {
	repo := &memTemplates{}
	ctx := context.Background()

	n, err := seedTemplates(ctx, repo, defaultTemplates())
	require.NoError(t, err)
	assert.Equal(t, len(defaultTemplates()), n)

	n, err = seedTemplates(ctx, repo, defaultTemplates())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, repo.items, len(defaultTemplates()))
}

func TestDefaultTemplatesHaveChapters(t *testing.T) {
	for _, tpl := range defaultTemplates() {
		assert.NotEmpty(t, tpl.Structure.Chapters, tpl.Name)
		assert.NotEmpty(t, tpl.Category, tpl.Name)
	}
}

func TestEnsureAdmin(t *testing.T) {
	users := &memUsers{byEmail: map[string]*entity.User{}}
	ctx := context.Background()

	created, err := ensureAdmin(ctx, users, " Admin@Example.com ", "s3cret-pass")
	require.NoError(t, err)
	assert.True(t, created)

	admin := users.byEmail["admin@example.com"]
	require.NotNil(t, admin)
	assert.True(t, admin.IsAdmin())
	assert.Equal(t, entity.TierEnterprise, admin.SubscriptionTier)
	assert.True(t, admin.CheckPassword("s3cret-pass"))

	created, err = ensureAdmin(ctx, users, "admin@example.com", "other")
	require.NoError(t, err)
	assert.False(t, created)
}
