// Package template 提供电子书模板的查询与管理
package template

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ebook-ai-api/internal/domain/entity"
	"ebook-ai-api/internal/domain/repository"
	"ebook-ai-api/internal/infrastructure/persistence/redis"
	apperrors "ebook-ai-api/pkg/errors"
	"ebook-ai-api/pkg/logger"
)

// DefaultCacheTTL 模板缓存默认过期时间
const DefaultCacheTTL = 10 * time.Minute

// Cache 模板读缓存
type Cache interface {
	GetOrLoad(ctx context.Context, key string, ttl time.Duration, loader func(ctx context.Context) (any, error)) ([]byte, error)
	Delete(ctx context.Context, keys ...string) error
}

// Service 模板服务
type Service struct {
	repo  repository.TemplateRepository
	cache Cache
	ttl   time.Duration
}

// NewService 创建模板服务，cache 为空时直接读库
func NewService(repo repository.TemplateRepository, cache Cache, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Service{repo: repo, cache: cache, ttl: ttl}
}

// Input 创建/更新模板的字段
type Input struct {
	Name         string
	Category     string
	Description  string
	PreviewImage string
	Chapters     []string
	IsPremium    bool
}

// List 按分类列出模板，免费用户只能看到非高级模板
func (s *Service) List(ctx context.Context, category string, user *entity.User) ([]*entity.Template, error) {
	return s.repo.List(ctx, repository.TemplateFilter{
		Category:       strings.TrimSpace(category),
		IncludePremium: user != nil && user.CanUsePremium(),
	})
}

// Get 获取模板（走缓存），高级模板需要付费等级
func (s *Service) Get(ctx context.Context, id int64, user *entity.User) (*entity.Template, error) {
	tpl, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !tpl.AccessibleBy(user) {
		return nil, apperrors.ErrUpgradeRequired
	}
	return tpl, nil
}

// Use 读取模板并累加使用次数，供创建电子书时复制章节结构
func (s *Service) Use(ctx context.Context, id int64, user *entity.User) (*entity.Template, error) {
	tpl, err := s.Get(ctx, id, user)
	if err != nil {
		return nil, err
	}
	if err := s.repo.IncrementUsage(ctx, id); err != nil {
		logger.Warn(ctx, "failed to increment template usage", "template_id", id, "error", err.Error())
	}
	return tpl, nil
}

// Create 创建模板
func (s *Service) Create(ctx context.Context, in Input) (*entity.Template, error) {
	tpl := &entity.Template{}
	in.apply(tpl)
	if err := s.repo.Create(ctx, tpl); err != nil {
		return nil, fmt.Errorf("create template: %w", err)
	}
	return tpl, nil
}

// Update 更新模板并失效缓存
func (s *Service) Update(ctx context.Context, id int64, in Input) (*entity.Template, error) {
	tpl, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tpl == nil {
		return nil, apperrors.ErrTemplateNotFound
	}
	in.apply(tpl)
	if err := s.repo.Update(ctx, tpl); err != nil {
		return nil, mapNotFound(err)
	}
	s.invalidate(ctx, id)
	return tpl, nil
}

// Delete 删除模板并失效缓存
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapNotFound(err)
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *Service) load(ctx context.Context, id int64) (*entity.Template, error) {
	if s.cache == nil {
		tpl, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if tpl == nil {
			return nil, apperrors.ErrTemplateNotFound
		}
		return tpl, nil
	}

	data, err := s.cache.GetOrLoad(ctx, redis.TemplateKey(id), s.ttl, func(ctx context.Context) (any, error) {
		tpl, err := s.repo.GetByID(ctx, id)
		if err != nil || tpl == nil {
			return nil, err
		}
		return tpl, nil
	})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, apperrors.ErrTemplateNotFound
	}

	var tpl entity.Template
	if err := json.Unmarshal(data, &tpl); err != nil {
		return nil, fmt.Errorf("decode cached template %d: %w", id, err)
	}
	return &tpl, nil
}

func (s *Service) invalidate(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, redis.TemplateKey(id)); err != nil {
		logger.Warn(ctx, "failed to invalidate template cache", "template_id", id, "error", err.Error())
	}
}

func (in Input) apply(tpl *entity.Template) {
	tpl.Name = strings.TrimSpace(in.Name)
	tpl.Category = strings.TrimSpace(in.Category)
	tpl.Description = in.Description
	tpl.PreviewImage = in.PreviewImage
	tpl.Structure = entity.TemplateStructure{Chapters: append([]string(nil), in.Chapters...)}
	tpl.IsPremium = in.IsPremium
}

func mapNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.ErrTemplateNotFound
	}
	return err
}
