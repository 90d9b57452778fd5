package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"ebook-ai-api/internal/domain/entity"
	"ebook-ai-api/internal/domain/repository"
)

// UserRepository 用户仓储实现
type UserRepository struct {
	client *Client
}

// NewUserRepository 创建用户仓储
func NewUserRepository(client *Client) *UserRepository {
	return &UserRepository{client: client}
}

// Create 创建用户
func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	ctx, span := tracer.Start(ctx, "postgres.UserRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(user).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取用户
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	ctx, span := tracer.Start(ctx, "postgres.UserRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var user entity.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetByEmail 根据邮箱获取用户
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	ctx, span := tracer.Start(ctx, "postgres.UserRepository.GetByEmail")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var user entity.User
	if err := db.First(&user, "email = ?", normalizeEmail(email)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

// ExistsByEmail 检查邮箱是否存在
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	ctx, span := tracer.Start(ctx, "postgres.UserRepository.ExistsByEmail")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var count int64
	if err := db.Model(&entity.User{}).Where("email = ?", normalizeEmail(email)).Count(&count).Error; err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("failed to check email exists: %w", err)
	}
	return count > 0, nil
}

// UpdateLastLogin 更新最后登录时间
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "postgres.UserRepository.UpdateLastLogin")
	defer span.End()

	db := getDB(ctx, r.client.db)
	result := db.Model(&entity.User{}).Where("id = ?", id).Update("last_login_at", time.Now())
	return affected(span, result, "update last login")
}

// DeductCredit 原子扣减一个额度
func (r *UserRepository) DeductCredit(ctx context.Context, id int64) (bool, error) {
	ctx, span := tracer.Start(ctx, "postgres.UserRepository.DeductCredit")
	defer span.End()

	db := getDB(ctx, r.client.db)
	result := db.Model(&entity.User{}).
		Where("id = ? AND credits_remaining > 0", id).
		Update("credits_remaining", gorm.Expr("credits_remaining - 1"))
	if result.Error != nil {
		span.RecordError(result.Error)
		return false, fmt.Errorf("failed to deduct credit: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Update 更新资料、角色、等级与额度
func (r *UserRepository) Update(ctx context.Context, user *entity.User) error {
	ctx, span := tracer.Start(ctx, "postgres.UserRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	user.Email = normalizeEmail(user.Email)
	result := db.Model(&entity.User{ID: user.ID}).
		Select("email", "name", "role", "subscription_tier", "credits_remaining").
		Updates(user)
	return affected(span, result, "update user")
}

// UpdatePassword 更新密码散列
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	ctx, span := tracer.Start(ctx, "postgres.UserRepository.UpdatePassword")
	defer span.End()

	db := getDB(ctx, r.client.db)
	result := db.Model(&entity.User{}).Where("id = ?", id).Update("password_hash", passwordHash)
	return affected(span, result, "update password")
}

// Delete 删除用户
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "postgres.UserRepository.Delete")
	defer span.End()

	db := getDB(ctx, r.client.db)
	return affected(span, db.Delete(&entity.User{}, "id = ?", id), "delete user")
}

// List 分页查询用户
func (r *UserRepository) List(ctx context.Context, filter *repository.UserFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.User], error) {
	ctx, span := tracer.Start(ctx, "postgres.UserRepository.List")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.User{})
	if filter != nil {
		if s := strings.TrimSpace(filter.Search); s != "" {
			like := "%" + s + "%"
			query = query.Where("email ILIKE ? OR name ILIKE ?", like, like)
		}
		if filter.Tier != "" {
			query = query.Where("subscription_tier = ?", filter.Tier)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	var users []*entity.User
	if err := query.Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&users).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return repository.NewPagedResult(users, total, pagination), nil
}

// CountSince 统计注册用户数
func (r *UserRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.UserRepository.CountSince")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.User{})
	if !since.IsZero() {
		query = query.Where("created_at >= ?", since)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
