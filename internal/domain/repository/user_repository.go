package repository

import (
	"context"
	"time"

	"ebook-ai-api/internal/domain/entity"
)

// UserFilter 管理端用户过滤条件
type UserFilter struct {
	// Search 匹配邮箱或姓名
	Search string
	Tier   entity.SubscriptionTier
}

// UserRepository 用户仓储接口
type UserRepository interface {
	// Create 创建用户
	Create(ctx context.Context, user *entity.User) error

	// GetByID 根据 ID 获取用户
	GetByID(ctx context.Context, id int64) (*entity.User, error)

	// GetByEmail 根据邮箱获取用户
	GetByEmail(ctx context.Context, email string) (*entity.User, error)

	// ExistsByEmail 检查邮箱是否存在
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// UpdateLastLogin 更新最后登录时间
	UpdateLastLogin(ctx context.Context, id int64) error

	// DeductCredit 扣减一个额度，额度不足时返回 false
	DeductCredit(ctx context.Context, id int64) (bool, error)

	// Update 更新资料、角色、等级与额度
	Update(ctx context.Context, user *entity.User) error

	// UpdatePassword 更新密码散列
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error

	// Delete 删除用户
	Delete(ctx context.Context, id int64) error

	// List 分页查询用户，按注册时间倒序
	List(ctx context.Context, filter *UserFilter, pagination Pagination) (*PagedResult[*entity.User], error)

	// CountSince 统计 since 之后注册的用户，零值统计全部
	CountSince(ctx context.Context, since time.Time) (int64, error)
}
