// Package quota 提供用户生成额度相关能力
package quota

import (
	"context"
	"fmt"

	"ebook-ai-api/internal/domain/entity"
	"ebook-ai-api/internal/domain/repository"
	apperrors "ebook-ai-api/pkg/errors"
	"ebook-ai-api/pkg/logger"
)

// CreditGuard 检查并扣减用户的生成额度
// pro / enterprise 等级不限额度
type CreditGuard struct {
	users repository.UserRepository
}

// NewCreditGuard 创建额度守卫
func NewCreditGuard(users repository.UserRepository) *CreditGuard {
	return &CreditGuard{users: users}
}

// Check 校验用户存在且仍有额度，返回当前用户
func (g *CreditGuard) Check(ctx context.Context, userID int64) (*entity.User, error) {
	user, err := g.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", userID, err)
	}
	if user == nil {
		return nil, apperrors.ErrUserNotFound
	}
	if !user.HasCredits() {
		return user, apperrors.ErrInsufficientCredit
	}
	return user, nil
}

// Consume 扣减一次额度
// 条件更新失败（并发请求已耗尽额度）时返回 ErrInsufficientCredit
func (g *CreditGuard) Consume(ctx context.Context, user *entity.User) error {
	if user == nil {
		return apperrors.ErrUserNotFound
	}
	if user.HasUnlimitedCredits() {
		return nil
	}

	ok, err := g.users.DeductCredit(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("deduct credit for user %d: %w", user.ID, err)
	}
	if !ok {
		return apperrors.ErrInsufficientCredit
	}
	user.CreditsRemaining--
	logger.Info(ctx, "credit consumed", "credits_remaining", user.CreditsRemaining)
	return nil
}
