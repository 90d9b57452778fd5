// Package account 提供个人资料与管理后台用例
package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"ebook-ai-api/internal/domain/entity"
	"ebook-ai-api/internal/domain/repository"
	apperrors "ebook-ai-api/pkg/errors"
	"ebook-ai-api/pkg/logger"
)

// RecentWindow 统计中“近期”的范围
const RecentWindow = 30 * 24 * time.Hour

// Deps 账户服务依赖
type Deps struct {
	Users  repository.UserRepository
	Ebooks repository.EbookRepository
	Tx     repository.Transactor
}

// Service 个人资料与管理后台
type Service struct {
	Deps
	now func() time.Time
}

// NewService 创建账户服务
func NewService(deps Deps) *Service {
	return &Service{Deps: deps, now: time.Now}
}

// ProfileInput 个人资料更新，nil 字段保持不变
type ProfileInput struct {
	Name  *string
	Email *string
}

// AdminUpdateInput 管理员可修改的用户字段
type AdminUpdateInput struct {
	Name             *string
	Email            *string
	Role             *entity.UserRole
	SubscriptionTier *entity.SubscriptionTier
	CreditsRemaining *int
}

// Stats 系统概览
type Stats struct {
	TotalUsers   int64 `json:"total_users"`
	TotalEbooks  int64 `json:"total_ebooks"`
	RecentUsers  int64 `json:"recent_users"`
	RecentEbooks int64 `json:"recent_ebooks"`
}

// UserDetail 管理端用户详情
type UserDetail struct {
	User  *entity.User
	Usage *repository.EbookUsage
}

// Profile 当前用户资料
func (s *Service) Profile(ctx context.Context, userID int64) (*entity.User, error) {
	return s.user(ctx, userID)
}

// UpdateProfile 修改姓名或邮箱，邮箱被占用时返回冲突
func (s *Service) UpdateProfile(ctx context.Context, userID int64, in ProfileInput) (*entity.User, error) {
	u, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		u.Name = strings.TrimSpace(*in.Name)
	}
	if err := s.changeEmail(ctx, u, in.Email); err != nil {
		return nil, err
	}
	if err := s.Users.Update(ctx, u); err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

// ChangePassword 校验当前密码后设置新密码
func (s *Service) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	u, err := s.user(ctx, userID)
	if err != nil {
		return err
	}
	if !u.CheckPassword(current) {
		return apperrors.ErrInvalidCredentials.WithDetail("current password is incorrect")
	}
	if err := u.SetPassword(next); err != nil {
		return err
	}
	if err := s.Users.UpdatePassword(ctx, userID, u.PasswordHash); err != nil {
		return notFound(err)
	}
	logger.Info(ctx, "password changed")
	return nil
}

// Stats 用户与电子书总量及近 30 天新增
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	since := s.now().Add(-RecentWindow)
	var (
		st  Stats
		err error
	)
	if st.TotalUsers, err = s.Users.CountSince(ctx, time.Time{}); err != nil {
		return nil, err
	}
	if st.RecentUsers, err = s.Users.CountSince(ctx, since); err != nil {
		return nil, err
	}
	if st.TotalEbooks, err = s.Ebooks.CountSince(ctx, time.Time{}); err != nil {
		return nil, err
	}
	if st.RecentEbooks, err = s.Ebooks.CountSince(ctx, since); err != nil {
		return nil, err
	}
	return &st, nil
}

// ListUsers 分页查询用户
func (s *Service) ListUsers(ctx context.Context, filter *repository.UserFilter, page repository.Pagination) (*repository.PagedResult[*entity.User], error) {
	return s.Users.List(ctx, filter, page)
}

// GetUser 用户资料与电子书统计
func (s *Service) GetUser(ctx context.Context, id int64) (*UserDetail, error) {
	u, err := s.user(ctx, id)
	if err != nil {
		return nil, err
	}
	usage, err := s.Ebooks.UsageByUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return &UserDetail{User: u, Usage: usage}, nil
}

// UpdateUser 管理员修改用户，不能撤销自己的管理员角色
func (s *Service) UpdateUser(ctx context.Context, actorID, id int64, in AdminUpdateInput) (*entity.User, error) {
	u, err := s.user(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Role != nil && actorID == id && *in.Role != entity.UserRoleAdmin {
		return nil, apperrors.ErrInvalidParam.WithDetail("cannot revoke your own admin role")
	}

	if in.Name != nil {
		u.Name = strings.TrimSpace(*in.Name)
	}
	if err := s.changeEmail(ctx, u, in.Email); err != nil {
		return nil, err
	}
	if in.Role != nil {
		u.Role = *in.Role
	}
	if in.SubscriptionTier != nil {
		u.SubscriptionTier = *in.SubscriptionTier
	}
	if in.CreditsRemaining != nil {
		u.CreditsRemaining = *in.CreditsRemaining
	}

	if err := s.Users.Update(ctx, u); err != nil {
		return nil, notFound(err)
	}
	logger.Info(ctx, "user updated by admin", "target_user_id", id, "role", u.Role, "tier", u.SubscriptionTier)
	return u, nil
}

// DeleteUser 删除用户及其电子书
// 不能删除自己，用户有生成中的电子书时返回冲突
func (s *Service) DeleteUser(ctx context.Context, actorID, id int64) error {
	if actorID == id {
		return apperrors.ErrInvalidParam.WithDetail("cannot delete your own account")
	}
	if _, err := s.user(ctx, id); err != nil {
		return err
	}
	usage, err := s.Ebooks.UsageByUser(ctx, id)
	if err != nil {
		return err
	}
	if usage.ByStatus[entity.EbookStatusGenerating] > 0 {
		return apperrors.ErrConflict.WithDetail("user has an ebook generating")
	}

	err = s.Tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.Ebooks.DeleteByUser(txCtx, id); err != nil {
			return err
		}
		return s.Users.Delete(txCtx, id)
	})
	if err != nil {
		return notFound(err)
	}
	logger.Info(ctx, "user deleted by admin", "target_user_id", id, "ebooks", usage.Total)
	return nil
}

// ListEbooks 管理端查看全部电子书
func (s *Service) ListEbooks(ctx context.Context, filter *repository.EbookFilter, page repository.Pagination) (*repository.PagedResult[*entity.Ebook], error) {
	return s.Ebooks.ListAll(ctx, filter, page)
}

func (s *Service) user(ctx context.Context, id int64) (*entity.User, error) {
	u, err := s.Users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperrors.ErrUserNotFound
	}
	return u, nil
}

func (s *Service) changeEmail(ctx context.Context, u *entity.User, email *string) error {
	if email == nil {
		return nil
	}
	normalized := strings.ToLower(strings.TrimSpace(*email))
	if normalized == "" || normalized == u.Email {
		return nil
	}
	exists, err := s.Users.ExistsByEmail(ctx, normalized)
	if err != nil {
		return err
	}
	if exists {
		return apperrors.ErrConflict.WithDetail("email already in use")
	}
	u.Email = normalized
	return nil
}

func notFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.ErrUserNotFound
	}
	return err
}
