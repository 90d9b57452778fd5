package dto

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"ebook-ai-api/internal/application/account"
	"ebook-ai-api/internal/domain/entity"
	"ebook-ai-api/internal/domain/repository"
)

// UpdateProfileRequest 修改个人资料，未提供的字段保持不变
type UpdateProfileRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

// Validate 校验资料参数
func (r UpdateProfileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.When(r.Name != nil,
			validation.By(notBlank("name cannot be empty")), validation.Length(1, 255))),
		validation.Field(&r.Email, validation.When(r.Email != nil,
			validation.By(notBlank("email cannot be empty")), is.Email.Error("invalid email format"), validation.Length(5, 255))),
	)
}

// ToInput 转换为用例参数
func (r UpdateProfileRequest) ToInput() account.ProfileInput {
	return account.ProfileInput{Name: r.Name, Email: r.Email}
}

// ChangePasswordRequest 修改密码
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Validate 校验密码参数
func (r ChangePasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required.Error("current password is required")),
		validation.Field(&r.NewPassword,
			validation.Required.Error("new password is required"),
			validation.Length(8, 128).Error("password must be 8-128 characters"),
		),
	)
}

// AdminUpdateUserRequest 管理员修改用户
type AdminUpdateUserRequest struct {
	Name             *string `json:"name"`
	Email            *string `json:"email"`
	Role             *string `json:"role"`
	SubscriptionTier *string `json:"subscription_tier"`
	CreditsRemaining *int    `json:"credits_remaining"`
}

// Validate 校验角色、等级与额度取值
func (r AdminUpdateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.When(r.Name != nil,
			validation.By(notBlank("name cannot be empty")), validation.Length(1, 255))),
		validation.Field(&r.Email, validation.When(r.Email != nil,
			validation.By(notBlank("email cannot be empty")), is.Email.Error("invalid email format"))),
		validation.Field(&r.Role, validation.In(string(entity.UserRoleAdmin), string(entity.UserRoleUser))),
		validation.Field(&r.SubscriptionTier, validation.In(tierValues()...)),
		validation.Field(&r.CreditsRemaining, validation.When(r.CreditsRemaining != nil, validation.Min(0))),
	)
}

// ToInput 转换为用例参数
func (r AdminUpdateUserRequest) ToInput() account.AdminUpdateInput {
	in := account.AdminUpdateInput{
		Name:             r.Name,
		Email:            r.Email,
		CreditsRemaining: r.CreditsRemaining,
	}
	if r.Role != nil && *r.Role != "" {
		role := entity.UserRole(*r.Role)
		in.Role = &role
	}
	if r.SubscriptionTier != nil && *r.SubscriptionTier != "" {
		tier := entity.SubscriptionTier(*r.SubscriptionTier)
		in.SubscriptionTier = &tier
	}
	return in
}

// ListUsersQuery 用户列表过滤参数
type ListUsersQuery struct {
	Search string `form:"search"`
	Tier   string `form:"tier"`
}

// Validate 校验等级取值
func (q ListUsersQuery) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.Tier, validation.In(tierValues()...)),
	)
}

// AdminUserDTO 管理端用户详情
type AdminUserDTO struct {
	*UserDTO
	Usage *repository.EbookUsage `json:"usage"`
}

// ToAdminUserDTO 合并用户资料与电子书统计
func ToAdminUserDTO(d *account.UserDetail) *AdminUserDTO {
	return &AdminUserDTO{UserDTO: ToUserDTO(d.User), Usage: d.Usage}
}

// ToUserDTOs 批量转换
func ToUserDTOs(users []*entity.User) []*UserDTO {
	out := make([]*UserDTO, 0, len(users))
	for _, u := range users {
		out = append(out, ToUserDTO(u))
	}
	return out
}

func tierValues() []interface{} {
	return []interface{}{
		string(entity.TierFree),
		string(entity.TierBasic),
		string(entity.TierPro),
		string(entity.TierEnterprise),
	}
}
