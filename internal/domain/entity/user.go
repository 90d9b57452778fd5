package entity

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// UserRole 用户角色
type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleUser  UserRole = "user"
)

// SubscriptionTier 订阅等级
type SubscriptionTier string

const (
	TierFree       SubscriptionTier = "free"
	TierBasic      SubscriptionTier = "basic"
	TierPro        SubscriptionTier = "pro"
	TierEnterprise SubscriptionTier = "enterprise"
)

// User 用户实体
type User struct {
	ID               int64            `json:"id" gorm:"primaryKey;autoIncrement"`
	Email            string           `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash     string           `json:"-" gorm:"type:varchar(255);not null"`
	Name             string           `json:"name" gorm:"type:varchar(255)"`
	Role             UserRole         `json:"role" gorm:"type:varchar(20);default:'user'"`
	SubscriptionTier SubscriptionTier `json:"subscription_tier" gorm:"type:varchar(20);default:'free'"`
	CreditsRemaining int              `json:"credits_remaining" gorm:"default:0"`
	LastLoginAt      *time.Time       `json:"last_login_at,omitempty"`
	CreatedAt        time.Time        `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time        `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// NewUser 创建免费用户
func NewUser(email, name string, freeCredits int) *User {
	now := time.Now()
	return &User{
		Email:            strings.ToLower(strings.TrimSpace(email)),
		Name:             name,
		Role:             UserRoleUser,
		SubscriptionTier: TierFree,
		CreditsRemaining: freeCredits,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// IsAdmin 检查用户是否为管理员
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// HasUnlimitedCredits pro / enterprise 不扣额度
func (u *User) HasUnlimitedCredits() bool {
	return u.SubscriptionTier == TierPro || u.SubscriptionTier == TierEnterprise
}

// HasCredits 是否还能发起生成
func (u *User) HasCredits() bool {
	return u.HasUnlimitedCredits() || u.CreditsRemaining > 0
}

// CanUsePremium 付费用户可使用高级模板
func (u *User) CanUsePremium() bool {
	return u.SubscriptionTier != TierFree && u.SubscriptionTier != ""
}

// SetPassword 设置并散列密码
func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword 校验密码
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}
