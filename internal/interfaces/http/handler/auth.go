// Package handler 提供 HTTP 请求处理器
package handler

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"ebook-ai-api/internal/domain/entity"
	"ebook-ai-api/internal/domain/repository"
	"ebook-ai-api/internal/interfaces/http/dto"
	"ebook-ai-api/internal/interfaces/http/middleware"
	"ebook-ai-api/pkg/logger"
	"ebook-ai-api/pkg/utils"
)

const (
	refreshCookieName = "refresh_token"
	refreshCookiePath = "/api/v1/auth"
)

// AuthOptions 认证处理器参数
type AuthOptions struct {
	FreeCredits int
	RefreshTTL  time.Duration
	// SecureCookie 生产环境启用 Secure
	SecureCookie bool
}

// AuthHandler 认证处理器
type AuthHandler struct {
	jwtManager *utils.JWTManager
	userRepo   repository.UserRepository
	opts       AuthOptions
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(jwtManager *utils.JWTManager, userRepo repository.UserRepository, opts AuthOptions) *AuthHandler {
	return &AuthHandler{
		jwtManager: jwtManager,
		userRepo:   userRepo,
		opts:       opts,
	}
}

// Register 注册
// @Summary 用户注册
// @Description 创建免费用户并赠送初始额度
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body dto.RegisterRequest true "注册信息"
// @Success 201 {object} dto.Response[dto.AuthResponse]
// @Failure 409 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	user := entity.NewUser(req.Email, req.Name, h.opts.FreeCredits)

	exists, err := h.userRepo.ExistsByEmail(ctx, user.Email)
	if err != nil {
		logger.Error(ctx, "failed to check email existence", err)
		dto.InternalError(c, "registration failed")
		return
	}
	if exists {
		dto.Conflict(c, "email already registered")
		return
	}

	if err := user.SetPassword(req.Password); err != nil {
		logger.Error(ctx, "failed to hash password", err)
		dto.InternalError(c, "registration failed")
		return
	}

	if err := h.userRepo.Create(ctx, user); err != nil {
		logger.Error(ctx, "failed to create user", err)
		dto.InternalError(c, "registration failed")
		return
	}

	resp, ok := h.issue(c, user)
	if !ok {
		return
	}
	logger.Info(ctx, "user registered", "user_id", user.ID)
	dto.Created(c, resp)
}

// Login 登录
// @Summary 用户登录
// @Description 验证邮箱密码并返回双 Token
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body dto.LoginRequest true "登录信息"
// @Success 200 {object} dto.Response[dto.AuthResponse]
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		logger.Error(ctx, "failed to get user", err)
		dto.InternalError(c, "login failed")
		return
	}
	if user == nil || !user.CheckPassword(req.Password) {
		dto.Unauthorized(c, "invalid email or password")
		return
	}

	if err := h.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		logger.Warn(ctx, "failed to update last login time", "error", err.Error(), "user_id", user.ID)
	}

	resp, ok := h.issue(c, user)
	if !ok {
		return
	}
	dto.Success(c, resp)
}

// RefreshToken 刷新 Token
// @Summary 刷新 Token
// @Description 使用 RefreshToken（请求体或 Cookie）换取新的双 Token
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body dto.RefreshRequest false "刷新令牌"
// @Success 200 {object} dto.Response[dto.AuthResponse]
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RefreshRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			dto.BadRequest(c, "invalid request body: "+err.Error())
			return
		}
	}
	token := req.RefreshToken
	if token == "" {
		token, _ = c.Cookie(refreshCookieName)
	}
	if token == "" {
		dto.Unauthorized(c, "missing refresh token")
		return
	}

	claims, err := h.jwtManager.ParseRefreshToken(token)
	if err != nil {
		dto.Unauthorized(c, "invalid refresh token")
		return
	}

	// 重新读取用户，使角色与等级变更在刷新后生效
	user, err := h.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		logger.Error(ctx, "failed to get user", err)
		dto.InternalError(c, "refresh failed")
		return
	}
	if user == nil {
		dto.Unauthorized(c, "user no longer exists")
		return
	}

	resp, ok := h.issue(c, user)
	if !ok {
		return
	}
	dto.Success(c, resp)
}

// Me 当前用户
// @Summary 获取当前用户信息
// @Tags Auth
// @Produce json
// @Success 200 {object} dto.Response[dto.UserDTO]
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	ctx := c.Request.Context()

	user, err := h.userRepo.GetByID(ctx, middleware.GetUserIDFromGin(c))
	if err != nil {
		logger.Error(ctx, "failed to get user", err)
		dto.InternalError(c, "failed to get user info")
		return
	}
	if user == nil {
		dto.NotFound(c, "user not found")
		return
	}
	dto.Success(c, dto.ToUserDTO(user))
}

// Logout 登出
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetCookie(refreshCookieName, "", -1, refreshCookiePath, "", h.opts.SecureCookie, true)
	dto.Success(c, gin.H{"message": "logged out"})
}

// issue 签发双 Token 并写入 RefreshToken Cookie
func (h *AuthHandler) issue(c *gin.Context, user *entity.User) (*dto.AuthResponse, bool) {
	tokens, err := h.jwtManager.GenerateTokenPair(utils.Subject{
		UserID: user.ID,
		Role:   string(user.Role),
		Tier:   string(user.SubscriptionTier),
	})
	if err != nil {
		logger.Error(c.Request.Context(), "failed to generate tokens", err, "user_id", user.ID)
		dto.InternalError(c, "failed to generate tokens")
		return nil, false
	}

	c.SetCookie(refreshCookieName, tokens.RefreshToken, int(h.opts.RefreshTTL.Seconds()), refreshCookiePath, "", h.opts.SecureCookie, true)

	return &dto.AuthResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
		User:         dto.ToUserDTO(user),
	}, true
}
