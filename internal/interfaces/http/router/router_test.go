package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ebook-ai-api/internal/config"
	"ebook-ai-api/internal/interfaces/http/handler"
	"ebook-ai-api/pkg/utils"
)

func newTestRouter(t *testing.T) (*gin.Engine, *utils.JWTManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.App.Name = "ebook-ai-api"
	cfg.Observability.Metrics.Enabled = true
	cfg.Observability.Metrics.Path = "/metrics"
	cfg.Security.CORS.AllowedOrigins = []string{"*"}

	jwt := utils.NewJWTManager("secret", "ebook-ai", time.Hour, time.Hour)
	handlers := Handlers{
		Health:   handler.NewHealthHandler("test", nil, nil, nil),
		Auth:     handler.NewAuthHandler(jwt, nil, handler.AuthOptions{}),
		Ebook:    handler.NewEbookHandler(nil),
		Chapter:  handler.NewChapterHandler(nil),
		Template: handler.NewTemplateHandler(nil),
		User:     handler.NewUserHandler(nil, nil),
		Admin:    handler.NewAdminHandler(nil),
	}
	return New(cfg, handlers, Deps{Tokens: jwt}).Engine(), jwt
}

func serve(r http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r, _ := newTestRouter(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/ebooks"},
		{http.MethodPost, "/api/v1/ebooks/1/generate"},
		{http.MethodGet, "/api/v1/templates"},
		{http.MethodGet, "/api/v1/users/me/usage"},
		{http.MethodGet, "/api/v1/users/me"},
		{http.MethodPut, "/api/v1/users/me/password"},
		{http.MethodGet, "/api/v1/admin/stats"},
		{http.MethodGet, "/api/v1/auth/me"},
	} {
		w := serve(r, tc.method, tc.path, "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, tc.path)
	}
}

func TestAdminTemplateRoutesRequireAdmin(t *testing.T) {
	r, jwt := newTestRouter(t)

	pair, err := jwt.GenerateTokenPair(utils.Subject{UserID: 1, Role: "user", Tier: "free"})
	require.NoError(t, err)

	w := serve(r, http.MethodPost, "/api/v1/templates", pair.AccessToken, `{}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 管理员通过权限检查后进入参数校验
	admin, err := jwt.GenerateTokenPair(utils.Subject{UserID: 2, Role: "admin", Tier: "free"})
	require.NoError(t, err)
	w = serve(r, http.MethodPost, "/api/v1/templates", admin.AccessToken, `{}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestAdminPanelRequiresAdmin(t *testing.T) {
	r, jwt := newTestRouter(t)

	pair, err := jwt.GenerateTokenPair(utils.Subject{UserID: 1, Role: "user", Tier: "pro"})
	require.NoError(t, err)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/admin/stats"},
		{http.MethodGet, "/api/v1/admin/users"},
		{http.MethodGet, "/api/v1/admin/users/2"},
		{http.MethodPut, "/api/v1/admin/users/2"},
		{http.MethodDelete, "/api/v1/admin/users/2"},
		{http.MethodGet, "/api/v1/admin/ebooks"},
	} {
		w := serve(r, tc.method, tc.path, pair.AccessToken, `{}`)
		assert.Equal(t, http.StatusForbidden, w.Code, tc.method+" "+tc.path)
	}

	// 管理员通过权限检查后进入参数校验
	admin, err := jwt.GenerateTokenPair(utils.Subject{UserID: 2, Role: "admin", Tier: "free"})
	require.NoError(t, err)
	w := serve(r, http.MethodGet, "/api/v1/admin/users?tier=gold", admin.AccessToken, "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestRefreshTokenRejectedAsAccess(t *testing.T) {
	r, jwt := newTestRouter(t)

	pair, err := jwt.GenerateTokenPair(utils.Subject{UserID: 1, Role: "user"})
	require.NoError(t, err)

	w := serve(r, http.MethodGet, "/api/v1/ebooks", pair.RefreshToken, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSystemEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/health", "", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/live", "", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(r, http.MethodGet, "/ready", "", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/metrics", "", "").Code)

	w := serve(r, http.MethodGet, "/health", "", "")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
