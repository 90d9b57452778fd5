// Package router 提供 HTTP 路由配置
package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ebook-ai-api/internal/config"
	"ebook-ai-api/internal/domain/repository"
	"ebook-ai-api/internal/interfaces/http/handler"
	"ebook-ai-api/internal/interfaces/http/middleware"
)

// Handlers 路由依赖的处理器
type Handlers struct {
	Health   *handler.HealthHandler
	Auth     *handler.AuthHandler
	Ebook    *handler.EbookHandler
	Chapter  *handler.ChapterHandler
	Template *handler.TemplateHandler
	User     *handler.UserHandler
	Admin    *handler.AdminHandler
}

// Deps 中间件依赖
type Deps struct {
	Tokens  middleware.TokenParser
	Limiter middleware.RateLimiter
	Tx      repository.Transactor
}

// Router HTTP 路由器
type Router struct {
	engine   *gin.Engine
	cfg      *config.Config
	handlers Handlers
	deps     Deps
}

// New 创建新的路由器
func New(cfg *config.Config, handlers Handlers, deps Deps) *Router {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		engine:   gin.New(),
		cfg:      cfg,
		handlers: handlers,
		deps:     deps,
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupMiddleware 配置中间件
func (r *Router) setupMiddleware() {
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.CORS(r.cfg.Security.CORS))

	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
		r.engine.Use(middleware.TraceContext())
	}

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics())
	}

	r.engine.Use(middleware.Audit(middleware.AuditConfig{
		Enabled:   true,
		SkipPaths: middleware.DefaultSkipPaths,
	}))
}

// setupRoutes 配置路由
func (r *Router) setupRoutes() {
	if h := r.handlers.Health; h != nil {
		r.engine.GET("/health", h.Health)
		r.engine.GET("/ready", h.Ready)
		r.engine.GET("/live", h.Live)
	}

	if r.cfg.Observability.Metrics.Enabled {
		path := r.cfg.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.engine.GET(path, gin.WrapH(promhttp.Handler()))
	}

	rl := r.cfg.Security.RateLimit
	RegisterV1Routes(r.engine.Group("/api/v1"), r.handlers, RouteMiddleware{
		Auth: middleware.Auth(middleware.AuthConfig{}, r.deps.Tokens),
		APILimit: middleware.RateLimit(middleware.RateLimitConfig{
			Enabled: rl.Enabled,
			Limit:   rl.RequestsPerMinute,
			Window:  time.Minute,
			Scope:   "api",
		}, r.deps.Limiter),
		GenerationLimit: middleware.RateLimit(middleware.RateLimitConfig{
			Enabled: rl.Enabled,
			Limit:   rl.GenerationPerHour,
			Window:  time.Hour,
			Scope:   "generation",
		}, r.deps.Limiter),
		AdminTx: middleware.DBTransaction(r.deps.Tx),
	})
}
