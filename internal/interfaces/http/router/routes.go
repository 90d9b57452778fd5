// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"

	"ebook-ai-api/internal/interfaces/http/middleware"
)

// RouteMiddleware 路由组使用的中间件
type RouteMiddleware struct {
	Auth            gin.HandlerFunc
	APILimit        gin.HandlerFunc
	GenerationLimit gin.HandlerFunc
	AdminTx         gin.HandlerFunc
}

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(v1 *gin.RouterGroup, h Handlers, mw RouteMiddleware) {
	// 认证（公开）
	auth := v1.Group("/auth")
	auth.Use(mw.APILimit)
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.RefreshToken)
		auth.POST("/logout", h.Auth.Logout)
		auth.GET("/me", mw.Auth, h.Auth.Me)
	}

	protected := v1.Group("")
	protected.Use(mw.Auth, mw.APILimit)

	// 电子书
	ebooks := protected.Group("/ebooks")
	{
		read := middleware.RequirePermission(middleware.PermEbookRead)
		write := middleware.RequirePermission(middleware.PermEbookWrite)
		generate := middleware.RequirePermission(middleware.PermEbookGenerate)

		ebooks.GET("", read, h.Ebook.ListEbooks)
		ebooks.POST("", write, h.Ebook.CreateEbook)
		ebooks.GET("/:id", read, h.Ebook.GetEbook)
		ebooks.PUT("/:id", write, h.Ebook.UpdateEbook)
		ebooks.DELETE("/:id", write, h.Ebook.DeleteEbook)
		ebooks.POST("/:id/export", read, h.Ebook.ExportEbook)

		// 调用 LLM 的接口单独限流
		ebooks.POST("/:id/generate", generate, mw.GenerationLimit, h.Ebook.GenerateEbook)
		ebooks.POST("/:id/generate-chapter", generate, mw.GenerationLimit, h.Ebook.GenerateChapter)

		ebooks.PUT("/:id/chapters/:chapterId", write, h.Chapter.UpdateChapter)
		ebooks.POST("/:id/chapters/:chapterId/improve", generate, mw.GenerationLimit, h.Chapter.ImproveChapter)
	}

	// 模板
	templates := protected.Group("/templates")
	{
		templates.GET("", h.Template.ListTemplates)
		templates.GET("/:id", h.Template.GetTemplate)

		admin := templates.Group("", middleware.RequireAdmin(), mw.AdminTx)
		admin.POST("", h.Template.CreateTemplate)
		admin.PUT("/:id", h.Template.UpdateTemplate)
		admin.DELETE("/:id", h.Template.DeleteTemplate)
	}

	// 用户
	users := protected.Group("/users")
	{
		users.GET("/me", h.User.GetMe)
		users.PUT("/me", h.User.UpdateMe)
		users.PUT("/me/password", h.User.ChangePassword)
		users.GET("/me/usage", h.User.GetUsage)
	}

	// 管理后台
	admin := protected.Group("/admin", middleware.RequirePermission(middleware.PermUserManage))
	{
		admin.GET("/stats", h.Admin.Stats)
		admin.GET("/users", h.Admin.ListUsers)
		admin.GET("/users/:id", h.Admin.GetUser)
		admin.PUT("/users/:id", h.Admin.UpdateUser)
		admin.DELETE("/users/:id", h.Admin.DeleteUser)
		admin.GET("/ebooks", h.Admin.ListEbooks)
	}
}
