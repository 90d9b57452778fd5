//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"ebook-ai-api/internal/application/account"
	"ebook-ai-api/internal/application/ebook"
	"ebook-ai-api/internal/application/generation"
	"ebook-ai-api/internal/application/quota"
	"ebook-ai-api/internal/application/template"
	"ebook-ai-api/internal/config"
	"ebook-ai-api/internal/domain/repository"
	"ebook-ai-api/internal/infrastructure/llm"
	"ebook-ai-api/internal/infrastructure/persistence/postgres"
	"ebook-ai-api/internal/infrastructure/persistence/redis"
	"ebook-ai-api/internal/interfaces/http/handler"
	"ebook-ai-api/internal/interfaces/http/middleware"
	"ebook-ai-api/internal/interfaces/http/router"
	"ebook-ai-api/internal/workflow/port"
	"ebook-ai-api/internal/workflow/prompt"
)

// InitializePostgresOnly 仅初始化 PostgreSQL 数据层（用于 bootstrap）
func InitializePostgresOnly(ctx context.Context, cfg *config.Config) (*PostgresOnlyDataLayer, func(), error) {
	wire.Build(
		PostgresSet,
		wire.Struct(new(PostgresOnlyDataLayer), "*"),
	)
	return nil, nil, nil
}

// InitializeWorker 初始化生成 worker（消费者 + 编排器）
func InitializeWorker(ctx context.Context, cfg *config.Config) (*Worker, func(), error) {
	wire.Build(
		RepoSet,
		RedisClientSet,
		GenerationSet,
		ProvideGenerationConsumer,
		wire.Struct(new(Worker), "*"),
	)
	return nil, nil, nil
}

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		RepoSet,
		RedisSet,
		StorageSet,
		GenerationSet,
		DispatcherSet,
		ServiceSet,
		RouterSet,
	)
	return nil, nil, nil
}

// PostgresSet PostgreSQL 提供者集合
var PostgresSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewTxManager,
	postgres.NewUserRepository,
	postgres.NewEbookRepository,
	postgres.NewChapterRepository,
	postgres.NewTemplateRepository,
)

// RepoSet 整合了具体实现与接口绑定的集合
var RepoSet = wire.NewSet(
	PostgresSet,
	wire.Bind(new(repository.Transactor), new(*postgres.TxManager)),
	wire.Bind(new(repository.UserRepository), new(*postgres.UserRepository)),
	wire.Bind(new(repository.EbookRepository), new(*postgres.EbookRepository)),
	wire.Bind(new(repository.ChapterRepository), new(*postgres.ChapterRepository)),
	wire.Bind(new(repository.TemplateRepository), new(*postgres.TemplateRepository)),
)

// RedisClientSet 仅 Redis 客户端
var RedisClientSet = wire.NewSet(
	ProvideRedisClient,
)

// RedisSet Redis 提供者集合
var RedisSet = wire.NewSet(
	RedisClientSet,
	redis.NewCache,
	redis.NewRateLimiter,
	wire.Bind(new(template.Cache), new(*redis.Cache)),
	wire.Bind(new(middleware.RateLimiter), new(*redis.RateLimiter)),
)

// StorageSet 可选对象存储（不可达时导出不可用，不阻塞启动）
var StorageSet = wire.NewSet(
	ProvideObjectStorageOptional,
)

// GenerationSet 模型调用、重试与编排
var GenerationSet = wire.NewSet(
	llm.NewEinoFactory,
	wire.Bind(new(port.ChatModelFactory), new(*llm.EinoFactory)),
	llm.NewCompletionClient,
	wire.Bind(new(port.CompletionClient), new(*llm.CompletionClient)),
	prompt.NewRegistry,
	prompt.NewBuilder,
	ProvideRetryController,
	ProvideContentGenerator,
	wire.Bind(new(generation.ContentWriter), new(*generation.ContentGenerator)),
	ProvideOrchestrator,
)

// DispatcherSet 生成任务派发（stream / inline）
var DispatcherSet = wire.NewSet(
	ProvideDispatcher,
)

// ServiceSet 应用服务
var ServiceSet = wire.NewSet(
	quota.NewCreditGuard,
	ProvideTemplateService,
	ProvideExportService,
	ProvideEbookService,
	ProvideAccountService,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideJWTManager,
	ProvideAuthOptions,
	handler.NewAuthHandler,
	ProvideHealthHandler,
	wire.Bind(new(handler.EbookService), new(*ebook.Service)),
	wire.Bind(new(handler.TemplateService), new(*template.Service)),
	wire.Bind(new(handler.AccountService), new(*account.Service)),
	handler.NewEbookHandler,
	handler.NewChapterHandler,
	handler.NewTemplateHandler,
	handler.NewUserHandler,
	handler.NewAdminHandler,
	wire.Struct(new(router.Handlers), "*"),
	ProvideRouterDeps,
	router.New,
)
