package wire

import (
	"context"
	"fmt"
	"os"

	"ebook-ai-api/internal/application/account"
	"ebook-ai-api/internal/application/ebook"
	"ebook-ai-api/internal/application/export"
	"ebook-ai-api/internal/application/generation"
	"ebook-ai-api/internal/application/quota"
	"ebook-ai-api/internal/application/template"
	"ebook-ai-api/internal/config"
	"ebook-ai-api/internal/domain/repository"
	"ebook-ai-api/internal/domain/service"
	"ebook-ai-api/internal/infrastructure/messaging"
	"ebook-ai-api/internal/infrastructure/persistence/postgres"
	"ebook-ai-api/internal/infrastructure/persistence/redis"
	"ebook-ai-api/internal/infrastructure/storage"
	"ebook-ai-api/internal/interfaces/http/handler"
	"ebook-ai-api/internal/interfaces/http/middleware"
	"ebook-ai-api/internal/interfaces/http/router"
	"ebook-ai-api/internal/workflow/port"
	"ebook-ai-api/internal/workflow/prompt"
	"ebook-ai-api/pkg/logger"
	"ebook-ai-api/pkg/utils"
)

const defaultStreamMaxLen = 100000

// PostgresOnlyDataLayer 仅包含 PostgreSQL 的数据层（用于 bootstrap）
type PostgresOnlyDataLayer struct {
	PgClient     *postgres.Client
	TxManager    *postgres.TxManager
	UserRepo     *postgres.UserRepository
	TemplateRepo *postgres.TemplateRepository
}

// Worker 生成 worker 依赖
type Worker struct {
	Consumer     *messaging.Consumer
	Orchestrator *generation.Orchestrator
}

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideObjectStorageOptional 对象存储不可用时返回 nil，导出接口随之不可用
func ProvideObjectStorageOptional(ctx context.Context, cfg *config.Config) *storage.MinIOStorage {
	if cfg.Storage.S3.Endpoint == "" {
		logger.Warn(ctx, "object storage not configured, export disabled")
		return nil
	}
	s, err := storage.NewMinIOStorage(ctx, &cfg.Storage.S3)
	if err != nil {
		logger.Warn(ctx, "object storage not available, export disabled", "error", err.Error())
		return nil
	}
	return s
}

// ProvideRetryController 按配置的降级链创建重试控制器
func ProvideRetryController(cfg *config.Config, client port.CompletionClient) *generation.RetryController {
	return generation.NewRetryController(client, generation.RetryPolicy{
		Models:      cfg.LLM.ModelChain(),
		MaxRetries:  cfg.Generation.MaxRetries,
		BaseBackoff: cfg.Generation.BaseBackoff,
	}, nil)
}

// ProvideContentGenerator 提供内容生成器
func ProvideContentGenerator(cfg *config.Config, builder *prompt.Builder, retry *generation.RetryController) *generation.ContentGenerator {
	return generation.NewContentGenerator(builder, retry, generation.ContentOptions{
		TOCMaxTokens:     cfg.Generation.TOCMaxTokens,
		MaxTokensCeiling: cfg.Generation.MaxTokensCeiling,
		Temperature:      float32(cfg.Generation.Temperature),
	})
}

// ProvideOrchestrator 提供生成编排器
func ProvideOrchestrator(
	cfg *config.Config,
	ebooks repository.EbookRepository,
	chapters repository.ChapterRepository,
	tx repository.Transactor,
	writer generation.ContentWriter,
) *generation.Orchestrator {
	return generation.NewOrchestrator(ebooks, chapters, tx, writer, cfg.Generation.InterChapterDelay, nil)
}

// ProvideDispatcher 按 dispatch_mode 选择派发方式
// inline 模式的清理函数会等待进行中的生成结束
func ProvideDispatcher(ctx context.Context, cfg *config.Config, client *redis.Client, orch *generation.Orchestrator) (service.GenerationDispatcher, func()) {
	if cfg.Generation.DispatchMode == config.DispatchModeInline {
		logger.Info(ctx, "generation dispatch mode: inline")
		d := generation.NewInlineDispatcher(orch)
		return d, d.Wait
	}

	maxLen := cfg.Messaging.RedisStream.MaxLen
	if maxLen <= 0 {
		maxLen = defaultStreamMaxLen
	}
	return messaging.NewProducer(client.Redis(), int64(maxLen)), func() {}
}

// ProvideGenerationConsumer 提供生成任务消费者
func ProvideGenerationConsumer(cfg *config.Config, client *redis.Client) *messaging.Consumer {
	rs := cfg.Messaging.RedisStream
	backoff := messaging.DefaultBackoffConfig()
	if rs.RetryBackoff.Initial > 0 {
		backoff = messaging.BackoffConfig{
			Initial:    rs.RetryBackoff.Initial,
			Max:        rs.RetryBackoff.Max,
			Multiplier: rs.RetryBackoff.Multiplier,
		}
	}
	return messaging.NewConsumer(client.Redis(), messaging.ConsumerConfig{
		Stream:        messaging.StreamEbookGenerate,
		Group:         messaging.GroupName(rs.ConsumerGroupPrefix, "ebook-gen-worker"),
		ConsumerName:  hostnameConsumerName(),
		BlockTimeout:  rs.BlockTimeout,
		ClaimInterval: rs.ClaimInterval,
		ClaimMinIdle:  rs.ClaimMinIdle,
		RetryLimit:    rs.RetryLimit,
		Backoff:       backoff,
	})
}

func hostnameConsumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}

// ProvideTemplateService 提供模板服务
func ProvideTemplateService(cfg *config.Config, repo repository.TemplateRepository, cache template.Cache) *template.Service {
	return template.NewService(repo, cache, cfg.Cache.TemplateTTL)
}

// ProvideExportService 对象存储缺失时传入 nil 接口
func ProvideExportService(s *storage.MinIOStorage) *export.Service {
	if s == nil {
		return export.NewService(nil)
	}
	return export.NewService(s)
}

// ProvideEbookService 提供电子书服务
func ProvideEbookService(
	cfg *config.Config,
	ebooks repository.EbookRepository,
	chapters repository.ChapterRepository,
	users repository.UserRepository,
	tx repository.Transactor,
	credits *quota.CreditGuard,
	templates *template.Service,
	orch *generation.Orchestrator,
	content *generation.ContentGenerator,
	exporter *export.Service,
	dispatcher service.GenerationDispatcher,
) *ebook.Service {
	return ebook.NewService(ebook.Deps{
		Ebooks:     ebooks,
		Chapters:   chapters,
		Users:      users,
		Tx:         tx,
		Credits:    credits,
		Templates:  templates,
		Generator:  orch,
		Improver:   content,
		Exporter:   exporter,
		Dispatcher: dispatcher,
		Defaults: ebook.Defaults{
			NumChapters:     cfg.Generation.DefaultChapters,
			WordsPerChapter: cfg.Generation.DefaultWordsPerChap,
		},
	})
}

// ProvideAccountService 提供个人资料与管理后台服务
func ProvideAccountService(users repository.UserRepository, ebooks repository.EbookRepository, tx repository.Transactor) *account.Service {
	return account.NewService(account.Deps{Users: users, Ebooks: ebooks, Tx: tx})
}

// ProvideJWTManager 提供 JWT 管理器
func ProvideJWTManager(cfg *config.Config) *utils.JWTManager {
	jwt := cfg.Security.JWT
	return utils.NewJWTManager(jwt.Secret, jwt.Issuer, jwt.Expiration, jwt.RefreshExpiration)
}

// ProvideAuthOptions 提供认证处理器参数
func ProvideAuthOptions(cfg *config.Config) handler.AuthOptions {
	return handler.AuthOptions{
		FreeCredits:  cfg.Billing.FreeCredits,
		RefreshTTL:   cfg.Security.JWT.RefreshExpiration,
		SecureCookie: cfg.App.Env == "production",
	}
}

// ProvideHealthHandler 提供健康检查处理器
func ProvideHealthHandler(cfg *config.Config, pg *postgres.Client, rc *redis.Client, s *storage.MinIOStorage) *handler.HealthHandler {
	var store handler.HealthChecker
	if s != nil {
		store = s
	}
	return handler.NewHealthHandler(cfg.App.Version, pg, rc, store)
}

// ProvideRouterDeps 提供路由中间件依赖
func ProvideRouterDeps(jwt *utils.JWTManager, limiter middleware.RateLimiter, tx repository.Transactor) router.Deps {
	return router.Deps{
		Tokens:  jwt,
		Limiter: limiter,
		Tx:      tx,
	}
}
