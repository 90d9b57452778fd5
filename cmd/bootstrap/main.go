// Package main 初始化数据库结构、首个管理员与默认模板
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"ebook-ai-api/internal/config"
	"ebook-ai-api/internal/domain/entity"
	"ebook-ai-api/internal/domain/repository"
	"ebook-ai-api/internal/wire"
)

const adminCredits = 1000

func main() {
	_ = godotenv.Load()

	fmt.Println("Starting system bootstrap...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	dataLayer, cleanup, err := wire.InitializePostgresOnly(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize data layer: %v", err)
	}
	defer cleanup()

	// 未开启 auto_migrate 时由 bootstrap 负责建表
	if !cfg.Database.Postgres.AutoMigrate {
		if err := dataLayer.PgClient.Migrate(ctx); err != nil {
			log.Fatalf("failed to migrate schema: %v", err)
		}
		fmt.Println("Schema migrated.")
	}

	adminEmail := os.Getenv("BOOTSTRAP_ADMIN_EMAIL")
	if adminEmail == "" {
		adminEmail = "admin@ebook-ai.local"
	}
	adminPassword := os.Getenv("BOOTSTRAP_ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "admin123" // 生产环境请务必通过环境变量设置
	}

	created, err := ensureAdmin(ctx, dataLayer.UserRepo, adminEmail, adminPassword)
	if err != nil {
		log.Fatalf("failed to ensure admin user: %v", err)
	}
	if created {
		fmt.Printf("Admin user %s created.\n", adminEmail)
	} else {
		fmt.Printf("Admin user %s already exists.\n", adminEmail)
	}

	n, err := seedTemplates(ctx, dataLayer.TemplateRepo, defaultTemplates())
	if err != nil {
		log.Fatalf("failed to seed templates: %v", err)
	}
	fmt.Printf("Seeded %d template(s).\n", n)

	fmt.Println("Bootstrap completed successfully.")
}

// ensureAdmin 邮箱不存在时创建企业版管理员
func ensureAdmin(ctx context.Context, users repository.UserRepository, email, password string) (bool, error) {
	admin := entity.NewUser(email, "System Admin", adminCredits)
	exists, err := users.ExistsByEmail(ctx, admin.Email)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	admin.Role = entity.UserRoleAdmin
	admin.SubscriptionTier = entity.TierEnterprise
	if err := admin.SetPassword(password); err != nil {
		return false, err
	}
	if err := users.Create(ctx, admin); err != nil {
		return false, err
	}
	return true, nil
}

// seedTemplates 按名称去重写入模板，返回新建数量
func seedTemplates(ctx context.Context, repo repository.TemplateRepository, templates []*entity.Template) (int, error) {
	existing, err := repo.List(ctx, repository.TemplateFilter{IncludePremium: true})
	if err != nil {
		return 0, err
	}
	names := make(map[string]struct{}, len(existing))
	for _, t := range existing {
		names[t.Name] = struct{}{}
	}

	created := 0
	for _, t := range templates {
		if _, ok := names[t.Name]; ok {
			continue
		}
		if err := repo.Create(ctx, t); err != nil {
			return created, fmt.Errorf("create template %q: %w", t.Name, err)
		}
		names[t.Name] = struct{}{}
		created++
	}
	return created, nil
}
