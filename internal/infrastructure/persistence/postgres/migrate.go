package postgres

import (
	"context"
	"fmt"

	"ebook-ai-api/internal/domain/entity"
)

// Models 由 AutoMigrate 管理的表，顺序即建表顺序
func Models() []any {
	return []any{
		&entity.User{},
		&entity.Template{},
		&entity.Ebook{},
		&entity.Chapter{},
	}
}

// Migrate 同步表结构
func (c *Client) Migrate(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "postgres.Migrate")
	defer span.End()

	if err := c.db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
