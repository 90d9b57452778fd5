package postgres

import (
	"fmt"

	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"ebook-ai-api/internal/domain/repository"
)

// affected 将按 ID 修改的结果转换为错误：执行失败包装返回，未命中返回 ErrNotFound
func affected(span trace.Span, result *gorm.DB, op string) error {
	if result.Error != nil {
		span.RecordError(result.Error)
		return fmt.Errorf("failed to %s: %w", op, result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
