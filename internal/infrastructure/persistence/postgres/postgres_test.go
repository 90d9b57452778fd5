package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace/noop"
	"gorm.io/gorm"

	"ebook-ai-api/internal/config"
	"ebook-ai-api/internal/domain/entity"
	"ebook-ai-api/internal/domain/repository"
)

func TestDSN(t *testing.T) {
	dsn := DSN(&config.PostgresConfig{
		Host: "db", Port: 5433, User: "app", Password: "pw", Database: "ebooks", SSLMode: "disable",
	})
	assert.Equal(t, "host=db port=5433 user=app password=pw dbname=ebooks sslmode=disable", dsn)
}

func TestModelsCoverAllTables(t *testing.T) {
	names := make([]string, 0)
	for _, m := range Models() {
		if tn, ok := m.(interface{ TableName() string }); ok {
			names = append(names, tn.TableName())
		}
	}
	assert.Equal(t, []string{"users", "templates", "ebooks", "chapters"}, names)
	assert.IsType(t, &entity.Ebook{}, Models()[2])
}

func TestAffected(t *testing.T) {
	span := noop.Span{}

	assert.NoError(t, affected(span, &gorm.DB{RowsAffected: 1}, "op"))
	assert.ErrorIs(t, affected(span, &gorm.DB{}, "op"), repository.ErrNotFound)

	boom := errors.New("boom")
	err := affected(span, &gorm.DB{Error: boom}, "update ebook")
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failed to update ebook")
}

func TestTxFromContext(t *testing.T) {
	assert.Nil(t, getTxFromContext(context.Background()))

	tx := &gorm.DB{}
	ctx := context.WithValue(context.Background(), repository.TxKey{}, tx)
	assert.Same(t, tx, getTxFromContext(ctx))
}
