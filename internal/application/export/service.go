package export

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ebook-ai-api/internal/domain/entity"
	apperrors "ebook-ai-api/pkg/errors"
	"ebook-ai-api/pkg/logger"
	"ebook-ai-api/pkg/metrics"
	"ebook-ai-api/pkg/tracer"
)

// ObjectStorage S3 兼容的对象存储
type ObjectStorage interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	PresignedURL(ctx context.Context, key, filename string) (string, time.Time, error)
}

// Result 导出结果
type Result struct {
	Format    Format    `json:"format"`
	ObjectKey string    `json:"object_key"`
	Filename  string    `json:"filename"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
	Size      int       `json:"size"`
}

// Service 导出服务
type Service struct {
	storage ObjectStorage
	newID   func() string
}

// NewService 创建导出服务
func NewService(storage ObjectStorage) *Service {
	return &Service{
		storage: storage,
		newID:   func() string { return uuid.New().String() },
	}
}

// ObjectKey exports/{user}/{ebook}/{uuid}.{ext}
func ObjectKey(userID, ebookID int64, id string, f Format) string {
	return fmt.Sprintf("exports/%d/%d/%s.%s", userID, ebookID, id, f.Extension())
}

// Export 渲染并上传电子书，返回预签名下载地址
// 电子书需已生成完成且预加载了章节
func (s *Service) Export(ctx context.Context, e *entity.Ebook, f Format) (*Result, error) {
	ctx, span := tracer.StartEbookSpan(ctx, "export.Service.Export", e.ID)
	defer span.End()

	if !e.CanExport() {
		return nil, apperrors.ErrEbookNotReady
	}
	if s.storage == nil {
		return nil, apperrors.ErrServiceUnavailable.WithDetail("object storage not configured")
	}

	data := Render(e, f)
	key := ObjectKey(e.UserID, e.ID, s.newID(), f)
	filename := Filename(e.Title, f)

	if err := s.storage.Upload(ctx, key, data, f.ContentType()); err != nil {
		tracer.RecordError(span, err)
		metrics.ExportTotal.WithLabelValues(string(f), "failed").Inc()
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError, "failed to upload export")
	}

	url, expiresAt, err := s.storage.PresignedURL(ctx, key, filename)
	if err != nil {
		tracer.RecordError(span, err)
		metrics.ExportTotal.WithLabelValues(string(f), "failed").Inc()
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError, "failed to sign export url")
	}

	metrics.ExportTotal.WithLabelValues(string(f), "succeeded").Inc()
	logger.Info(ctx, "ebook exported", "ebook_id", e.ID, "format", f, "object_key", key, "bytes", len(data))

	return &Result{
		Format:    f,
		ObjectKey: key,
		Filename:  filename,
		URL:       url,
		ExpiresAt: expiresAt,
		Size:      len(data),
	}, nil
}
