// Package storage 提供 S3 兼容对象存储实现
package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ebook-ai-api/internal/config"
)

var tracer = otel.Tracer("storage")

// MinIOStorage 基于 minio-go 的对象存储（MinIO / R2 / S3）
type MinIOStorage struct {
	client        *minio.Client
	bucket        string
	presignExpiry time.Duration
}

// NewMinIOStorage 创建对象存储客户端，bucket 不存在时自动创建
func NewMinIOStorage(ctx context.Context, cfg *config.S3Config) (*MinIOStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	expiry := cfg.PresignExpiry
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &MinIOStorage{
		client:        client,
		bucket:        cfg.Bucket,
		presignExpiry: expiry,
	}, nil
}

// Upload 上传对象
func (s *MinIOStorage) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	ctx, span := tracer.Start(ctx, "storage.Upload", trace.WithAttributes(
		attribute.String("storage.key", key),
		attribute.Int("storage.size", len(data)),
	))
	defer span.End()

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to upload object: %w", err)
	}
	return nil
}

// PresignedURL 生成限时下载链接，filename 非空时作为下载文件名
func (s *MinIOStorage) PresignedURL(ctx context.Context, key, filename string) (string, time.Time, error) {
	ctx, span := tracer.Start(ctx, "storage.PresignedURL", trace.WithAttributes(
		attribute.String("storage.key", key),
	))
	defer span.End()

	params := url.Values{}
	if filename != "" {
		params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.presignExpiry, params)
	if err != nil {
		span.RecordError(err)
		return "", time.Time{}, fmt.Errorf("failed to presign object: %w", err)
	}
	return u.String(), time.Now().Add(s.presignExpiry), nil
}

// Delete 删除对象
func (s *MinIOStorage) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// DeleteByPrefix 删除前缀下全部对象（删除电子书时清理导出文件）
func (s *MinIOStorage) DeleteByPrefix(ctx context.Context, prefix string) error {
	objectsCh := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})
	for object := range objectsCh {
		if object.Err != nil {
			return fmt.Errorf("failed to list objects: %w", object.Err)
		}
		if err := s.client.RemoveObject(ctx, s.bucket, object.Key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("failed to delete object %s: %w", object.Key, err)
		}
	}
	return nil
}

// HealthCheck 检查 bucket 可访问
func (s *MinIOStorage) HealthCheck(ctx context.Context) error {
	if _, err := s.client.BucketExists(ctx, s.bucket); err != nil {
		return fmt.Errorf("storage health check failed: %w", err)
	}
	return nil
}
