package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ebook-ai-api/internal/domain/service"
	"ebook-ai-api/pkg/logger"
	pkgtracer "ebook-ai-api/pkg/tracer"
)

var tracer = otel.Tracer("messaging")

// Producer 消息生产者
type Producer struct {
	client *redis.Client
	maxLen int64
}

// NewProducer 创建消息生产者
func NewProducer(client *redis.Client, maxLen int64) *Producer {
	if maxLen <= 0 {
		maxLen = 100000
	}
	return &Producer{
		client: client,
		maxLen: maxLen,
	}
}

// Publish 发布消息到指定流
func (p *Producer) Publish(ctx context.Context, stream Stream, msg *Message) (string, error) {
	ctx, span := tracer.Start(ctx, "producer.Publish",
		trace.WithAttributes(
			attribute.String("stream", string(stream)),
			attribute.String("message.id", msg.ID),
			attribute.String("message.type", msg.Type),
		))
	defer span.End()

	values, err := msg.encode()
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	result, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: string(stream),
		MaxLen: p.maxLen,
		Approx: true,
		Values: values,
	}).Result()
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to publish message: %w", err)
	}

	span.SetAttributes(attribute.String("stream.message_id", result))
	return result, nil
}

// Dispatch 将整本书生成任务投递到生成流
func (p *Producer) Dispatch(ctx context.Context, task service.GenerationTask) error {
	if task.RequestedAt.IsZero() {
		task.RequestedAt = time.Now().UTC()
	}
	msg, err := NewGenerationMessage(ctx, task)
	if err != nil {
		return err
	}

	id, err := p.Publish(ctx, StreamEbookGenerate, msg)
	if err != nil {
		return err
	}
	logger.Info(ctx, "generation task dispatched", "ebook_id", task.EbookID, "stream_id", id)
	return nil
}

// NewGenerationMessage 构建生成任务消息，携带请求与链路标识
func NewGenerationMessage(ctx context.Context, task service.GenerationTask) (*Message, error) {
	msg, err := NewMessage(MessageTypeEbookGenerate, task)
	if err != nil {
		return nil, err
	}
	msg.UserID = task.UserID
	msg.EbookID = task.EbookID
	if reqID, ok := ctx.Value(logger.RequestIDKey).(string); ok {
		msg.SetMetadata("request_id", reqID)
	}
	msg.SetMetadata("trace_id", pkgtracer.TraceID(ctx))
	return msg, nil
}
