package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ebook-ai-api/pkg/logger"
	"ebook-ai-api/pkg/metrics"
)

// MessageHandler 消息处理函数，返回错误时消息留在 pending 中等待重投
type MessageHandler func(ctx context.Context, msg *Message) error

// ConsumerConfig 消费者配置
type ConsumerConfig struct {
	Stream        Stream
	Group         ConsumerGroup
	ConsumerName  string
	BlockTimeout  time.Duration
	ClaimInterval time.Duration
	// ClaimMinIdle 其他消费者的消息空闲超过该时长才会被接管
	ClaimMinIdle time.Duration
	RetryLimit   int
	Backoff      BackoffConfig
}

// Consumer 消息消费者
type Consumer struct {
	client *redis.Client
	cfg    ConsumerConfig

	handlers map[string]MessageHandler
	mu       sync.RWMutex
	running  bool
	stopCh   chan struct{}
	done     chan struct{}
}

// NewConsumer 创建消息消费者
func NewConsumer(client *redis.Client, cfg ConsumerConfig) *Consumer {
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = 5 * time.Second
	}
	if cfg.ClaimInterval <= 0 {
		cfg.ClaimInterval = 30 * time.Second
	}
	if cfg.RetryLimit <= 0 {
		cfg.RetryLimit = 3
	}
	if cfg.Backoff.Initial <= 0 {
		cfg.Backoff = DefaultBackoffConfig()
	}
	if cfg.ClaimMinIdle <= 0 {
		cfg.ClaimMinIdle = maxDuration(5*time.Minute, cfg.Backoff.Max*2)
	}

	return &Consumer{
		client:   client,
		cfg:      cfg,
		handlers: make(map[string]MessageHandler),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// RegisterHandler 注册消息处理器
func (c *Consumer) RegisterHandler(msgType string, handler MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[msgType] = handler
}

// Start 创建消费者组并在后台开始消费
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("consumer already running")
	}
	c.running = true
	c.mu.Unlock()

	err := c.client.XGroupCreateMkStream(ctx, string(c.cfg.Stream), string(c.cfg.Group), "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	go c.run(ctx)
	return nil
}

// Stop 停止消费者并等待当前消息处理结束
func (c *Consumer) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	close(c.stopCh)
	c.running = false
	c.mu.Unlock()
	<-c.done
}

// run 消费循环
func (c *Consumer) run(ctx context.Context) {
	defer close(c.done)

	logger.Info(ctx, "consumer started",
		"stream", c.cfg.Stream,
		"group", c.cfg.Group,
		"consumer", c.cfg.ConsumerName,
	)

	lastClaim := time.Now().Add(-c.cfg.ClaimInterval)

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "consumer stopped due to context cancellation")
			return
		case <-c.stopCh:
			logger.Info(ctx, "consumer stopped")
			return
		default:
		}

		c.retryPending(ctx, c.cfg.ConsumerName, 0)
		if time.Since(lastClaim) >= c.cfg.ClaimInterval {
			c.retryPending(ctx, "", c.cfg.ClaimMinIdle)
			c.reportLag(ctx)
			lastClaim = time.Now()
		}

		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    string(c.cfg.Group),
			Consumer: c.cfg.ConsumerName,
			Streams:  []string{string(c.cfg.Stream), ">"},
			Count:    1,
			Block:    c.cfg.BlockTimeout,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			logger.Error(ctx, "failed to read from stream", err)
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, xmsg := range stream.Messages {
				c.processMessage(ctx, xmsg)
			}
		}
	}
}

// processMessage 处理单条消息
func (c *Consumer) processMessage(ctx context.Context, xmsg redis.XMessage) {
	ctx, span := tracer.Start(ctx, "consumer.processMessage",
		trace.WithAttributes(
			attribute.String("stream", string(c.cfg.Stream)),
			attribute.String("stream.message_id", xmsg.ID),
		))
	defer span.End()

	msg, err := decodeMessage(xmsg.Values)
	if err != nil {
		logger.Error(ctx, "invalid stream entry", err, "message_id", xmsg.ID)
		metrics.RedisStreamProcessed.WithLabelValues(string(c.cfg.Stream), "invalid").Inc()
		c.ack(ctx, xmsg.ID)
		return
	}

	ctx = messageContext(ctx, msg)
	span.SetAttributes(
		attribute.String("message.id", msg.ID),
		attribute.String("message.type", msg.Type),
		attribute.Int64("ebook.id", msg.EbookID),
	)

	c.mu.RLock()
	handler, exists := c.handlers[msg.Type]
	c.mu.RUnlock()
	if !exists {
		logger.Warn(ctx, "no handler for message type", "type", msg.Type)
		c.ack(ctx, xmsg.ID)
		return
	}

	if err := handler(ctx, msg); err != nil {
		span.RecordError(err)
		logger.Error(ctx, "handler failed", err, "message_id", msg.ID)
		metrics.RedisStreamProcessed.WithLabelValues(string(c.cfg.Stream), "failed").Inc()
		c.handleFailure(ctx, xmsg.ID, msg, err)
		return
	}

	metrics.RedisStreamProcessed.WithLabelValues(string(c.cfg.Stream), "ok").Inc()
	c.ack(ctx, xmsg.ID)
}

// messageContext 注入日志上下文
func messageContext(ctx context.Context, msg *Message) context.Context {
	ctx = logger.WithContext(ctx, logger.JobIDKey, msg.ID)
	if msg.EbookID != 0 {
		ctx = logger.WithContext(ctx, logger.EbookIDKey, msg.EbookID)
	}
	if msg.UserID != 0 {
		ctx = logger.WithContext(ctx, logger.UserIDKey, msg.UserID)
	}
	if reqID := msg.GetMetadata("request_id"); reqID != "" {
		ctx = logger.WithContext(ctx, logger.RequestIDKey, reqID)
	}
	if traceID := msg.GetMetadata("trace_id"); traceID != "" {
		ctx = logger.WithContext(ctx, logger.TraceIDKey, traceID)
	}
	return ctx
}

// ack 确认消息
func (c *Consumer) ack(ctx context.Context, id string) {
	if err := c.client.XAck(ctx, string(c.cfg.Stream), string(c.cfg.Group), id).Err(); err != nil {
		logger.Error(ctx, "failed to ack message", err, "message_id", id)
	}
}

// handleFailure 超过重试上限移入死信队列，否则留在 pending 等待退避后重投
func (c *Consumer) handleFailure(ctx context.Context, streamID string, msg *Message, err error) {
	retryCount := c.deliveryCount(ctx, streamID)
	if retryCount >= c.cfg.RetryLimit {
		logger.Warn(ctx, "message moved to DLQ after max retries",
			"message_id", msg.ID,
			"retry_count", retryCount,
		)
		c.moveToDLQ(ctx, msg, err)
		c.ack(ctx, streamID)
		return
	}
	logger.Info(ctx, "message left pending for retry",
		"message_id", msg.ID,
		"retry_count", retryCount,
	)
}

// deliveryCount 通过 XPENDING 获取消息的投递次数
func (c *Consumer) deliveryCount(ctx context.Context, streamID string) int {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: string(c.cfg.Stream),
		Group:  string(c.cfg.Group),
		Start:  streamID,
		End:    streamID,
		Count:  1,
	}).Result()
	if err != nil || len(pending) == 0 {
		return 0
	}
	return int(pending[0].RetryCount)
}

// moveToDLQ 移入死信队列
func (c *Consumer) moveToDLQ(ctx context.Context, msg *Message, cause error) {
	data, err := json.Marshal(dlqEntry{
		OriginalStream: string(c.cfg.Stream),
		Message:        msg,
		Error:          cause.Error(),
		FailedAt:       time.Now().Unix(),
	})
	if err != nil {
		logger.Error(ctx, "failed to marshal DLQ entry", err, "message_id", msg.ID)
		return
	}
	if err := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: c.cfg.Stream.DLQStream(),
		Values: map[string]any{"data": string(data)},
	}).Err(); err != nil {
		logger.Error(ctx, "failed to write DLQ entry", err, "message_id", msg.ID)
		return
	}
	metrics.RedisStreamProcessed.WithLabelValues(string(c.cfg.Stream), "dead_letter").Inc()
}

type dlqEntry struct {
	OriginalStream string   `json:"original_stream"`
	Message        *Message `json:"data"`
	Error          string   `json:"error"`
	FailedAt       int64    `json:"failed_at"`
}

// retryPending 重投 pending 消息
// owner 非空时只处理自己的消息并按退避时间重投；为空时接管空闲超过 minIdle 的其他消费者消息
func (c *Consumer) retryPending(ctx context.Context, owner string, minIdle time.Duration) {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream:   string(c.cfg.Stream),
		Group:    string(c.cfg.Group),
		Start:    "-",
		End:      "+",
		Count:    20,
		Consumer: owner,
	}).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			logger.Error(ctx, "failed to query pending messages", err)
		}
		return
	}

	for _, p := range pending {
		if owner == "" && p.Consumer == c.cfg.ConsumerName {
			continue
		}
		action, idle := c.pendingAction(int(p.RetryCount), p.Idle, minIdle)
		if action == pendingWait {
			continue
		}

		claimed, claimErr := c.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   string(c.cfg.Stream),
			Group:    string(c.cfg.Group),
			Consumer: c.cfg.ConsumerName,
			MinIdle:  idle,
			Messages: []string{p.ID},
		}).Result()
		if claimErr != nil {
			logger.Error(ctx, "failed to claim pending message", claimErr, "message_id", p.ID)
			continue
		}

		for _, xmsg := range claimed {
			if action == pendingProcess {
				c.processMessage(ctx, xmsg)
				continue
			}
			if msg, decodeErr := decodeMessage(xmsg.Values); decodeErr == nil {
				c.moveToDLQ(ctx, msg, fmt.Errorf("message exceeded max retries"))
			}
			c.ack(ctx, xmsg.ID)
		}
	}
}

type pendingDecision int

const (
	pendingWait pendingDecision = iota
	pendingProcess
	pendingDeadLetter
)

// pendingAction 决定 pending 消息的处理方式，返回 XCLAIM 使用的最小空闲时间
func (c *Consumer) pendingAction(retryCount int, idle, minIdle time.Duration) (pendingDecision, time.Duration) {
	if idle < minIdle {
		return pendingWait, 0
	}
	if retryCount >= c.cfg.RetryLimit {
		return pendingDeadLetter, minIdle
	}
	backoff := c.cfg.Backoff.CalculateBackoff(retryCount)
	if idle < backoff {
		return pendingWait, 0
	}
	return pendingProcess, maxDuration(backoff, minIdle)
}

// reportLag 上报消费者组积压
func (c *Consumer) reportLag(ctx context.Context) {
	groups, err := c.client.XInfoGroups(ctx, string(c.cfg.Stream)).Result()
	if err != nil {
		return
	}
	for _, g := range groups {
		if g.Name == string(c.cfg.Group) {
			metrics.RedisStreamLag.WithLabelValues(string(c.cfg.Stream), g.Name).Set(float64(g.Lag))
		}
	}
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}
