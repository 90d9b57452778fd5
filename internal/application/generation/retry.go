// Package generation 实现电子书生成流程：限流重试、目录与章节生成、整本书编排
package generation

import (
	"context"
	"errors"
	"time"

	"ebook-ai-api/internal/domain/service"
	"ebook-ai-api/internal/workflow/port"
	"ebook-ai-api/pkg/logger"
	"ebook-ai-api/pkg/metrics"
)

// 重试策略默认值
const (
	DefaultMaxRetries  = 3
	DefaultBaseBackoff = 5 * time.Second
)

// RetryPolicy 限流重试策略
type RetryPolicy struct {
	// Models 按能力从高到低排列，第 n 次重试使用 Models[min(n, len-1)]
	Models      []string
	MaxRetries  int
	BaseBackoff time.Duration
}

// Backoff 第 attempt 次尝试失败后的等待时间：2^attempt × base
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	return (time.Duration(1) << uint(attempt)) * p.BaseBackoff
}

// ModelFor 返回第 attempt 次尝试使用的模型
func (p RetryPolicy) ModelFor(attempt int) string {
	if len(p.Models) == 0 {
		return ""
	}
	if attempt >= len(p.Models) {
		attempt = len(p.Models) - 1
	}
	return p.Models[attempt]
}

// Outcome 一次尝试之后的状态转移
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeRetry
	OutcomeTerminal
)

// Decision 状态转移结果，Retry 时携带下一次尝试的序号、模型与等待时间
type Decision struct {
	Outcome     Outcome
	NextAttempt int
	Model       string
	Wait        time.Duration
}

// Decide 根据第 attempt 次尝试的结果决定下一步
// 只有限流错误会重试，重试次数达到 MaxRetries 后终止
func (p RetryPolicy) Decide(attempt int, err error) Decision {
	if err == nil {
		return Decision{Outcome: OutcomeSuccess}
	}
	if !service.IsRateLimit(err) || attempt >= p.MaxRetries {
		return Decision{Outcome: OutcomeTerminal}
	}
	next := attempt + 1
	return Decision{
		Outcome:     OutcomeRetry,
		NextAttempt: next,
		Model:       p.ModelFor(next),
		Wait:        p.Backoff(attempt),
	}
}

// Sleeper 可取消的等待
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext 默认等待实现
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryController 在补全客户端外包一层有界的限流重试与模型降级
type RetryController struct {
	client port.CompletionClient
	policy RetryPolicy
	sleep  Sleeper
}

// NewRetryController 创建重试控制器
func NewRetryController(client port.CompletionClient, policy RetryPolicy, sleep Sleeper) *RetryController {
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	if policy.BaseBackoff <= 0 {
		policy.BaseBackoff = DefaultBaseBackoff
	}
	if sleep == nil {
		sleep = SleepContext
	}
	return &RetryController{client: client, policy: policy, sleep: sleep}
}

// Policy 返回当前策略
func (c *RetryController) Policy() RetryPolicy {
	return c.policy
}

// Complete 发起补全，请求中的 Model 会被策略选择的模型覆盖
func (c *RetryController) Complete(ctx context.Context, req port.CompletionRequest) (*port.Completion, error) {
	attempt := 0
	req.Model = c.policy.ModelFor(attempt)

	for {
		out, err := c.client.Complete(ctx, &req)
		d := c.policy.Decide(attempt, err)

		switch d.Outcome {
		case OutcomeSuccess:
			return out, nil

		case OutcomeRetry:
			logger.Warn(ctx, "llm rate limited, retrying with fallback model",
				"attempt", d.NextAttempt,
				"wait", d.Wait.String(),
				"model", d.Model,
				"error", err.Error(),
			)
			metrics.LLMRetryTotal.WithLabelValues(d.Model).Inc()
			if sleepErr := c.sleep(ctx, d.Wait); sleepErr != nil {
				return nil, sleepErr
			}
			attempt = d.NextAttempt
			req.Model = d.Model

		default:
			var rl *service.RateLimitError
			if errors.As(err, &rl) {
				metrics.LLMRateLimitExhausted.Inc()
				return nil, &service.RateLimitExceededError{
					Retries: attempt,
					Model:   req.Model,
					Err:     rl.Err,
				}
			}
			return nil, err
		}
	}
}
