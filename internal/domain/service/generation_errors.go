package service

import (
	"errors"
	"fmt"

	apperrors "ebook-ai-api/pkg/errors"
)

// RateLimitError 提供方返回限流（可重试）
type RateLimitError struct {
	Model string
	Err   error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited on model %s: %v", e.Model, e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// RateLimitExceededError 限流重试耗尽（终止）
type RateLimitExceededError struct {
	Retries int
	Model   string
	Err     error
}

func (e *RateLimitExceededError) Error() string {
	return fmt.Sprintf("rate limit persisted after %d retries (last model %s): %v", e.Retries, e.Model, e.Err)
}

func (e *RateLimitExceededError) Unwrap() error { return e.Err }

// GenerationFailure 提供方的其他错误，不重试
type GenerationFailure struct {
	Model string
	Err   error
}

func (e *GenerationFailure) Error() string {
	return fmt.Sprintf("generation failed on model %s: %v", e.Model, e.Err)
}

func (e *GenerationFailure) Unwrap() error { return e.Err }

// OrchestrationFailure 章节循环之外的错误，整本书标记为 failed
type OrchestrationFailure struct {
	EbookID int64
	Stage   string
	Err     error
}

func (e *OrchestrationFailure) Error() string {
	return fmt.Sprintf("ebook %d generation aborted at %s: %v", e.EbookID, e.Stage, e.Err)
}

func (e *OrchestrationFailure) Unwrap() error { return e.Err }

// IsRateLimit 判断错误链中是否有可重试的限流错误
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// ToAppError 将生成错误映射为对外的 AppError
func ToAppError(err error) *apperrors.AppError {
	if err == nil {
		return nil
	}
	if apperrors.IsAppError(err) {
		return apperrors.AsAppError(err)
	}

	var (
		exceeded *RateLimitExceededError
		limited  *RateLimitError
		genFail  *GenerationFailure
		orch     *OrchestrationFailure
	)
	switch {
	case errors.As(err, &exceeded):
		return apperrors.ErrLLMRateLimitExceeded.WithError(err)
	case errors.As(err, &limited):
		return apperrors.ErrLLMRateLimited.WithError(err)
	case errors.As(err, &genFail):
		return apperrors.ErrLLMCallFailed.WithError(err)
	case errors.As(err, &orch):
		return apperrors.ErrGenerationAborted.WithError(err)
	default:
		return apperrors.ErrInternalError.WithError(err)
	}
}
