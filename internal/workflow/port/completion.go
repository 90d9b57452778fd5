package port

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// CompletionRequest 一次补全调用的输入
type CompletionRequest struct {
	Workflow    string
	Messages    []*schema.Message
	Model       string
	MaxTokens   int
	Temperature float32
}

// Completion 补全结果
type Completion struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// CompletionClient 提交 prompt 并返回文本。
// 限流返回 *service.RateLimitError，其他提供方错误返回 *service.GenerationFailure。
type CompletionClient interface {
	Complete(ctx context.Context, req *CompletionRequest) (*Completion, error)
}
