package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"

	llmctx "ebook-ai-api/internal/domain/service"
	"ebook-ai-api/internal/workflow/node"
	"ebook-ai-api/internal/workflow/port"
)

var errEmptyResponse = errors.New("empty llm response")

// CompletionClient 将一次补全请求提交给 ChatModel 并归一化错误
type CompletionClient struct {
	factory port.ChatModelFactory
}

// NewCompletionClient 创建补全客户端
func NewCompletionClient(factory port.ChatModelFactory) *CompletionClient {
	return &CompletionClient{factory: factory}
}

// Complete 调用模型生成文本；限流返回 *RateLimitError，其余错误返回 *GenerationFailure
func (c *CompletionClient) Complete(ctx context.Context, req *port.CompletionRequest) (*port.Completion, error) {
	if req == nil || len(req.Messages) == 0 {
		return nil, &llmctx.GenerationFailure{Err: errors.New("completion request has no messages")}
	}

	provider := c.factory.DefaultProvider()
	ctx = llmctx.WithWorkflowProvider(ctx, req.Workflow, provider)
	// 直接调用 ChatModel 时需手动初始化回调，全局指标回调才会触发
	ctx = callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
		Name:      req.Workflow,
		Type:      provider,
		Component: components.ComponentOfChatModel,
	})

	chatModel, err := c.factory.Get(ctx, provider)
	if err != nil {
		return nil, &llmctx.GenerationFailure{Model: req.Model, Err: err}
	}

	out, err := chatModel.Generate(ctx, req.Messages, modelOptions(req)...)
	if err != nil {
		if node.IsRateLimitError(err) {
			return nil, &llmctx.RateLimitError{Model: req.Model, Err: err}
		}
		return nil, &llmctx.GenerationFailure{Model: req.Model, Err: err}
	}
	if out == nil || strings.TrimSpace(out.Content) == "" {
		return nil, &llmctx.GenerationFailure{Model: req.Model, Err: errEmptyResponse}
	}

	result := &port.Completion{
		Text:  strings.TrimSpace(out.Content),
		Model: req.Model,
	}
	if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
		result.PromptTokens = out.ResponseMeta.Usage.PromptTokens
		result.CompletionTokens = out.ResponseMeta.Usage.CompletionTokens
	}
	return result, nil
}

func modelOptions(req *port.CompletionRequest) []model.Option {
	opts := make([]model.Option, 0, 3)
	if req.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(req.MaxTokens))
	}
	if req.Temperature > 0 {
		opts = append(opts, model.WithTemperature(req.Temperature))
	}
	if m := strings.TrimSpace(req.Model); m != "" {
		opts = append(opts, model.WithModel(m))
	}
	return opts
}
