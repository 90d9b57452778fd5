package eino

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"ebook-ai-api/internal/domain/service"
	"ebook-ai-api/pkg/metrics"
)

func TestChatModelCallbackRecordsUsage(t *testing.T) {
	h := newChatModelCallbackHandler()
	ctx := service.WithWorkflowProvider(context.Background(), "cb_test_ok", "openai")

	ctx = h.OnStart(ctx, nil, &model.CallbackInput{Config: &model.Config{Model: "gpt-4o"}})
	h.OnEnd(ctx, nil, &model.CallbackOutput{
		TokenUsage: &model.TokenUsage{PromptTokens: 12, CompletionTokens: 30},
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LLMCallTotal.WithLabelValues("cb_test_ok", "openai", "gpt-4o", "success")))
	assert.Equal(t, 12.0, testutil.ToFloat64(metrics.LLMTokensUsed.WithLabelValues("cb_test_ok", "openai", "gpt-4o", "prompt")))
	assert.Equal(t, 30.0, testutil.ToFloat64(metrics.LLMTokensUsed.WithLabelValues("cb_test_ok", "openai", "gpt-4o", "completion")))
}

func TestChatModelCallbackRecordsError(t *testing.T) {
	h := newChatModelCallbackHandler()
	ctx := service.WithWorkflowProvider(context.Background(), "cb_test_err", "openai")

	ctx = h.OnStart(ctx, nil, &model.CallbackInput{Config: &model.Config{Model: "gpt-4o-mini"}})
	h.OnError(ctx, nil, errors.New("429 too many requests"))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LLMCallTotal.WithLabelValues("cb_test_err", "openai", "gpt-4o-mini", "error")))
}

func TestElapsedWithoutStart(t *testing.T) {
	assert.Zero(t, elapsedSeconds(context.Background()))
}

func TestNewHandlerBuilds(t *testing.T) {
	assert.NotNil(t, NewHandler())
	assert.NotPanics(t, func() {
		Init()
		Init()
	})
}
