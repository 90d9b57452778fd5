package generation

import (
	"context"
	"sync"

	"ebook-ai-api/internal/domain/service"
	"ebook-ai-api/pkg/logger"
)

// Runner 执行生成运行阶段
type Runner interface {
	Run(ctx context.Context, ebookID int64) error
}

// InlineDispatcher 在当前进程内起 goroutine 执行生成，不依赖队列
type InlineDispatcher struct {
	runner Runner
	wg     sync.WaitGroup
}

// NewInlineDispatcher 创建进程内派发器
func NewInlineDispatcher(runner Runner) *InlineDispatcher {
	return &InlineDispatcher{runner: runner}
}

// Dispatch 立即返回，生成与请求上下文的取消解耦
func (d *InlineDispatcher) Dispatch(ctx context.Context, task service.GenerationTask) error {
	runCtx := logger.WithContext(context.WithoutCancel(ctx), logger.EbookIDKey, task.EbookID)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.Error(runCtx, "inline generation panicked", nil, "panic", r)
			}
		}()
		if err := d.runner.Run(runCtx, task.EbookID); err != nil {
			logger.Error(runCtx, "inline generation failed", err)
		}
	}()
	return nil
}

// Wait 等待所有进行中的生成结束
func (d *InlineDispatcher) Wait() {
	d.wg.Wait()
}
