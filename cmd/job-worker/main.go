// Package main 电子书生成 worker 入口（job-worker）
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"ebook-ai-api/internal/application/generation"
	"ebook-ai-api/internal/config"
	"ebook-ai-api/internal/domain/service"
	"ebook-ai-api/internal/infrastructure/messaging"
	einoobs "ebook-ai-api/internal/observability/eino"
	"ebook-ai-api/internal/wire"
	"ebook-ai-api/pkg/logger"
	"ebook-ai-api/pkg/tracer"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: "job-worker",
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init tracer", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	einoobs.Init()

	worker, cleanup, err := wire.InitializeWorker(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize worker", err)
	}
	defer cleanup()

	worker.Consumer.RegisterHandler(messaging.MessageTypeEbookGenerate, generateHandler(worker.Orchestrator))

	if err := worker.Consumer.Start(ctx); err != nil {
		logger.Fatal(ctx, "failed to start consumer", err)
	}

	log := logger.FromContext(ctx)
	log.Info("job-worker started", "model_chain", cfg.LLM.ModelChain())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("job-worker shutting down")
	worker.Consumer.Stop()
	cancel()
}

// Runner 执行整本书的生成
type Runner interface {
	Run(ctx context.Context, ebookID int64) error
}

// generateHandler 消费整本书生成任务
// 生成一旦开始就运行到终态，worker 停止时等待当前任务完成
// 编排失败时电子书已被标记为 failed，消息直接确认，不再重投
// 仅数据库加载阶段的临时错误交由消费者重试
func generateHandler(orch Runner) messaging.MessageHandler {
	return func(ctx context.Context, msg *messaging.Message) error {
		var task service.GenerationTask
		if err := msg.UnmarshalPayload(&task); err != nil {
			return err
		}

		err := orch.Run(context.WithoutCancel(ctx), task.EbookID)
		if err == nil {
			return nil
		}

		var failure *service.OrchestrationFailure
		if errors.As(err, &failure) {
			if failure.Stage == generation.StageLoad && !errors.Is(failure.Err, generation.ErrEbookMissing) {
				return err
			}
			logger.Warn(ctx, "ebook generation aborted", "stage", failure.Stage, "error", failure.Err.Error())
			return nil
		}
		return err
	}
}
