package service

import (
	"context"
	"time"
)

// GenerationTask 一次整本书生成任务
type GenerationTask struct {
	EbookID     int64     `json:"ebook_id"`
	UserID      int64     `json:"user_id"`
	RequestedAt time.Time `json:"requested_at"`
}

// GenerationDispatcher 将生成任务交给后台执行，不阻塞调用方
type GenerationDispatcher interface {
	Dispatch(ctx context.Context, task GenerationTask) error
}
