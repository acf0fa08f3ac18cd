package infra

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Refresher regenerates a user's memory summary.
type Refresher interface {
	Refresh(ctx context.Context, userID string) error
}

// NewMux routes the memory tasks to the refresher.
func NewMux(r Refresher, logger *zap.Logger) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskRefreshMemory, refreshHandler(r, logger))
	return mux
}

func refreshHandler(r Refresher, logger *zap.Logger) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, t *asynq.Task) error {
		ctx, span := tracer.Start(ctx, "worker.RefreshMemory")
		defer span.End()

		var p RefreshMemoryPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return fmt.Errorf("decode %s payload: %v: %w", TaskRefreshMemory, err, asynq.SkipRetry)
		}
		if p.UserID == "" {
			return fmt.Errorf("%s without user_id: %w", TaskRefreshMemory, asynq.SkipRetry)
		}

		retry, _ := asynq.GetRetryCount(ctx)
		if err := r.Refresh(ctx, p.UserID); err != nil {
			logger.Warn("memory refresh failed",
				zap.String("user_id", p.UserID),
				zap.Int("retry", retry),
				zap.Error(err),
			)
			return err
		}
		return nil
	}
}

// NewServer creates the asynq server for the memory queue. Its logs go
// through zap.
func NewServer(opt asynq.RedisConnOpt, concurrency int, logger *zap.Logger) *asynq.Server {
	if concurrency <= 0 {
		concurrency = 1
	}
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{QueueMemory: 1},
		Logger:      logger.Sugar(),
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retry, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			if retry >= maxRetry {
				logger.Error("task exhausted its retries",
					zap.String("type", task.Type()),
					zap.Int("retry", retry),
					zap.Error(err),
				)
			}
		}),
	})
}
