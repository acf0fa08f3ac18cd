// Package infra holds the asynq plumbing of the chat: the enqueuer used by the
// API process and the task mux/server run by the worker process.
package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/stylist-bfa-go/internal/domain"
)

var tracer = otel.Tracer("chat/infra")

const (
	// TaskRefreshMemory re-summarizes a user's long-term memory.
	TaskRefreshMemory = "memory:refresh"

	// QueueMemory is the queue memory jobs run on.
	QueueMemory = "memory"

	refreshUniqueFor = 10 * time.Minute
	refreshMaxRetry  = 5
	refreshTimeout   = 2 * time.Minute
)

// RefreshMemoryPayload is the payload of TaskRefreshMemory.
type RefreshMemoryPayload struct {
	UserID string `json:"user_id"`
}

// TaskClient is the part of *asynq.Client the enqueuer uses.
type TaskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// MemoryEnqueuer schedules memory refresh jobs, at most one pending per user.
type MemoryEnqueuer struct {
	client TaskClient
	logger *zap.Logger
}

// NewMemoryEnqueuer creates the enqueuer. Pass an *asynq.Client.
func NewMemoryEnqueuer(client TaskClient, logger *zap.Logger) *MemoryEnqueuer {
	return &MemoryEnqueuer{client: client, logger: logger}
}

// EnqueueSummary queues TaskRefreshMemory for userID. A job already pending
// for the user is not an error.
func (e *MemoryEnqueuer) EnqueueSummary(ctx context.Context, userID string) error {
	ctx, span := tracer.Start(ctx, "MemoryEnqueuer.EnqueueSummary")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	payload, err := json.Marshal(RefreshMemoryPayload{UserID: userID})
	if err != nil {
		return fmt.Errorf("marshal refresh payload: %w", err)
	}
	task := asynq.NewTask(TaskRefreshMemory, payload)

	info, err := e.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueMemory),
		asynq.Unique(refreshUniqueFor),
		asynq.MaxRetry(refreshMaxRetry),
		asynq.Timeout(refreshTimeout),
	)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		e.logger.Debug("memory refresh already pending", zap.String("user_id", userID))
		return nil
	}
	if err != nil {
		span.RecordError(err)
		return &domain.ErrExternalService{Service: "asynq", Err: err}
	}
	e.logger.Debug("memory refresh enqueued",
		zap.String("user_id", userID),
		zap.String("task_id", info.ID),
	)
	return nil
}
