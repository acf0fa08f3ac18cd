// Package port defines the interfaces the chat service depends on. The
// Postgres store, the Redis memory cache, the asynq enqueuer and the Unsplash
// client implement them.
package port

import (
	"context"

	chatdomain "github.com/boddenberg/stylist-bfa-go/internal/chat/domain"
)

// MessageStore persists chat history.
type MessageStore interface {
	AppendMessage(ctx context.Context, msg *chatdomain.Message) error
	// ListMessages returns the latest limit messages, oldest first.
	ListMessages(ctx context.Context, userID string, limit int) ([]chatdomain.Message, error)
	CountMessages(ctx context.Context, userID string) (int, error)
}

// SummaryStore persists the long-term memory summary. GetSummary returns
// *domain.ErrNotFound when the user has none yet.
type SummaryStore interface {
	GetSummary(ctx context.Context, userID string) (*chatdomain.MemorySummary, error)
	UpsertSummary(ctx context.Context, m *chatdomain.MemorySummary) error
	DeleteSummary(ctx context.Context, userID string) error
}

// MemoryCache is the KV cache in front of SummaryStore. A missing key is
// ("", false, nil).
type MemoryCache interface {
	Get(ctx context.Context, userID string) (string, bool, error)
	Set(ctx context.Context, userID, summary string) error
	Delete(ctx context.Context, userID string) error
}

// SummaryEnqueuer schedules a memory re-summarization. Scheduling the same
// user twice while a job is pending is not an error.
type SummaryEnqueuer interface {
	EnqueueSummary(ctx context.Context, userID string) error
}

// PhotoSearcher returns an illustration URL for a search term.
type PhotoSearcher interface {
	SearchPhoto(ctx context.Context, term string) (string, error)
}
