package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	chatdomain "github.com/boddenberg/stylist-bfa-go/internal/chat/domain"
	chatport "github.com/boddenberg/stylist-bfa-go/internal/chat/port"
	"github.com/boddenberg/stylist-bfa-go/internal/domain"
	"github.com/boddenberg/stylist-bfa-go/internal/infra/observability"
	"github.com/boddenberg/stylist-bfa-go/internal/port"
)

// summaryWindow is how many recent messages feed a re-summarization.
const summaryWindow = 50

const summarySystem = `You maintain a stylist's private notes about a client.
Merge the previous notes with the new conversation into at most 12 short bullet points:
sizes, fit and color likes and dislikes, budget, lifestyle, upcoming occasions, pieces they bought or want.
Drop anything the client corrected. Reply with the bullet points only.`

var errEmptySummary = errors.New("model returned an empty summary")

// MemoryService regenerates a user's long-term memory summary. It runs in the
// worker process.
type MemoryService struct {
	messages  chatport.MessageStore
	summaries chatport.SummaryStore
	memory    chatport.MemoryCache
	llm       port.Completer
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewMemoryService creates the MemoryService. memory may be nil.
func NewMemoryService(messages chatport.MessageStore, summaries chatport.SummaryStore, memory chatport.MemoryCache, llm port.Completer, metrics *observability.Metrics, logger *zap.Logger) *MemoryService {
	return &MemoryService{
		messages:  messages,
		summaries: summaries,
		memory:    memory,
		llm:       llm,
		metrics:   metrics,
		logger:    logger,
	}
}

// Refresh summarizes the recent conversation, seeded with the previous
// summary, and stores the result in Postgres then Redis. On model failure the
// previous summary stays and the error is returned so the job is retried.
func (m *MemoryService) Refresh(ctx context.Context, userID string) error {
	ctx, span := chatTracer.Start(ctx, "MemoryService.Refresh")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	start := time.Now()
	defer func() { m.metrics.RecordRequestDuration("memory_refresh", time.Since(start)) }()

	msgs, err := m.messages.ListMessages(ctx, userID, summaryWindow)
	if err != nil {
		return fmt.Errorf("load messages: %w", err)
	}
	if len(msgs) == 0 {
		m.logger.Debug("nothing to summarize", zap.String("user_id", userID))
		return nil
	}
	total, err := m.messages.CountMessages(ctx, userID)
	if err != nil {
		return fmt.Errorf("count messages: %w", err)
	}

	var previous string
	prev, err := m.summaries.GetSummary(ctx, userID)
	switch {
	case err == nil:
		previous = prev.Summary
	case !isNotFound(err):
		return fmt.Errorf("load summary: %w", err)
	}

	out, err := m.llm.Complete(ctx, &domain.CompletionRequest{
		System:      summarySystem,
		Prompt:      summaryPrompt(previous, msgs),
		Temperature: 0.2,
		MaxTokens:   500,
	})
	if err != nil {
		m.metrics.IncrExternalError("openai")
		return fmt.Errorf("summarize: %w", err)
	}
	m.metrics.RecordTokens(out.Usage)

	summary := strings.TrimSpace(out.Text)
	if summary == "" {
		return errEmptySummary
	}

	if err := m.summaries.UpsertSummary(ctx, &chatdomain.MemorySummary{
		UserID:       userID,
		Summary:      summary,
		MessageCount: total,
	}); err != nil {
		return fmt.Errorf("store summary: %w", err)
	}
	if m.memory != nil {
		if err := m.memory.Set(ctx, userID, summary); err != nil {
			m.logger.Warn("memory cache write failed", zap.String("user_id", userID), zap.Error(err))
		}
	}

	m.logger.Info("memory summary refreshed",
		zap.String("user_id", userID),
		zap.Int("messages", total),
		zap.Int("summary_chars", len(summary)),
	)
	return nil
}

func summaryPrompt(previous string, msgs []chatdomain.Message) string {
	var b strings.Builder
	if previous != "" {
		b.WriteString("Previous notes:\n")
		b.WriteString(previous)
		b.WriteString("\n\n")
	}
	b.WriteString("Conversation:\n")
	b.WriteString(formatHistory(msgs, ""))
	return b.String()
}
