package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	chatdomain "github.com/boddenberg/stylist-bfa-go/internal/chat/domain"
)

// ============================================================
// chat_messages
// ============================================================

// AppendMessage inserts msg. ID and CreatedAt are filled when empty.
func (s *Store) AppendMessage(ctx context.Context, msg *chatdomain.Message) error {
	ctx, span := tracer.Start(ctx, "Postgres.AppendMessage")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", msg.UserID), attribute.String("chat.role", msg.Role))

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO chat_messages (id, user_id, role, content, created_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 RETURNING created_at`,
		msg.ID, msg.UserID, msg.Role, msg.Content,
	).Scan(&msg.CreatedAt)
	if err != nil {
		return dbErr("chat_messages", err)
	}
	return nil
}

// ListMessages returns the latest limit messages of the user, oldest first.
func (s *Store) ListMessages(ctx context.Context, userID string, limit int) ([]chatdomain.Message, error) {
	ctx, span := tracer.Start(ctx, "Postgres.ListMessages")
	defer span.End()

	rows, err := s.db.Query(ctx,
		`SELECT id::text, user_id::text, role, content, created_at FROM (
		     SELECT id, user_id, role, content, created_at
		       FROM chat_messages
		      WHERE user_id = $1
		      ORDER BY created_at DESC
		      LIMIT $2
		 ) recent
		 ORDER BY created_at ASC`,
		userID, limit,
	)
	if err != nil {
		return nil, dbErr("chat_messages", err)
	}
	msgs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (chatdomain.Message, error) {
		var m chatdomain.Message
		err := row.Scan(&m.ID, &m.UserID, &m.Role, &m.Content, &m.CreatedAt)
		return m, err
	})
	if err != nil {
		return nil, dbErr("chat_messages", err)
	}
	return msgs, nil
}

// CountMessages returns the total number of messages of the user.
func (s *Store) CountMessages(ctx context.Context, userID string) (int, error) {
	ctx, span := tracer.Start(ctx, "Postgres.CountMessages")
	defer span.End()

	var n int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM chat_messages WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, dbErr("chat_messages", err)
	}
	return n, nil
}

// ============================================================
// memory_summaries
// ============================================================

// GetSummary returns the stored summary or *domain.ErrNotFound.
func (s *Store) GetSummary(ctx context.Context, userID string) (*chatdomain.MemorySummary, error) {
	ctx, span := tracer.Start(ctx, "Postgres.GetSummary")
	defer span.End()

	var m chatdomain.MemorySummary
	err := s.db.QueryRow(ctx,
		`SELECT user_id::text, summary, message_count, updated_at
		   FROM memory_summaries
		  WHERE user_id = $1`,
		userID,
	).Scan(&m.UserID, &m.Summary, &m.MessageCount, &m.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "memory_summary", userID)
	}
	return &m, nil
}

// UpsertSummary writes the summary of the user.
func (s *Store) UpsertSummary(ctx context.Context, m *chatdomain.MemorySummary) error {
	ctx, span := tracer.Start(ctx, "Postgres.UpsertSummary")
	defer span.End()

	err := s.db.QueryRow(ctx,
		`INSERT INTO memory_summaries (user_id, summary, message_count, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (user_id) DO UPDATE
		    SET summary = EXCLUDED.summary,
		        message_count = EXCLUDED.message_count,
		        updated_at = EXCLUDED.updated_at
		 RETURNING updated_at`,
		m.UserID, m.Summary, m.MessageCount,
	).Scan(&m.UpdatedAt)
	if err != nil {
		return dbErr("memory_summaries", err)
	}
	return nil
}

// DeleteSummary removes the summary of the user. Missing rows are fine.
func (s *Store) DeleteSummary(ctx context.Context, userID string) error {
	ctx, span := tracer.Start(ctx, "Postgres.DeleteSummary")
	defer span.End()

	if _, err := s.db.Exec(ctx, `DELETE FROM memory_summaries WHERE user_id = $1`, userID); err != nil {
		return dbErr("memory_summaries", err)
	}
	s.logger.Debug("memory summary deleted", zap.String("user_id", userID))
	return nil
}
