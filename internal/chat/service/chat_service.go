// Package service implements the stylist chat.
//
// ChatService.ProcessMessage persists the message, loads the long-term memory
// and the context blocks, lets the strategy matching the detected intent add
// its guidance, asks the model, then illustrates the shoppable terms of the
// reply. Memory re-summarization runs out of band in the worker
// (MemoryService.Refresh), scheduled once enough messages piled up.
package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	chatdomain "github.com/boddenberg/stylist-bfa-go/internal/chat/domain"
	chatport "github.com/boddenberg/stylist-bfa-go/internal/chat/port"
	"github.com/boddenberg/stylist-bfa-go/internal/domain"
	"github.com/boddenberg/stylist-bfa-go/internal/infra/observability"
	"github.com/boddenberg/stylist-bfa-go/internal/port"
	"github.com/boddenberg/stylist-bfa-go/internal/season"
	"github.com/boddenberg/stylist-bfa-go/internal/tags"
)

var chatTracer = otel.Tracer("chat/service")

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
	wardrobeLimit       = 40
	feedbackLimit       = 5
	wearLimit           = 15
	calendarDays        = 7
)

// Block labels, in prompt order.
const (
	BlockProfile     = "profile"
	BlockPreferences = "preferences"
	BlockWardrobe    = "wardrobe"
	BlockCapsule     = "capsule"
	BlockCalendar    = "calendar"
	BlockFeedback    = "feedback"
	BlockWear        = "wear_history"
	BlockTrends      = "trends"
	BlockHistory     = "history"
)

var blockOrder = []string{
	BlockProfile, BlockPreferences, BlockWardrobe, BlockCapsule, BlockCalendar,
	BlockFeedback, BlockWear, BlockTrends, BlockHistory,
}

const chatSystem = `You are a warm, direct personal stylist chatting with a client.
Answer in plain prose, at most 150 words. Use the client context below and never contradict it.
When you recommend a specific piece the client could buy or search for, wrap it in double brackets, e.g. [[navy linen blazer]].`

// ChatStrategy adds intent-specific guidance to the system prompt.
// The first strategy whose CanHandle accepts the intent wins.
type ChatStrategy interface {
	CanHandle(intent string) bool
	Guidance(chatCtx *chatdomain.ChatContext) string
}

// ChatDeps are the collaborators of ChatService. Memory, Photos, Enqueuer and
// Enricher are optional.
type ChatDeps struct {
	Messages  chatport.MessageStore
	Summaries chatport.SummaryStore
	Memory    chatport.MemoryCache
	Profiles  port.ProfileStore
	LLM       port.Completer
	Photos    chatport.PhotoSearcher
	Enqueuer  chatport.SummaryEnqueuer
	Enricher  *tags.Enricher

	Strategies       []ChatStrategy
	HistoryLimit     int
	SummaryThreshold int

	Metrics *observability.Metrics
	Logger  *zap.Logger
}

// ChatService is the stylist chat orchestrator.
type ChatService struct {
	d   ChatDeps
	now func() time.Time
}

// NewChatService creates the ChatService.
func NewChatService(d ChatDeps) *ChatService {
	if d.HistoryLimit <= 0 {
		d.HistoryLimit = defaultHistoryLimit
	}
	if d.SummaryThreshold <= 0 {
		d.SummaryThreshold = 10
	}
	return &ChatService{d: d, now: time.Now}
}

// ProcessMessage answers one chat message.
func (s *ChatService) ProcessMessage(ctx context.Context, userID string, req *chatdomain.ChatRequest) (*chatdomain.ChatResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, &domain.ErrValidation{Field: "message", Message: "is required"}
	}

	ctx, span := chatTracer.Start(ctx, "ChatService.ProcessMessage")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	start := time.Now()
	defer func() { s.d.Metrics.RecordRequestDuration("chat", time.Since(start)) }()

	// --- Step 1: persist ---
	userMsg := &chatdomain.Message{UserID: userID, Role: "user", Content: message}
	if err := s.d.Messages.AppendMessage(ctx, userMsg); err != nil {
		s.d.Metrics.IncrExternalError("postgres")
		return nil, fmt.Errorf("persist user message: %w", err)
	}

	// --- Step 2-3: memory + context ---
	var (
		memory string
		blocks map[string]string
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		memory = s.loadMemory(gCtx, userID)
		return nil
	})
	g.Go(func() error {
		blocks = s.loadBlocks(gCtx, userID, userMsg.ID)
		return nil
	})
	_ = g.Wait()

	// --- Step 4: intent + strategy ---
	intent := DetectIntent(message)
	chatCtx := &chatdomain.ChatContext{
		UserID:         userID,
		Message:        message,
		DetectedIntent: intent,
		Memory:         memory,
		Blocks:         blocks,
	}
	span.SetAttributes(attribute.String("chat.intent", intent))
	s.d.Logger.Info("chat message received",
		zap.String("user_id", userID),
		zap.String("intent", intent),
		zap.Bool("memory", memory != ""),
		zap.Int("context_blocks", len(blocks)),
	)

	// --- Step 5: model ---
	out, err := s.d.LLM.Complete(ctx, &domain.CompletionRequest{
		System:      s.systemPrompt(chatCtx),
		Prompt:      message,
		Temperature: 0.8,
		MaxTokens:   600,
	})
	if err != nil {
		s.d.Logger.Error("chat completion failed", zap.String("user_id", userID), zap.Error(err))
		s.d.Metrics.IncrExternalError("openai")
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	s.d.Metrics.RecordTokens(out.Usage)

	reply, terms := ExtractShoppable(out.Text)
	assistantMsg := &chatdomain.Message{UserID: userID, Role: "assistant", Content: reply}
	if err := s.d.Messages.AppendMessage(ctx, assistantMsg); err != nil {
		s.d.Logger.Error("failed to persist assistant message", zap.String("user_id", userID), zap.Error(err))
		s.d.Metrics.IncrExternalError("postgres")
	}

	// --- Step 6-7: shoppable terms ---
	shoppable := s.illustrate(ctx, intent, terms)

	// --- Step 8: memory ---
	s.maybeSummarize(ctx, userID)

	return &chatdomain.ChatResponse{
		Reply:      reply,
		Intent:     intent,
		Shoppable:  shoppable,
		MessageID:  assistantMsg.ID,
		MemoryUsed: memory != "",
	}, nil
}

// History returns the latest messages, oldest first. limit <= 0 uses the
// configured default.
func (s *ChatService) History(ctx context.Context, userID string, limit int) (*chatdomain.HistoryResponse, error) {
	ctx, span := chatTracer.Start(ctx, "ChatService.History")
	defer span.End()

	if limit <= 0 {
		limit = s.d.HistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	msgs, err := s.d.Messages.ListMessages(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("chat history: %w", err)
	}
	if msgs == nil {
		msgs = []chatdomain.Message{}
	}
	return &chatdomain.HistoryResponse{Messages: msgs}, nil
}

// ForgetMemory drops the long-term summary from the cache and the store.
func (s *ChatService) ForgetMemory(ctx context.Context, userID string) error {
	ctx, span := chatTracer.Start(ctx, "ChatService.ForgetMemory")
	defer span.End()

	var errs []error
	if s.d.Memory != nil {
		if err := s.d.Memory.Delete(ctx, userID); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.d.Summaries.DeleteSummary(ctx, userID); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("forget memory: %w", err)
	}
	s.d.Logger.Info("memory forgotten", zap.String("user_id", userID))
	return nil
}

// loadMemory reads the summary from the cache, then the store, warming the
// cache on a miss. Errors degrade to "no memory".
func (s *ChatService) loadMemory(ctx context.Context, userID string) string {
	if s.d.Memory != nil {
		v, ok, err := s.d.Memory.Get(ctx, userID)
		switch {
		case err != nil:
			s.d.Logger.Warn("memory cache read failed", zap.String("user_id", userID), zap.Error(err))
			s.d.Metrics.IncrExternalError("redis")
		case ok:
			s.d.Metrics.IncrCacheHit("memory")
			return v
		default:
			s.d.Metrics.IncrCacheMiss("memory")
		}
	}

	sum, err := s.d.Summaries.GetSummary(ctx, userID)
	if err != nil {
		if !isNotFound(err) {
			s.d.Logger.Warn("memory summary read failed", zap.String("user_id", userID), zap.Error(err))
			s.d.Metrics.IncrExternalError("postgres")
		}
		return ""
	}
	if s.d.Memory != nil && sum.Summary != "" {
		if err := s.d.Memory.Set(ctx, userID, sum.Summary); err != nil {
			s.d.Logger.Warn("memory cache write failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return sum.Summary
}

// loadBlocks loads every context block concurrently. A failing block is
// logged and left out.
func (s *ChatService) loadBlocks(ctx context.Context, userID, currentID string) map[string]string {
	var (
		mu             sync.Mutex
		blocks         = make(map[string]string)
		uc             domain.UserContext
		wardrobeLoaded bool
	)
	put := func(label, text string) {
		if text == "" {
			return
		}
		mu.Lock()
		blocks[label] = text
		mu.Unlock()
	}
	fail := func(label string, err error) {
		s.d.Logger.Warn("chat context block skipped",
			zap.String("user_id", userID),
			zap.String("block", label),
			zap.Error(err),
		)
	}

	var g errgroup.Group
	g.Go(func() error {
		p, err := s.d.Profiles.GetStyleProfile(ctx, userID)
		if err != nil {
			if !isNotFound(err) {
				fail(BlockProfile, err)
			}
			return nil
		}
		uc.Profile = p
		put(BlockProfile, formatProfile(p))
		return nil
	})
	g.Go(func() error {
		p, err := s.d.Profiles.GetPreferences(ctx, userID)
		if err != nil {
			if !isNotFound(err) {
				fail(BlockPreferences, err)
			}
			return nil
		}
		put(BlockPreferences, formatPreferences(p))
		return nil
	})
	g.Go(func() error {
		items, err := s.d.Profiles.ListWardrobe(ctx, userID, wardrobeLimit)
		if err != nil {
			fail(BlockWardrobe, err)
			return nil
		}
		uc.Wardrobe = items
		wardrobeLoaded = true
		put(BlockWardrobe, formatWardrobe(items))
		return nil
	})
	g.Go(func() error {
		events, err := s.d.Profiles.ListUpcomingEvents(ctx, userID, s.now(), calendarDays)
		if err != nil {
			fail(BlockCalendar, err)
			return nil
		}
		put(BlockCalendar, formatCalendar(events))
		return nil
	})
	g.Go(func() error {
		fb, err := s.d.Profiles.ListFeedback(ctx, userID, feedbackLimit)
		if err != nil {
			fail(BlockFeedback, err)
			return nil
		}
		put(BlockFeedback, formatFeedback(fb))
		return nil
	})
	g.Go(func() error {
		wear, err := s.d.Profiles.ListWearHistory(ctx, userID, wearLimit)
		if err != nil {
			fail(BlockWear, err)
			return nil
		}
		put(BlockWear, formatWear(wear))
		return nil
	})
	g.Go(func() error {
		msgs, err := s.d.Messages.ListMessages(ctx, userID, s.d.HistoryLimit)
		if err != nil {
			fail(BlockHistory, err)
			return nil
		}
		put(BlockHistory, formatHistory(msgs, currentID))
		return nil
	})
	if s.d.Enricher != nil {
		g.Go(func() error {
			put(BlockTrends, strings.Join(s.d.Enricher.Trends(ctx), ", "))
			return nil
		})
	}
	_ = g.Wait()

	// capsule gaps need the wardrobe and the hemisphere
	if wardrobeLoaded {
		hemisphere := season.North
		if uc.Profile != nil {
			hemisphere = season.ParseHemisphere(uc.Profile.Hemisphere)
		}
		put(BlockCapsule, season.GapReport(season.ForDate(s.now(), hemisphere), uc.Wardrobe).Text)
	}
	return blocks
}

func (s *ChatService) systemPrompt(chatCtx *chatdomain.ChatContext) string {
	var b strings.Builder
	b.WriteString(chatSystem)
	for _, st := range s.d.Strategies {
		if st.CanHandle(chatCtx.DetectedIntent) {
			if g := st.Guidance(chatCtx); g != "" {
				b.WriteString("\n\n")
				b.WriteString(g)
			}
			break
		}
	}
	if chatCtx.Memory != "" {
		fmt.Fprintf(&b, "\n\n## What you remember about the client\n%s", chatCtx.Memory)
	}
	for _, label := range blockOrder {
		if text, ok := chatCtx.Blocks[label]; ok {
			fmt.Fprintf(&b, "\n\n## %s\n%s", blockTitle(label), text)
		}
	}
	return b.String()
}

// illustrate fetches one photo per term. General chit-chat gets no images;
// failed searches keep the term without one.
func (s *ChatService) illustrate(ctx context.Context, intent string, terms []string) []chatdomain.ShoppableTerm {
	if len(terms) == 0 {
		return nil
	}
	out := make([]chatdomain.ShoppableTerm, len(terms))
	for i, t := range terms {
		out[i].Term = t
	}
	if s.d.Photos == nil || intent == chatdomain.IntentGeneral {
		return out
	}
	for i := range out {
		url, err := s.d.Photos.SearchPhoto(ctx, out[i].Term)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if !isNotFound(err) {
				s.d.Logger.Debug("shoppable image skipped", zap.String("term", out[i].Term), zap.Error(err))
				s.d.Metrics.IncrExternalError("unsplash")
			}
			continue
		}
		out[i].ImageURL = url
	}
	return out
}

// maybeSummarize queues a re-summarization once SummaryThreshold messages
// accumulated since the last summary.
func (s *ChatService) maybeSummarize(ctx context.Context, userID string) {
	if s.d.Enqueuer == nil {
		return
	}
	total, err := s.d.Messages.CountMessages(ctx, userID)
	if err != nil {
		s.d.Logger.Warn("message count failed", zap.String("user_id", userID), zap.Error(err))
		return
	}
	covered := 0
	if sum, err := s.d.Summaries.GetSummary(ctx, userID); err == nil {
		covered = sum.MessageCount
	} else if !isNotFound(err) {
		s.d.Logger.Warn("memory summary read failed", zap.String("user_id", userID), zap.Error(err))
		return
	}
	if total-covered < s.d.SummaryThreshold {
		return
	}
	if err := s.d.Enqueuer.EnqueueSummary(ctx, userID); err != nil {
		s.d.Logger.Error("failed to enqueue memory refresh", zap.String("user_id", userID), zap.Error(err))
		return
	}
	s.d.Logger.Debug("memory refresh queued",
		zap.String("user_id", userID),
		zap.Int("pending_messages", total-covered),
	)
}

// ============================================================
// Intent detection
// ============================================================

var (
	shoppingRe = regexp.MustCompile(`(?i)\b(buy|buying|shop|shopping|purchase|order|price|prices|budget|afford|where (?:can|do) i (?:get|find)|link|store|sale)\b`)
	eventRe    = regexp.MustCompile(`(?i)\b(wedding|party|interview|date night|first date|meeting|conference|gala|funeral|graduation|dinner|birthday|concert|festival|trip|vacation|holiday|event)\b`)
	outfitRe   = regexp.MustCompile(`(?i)\b(outfit|outfits|wear|wearing|style|styling|look|match|matches|pair|combine|goes with|layer|layering)\b`)
)

// DetectIntent classifies a message by keyword. Shopping beats event, event
// beats outfit.
func DetectIntent(message string) string {
	switch {
	case shoppingRe.MatchString(message):
		return chatdomain.IntentShopping
	case eventRe.MatchString(message):
		return chatdomain.IntentEvent
	case outfitRe.MatchString(message):
		return chatdomain.IntentOutfit
	default:
		return chatdomain.IntentGeneral
	}
}

func isNotFound(err error) bool {
	var nf *domain.ErrNotFound
	return errors.As(err, &nf)
}
