// Package domain defines the types of the stylist chat.
//
// The flow behind POST /v1/chat:
//  1. the user message is persisted
//  2. the long-term memory summary and the context blocks are loaded
//  3. the intent is detected and the matching strategy adds its guidance
//  4. the model answers, the answer is persisted
//  5. shoppable terms are pulled out of the answer and illustrated
//  6. a memory re-summarization is queued once enough messages piled up
package domain

import "time"

// Intents detected from the user message.
const (
	IntentShopping = "shopping"
	IntentOutfit   = "outfit"
	IntentEvent    = "event"
	IntentGeneral  = "general"
)

// MaxShoppableTerms caps how many terms of a reply get images.
const MaxShoppableTerms = 4

// ============================================================
// Chat request/response between the caller and the BFA
// ============================================================

// ChatRequest is the body of POST /v1/chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ShoppableTerm is a garment the reply suggests, with an illustration when one
// was found.
type ShoppableTerm struct {
	Term     string `json:"term"`
	ImageURL string `json:"image_url,omitempty"`
}

// ChatResponse is returned to the caller.
type ChatResponse struct {
	Reply      string          `json:"reply"`
	Intent     string          `json:"intent"`
	Shoppable  []ShoppableTerm `json:"shoppable,omitempty"`
	MessageID  string          `json:"message_id"`
	MemoryUsed bool            `json:"memory_used"`
}

// ============================================================
// Persistence
// ============================================================

// Message is a row of chat_messages.
type Message struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"` // user, assistant
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// MemorySummary is a row of memory_summaries. MessageCount is the number of
// chat messages the summary covers.
type MemorySummary struct {
	UserID       string    `json:"user_id"`
	Summary      string    `json:"summary"`
	MessageCount int       `json:"message_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HistoryResponse is returned by GET /v1/chat/history.
type HistoryResponse struct {
	Messages []Message `json:"messages"`
}

// ============================================================
// Strategy context
// ============================================================

// ChatContext carries what a strategy needs to shape the prompt. It is built by
// the ChatService before delegating.
type ChatContext struct {
	UserID         string
	Message        string
	DetectedIntent string

	// Memory is the long-term summary, empty when none exists yet.
	Memory string

	// Blocks are the labelled context sections that loaded successfully,
	// keyed by label ("profile", "wardrobe", ...).
	Blocks map[string]string
}
