package domain

// ============================================================
// LLM backends
// ============================================================

// Backend names reported on completions.
const (
	BackendOpenAI = "openai"
	BackendVertex = "vertex"
)

// Chat roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one earlier message of a conversation replayed to the model.
type Turn struct {
	Role    string
	Content string
}

// CompletionRequest is a single prompt/response round-trip.
type CompletionRequest struct {
	System      string
	History     []Turn // earlier turns, oldest first
	Prompt      string
	ImageURL    string // optional, switches the call to a vision request
	JSON        bool   // ask the backend for a JSON-only answer
	Temperature float32
	MaxTokens   int
}

// Completion is the backend answer.
type Completion struct {
	Text    string
	Backend string
	Usage   TokenUsage
}

// TokenUsage tracks LLM token consumption for cost monitoring.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ============================================================
// Tags
// ============================================================

// Tag sources.
const (
	TagSourceUser     = "user"
	TagSourceTrend    = "trend"
	TagSourceAnalysis = "analysis"
	TagSourceFallback = "fallback"
)

// StyleTag is a weighted style descriptor.
type StyleTag struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
	Source string  `json:"source"`
}

// AnalyzeResult is returned by the outfit photo analysis.
type AnalyzeResult struct {
	Tags     []StyleTag `json:"tags"`
	Backend  string     `json:"backend,omitempty"`
	Fallback bool       `json:"fallback"`
}
