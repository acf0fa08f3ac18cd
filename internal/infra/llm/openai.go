// Package llm adapts the OpenAI and Vertex AI SDKs to port.Completer.
package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/boddenberg/stylist-bfa-go/internal/domain"
	"github.com/boddenberg/stylist-bfa-go/internal/infra/resilience"
)

var tracer = otel.Tracer("llm")

// OpenAIConfig selects the models used per call type.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	ChatModel   string
	VisionModel string
	ImageModel  string
	HTTPClient  *http.Client
}

// OpenAI implements port.Completer and port.ImageGenerator with go-openai.
type OpenAI struct {
	client *openai.Client
	cfg    OpenAIConfig
	cb     *gobreaker.CircuitBreaker
	rcfg   resilience.Config
}

// NewOpenAI creates the OpenAI backend.
func NewOpenAI(cfg OpenAIConfig, cb *gobreaker.CircuitBreaker, rcfg resilience.Config) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	}
	return &OpenAI{client: openai.NewClientWithConfig(oc), cfg: cfg, cb: cb, rcfg: rcfg}, nil
}

// Complete runs a chat completion. An image URL turns it into a vision call on
// the vision model.
func (o *OpenAI) Complete(ctx context.Context, req *domain.CompletionRequest) (*domain.Completion, error) {
	model := o.cfg.ChatModel
	if req.ImageURL != "" {
		model = o.cfg.VisionModel
	}

	ctx, span := tracer.Start(ctx, "OpenAI.Complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", model),
		attribute.Bool("llm.vision", req.ImageURL != ""),
		attribute.Bool("llm.json", req.JSON),
	)

	chatReq := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    openAIMessages(req),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := resilience.Call(ctx, o.cb, o.rcfg, func() (openai.ChatCompletionResponse, error) {
		r, err := o.client.CreateChatCompletion(ctx, chatReq)
		if err != nil {
			return r, classify(err)
		}
		if len(r.Choices) == 0 {
			return r, errors.New("no choices returned")
		}
		return r, nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, wrapErr(domain.BackendOpenAI, err)
	}

	usage := domain.TokenUsage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	span.SetAttributes(attribute.Int("llm.tokens", usage.TotalTokens))

	return &domain.Completion{
		Text:    resp.Choices[0].Message.Content,
		Backend: domain.BackendOpenAI,
		Usage:   usage,
	}, nil
}

func openAIMessages(req *domain.CompletionRequest) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	for _, t := range req.History {
		role := openai.ChatMessageRoleUser
		if t.Role == domain.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: t.Content})
	}

	if req.ImageURL == "" {
		return append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})
	}
	return append(msgs, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: req.Prompt},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
				URL:    req.ImageURL,
				Detail: openai.ImageURLDetailAuto,
			}},
		},
	})
}

// GenerateImage renders prompt with the image model and returns the decoded
// PNG bytes.
func (o *OpenAI) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "OpenAI.GenerateImage")
	defer span.End()

	resp, err := resilience.Call(ctx, o.cb, o.rcfg, func() (openai.ImageResponse, error) {
		r, err := o.client.CreateImage(ctx, openai.ImageRequest{
			Prompt:         prompt,
			Model:          o.cfg.ImageModel,
			N:              1,
			Size:           openai.CreateImageSize1024x1024,
			ResponseFormat: openai.CreateImageResponseFormatB64JSON,
		})
		if err != nil {
			return r, classify(err)
		}
		if len(r.Data) == 0 || r.Data[0].B64JSON == "" {
			return r, errors.New("no image returned")
		}
		return r, nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, wrapErr("openai-images", err)
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "openai-images", Err: fmt.Errorf("decode image: %w", err)}
	}
	return data, nil
}

// classify marks 4xx answers other than 429 as permanent.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && isPermanentStatus(apiErr.HTTPStatusCode) {
		return resilience.Permanent(err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && isPermanentStatus(reqErr.HTTPStatusCode) {
		return resilience.Permanent(err)
	}
	return err
}

func isPermanentStatus(code int) bool {
	return code >= 400 && code < 500 && code != http.StatusTooManyRequests && code != http.StatusRequestTimeout
}

func wrapErr(service string, err error) error {
	if resilience.IsCircuitOpen(err) {
		return &domain.ErrCircuitOpen{Service: service}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.ErrTimeout{Operation: service}
	}
	return &domain.ErrExternalService{Service: service, Err: err}
}
