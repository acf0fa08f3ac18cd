package llm

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"

	"github.com/boddenberg/stylist-bfa-go/internal/domain"
	"github.com/boddenberg/stylist-bfa-go/internal/infra/resilience"
)

// VertexConfig points the genai client at a Vertex AI project.
type VertexConfig struct {
	Project  string
	Location string
	Model    string
}

// Vertex implements port.Completer with Gemini on Vertex AI.
type Vertex struct {
	client *genai.Client
	model  string
	cb     *gobreaker.CircuitBreaker
	rcfg   resilience.Config
}

// NewVertex creates the Vertex backend. Credentials come from Application
// Default Credentials.
func NewVertex(ctx context.Context, cfg VertexConfig, cb *gobreaker.CircuitBreaker, rcfg resilience.Config) (*Vertex, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  cfg.Project,
		Location: cfg.Location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Vertex{client: client, model: cfg.Model, cb: cb, rcfg: rcfg}, nil
}

// Complete runs GenerateContent. Earlier turns are replayed as contents and
// an image URL is attached as a URI part.
func (v *Vertex) Complete(ctx context.Context, req *domain.CompletionRequest) (*domain.Completion, error) {
	ctx, span := tracer.Start(ctx, "Vertex.Complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", v.model),
		attribute.Bool("llm.vision", req.ImageURL != ""),
	)

	contents := vertexContents(req)
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSON {
		config.ResponseMIMEType = "application/json"
	}

	resp, err := resilience.Call(ctx, v.cb, v.rcfg, func() (*genai.GenerateContentResponse, error) {
		r, err := v.client.Models.GenerateContent(ctx, v.model, contents, config)
		if err != nil {
			return nil, err
		}
		if r == nil || len(r.Candidates) == 0 {
			return nil, errors.New("no candidates returned")
		}
		return r, nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, wrapErr(domain.BackendVertex, err)
	}

	out := &domain.Completion{Text: resp.Text(), Backend: domain.BackendVertex}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = domain.TokenUsage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	span.SetAttributes(attribute.Int("llm.tokens", out.Usage.TotalTokens))
	return out, nil
}

func vertexContents(req *domain.CompletionRequest) []*genai.Content {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, t := range req.History {
		var role genai.Role = genai.RoleUser
		if t.Role == domain.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Content, role))
	}

	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	if req.ImageURL != "" {
		parts = append(parts, genai.NewPartFromURI(req.ImageURL, imageMIME(req.ImageURL)))
	}
	return append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
}

// imageMIME guesses the MIME type from the URL extension, defaulting to JPEG.
func imageMIME(url string) string {
	p := url
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if t := mime.TypeByExtension(path.Ext(p)); strings.HasPrefix(t, "image/") {
		return t
	}
	return "image/jpeg"
}
