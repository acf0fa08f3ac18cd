package llm

import (
	"context"

	"go.uber.org/zap"

	"github.com/boddenberg/stylist-bfa-go/internal/domain"
	"github.com/boddenberg/stylist-bfa-go/internal/infra/observability"
	"github.com/boddenberg/stylist-bfa-go/internal/port"
)

// Router sends requests to the primary backend and falls back to the
// secondary when the primary fails. A nil primary routes everything to the
// secondary.
type Router struct {
	cfg     RouterConfig
	metrics *observability.Metrics
	logger  *zap.Logger
}

// RouterConfig names the backends behind a Router. Typically Primary is
// Vertex (nil when disabled) and Secondary is OpenAI.
type RouterConfig struct {
	Primary     port.Completer
	PrimaryName string // external error label when the primary fails
	Secondary   port.Completer
}

// NewRouter creates a Router. An empty PrimaryName is recorded as "primary".
func NewRouter(cfg RouterConfig, metrics *observability.Metrics, logger *zap.Logger) *Router {
	if cfg.PrimaryName == "" {
		cfg.PrimaryName = "primary"
	}
	return &Router{cfg: cfg, metrics: metrics, logger: logger}
}

// Complete implements port.Completer.
func (r *Router) Complete(ctx context.Context, req *domain.CompletionRequest) (*domain.Completion, error) {
	if r.cfg.Primary != nil {
		out, err := r.cfg.Primary.Complete(ctx, req)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.logger.Warn("primary llm failed, falling back", zap.String("backend", r.cfg.PrimaryName), zap.Error(err))
		r.metrics.IncrExternalError(r.cfg.PrimaryName)
	}
	return r.cfg.Secondary.Complete(ctx, req)
}
