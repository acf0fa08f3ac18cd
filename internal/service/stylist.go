package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/boddenberg/stylist-bfa-go/internal/domain"
	"github.com/boddenberg/stylist-bfa-go/internal/infra/observability"
	"github.com/boddenberg/stylist-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/stylist-bfa-go/internal/personalize"
	"github.com/boddenberg/stylist-bfa-go/internal/port"
	"github.com/boddenberg/stylist-bfa-go/internal/tags"
)

var tracer = otel.Tracer("service/stylist")

const (
	wardrobeLimit = 60
	feedbackLimit = 10
)

// StylistDeps groups the collaborators of Stylist.
type StylistDeps struct {
	Router       port.Completer // Vertex first, OpenAI fallback
	OpenAI       port.Completer
	Enricher     *tags.Enricher
	Store        port.ProfileStore
	Products     port.ProductSearcher
	ImageGen     port.ImageGenerator // optional
	ImageHost    port.ImageHost      // optional
	Fallbacks    *personalize.FallbackImages
	Bulkhead     *resilience.Bulkhead
	ProductCache port.Cache[*domain.Product]
	Metrics      *observability.Metrics
	Logger       *zap.Logger
}

// Stylist orchestrates the outfit flows: Analyze, Recreate, PersonalizedShop
// and Suggest.
type Stylist struct {
	router       port.Completer
	openai       port.Completer
	enricher     *tags.Enricher
	store        port.ProfileStore
	products     port.ProductSearcher
	imageGen     port.ImageGenerator
	imageHost    port.ImageHost
	fallbacks    *personalize.FallbackImages
	bulkhead     *resilience.Bulkhead
	productCache port.Cache[*domain.Product]
	metrics      *observability.Metrics
	logger       *zap.Logger
	now          func() time.Time
}

// NewStylist creates the stylist service with all dependencies injected.
func NewStylist(d StylistDeps) *Stylist {
	return &Stylist{
		router:       d.Router,
		openai:       d.OpenAI,
		enricher:     d.Enricher,
		store:        d.Store,
		products:     d.Products,
		imageGen:     d.ImageGen,
		imageHost:    d.ImageHost,
		fallbacks:    d.Fallbacks,
		bulkhead:     d.Bulkhead,
		productCache: d.ProductCache,
		metrics:      d.Metrics,
		logger:       d.Logger,
		now:          time.Now,
	}
}

// contextParts selects which user tables loadContext reads.
type contextParts struct {
	preferences bool
	wardrobe    bool
	feedback    bool
	eventsFrom  time.Time // zero: no events
	eventDays   int
}

// loadContext reads the profile and the selected tables concurrently.
// Missing profile or preference rows are not errors.
func (s *Stylist) loadContext(ctx context.Context, userID string, parts contextParts) (*domain.UserContext, error) {
	ctx, span := tracer.Start(ctx, "Stylist.loadContext")
	defer span.End()

	uc := &domain.UserContext{}
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		p, err := s.store.GetStyleProfile(gCtx, userID)
		if err != nil && !isNotFound(err) {
			s.metrics.IncrExternalError("postgres")
			return fmt.Errorf("style profile: %w", err)
		}
		uc.Profile = p
		return nil
	})
	if parts.preferences {
		g.Go(func() error {
			p, err := s.store.GetPreferences(gCtx, userID)
			if err != nil && !isNotFound(err) {
				s.metrics.IncrExternalError("postgres")
				return fmt.Errorf("preferences: %w", err)
			}
			uc.Preferences = p
			return nil
		})
	}
	if parts.wardrobe {
		g.Go(func() error {
			items, err := s.store.ListWardrobe(gCtx, userID, wardrobeLimit)
			if err != nil {
				s.metrics.IncrExternalError("postgres")
				return fmt.Errorf("wardrobe: %w", err)
			}
			uc.Wardrobe = items
			return nil
		})
	}
	if parts.feedback {
		g.Go(func() error {
			fb, err := s.store.ListFeedback(gCtx, userID, feedbackLimit)
			if err != nil {
				s.metrics.IncrExternalError("postgres")
				return fmt.Errorf("feedback: %w", err)
			}
			uc.Feedback = fb
			return nil
		})
	}
	if !parts.eventsFrom.IsZero() {
		g.Go(func() error {
			ev, err := s.store.ListUpcomingEvents(gCtx, userID, parts.eventsFrom, parts.eventDays)
			if err != nil {
				s.metrics.IncrExternalError("postgres")
				return fmt.Errorf("calendar: %w", err)
			}
			uc.Events = ev
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Error("failed to load user context", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return uc, nil
}

// attachProducts searches a product for every item, bounded by the bulkhead.
// Misses and failures leave the item without a product.
func (s *Stylist) attachProducts(ctx context.Context, items []*domain.OutfitItem) {
	if s.products == nil || len(items) == 0 {
		return
	}
	ctx, span := tracer.Start(ctx, "Stylist.attachProducts")
	defer span.End()

	var g errgroup.Group
	for _, it := range items {
		query := strings.TrimSpace(it.SearchQuery)
		if query == "" {
			continue
		}
		g.Go(func() error {
			key := "product:" + strings.ToLower(query)
			if s.productCache != nil {
				if p, ok := s.productCache.Get(key); ok {
					s.metrics.IncrCacheHit("product")
					it.Product = copyProduct(p)
					return nil
				}
				s.metrics.IncrCacheMiss("product")
			}

			if err := s.bulkhead.Acquire(ctx); err != nil {
				return nil
			}
			defer s.bulkhead.Release()

			p, err := s.products.Search(ctx, query)
			if err != nil {
				if isNotFound(err) {
					s.logger.Debug("no product for item", zap.String("query", query))
				} else {
					s.logger.Warn("product search failed", zap.String("query", query), zap.Error(err))
					s.metrics.IncrExternalError("product-search")
				}
				return nil
			}
			if s.productCache != nil {
				s.productCache.Set(key, p)
			}
			it.Product = copyProduct(p)
			return nil
		})
	}
	_ = g.Wait()
}

// renderLook generates an image of the outfit and uploads it. Failures are
// logged and leave the outfit image unchanged.
func (s *Stylist) renderLook(ctx context.Context, userID string, outfit *domain.Outfit, gender string) {
	if s.imageGen == nil || s.imageHost == nil {
		return
	}
	ctx, span := tracer.Start(ctx, "Stylist.renderLook")
	defer span.End()

	png, err := s.imageGen.GenerateImage(ctx, renderPrompt(outfit, gender))
	if err != nil {
		s.logger.Warn("look rendering failed", zap.String("user_id", userID), zap.Error(err))
		s.metrics.IncrExternalError("image-generation")
		return
	}
	name := fmt.Sprintf("look-%s-%d", userID, s.now().UnixNano())
	link, err := s.imageHost.Upload(ctx, name, png)
	if err != nil {
		s.logger.Warn("look upload failed", zap.String("user_id", userID), zap.Error(err))
		s.metrics.IncrExternalError("image-host")
		return
	}
	outfit.ImageURL = link
}

func copyProduct(p *domain.Product) *domain.Product {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

func itemPointers(outfits []domain.Outfit, purchases []domain.PurchaseItem) []*domain.OutfitItem {
	var out []*domain.OutfitItem
	for i := range outfits {
		for j := range outfits[i].Items {
			out = append(out, &outfits[i].Items[j])
		}
	}
	for i := range purchases {
		out = append(out, &purchases[i].OutfitItem)
	}
	return out
}

func isNotFound(err error) bool {
	var nf *domain.ErrNotFound
	return errors.As(err, &nf)
}

func userTags(uc *domain.UserContext) []string {
	if uc == nil || uc.Profile == nil {
		return nil
	}
	return uc.Profile.StyleTags
}
