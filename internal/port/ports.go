// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"time"

	"github.com/boddenberg/stylist-bfa-go/internal/domain"
)

// Completer runs a single prompt against an LLM backend.
type Completer interface {
	Complete(ctx context.Context, req *domain.CompletionRequest) (*domain.Completion, error)
}

// ImageGenerator renders an image from a prompt and returns PNG bytes.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

// ImageHost stores an image and returns its public URL.
type ImageHost interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

// ProductSearcher returns the best product hit for a query, or
// *domain.ErrNotFound when nothing matches.
type ProductSearcher interface {
	Search(ctx context.Context, query string) (*domain.Product, error)
}

// TrendFetcher reads the current trend tags feed.
type TrendFetcher interface {
	FetchTrends(ctx context.Context) ([]string, error)
}

// BarcodeLookup resolves a UPC/EAN code to a product.
type BarcodeLookup interface {
	Name() string
	Lookup(ctx context.Context, code string) (*domain.BarcodeProduct, error)
}

// ProfileStore reads the user context tables.
type ProfileStore interface {
	GetStyleProfile(ctx context.Context, userID string) (*domain.StyleProfile, error)
	GetPreferences(ctx context.Context, userID string) (*domain.Preferences, error)
	ListWardrobe(ctx context.Context, userID string, limit int) ([]domain.WardrobeItem, error)
	ListFeedback(ctx context.Context, userID string, limit int) ([]domain.OutfitFeedback, error)
	ListUpcomingEvents(ctx context.Context, userID string, from time.Time, days int) ([]domain.CalendarEvent, error)
	ListWearHistory(ctx context.Context, userID string, limit int) ([]domain.WearEntry, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
