package service

import (
	"strings"

	"github.com/boddenberg/stylist-bfa-go/internal/chat/domain"
)

// ShoppingStrategy steers purchase questions toward concrete, searchable
// pieces within the client's budget.
type ShoppingStrategy struct{}

func (ShoppingStrategy) CanHandle(intent string) bool { return intent == domain.IntentShopping }

func (ShoppingStrategy) Guidance(chatCtx *domain.ChatContext) string {
	var b strings.Builder
	b.WriteString("The client wants to buy something. Recommend at most 4 specific pieces, each wrapped in [[...]] as a search phrase with color and garment (e.g. [[black leather chelsea boots]]).")
	if _, ok := chatCtx.Blocks[BlockPreferences]; ok {
		b.WriteString(" Respect the preferences and budget listed below.")
	}
	if _, ok := chatCtx.Blocks[BlockWardrobe]; ok {
		b.WriteString(" Do not recommend what the wardrobe already covers.")
	}
	return b.String()
}

// OutfitStrategy builds looks from what the client already owns.
type OutfitStrategy struct{}

func (OutfitStrategy) CanHandle(intent string) bool { return intent == domain.IntentOutfit }

func (OutfitStrategy) Guidance(chatCtx *domain.ChatContext) string {
	if _, ok := chatCtx.Blocks[BlockWardrobe]; !ok {
		return "The client asks for outfit advice but their wardrobe is unknown. Suggest one complete look and ask what they own."
	}
	return "The client asks for outfit advice. Build the look from wardrobe pieces first and name them as listed. Wrap only missing pieces in [[...]]."
}

// EventStrategy dresses the client for a specific occasion, using the
// calendar when the event is on it.
type EventStrategy struct{}

func (EventStrategy) CanHandle(intent string) bool { return intent == domain.IntentEvent }

func (EventStrategy) Guidance(chatCtx *domain.ChatContext) string {
	var b strings.Builder
	b.WriteString("The client is dressing for an occasion. Match its dress code and the weather of the season.")
	if _, ok := chatCtx.Blocks[BlockCalendar]; ok {
		b.WriteString(" If the occasion is on the calendar below, use its dress code and time.")
	}
	b.WriteString(" Wrap any piece to buy in [[...]].")
	return b.String()
}

// DefaultStrategies returns the strategies in priority order.
func DefaultStrategies() []ChatStrategy {
	return []ChatStrategy{ShoppingStrategy{}, EventStrategy{}, OutfitStrategy{}}
}
