package personalize

import (
	"fmt"
	"strings"

	"github.com/boddenberg/stylist-bfa-go/internal/domain"
)

// Rule names recorded in the enforcement log and the metrics.
const (
	RuleGenderLock    = "gender_lock"
	RuleClimate       = "climate"
	RuleFitStrip      = "fit_strip"
	RuleFitBan        = "fit_ban"
	RuleColorOnly     = "color_only"
	RuleColorExcept   = "color_except"
	RuleImageGuard    = "image_guard"
	RuleFallbackImage = "fallback_image"
)

// Rules is everything enforcement knows about one user.
type Rules struct {
	Gender  string      `json:"gender"`
	Climate ClimateRule `json:"-"`
	Fit     FitRule     `json:"fit"`
	Color   ColorRule   `json:"color"`
}

// RulesFor parses the rules from a user's profile and preferences. Extra
// request notes ("no skinny jeans this time") are parsed along with the
// stored notes.
func RulesFor(uc *domain.UserContext, notes string) Rules {
	rules := Rules{Gender: uc.GenderOrUnisex()}

	var climate, colorText, fitText string
	if uc != nil && uc.Profile != nil {
		climate = uc.Profile.Climate
	}
	if uc != nil && uc.Preferences != nil {
		colorText = uc.Preferences.ColorNotes
		fitText = uc.Preferences.FitNotes
	}
	if notes != "" {
		colorText = strings.TrimSpace(colorText + ". " + notes)
		fitText = strings.TrimSpace(fitText + ". " + notes)
	}

	rules.Climate = NewClimateRule(climate)
	rules.Color = ParseColorRule(colorText)
	rules.Fit = ParseFitRule(fitText)
	return rules
}

// Enforcer applies Rules to model output and records every change.
// Not safe for concurrent use; create one per request.
type Enforcer struct {
	rules   Rules
	images  *FallbackImages
	actions []domain.EnforcementAction
}

// NewEnforcer creates an Enforcer.
func NewEnforcer(rules Rules, images *FallbackImages) *Enforcer {
	return &Enforcer{rules: rules, images: images}
}

// Rules returns the parsed rules.
func (e *Enforcer) Rules() Rules { return e.rules }

// Actions returns the enforcement log.
func (e *Enforcer) Actions() []domain.EnforcementAction {
	out := make([]domain.EnforcementAction, len(e.actions))
	copy(out, e.actions)
	return out
}

func (e *Enforcer) record(rule, item, detail string) {
	e.actions = append(e.actions, domain.EnforcementAction{Rule: rule, Item: item, Detail: detail})
}

// Rewrite runs the text rules over outfits (in place) and purchases, in order:
// gender lock, climate, fit, color. Purchases naming a banned fit are dropped;
// outfit items only lose the fit word. Returns the surviving purchases.
func (e *Enforcer) Rewrite(outfits []domain.Outfit, purchases []domain.PurchaseItem) []domain.PurchaseItem {
	items := outfitItems(outfits)
	for i := range purchases {
		items = append(items, &purchases[i].OutfitItem)
	}

	for _, it := range items {
		if strings.TrimSpace(it.SearchQuery) == "" {
			it.SearchQuery = defaultQuery(it)
		}
		e.lockGender(it)
	}
	for _, it := range items {
		e.patchClimate(it)
	}
	for _, it := range outfitItems(outfits) {
		e.stripFit(it)
	}
	purchases = e.banFit(purchases)

	items = outfitItems(outfits)
	for i := range purchases {
		items = append(items, &purchases[i].OutfitItem)
	}
	for _, it := range items {
		e.enforceColor(it)
	}
	return purchases
}

// GuardImages clears opposite-gender product images and fills missing images
// from the fallback table. Run it after product search.
func (e *Enforcer) GuardImages(outfits []domain.Outfit, purchases []domain.PurchaseItem) {
	items := outfitItems(outfits)
	for i := range purchases {
		items = append(items, &purchases[i].OutfitItem)
	}
	for _, it := range items {
		cleared, fellBack := e.images.GuardImage(it, e.rules.Gender)
		if cleared {
			e.record(RuleImageGuard, it.Name, "dropped image signalling another gender")
		}
		if fellBack {
			e.record(RuleFallbackImage, it.Name, it.ImageURL)
		}
	}
}

// defaultQuery is the item name, led by its color unless the name already
// names one.
func defaultQuery(it *domain.OutfitItem) string {
	if CanonicalColor(it.Name) != "" {
		return strings.TrimSpace(it.Name)
	}
	return strings.TrimSpace(it.Color + " " + it.Name)
}

func outfitItems(outfits []domain.Outfit) []*domain.OutfitItem {
	var out []*domain.OutfitItem
	for i := range outfits {
		for j := range outfits[i].Items {
			out = append(out, &outfits[i].Items[j])
		}
	}
	return out
}

func (e *Enforcer) lockGender(it *domain.OutfitItem) {
	locked := GenderLock(it.SearchQuery, e.rules.Gender)
	if locked != it.SearchQuery {
		e.record(RuleGenderLock, it.Name, fmt.Sprintf("%q -> %q", it.SearchQuery, locked))
		it.SearchQuery = locked
	}
}

func (e *Enforcer) patchClimate(it *domain.OutfitItem) {
	if len(e.rules.Climate.Swaps) == 0 {
		return
	}
	before := it.Name
	var fired []Swap
	for _, field := range []*string{&it.Name, &it.Category, &it.Description, &it.SearchQuery} {
		var f []Swap
		*field, f = e.rules.Climate.Patch(*field)
		fired = append(fired, f...)
	}
	seen := map[string]bool{}
	for _, s := range fired {
		if seen[s.From] {
			continue
		}
		seen[s.From] = true
		e.record(RuleClimate, before, fmt.Sprintf("%s -> %s (%s climate)", s.From, s.To, e.rules.Climate.Kind))
	}
}

func (e *Enforcer) stripFit(it *domain.OutfitItem) {
	if e.rules.Fit.Empty() {
		return
	}
	hits := e.rules.Fit.Mentions(it.Name + " " + it.Description + " " + it.SearchQuery)
	if len(hits) == 0 {
		return
	}
	before := it.Name
	it.Name = e.rules.Fit.Strip(it.Name)
	it.Description = e.rules.Fit.Strip(it.Description)
	it.SearchQuery = e.rules.Fit.Strip(it.SearchQuery)
	e.record(RuleFitStrip, before, "removed "+strings.Join(hits, ", "))
}

func (e *Enforcer) banFit(purchases []domain.PurchaseItem) []domain.PurchaseItem {
	if e.rules.Fit.Empty() {
		return purchases
	}
	kept := purchases[:0]
	for _, p := range purchases {
		hits := e.rules.Fit.Mentions(p.Name + " " + p.Description + " " + p.SearchQuery)
		if len(hits) > 0 {
			e.record(RuleFitBan, p.Name, "banned fit "+strings.Join(hits, ", "))
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

func (e *Enforcer) enforceColor(it *domain.OutfitItem) {
	rule := e.rules.Color
	if rule.Empty() {
		return
	}
	color := CanonicalColor(it.Color)
	if color == "" {
		color = CanonicalColor(it.Name)
	}
	if color == "" || rule.Allows(color) {
		return
	}
	repl := rule.Replacement()
	if repl == "" {
		return
	}

	before := it.Name
	it.Color = repl
	it.Name = Recolor(it.Name, color, repl)
	it.Description = Recolor(it.Description, color, repl)
	it.SearchQuery = Recolor(it.SearchQuery, color, repl)

	name := RuleColorExcept
	if len(rule.Only) > 0 {
		name = RuleColorOnly
	}
	e.record(name, before, color+" -> "+repl)
}
