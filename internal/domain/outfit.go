package domain

// ============================================================
// Outfits & products
// ============================================================

// Product is a single product search hit.
type Product struct {
	Title    string  `json:"title"`
	Price    float64 `json:"price,omitempty"`
	Currency string  `json:"currency,omitempty"`
	URL      string  `json:"url,omitempty"`
	ImageURL string  `json:"image_url,omitempty"`
	Merchant string  `json:"merchant,omitempty"`
}

// OutfitItem is one garment of a model-proposed outfit.
type OutfitItem struct {
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Color       string   `json:"color,omitempty"`
	Description string   `json:"description,omitempty"`
	SearchQuery string   `json:"search_query,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
	Product     *Product `json:"product,omitempty"`
}

// Outfit is a titled set of items.
type Outfit struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Items       []OutfitItem `json:"items"`
	ImageURL    string       `json:"image_url,omitempty"`
}

// PurchaseItem is a recommended buy on the personalized shopping list.
type PurchaseItem struct {
	OutfitItem
	Reason   string `json:"reason,omitempty"`
	Priority int    `json:"priority,omitempty"`
}

// EnforcementAction records one rewrite or removal made by personalization
// enforcement.
type EnforcementAction struct {
	Rule   string `json:"rule"`
	Item   string `json:"item"`
	Detail string `json:"detail"`
}

// ============================================================
// Requests & results
// ============================================================

// RecreateRequest is the body of POST /v1/recreate.
type RecreateRequest struct {
	Tags        []string `json:"tags"`
	ImageURL    string   `json:"image_url,omitempty"`
	Occasion    string   `json:"occasion,omitempty"`
	RenderImage bool     `json:"render_image,omitempty"`
}

// RecreateResult is the response of the recreate flow.
type RecreateResult struct {
	Outfit      Outfit              `json:"outfit"`
	Tags        []StyleTag          `json:"tags"`
	Backend     string              `json:"backend"`
	Enforcement []EnforcementAction `json:"enforcement,omitempty"`
}

// ShopRequest is the body of POST /v1/shop.
type ShopRequest struct {
	Occasion string  `json:"occasion,omitempty"`
	Budget   float64 `json:"budget,omitempty"`
	Notes    string  `json:"notes,omitempty"`
}

// ShopResult is the personalized shopping list.
type ShopResult struct {
	Outfits     []Outfit            `json:"outfits"`
	Purchases   []PurchaseItem      `json:"purchases"`
	Enforcement []EnforcementAction `json:"enforcement,omitempty"`
}

// SuggestResult is the daily style brief.
type SuggestResult struct {
	Date        string  `json:"date"`
	Season      string  `json:"season"`
	Brief       string  `json:"brief"`
	Outfit      *Outfit `json:"outfit,omitempty"`
	CapsuleGaps string  `json:"capsule_gaps"`
	Fallback    bool    `json:"fallback"`
}
