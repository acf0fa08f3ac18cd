package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/stylist-bfa-go/internal/domain"
	"github.com/boddenberg/stylist-bfa-go/internal/infra/llm"
	"github.com/boddenberg/stylist-bfa-go/internal/infra/observability"
	"github.com/boddenberg/stylist-bfa-go/internal/port"
)

// maxGuessConfidence caps the confidence of a model guess.
const maxGuessConfidence = 0.4

const decodeSystem = `You read barcodes from photos. Reply with the digits printed under the barcode and nothing else. If no barcode is readable reply NONE.`

var (
	codeRe      = regexp.MustCompile(`\b\d{8,14}\b`)
	digitJoinRe = regexp.MustCompile(`(\d)[ \-](\d)`)
)

// Barcode decodes product barcodes from photos and resolves them to products
// through a cascade of lookup services, with a model guess as last resort.
type Barcode struct {
	vision  port.Completer
	lookups []port.BarcodeLookup
	cache   port.Cache[*domain.BarcodeProduct]
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewBarcode creates the barcode service. lookups are tried in order.
func NewBarcode(vision port.Completer, lookups []port.BarcodeLookup, cache port.Cache[*domain.BarcodeProduct], metrics *observability.Metrics, logger *zap.Logger) *Barcode {
	return &Barcode{vision: vision, lookups: lookups, cache: cache, metrics: metrics, logger: logger}
}

// Decode reads the barcode in the photo and returns the validated code.
func (b *Barcode) Decode(ctx context.Context, imageURL string) (string, error) {
	if strings.TrimSpace(imageURL) == "" {
		return "", &domain.ErrValidation{Field: "image_url", Message: "is required"}
	}
	ctx, span := tracer.Start(ctx, "Barcode.Decode")
	defer span.End()

	out, err := b.vision.Complete(ctx, &domain.CompletionRequest{
		System:    decodeSystem,
		Prompt:    "Read the barcode.",
		ImageURL:  imageURL,
		MaxTokens: 40,
	})
	if err != nil {
		b.metrics.IncrExternalError("openai")
		return "", fmt.Errorf("barcode decode: %w", err)
	}
	b.metrics.RecordTokens(out.Usage)

	code, err := ExtractCode(out.Text)
	if err != nil {
		return "", err
	}
	span.SetAttributes(attribute.String("barcode.code", code))
	return code, nil
}

// Lookup resolves code to a product. The first lookup service that knows the
// code wins; when none does the model guesses with a capped confidence.
func (b *Barcode) Lookup(ctx context.Context, code string) (*domain.BarcodeProduct, error) {
	if err := ValidateCode(code); err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "Barcode.Lookup")
	defer span.End()
	span.SetAttributes(attribute.String("barcode.code", code))

	start := time.Now()
	defer func() { b.metrics.RecordRequestDuration("barcode_lookup", time.Since(start)) }()

	key := "barcode:" + code
	if b.cache != nil {
		if p, ok := b.cache.Get(key); ok {
			b.metrics.IncrCacheHit("barcode")
			return p, nil
		}
		b.metrics.IncrCacheMiss("barcode")
	}

	for _, l := range b.lookups {
		p, err := l.Lookup(ctx, code)
		if err == nil && p != nil {
			b.remember(key, p)
			return p, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil && !isNotFound(err) {
			b.logger.Warn("barcode lookup failed",
				zap.String("source", l.Name()),
				zap.String("code", code),
				zap.Error(err),
			)
			b.metrics.IncrExternalError(l.Name())
		}
	}

	p, err := b.guess(ctx, code)
	if err != nil {
		b.logger.Warn("barcode guess failed", zap.String("code", code), zap.Error(err))
		return nil, &domain.ErrNotFound{Resource: "barcode", ID: code}
	}
	b.metrics.IncrFallback("barcode")
	b.remember(key, p)
	return p, nil
}

// Scan decodes the photo and looks the code up.
func (b *Barcode) Scan(ctx context.Context, imageURL string) (*domain.BarcodeScan, error) {
	code, err := b.Decode(ctx, imageURL)
	if err != nil {
		return nil, err
	}
	p, err := b.Lookup(ctx, code)
	if err != nil {
		return nil, err
	}
	return &domain.BarcodeScan{Code: code, Product: p}, nil
}

func (b *Barcode) remember(key string, p *domain.BarcodeProduct) {
	if b.cache != nil {
		b.cache.Set(key, p)
	}
}

type guessReply struct {
	Title      string  `json:"title"`
	Brand      string  `json:"brand"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

func (b *Barcode) guess(ctx context.Context, code string) (*domain.BarcodeProduct, error) {
	out, err := b.vision.Complete(ctx, &domain.CompletionRequest{
		System:      stylistSystem,
		Prompt:      barcodeGuessPrompt(code),
		JSON:        true,
		Temperature: 0.2,
		MaxTokens:   200,
	})
	if err != nil {
		return nil, err
	}
	b.metrics.RecordTokens(out.Usage)

	var reply guessReply
	if err := llm.DecodeJSON(out.Text, &reply); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reply.Title) == "" {
		return nil, fmt.Errorf("model has no guess")
	}
	conf := reply.Confidence
	if conf < 0 {
		conf = 0
	}
	if conf > maxGuessConfidence {
		conf = maxGuessConfidence
	}
	return &domain.BarcodeProduct{
		Code:       code,
		Title:      reply.Title,
		Brand:      reply.Brand,
		Category:   reply.Category,
		Source:     domain.BarcodeSourceAI,
		Confidence: conf,
	}, nil
}

// ExtractCode pulls the first 8-14 digit code out of text and validates it.
// Digit groups split by single spaces or hyphens are joined first.
func ExtractCode(text string) (string, error) {
	joined := text
	for {
		next := digitJoinRe.ReplaceAllString(joined, "$1$2")
		if next == joined {
			break
		}
		joined = next
	}
	code := codeRe.FindString(joined)
	if code == "" {
		return "", &domain.ErrInvalidBarcode{Input: strings.TrimSpace(text), Reason: "no 8-14 digit code found"}
	}
	if err := ValidateCode(code); err != nil {
		return "", err
	}
	return code, nil
}

// ValidateCode checks the length and GS1 check digit of an EAN-8, UPC-A,
// EAN-13 or GTIN-14 code.
func ValidateCode(code string) error {
	switch len(code) {
	case 8, 12, 13, 14:
	default:
		return &domain.ErrInvalidBarcode{Input: code, Reason: fmt.Sprintf("unsupported length %d", len(code))}
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return &domain.ErrInvalidBarcode{Input: code, Reason: "not numeric"}
		}
	}
	if checkDigit(code[:len(code)-1]) != int(code[len(code)-1]-'0') {
		return &domain.ErrInvalidBarcode{Input: code, Reason: "check digit mismatch"}
	}
	return nil
}

// checkDigit computes the GS1 mod-10 check digit: weights 3 and 1 alternate
// from the rightmost payload digit.
func checkDigit(payload string) int {
	sum := 0
	for i := len(payload) - 1; i >= 0; i-- {
		d := int(payload[i] - '0')
		if (len(payload)-1-i)%2 == 0 {
			d *= 3
		}
		sum += d
	}
	return (10 - sum%10) % 10
}
