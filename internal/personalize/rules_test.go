package personalize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/boddenberg/stylist-bfa-go/internal/personalize"
)

func TestParseColorRule(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		only   []string
		except []string
	}{
		{"only list", "only black and navy", []string{"black", "navy"}, nil},
		{"trailing only", "Black and navy only", []string{"black", "navy"}, nil},
		{"just", "I just wear white", []string{"white"}, nil},
		{"just not", "I love black, just not pink", nil, []string{"pink"}},
		{"only not", "only not green", nil, []string{"green"}},
		{"nothing but", "nothing but beige", []string{"beige"}, nil},
		{"anything but", "anything but beige", nil, []string{"beige"}},
		{"no list", "No pink or yellow please", nil, []string{"pink", "yellow"}},
		{"dont like synonym", "I don't like grey", nil, []string{"gray"}},
		{"multi word alias", "never wear off-white", nil, []string{"cream"}},
		{"comma list", "avoid red, orange and purple", nil, []string{"red", "orange", "purple"}},
		{"only then except", "only black, no red", []string{"black"}, []string{"red"}},
		{"except then trailing only", "no red, black only", []string{"black"}, []string{"red"}},
		{"only wins", "I wear only navy. no navy or red", []string{"navy"}, []string{"red"}},
		{"not a fan", "not a fan of orange", nil, []string{"orange"}},
		{"no colors", "I love earth tones", nil, nil},
		{"empty", "", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := personalize.ParseColorRule(tt.text)
			assert.Equal(t, tt.only, got.Only)
			assert.Equal(t, tt.except, got.Except)
		})
	}
}

func TestColorRule_Allows(t *testing.T) {
	only := personalize.ColorRule{Only: []string{"black", "navy"}}
	assert.False(t, only.Allows("Light Grey"))
	assert.True(t, only.Allows("Navy Blue"))
	assert.True(t, only.Allows(""))
	assert.True(t, only.Allows("chartreuse"))

	except := personalize.ColorRule{Except: []string{"red"}}
	assert.False(t, except.Allows("bright red"))
	assert.True(t, except.Allows("black"))
}

func TestColorRule_Replacement(t *testing.T) {
	assert.Equal(t, "black", personalize.ColorRule{Only: []string{"black", "navy"}}.Replacement())
	assert.Equal(t, "navy", personalize.ColorRule{Except: []string{"black", "white"}}.Replacement())
	assert.Equal(t, "", personalize.ColorRule{Except: personalize.Neutrals}.Replacement())
}

func TestRecolor(t *testing.T) {
	assert.Equal(t, "Black Wool Sweater", personalize.Recolor("Red Wool Sweater", "red", "black"))
	assert.Equal(t, "navy marl tee", personalize.Recolor("grey marl tee", "gray", "navy"))
	assert.Equal(t, "plain tee", personalize.Recolor("plain tee", "chartreuse", "navy"))
}

func TestCanonicalColor(t *testing.T) {
	assert.Equal(t, "gray", personalize.CanonicalColor("Light Grey"))
	assert.Equal(t, "navy", personalize.CanonicalColor("navy blue"))
	assert.Equal(t, "cream", personalize.CanonicalColor("Off White"))
	assert.Equal(t, "", personalize.CanonicalColor("sandals"))
}

func TestParseFitRule(t *testing.T) {
	tests := []struct {
		text   string
		banned []string
	}{
		{"no skinny or cropped jeans", []string{"skinny", "cropped"}},
		{"I don't like oversized tops, love high waisted", []string{"oversized"}},
		{"Avoid wide leg", []string{"wide-leg"}},
		{"never anything bodycon", []string{"bodycon"}},
		{"love slim fit", nil},
		{"", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.banned, personalize.ParseFitRule(tt.text).Banned, "ParseFitRule(%q)", tt.text)
	}
}

func TestFitRule_StripAndMentions(t *testing.T) {
	rule := personalize.FitRule{Banned: []string{"skinny", "slim", "relaxed"}}

	assert.Equal(t, "Black jeans", rule.Strip("Skinny black jeans"))
	assert.Equal(t, "chinos", rule.Strip("slim-fit chinos"))
	assert.Equal(t, "Linen shirt", rule.Strip("Relaxed fit linen shirt"))
	assert.Equal(t, "Straight jeans", rule.Strip("Straight jeans"))
	assert.Equal(t, []string{"relaxed"}, rule.Mentions("Relaxed linen shirt"))
	assert.Empty(t, rule.Mentions("tailored trousers"))
}

func TestClassifyClimate(t *testing.T) {
	assert.Equal(t, personalize.ClimateHot, personalize.ClassifyClimate("Tropical humid"))
	assert.Equal(t, personalize.ClimateCold, personalize.ClassifyClimate("snowy winters"))
	assert.Equal(t, personalize.ClimateTemperate, personalize.ClassifyClimate("mild oceanic"))
	assert.Equal(t, personalize.ClimateTemperate, personalize.ClassifyClimate(""))
}

func TestClimateRule_Patch(t *testing.T) {
	hot := personalize.NewClimateRule("hot")
	cold := personalize.NewClimateRule("cold")
	mild := personalize.NewClimateRule("temperate")

	tests := []struct {
		rule  personalize.ClimateRule
		in    string
		want  string
		fired int
	}{
		{hot, "Wool overcoat", "Linen overcoat", 1},
		{hot, "navy puffer jacket", "navy lightweight jacket", 1},
		{hot, "Down jacket", "Lightweight jacket", 1},
		{hot, "cashmere thermal crewneck", "cotton breathable crewneck", 2},
		{hot, "green parka", "green rain jacket", 1},
		{cold, "leather sandals", "leather boots", 1},
		{cold, "white tank top", "white long-sleeve top", 1},
		{cold, "linen shorts", "wool trousers", 2},
		{mild, "wool coat", "wool coat", 0},
	}
	for _, tt := range tests {
		got, fired := tt.rule.Patch(tt.in)
		assert.Equal(t, tt.want, got, "Patch(%q)", tt.in)
		assert.Len(t, fired, tt.fired, "Patch(%q)", tt.in)
	}
}

func TestGenderLock(t *testing.T) {
	tests := []struct {
		query, gender, want string
	}{
		{"women's black blazer", "male", "men's black blazer"},
		{"Men's navy chinos", "male", "men's navy chinos"},
		{"navy chinos for men", "female", "women's navy chinos"},
		{"mens wool coat", "m", "men's wool coat"},
		{"ladies' silk blouse", "female", "women's silk blouse"},
		{"Women's tee", "unisex", "Women's tee"},
		{"Women's tee", "", "Women's tee"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, personalize.GenderLock(tt.query, tt.gender), "GenderLock(%q, %q)", tt.query, tt.gender)
	}
}

func TestGenderLock_Idempotent(t *testing.T) {
	once := personalize.GenderLock("slim black jeans", "female")
	assert.Equal(t, once, personalize.GenderLock(once, "female"))
}

func TestOppositeGenderSignal(t *testing.T) {
	assert.True(t, personalize.OppositeGenderSignal("https://shop.example.com/womens-dresses/123.jpg", "male"))
	assert.True(t, personalize.OppositeGenderSignal("Oxford Shirt for Men", "female"))
	assert.False(t, personalize.OppositeGenderSignal("Women's Silk Blouse", "female"))
	assert.False(t, personalize.OppositeGenderSignal("Classic Oxford Shirt", "female"))
	assert.False(t, personalize.OppositeGenderSignal("Men's Oxford", "unisex"))
}
