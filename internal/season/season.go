// Package season maps calendar months to seasons and diffs a seasonal capsule
// wardrobe template against a user's wardrobe.
package season

import (
	"strings"
	"time"
)

// Season of the year.
type Season string

const (
	Winter Season = "winter"
	Spring Season = "spring"
	Summer Season = "summer"
	Autumn Season = "autumn"
)

// Title returns the capitalized season name.
func (s Season) Title() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// Hemisphere selects the month-to-season mapping.
type Hemisphere string

const (
	North Hemisphere = "north"
	South Hemisphere = "south"
)

// ParseHemisphere accepts "south", "southern", "s"; anything else is North.
func ParseHemisphere(v string) Hemisphere {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "south", "southern", "s":
		return South
	default:
		return North
	}
}

var northern = [12]Season{
	time.January - 1:   Winter,
	time.February - 1:  Winter,
	time.March - 1:     Spring,
	time.April - 1:     Spring,
	time.May - 1:       Spring,
	time.June - 1:      Summer,
	time.July - 1:      Summer,
	time.August - 1:    Summer,
	time.September - 1: Autumn,
	time.October - 1:   Autumn,
	time.November - 1:  Autumn,
	time.December - 1:  Winter,
}

var opposite = map[Season]Season{
	Winter: Summer,
	Summer: Winter,
	Spring: Autumn,
	Autumn: Spring,
}

// ForMonth returns the season for month in the given hemisphere.
// Out-of-range months are clamped into 1..12.
func ForMonth(month time.Month, h Hemisphere) Season {
	idx := (int(month) - 1) % 12
	if idx < 0 {
		idx += 12
	}
	s := northern[idx]
	if h == South {
		return opposite[s]
	}
	return s
}

// ForDate is ForMonth(t.Month(), h).
func ForDate(t time.Time, h Hemisphere) Season {
	return ForMonth(t.Month(), h)
}
