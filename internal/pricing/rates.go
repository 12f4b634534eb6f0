package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// RateTable holds the three per-minute tiers and the regional country set.
type RateTable struct {
	local         decimal.Decimal
	regional      decimal.Decimal
	international decimal.Decimal
	regionalSet   map[string]struct{}
}

// NewRateTable builds a table; an empty regionalCountries uses DefaultRegionalCountries.
func NewRateTable(local, regional, international decimal.Decimal, regionalCountries []string) *RateTable {
	if len(regionalCountries) == 0 {
		regionalCountries = DefaultRegionalCountries
	}
	set := make(map[string]struct{}, len(regionalCountries))
	for _, c := range regionalCountries {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c != "" {
			set[c] = struct{}{}
		}
	}
	return &RateTable{
		local:         local,
		regional:      regional,
		international: international,
		regionalSet:   set,
	}
}

// DefaultRateTable is 0.001 local, 0.002 regional and 0.003 international.
func DefaultRateTable() *RateTable {
	return NewRateTable(
		decimal.RequireFromString("0.001"),
		decimal.RequireFromString("0.002"),
		decimal.RequireFromString("0.003"),
		nil,
	)
}

// Resolve picks the tier for a country pair. An empty country means absent.
// Order: absent party, same country, both regional, otherwise international.
func (t *RateTable) Resolve(toCountry, fromCountry string) (Tier, decimal.Decimal) {
	tier := TierInternational
	switch {
	case toCountry == "" || fromCountry == "":
	case toCountry == fromCountry:
		tier = TierLocal
	case t.IsRegional(toCountry) && t.IsRegional(fromCountry):
		tier = TierRegional
	}
	return tier, t.Rate(tier)
}

// Rate returns the per-minute rate of a tier.
func (t *RateTable) Rate(tier Tier) decimal.Decimal {
	switch tier {
	case TierLocal:
		return t.local
	case TierRegional:
		return t.regional
	default:
		return t.international
	}
}

func (t *RateTable) IsRegional(country string) bool {
	_, ok := t.regionalSet[country]
	return ok
}
