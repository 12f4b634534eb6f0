package pricing

import "github.com/shopspring/decimal"

// Tier is the settlement class of a call, chosen from the two parties' countries.
type Tier string

const (
	TierLocal         Tier = "local"
	TierRegional      Tier = "regional"
	TierInternational Tier = "international"
)

// Currency is the unit every rate and price is expressed in.
const Currency = "USD"

// PriceScale is the number of decimals a price is rendered with.
const PriceScale = 4

// DefaultRegionalCountries is the built-in regional set.
var DefaultRegionalCountries = []string{
	"NG", "KE", "GH", "UG", "RW", "LR", "ZA", "ET", "TZ", "GM", "SN", "CI", "BF", "NE", "TG", "BJ",
	"MU", "SL", "TD", "CF", "CM", "CV", "ST", "GQ", "GA", "CG", "CD", "AO", "GW", "IO", "AC", "SC",
	"SD", "SO", "DJ", "BI", "MZ", "ZM", "MG", "RE", "ZW", "NA", "MW", "LS", "BW", "SZ", "KM", "SH",
	"ER", "AW", "FO", "GL",
}

// Route is the pricing outcome for a pair of numbers.
// Empty country fields mean the number fell outside the dialing table.
type Route struct {
	ToCountry     string          `json:"to_country,omitempty"`
	FromCountry   string          `json:"from_country,omitempty"`
	Tier          Tier            `json:"tier"`
	RatePerMinute decimal.Decimal `json:"rate_per_minute"`
	Currency      string          `json:"currency"`
}

// Quote is a priced duration.
type Quote struct {
	DurationSeconds int             `json:"duration_seconds"`
	BillableSeconds int             `json:"billable_seconds"`
	BillableMinutes int             `json:"billable_minutes"`
	RatePerMinute   decimal.Decimal `json:"rate_per_minute"`
	Total           decimal.Decimal `json:"total"`
	Currency        string          `json:"currency"`
}
