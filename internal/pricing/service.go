package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrInvalidPricingReq = errors.New("invalid pricing request")

// CountryResolver maps a canonical number to a country code.
type CountryResolver interface {
	Country(number string) (string, bool)
}

// Service resolves routes and prices calls.
//
// Contract:
// - Pure calculation; no storage, no provider calls.
// - Resolution never fails: an unmatched number degrades to the international tier.
type Service struct {
	countries CountryResolver
	rates     *RateTable
}

func NewService(countries CountryResolver, rates *RateTable) *Service {
	if rates == nil {
		rates = DefaultRateTable()
	}
	return &Service{countries: countries, rates: rates}
}

// Route resolves both numbers and selects the tier and rate.
func (s *Service) Route(to, from string) Route {
	var toCountry, fromCountry string
	if s.countries != nil {
		toCountry, _ = s.countries.Country(to)
		fromCountry, _ = s.countries.Country(from)
	}
	tier, rate := s.rates.Resolve(toCountry, fromCountry)
	return Route{
		ToCountry:     toCountry,
		FromCountry:   fromCountry,
		Tier:          tier,
		RatePerMinute: rate,
		Currency:      Currency,
	}
}

// QuoteDuration prices durationSeconds at rate.
func (s *Service) QuoteDuration(durationSeconds int, rate decimal.Decimal) (Quote, error) {
	if durationSeconds < 0 || rate.IsNegative() {
		return Quote{}, ErrInvalidPricingReq
	}
	return NewQuote(durationSeconds, rate), nil
}

// Price is ceil(durationSeconds/60) * rate. Non-positive durations cost nothing.
func Price(durationSeconds int, rate decimal.Decimal) decimal.Decimal {
	return rate.Mul(decimal.NewFromInt(int64(billableMinutesFromSeconds(durationSeconds))))
}

// NewQuote builds the full breakdown behind Price.
func NewQuote(durationSeconds int, rate decimal.Decimal) Quote {
	billable := billableSeconds(durationSeconds, 0, 60)
	return Quote{
		DurationSeconds: durationSeconds,
		BillableSeconds: billable,
		BillableMinutes: billableMinutesFromSeconds(billable),
		RatePerMinute:   rate,
		Total:           Price(durationSeconds, rate),
		Currency:        Currency,
	}
}

// FormatPrice renders an amount the way it is exposed on the wire ("0.0020").
func FormatPrice(amount decimal.Decimal) string {
	return amount.StringFixed(PriceScale)
}

func billableSeconds(actualSec int, minSec int, incrementSec int) int {
	if actualSec <= 0 {
		return 0
	}
	if minSec <= 0 {
		minSec = 0
	}
	if incrementSec <= 0 {
		incrementSec = 60
	}

	sec := actualSec
	if sec < minSec {
		sec = minSec
	}

	// round up to nearest increment
	q := sec / incrementSec
	if sec%incrementSec != 0 {
		q++
	}
	return q * incrementSec
}

func billableMinutesFromSeconds(sec int) int {
	if sec <= 0 {
		return 0
	}
	m := sec / 60
	if sec%60 != 0 {
		m++
	}
	return m
}
