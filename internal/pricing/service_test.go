package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
)

type fakeCountries map[string]string

func (f fakeCountries) Country(number string) (string, bool) {
	c, ok := f[number]
	return c, ok
}

func TestBillableSeconds(t *testing.T) {
	if got := billableSeconds(1, 0, 60); got != 60 {
		t.Fatalf("expected 60, got %d", got)
	}
	if got := billableSeconds(60, 0, 60); got != 60 {
		t.Fatalf("expected 60, got %d", got)
	}
	if got := billableSeconds(61, 0, 60); got != 120 {
		t.Fatalf("expected 120, got %d", got)
	}
	if got := billableSeconds(5, 30, 60); got != 60 {
		t.Fatalf("expected 60, got %d", got)
	}
	if got := billableSeconds(0, 30, 60); got != 0 {
		t.Fatalf("expected 0 for zero duration, got %d", got)
	}
}

func TestBillableMinutesFromSeconds(t *testing.T) {
	if got := billableMinutesFromSeconds(1); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
	if got := billableMinutesFromSeconds(60); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
	if got := billableMinutesFromSeconds(61); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
}

func TestPrice_RoundsUpToWholeMinutes(t *testing.T) {
	got := Price(90, decimal.RequireFromString("0.001"))
	if !got.Equal(decimal.RequireFromString("0.002")) {
		t.Fatalf("expected 0.002, got %s", got)
	}
	if FormatPrice(got) != "0.0020" {
		t.Fatalf("expected 0.0020, got %s", FormatPrice(got))
	}
	if !Price(0, decimal.RequireFromString("0.003")).IsZero() {
		t.Fatalf("expected zero price for zero duration")
	}
}

func TestRateTable_Resolve(t *testing.T) {
	rt := DefaultRateTable()

	if tier, rate := rt.Resolve("NG", "NG"); tier != TierLocal || rate.String() != "0.001" {
		t.Fatalf("expected local 0.001, got %s %s", tier, rate)
	}
	if tier, rate := rt.Resolve("KE", "NG"); tier != TierRegional || rate.String() != "0.002" {
		t.Fatalf("expected regional 0.002, got %s %s", tier, rate)
	}
	if tier, rate := rt.Resolve("US", "NG"); tier != TierInternational || rate.String() != "0.003" {
		t.Fatalf("expected international 0.003, got %s %s", tier, rate)
	}
	if tier, _ := rt.Resolve("", ""); tier != TierInternational {
		t.Fatalf("expected absent countries to be international, got %s", tier)
	}
	if tier, _ := rt.Resolve("NG", ""); tier != TierInternational {
		t.Fatalf("expected one absent country to be international, got %s", tier)
	}
}

func TestRateTable_CustomRegionalSet(t *testing.T) {
	rt := NewRateTable(decimal.NewFromInt(1), decimal.NewFromInt(2), decimal.NewFromInt(3), []string{"fr", "de"})
	if tier, _ := rt.Resolve("FR", "DE"); tier != TierRegional {
		t.Fatalf("expected regional for configured set, got %s", tier)
	}
	if tier, _ := rt.Resolve("KE", "NG"); tier != TierInternational {
		t.Fatalf("expected international outside configured set, got %s", tier)
	}
}

func TestService_Route(t *testing.T) {
	svc := NewService(fakeCountries{"+234801234567": "NG", "+254700123456": "KE"}, nil)

	r := svc.Route("+254700123456", "+234801234567")
	if r.ToCountry != "KE" || r.FromCountry != "NG" || r.Tier != TierRegional {
		t.Fatalf("unexpected route: %+v", r)
	}
	r = svc.Route("+15551234567", "+234801234567")
	if r.ToCountry != "" || r.Tier != TierInternational || r.Currency != Currency {
		t.Fatalf("unexpected route for unmatched number: %+v", r)
	}
}

func TestService_QuoteDuration(t *testing.T) {
	svc := NewService(nil, nil)
	q, err := svc.QuoteDuration(125, decimal.RequireFromString("0.002"))
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if q.BillableMinutes != 3 || q.BillableSeconds != 180 || FormatPrice(q.Total) != "0.0060" {
		t.Fatalf("unexpected quote: %+v", q)
	}
	if _, err := svc.QuoteDuration(-1, decimal.Zero); err == nil {
		t.Fatalf("expected error for negative duration")
	}
}
