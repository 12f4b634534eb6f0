package phone

import "strings"

// DialingCodes maps dialing prefixes (without "+") to ISO 3166-1 alpha-2 codes.
var DialingCodes = map[string]string{
	"234": "NG", "254": "KE", "233": "GH", "256": "UG", "250": "RW",
	"231": "LR", "27": "ZA", "251": "ET", "255": "TZ", "220": "GM",
	"221": "SN", "225": "CI", "226": "BF", "227": "NE", "228": "TG",
	"229": "BJ", "230": "MU", "232": "SL", "235": "TD", "236": "CF",
	"237": "CM", "238": "CV", "239": "ST", "240": "GQ", "241": "GA",
	"242": "CG", "243": "CD", "244": "AO", "245": "GW", "246": "IO",
	"247": "AC", "248": "SC", "249": "SD", "252": "SO", "253": "DJ",
	"257": "BI", "258": "MZ", "260": "ZM", "261": "MG", "262": "RE",
	"263": "ZW", "264": "NA", "265": "MW", "266": "LS", "267": "BW",
	"268": "SZ", "269": "KM", "290": "SH", "291": "ER", "297": "AW",
	"298": "FO", "299": "GL",
}

// Resolver performs longest-prefix lookups against a dialing-code table.
// It is immutable after construction and safe for concurrent use.
type Resolver struct {
	prefixes     map[string]string
	maxPrefixLen int
}

// NewResolver copies table; keys may be given with or without a leading "+".
func NewResolver(table map[string]string) *Resolver {
	r := &Resolver{prefixes: make(map[string]string, len(table))}
	for prefix, country := range table {
		prefix = strings.TrimPrefix(strings.TrimSpace(prefix), "+")
		if prefix == "" || country == "" {
			continue
		}
		r.prefixes[prefix] = strings.ToUpper(country)
		if len(prefix) > r.maxPrefixLen {
			r.maxPrefixLen = len(prefix)
		}
	}
	return r
}

// DefaultResolver uses DialingCodes.
func DefaultResolver() *Resolver {
	return NewResolver(DialingCodes)
}

// Country returns the country for a canonical number. ok is false when no prefix matches.
func (r *Resolver) Country(number string) (country string, ok bool) {
	digits := strings.TrimPrefix(number, "+")
	n := r.maxPrefixLen
	if len(digits) < n {
		n = len(digits)
	}
	for l := n; l > 0; l-- {
		if c, found := r.prefixes[digits[:l]]; found {
			return c, true
		}
	}
	return "", false
}

// Countries lists every country code the table covers.
func (r *Resolver) Countries() []string {
	seen := make(map[string]struct{}, len(r.prefixes))
	out := make([]string, 0, len(r.prefixes))
	for _, c := range r.prefixes {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
