// Package phone normalizes international numbers and resolves them to countries.
package phone

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var ErrInvalidNumber = errors.New("invalid phone number")

// canonical is "+" followed by a non-zero digit and up to 14 more digits.
var canonical = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// Normalize strips every non-digit and prefixes "+".
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw) + 1)
	b.WriteByte('+')
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Valid reports whether number is already in canonical international form.
func Valid(number string) bool {
	return canonical.MatchString(number)
}

// Parse normalizes raw and validates the result.
func Parse(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidNumber)
	}
	n := Normalize(raw)
	if !Valid(n) {
		return "", fmt.Errorf("%w: %q", ErrInvalidNumber, raw)
	}
	return n, nil
}
