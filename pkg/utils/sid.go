package utils

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// NewSID returns prefix followed by 32 lowercase hex characters, e.g. "CA5f3c…".
func NewSID(prefix string) string {
	id := uuid.New()
	return prefix + hex.EncodeToString(id[:])
}

// NewSecret returns 64 lowercase hex characters drawn from two random UUIDs.
func NewSecret() string {
	a, b := uuid.New(), uuid.New()
	return hex.EncodeToString(a[:]) + hex.EncodeToString(b[:])
}
