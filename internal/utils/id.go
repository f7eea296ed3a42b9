package utils

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// NewToken returns a random connection token: a v4 UUID rendered as 32 hex
// characters, safe to use as a URL path segment.
func NewToken() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}
