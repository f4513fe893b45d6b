package id

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
)

// NewID32 returns exactly 32 hex characters (no separators/prefixes).
func NewID32() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// NewApplicationNumber returns a public application number of the form
// LOS<yyyymmdd><6 uppercase hex>, e.g. LOS20260901A3F09B.
func NewApplicationNumber(t time.Time) string {
	b := make([]byte, 3)
	_, _ = rand.Read(b)
	return "LOS" + t.UTC().Format("20060102") + strings.ToUpper(hex.EncodeToString(b))
}
