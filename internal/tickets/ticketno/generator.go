// Package ticketno derives human-readable ticket numbers from a ticket
// category and a uniqueness seed (the order's txRef). Generation is pure:
// the same seed always yields the same number, so concurrent or retried
// issuance attempts converge on one value before the store's create-if-absent
// insert settles who wins. Uniqueness is ultimately enforced by that insert,
// not by this package.
package ticketno

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strings"
)

// serialCode tags every number with the conference series.
const serialCode = "ATIN"

// digitSpace is 10^12: wide enough that accidental collision across
// unrelated seeds is negligible at conference scale.
const digitSpace = 1_000_000_000_000

var prefixByType = map[string]string{
	"conference": "CONF",
	"workshop":   "WRK",
	"premium":    "PREM",
	"executive":  "EXEC",
	"dinner":     "DINE",
}

// Generate returns a ticket number of the form {PREFIX}-ATIN{12 digits}.
// The prefix comes from the ticket category; the digits are a deterministic
// fold of the seed.
func Generate(ticketType, seed string) string {
	sum := sha256.Sum256([]byte(seed))
	n := binary.BigEndian.Uint64(sum[:8]) % digitSpace
	return fmt.Sprintf("%s-%s%012d", Prefix(ticketType), serialCode, n)
}

// Prefix maps a ticket category label to its short code. Labels are matched
// on their first word, case-insensitively, so "Conference Access" and
// "conference" resolve alike. Unknown categories fall back to the first four
// letters of the label, uppercased.
func Prefix(ticketType string) string {
	key := strings.ToLower(strings.TrimSpace(ticketType))
	if idx := strings.IndexAny(key, " -_"); idx > 0 {
		key = key[:idx]
	}
	if p, ok := prefixByType[key]; ok {
		return p
	}

	fallback := strings.ToUpper(key)
	if len(fallback) > 4 {
		fallback = fallback[:4]
	}
	if fallback == "" {
		fallback = "TCKT"
	}
	return fallback
}
