// Package phone provides contact-identifier utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "IN"

// Digits strips every non-digit character from a contact identifier.
// It is used identically on write and on lookup so that "+91 98765-43210"
// and "919876543210" address the same preference row. Empty input yields
// empty output.
func Digits(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DisplayE164 formats a contact identifier to E.164 for outbound display and
// logging. If the value does not parse as a valid phone number, the trimmed
// input is returned as-is.
func DisplayE164(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}
