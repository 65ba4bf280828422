package service

import (
	"fmt"
	"strings"
)

// normalizeDoc strips everything but digits so differently punctuated
// inputs for the same document compare equal.
func normalizeDoc(doc string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, doc)
}

// normalizeRNC is the canonical digits-only form of an RNC (or cédula).
func normalizeRNC(rnc string) string {
	return normalizeDoc(rnc)
}

// formatRNC returns the display form of a Dominican tax id: 9 digits for
// an RNC, 11 for a cédula. Anything else is returned as-is.
func formatRNC(value string) string {
	digits := normalizeDoc(value)
	switch len(digits) {
	case 9:
		return fmt.Sprintf("%s-%s-%s", digits[:3], digits[3:8], digits[8:])
	case 11:
		return fmt.Sprintf("%s-%s-%s", digits[:3], digits[3:10], digits[10:])
	}
	return value
}
