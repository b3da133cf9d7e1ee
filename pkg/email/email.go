// Package email holds small helpers over email addresses.
package email

import (
	"strings"
	"unicode"
)

// DeriveNameParts guesses a first/last name from the local part of an email
// address. Used when an admin creates an account without supplying name
// fields; the user can correct the guess from their profile.
func DeriveNameParts(address string) (first, last string) {
	local := address
	if at := strings.IndexByte(address, '@'); at >= 0 {
		// An empty local part leaves nothing to derive a name from.
		local = address[:at]
	}

	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	if len(parts) == 0 {
		return "User", "User"
	}

	first = capitalize(parts[0])
	last = "User"
	if len(parts) > 1 {
		last = capitalize(parts[len(parts)-1])
	}
	return first, last
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
