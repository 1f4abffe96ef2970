// Package email holds small helpers for composing outbound mail. Delivery
// itself is a collaborator concern (internal/notifier).
package email

import (
	"strings"
	"unicode"
)

// DeriveNameFromEmail guesses a (first, last) display name from the local part
// of an address. Used for salutations when no profile name was captured.
func DeriveNameFromEmail(email string) (string, string) {
	localPart := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		localPart = email[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})

	if len(parts) == 0 {
		return "User", "User"
	}

	first := capitalize(parts[0])
	last := "User"
	if len(parts) > 1 {
		last = capitalize(parts[len(parts)-1])
	}

	return first, last
}

// Greeting returns a salutation line for outbound notification mail.
func Greeting(email string) string {
	first, _ := DeriveNameFromEmail(email)
	return "Dear " + first + ","
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
