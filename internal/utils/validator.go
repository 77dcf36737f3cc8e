package utils

import (
	"regexp"
	"strings"
)

// emailRegex accepts RFC 5322 shaped addresses: a dot-atom local part, "@", and a
// hostname made of LDH labels. A TLD is not required.
var emailRegex = regexp.MustCompile(
	"^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$",
)

const MinPasswordLength = 8

// ValidateEmail validates an email address
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// ValidatePassword reports whether password satisfies the minimum length.
func ValidatePassword(password string) bool {
	return len(password) >= MinPasswordLength
}

// SanitizeEmail trims and lowercases an email address. It is idempotent.
func SanitizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
