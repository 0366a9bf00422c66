package security

import (
	"fmt"
	"regexp"
	"strings"
)

// emailPattern is deliberately loose: something@something.tld, no whitespace.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsValidEmail reports whether addr looks like a deliverable email address.
func IsValidEmail(addr string) bool {
	return emailPattern.MatchString(addr)
}

// ParseRecipients splits a comma separated recipient list.
// Entries are trimmed and empty entries are dropped; order is preserved.
func ParseRecipients(raw string) []string {
	parts := strings.Split(raw, ",")
	recipients := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			recipients = append(recipients, p)
		}
	}
	return recipients
}

// ValidateRecipients returns an error naming the first malformed address.
func ValidateRecipients(recipients []string) error {
	for _, r := range recipients {
		if !IsValidEmail(r) {
			return fmt.Errorf("Invalid email format: %s", r)
		}
	}
	return nil
}

// NormalizeEmail returns the comparison form of an address.
func NormalizeEmail(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
