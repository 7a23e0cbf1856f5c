package chat

import (
	"regexp"
	"strings"
)

// emailPattern is deliberately loose: local@domain.tld with no whitespace
// and no extra "@". It is not RFC 5322; addresses such as "a@b.c" pass and
// quoted local parts are rejected.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidateEmail reports whether candidate looks like an email address.
// Surrounding whitespace is ignored.
func ValidateEmail(candidate string) bool {
	return emailPattern.MatchString(strings.TrimSpace(candidate))
}
