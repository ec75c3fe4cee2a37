package policy

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/prn-tf/meridian-accounts/internal/domain"
)

// ValidIdentifier reports whether a proposed username or group name
// satisfies the safe-character policy: no colon or space anywhere, no
// leading hyphen, and no leading whitespace of any kind. Identifiers are
// otherwise unrestricted; punctuation-heavy names are accepted.
func ValidIdentifier(name string) bool {
	if name == "" {
		return false
	}
	if strings.ContainsAny(name, ": ") {
		return false
	}
	first := []rune(name)[0]
	if first == '-' || unicode.IsSpace(first) {
		return false
	}
	return true
}

// ValidateIdentifier checks a proposed identifier and records any
// violation as a field error. An empty value is reported as a missing
// required field rather than a disallowed one.
func ValidateIdentifier(value, field string, fe domain.FieldErrors) {
	if value == "" {
		fe.Add(field, MsgFieldRequired)
		return
	}
	if !ValidIdentifier(value) {
		fe.Add(field, fmt.Sprintf("%s is not allowed", value))
	}
}
