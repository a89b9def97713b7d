package leads

import "strings"

// NormalizeE164 strips formatting characters from a phone number. The leading
// + is kept only when the caller supplied one; a number without a country
// code is deliberately left invalid so Validate can reject it.
func NormalizeE164(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	digits := sanitizePhone(value)
	if digits == "" {
		return ""
	}
	if strings.HasPrefix(value, "+") {
		return "+" + digits
	}
	return digits
}

// sanitizePhone strips everything except digits.
func sanitizePhone(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
