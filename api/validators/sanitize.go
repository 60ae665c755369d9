package validators

import "strings"

// SanitizeText normalizes free-text input such as cancellation reasons and
// payout notes: surrounding whitespace is dropped and the value is clamped to
// maxLen bytes.
func SanitizeText(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen > 0 && len(trimmed) > maxLen {
		return trimmed[:maxLen]
	}
	return trimmed
}
