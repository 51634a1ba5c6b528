// Package privacy redacts personal identifiers from text before it leaves
// the machine for a model endpoint.
package privacy

import "regexp"

var redactions = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`), "[EMAIL_REDACTED]"},
	{regexp.MustCompile(`\+?[0-9][0-9\s\-()]{7,}[0-9]`), "[PHONE_REDACTED]"},
}

// Sanitize replaces email addresses and phone numbers with redaction
// markers.
func Sanitize(text string) string {
	for _, r := range redactions {
		text = r.pattern.ReplaceAllString(text, r.replacement)
	}
	return text
}
