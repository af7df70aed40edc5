package domain

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ParseNames splits raw input on newlines and commas, trims each token and
// drops the empty ones. Tokens are NFC-normalized so that the same name
// typed or imported with different Unicode compositions compares equal.
// Invalid UTF-8 sequences become U+FFFD. Duplicates are kept.
func ParseNames(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '\n' || r == '\r' || r == ','
	})

	names := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		names = append(names, norm.NFC.String(strings.ToValidUTF8(f, "\uFFFD")))
	}
	return names
}
