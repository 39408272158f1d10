// Package slug derives URL-safe identifiers from human readable labels.
package slug

import (
	"context"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ExistsFunc reports whether a slug is already taken by another record of the
// same entity type.
type ExistsFunc func(ctx context.Context, candidate string) (bool, error)

// Make lowercases text, strips diacritics and collapses every run of
// non-alphanumeric characters into a single dash.
func Make(text string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), text)
	if err != nil {
		folded = text
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	pendingDash := false
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}

// Unique returns the first free slug among base, base-1, base-2, ...
// fallback replaces base when the label has no usable characters.
func Unique(ctx context.Context, label, fallback string, exists ExistsFunc) (string, error) {
	base := Make(label)
	if base == "" {
		base = Make(fallback)
	}

	candidate := base
	for counter := 1; ; counter++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(counter)
	}
}
