package main

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// slugify lowercases s, strips accents and joins the remaining
// alphanumeric runs with single dashes.
func slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		plain = strings.ToLower(s)
	}

	var b strings.Builder
	dash := false
	for _, r := range plain {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// productSlug is slugify(name), or a stable "p-" id derived from the name
// when nothing alphanumeric survives.
func productSlug(name string) string {
	if slug := slugify(name); slug != "" {
		return slug
	}
	return "p-" + uuid.NewSHA1(uuid.NameSpaceOID, []byte(strings.TrimSpace(name))).String()[:8]
}
