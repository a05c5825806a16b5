// Package fold normalizes text for case- and diacritic-insensitive matching.
package fold

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// đ has no combining-mark decomposition, so NFD alone leaves it intact.
var letterReplacer = strings.NewReplacer("đ", "d", "Đ", "d")

// String lower-cases s, strips combining marks, and collapses whitespace runs
// to a single space. "Bão Lũ  Quảng Ngãi" folds to "bao lu quang ngai".
func String(s string) string {
	s = letterReplacer.Replace(strings.ToLower(s))

	// Chains carry state and cannot be shared between goroutines.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(out), " ")
}

// Contains reports whether needle occurs in haystack after folding both.
func Contains(haystack, needle string) bool {
	n := String(needle)
	if n == "" {
		return false
	}
	return strings.Contains(String(haystack), n)
}

// ContainsAny reports whether any needle occurs in haystack after folding.
func ContainsAny(haystack string, needles []string) bool {
	h := String(haystack)
	for _, needle := range needles {
		n := String(needle)
		if n != "" && strings.Contains(h, n) {
			return true
		}
	}
	return false
}
