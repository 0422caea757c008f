package service

import (
	"strings"
	"unicode"
)

const ellipsis = "..."

// truncateRunes cuts s to at most maxLen characters
func truncateRunes(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen])
}

// truncateWithEllipsis cuts s to maxLen characters and marks the cut
func truncateWithEllipsis(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return strings.TrimRightFunc(string(r[:maxLen]), unicode.IsSpace) + ellipsis
}

// normalizeWhitespace collapses every whitespace run to a single space
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// lowerRunes lowercases rune by rune so indexes line up with the original text
func lowerRunes(r []rune) []rune {
	out := make([]rune, len(r))
	for i, c := range r {
		out[i] = unicode.ToLower(c)
	}
	return out
}

// indexRunes returns the first index of needle in haystack, or -1
func indexRunes(haystack, needle []rune) int {
	if len(needle) == 0 {
		return 0
	}
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j, c := range needle {
			if haystack[i+j] != c {
				continue outer
			}
		}
		return i
	}
	return -1
}
