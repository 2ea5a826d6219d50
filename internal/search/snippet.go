package search

import (
	"strings"
	"unicode/utf8"

	"github.com/krasmussen37/ess/internal/domain"
)

// Snippet window: snippetBefore bytes of context ahead of the match,
// snippetAfter behind it, snippetFallback characters when the query does
// not literally occur in the body.
const (
	snippetBefore   = 50
	snippetAfter    = 90
	snippetFallback = 140
)

// buildSnippet extracts a short window around the first case-insensitive
// occurrence of query in the body text (or the preview when no body
// exists). Window bounds are clamped to rune boundaries so a multi-byte
// character is never split. An empty query yields no snippet.
func buildSnippet(email domain.Email, query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return ""
	}

	body := strings.TrimSpace(email.BodyText)
	if body == "" {
		body = strings.TrimSpace(email.Preview)
	}
	if body == "" {
		return ""
	}

	pos := strings.Index(strings.ToLower(body), strings.ToLower(query))
	if pos < 0 {
		runes := []rune(body)
		if len(runes) > snippetFallback {
			runes = runes[:snippetFallback]
		}
		return string(runes)
	}

	start := floorRuneBoundary(body, pos-snippetBefore)
	end := ceilRuneBoundary(body, pos+len(query)+snippetAfter)
	return strings.TrimSpace(body[start:end])
}

// floorRuneBoundary walks index down to the nearest UTF-8 rune start.
func floorRuneBoundary(value string, index int) int {
	if index < 0 {
		return 0
	}
	if index >= len(value) {
		return len(value)
	}
	for index > 0 && !utf8.RuneStart(value[index]) {
		index--
	}
	return index
}

// ceilRuneBoundary walks index up to the nearest UTF-8 rune start (or the
// end of the string).
func ceilRuneBoundary(value string, index int) int {
	if index < 0 {
		return 0
	}
	if index >= len(value) {
		return len(value)
	}
	for index < len(value) && !utf8.RuneStart(value[index]) {
		index++
	}
	return index
}
