package library

import (
	"strconv"
	"strings"
	"unicode"
)

// titleStopWords are skipped when choosing the key's title word.
var titleStopWords = map[string]bool{
	"a": true, "an": true, "the": true, "on": true, "in": true,
	"of": true, "for": true, "to": true, "and": true, "with": true,
}

// citationKeyBase derives the base key: first-author surname + year + first
// significant title word. Deterministic in its three inputs.
func citationKeyBase(title string, authors []string, year int) string {
	authorPart := "anonymous"
	if len(authors) > 0 && strings.TrimSpace(authors[0]) != "" {
		// Surname is the last whitespace-separated token after commas
		// become spaces, so both "Smith, Jane" and "Jane Smith" yield
		// "smith".
		name := strings.ReplaceAll(authors[0], ",", " ")
		fields := strings.Fields(name)
		if len(fields) > 0 {
			if part := alnumLower(fields[len(fields)-1]); part != "" {
				authorPart = part
			}
		}
	}

	yearPart := "nodate"
	if year > 0 {
		yearPart = strconv.Itoa(year)
	}

	titleWord := "paper"
	for _, word := range strings.Fields(title) {
		w := alnumLower(word)
		if w == "" || titleStopWords[w] {
			continue
		}
		titleWord = w
		break
	}

	return authorPart + yearPart + titleWord
}

// alnumLower strips everything but letters and digits and lowercases.
func alnumLower(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// foldTitle canonicalizes a title for dedup comparison.
func foldTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}
