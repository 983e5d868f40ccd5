package domain

import "strings"

// stopWords are common English terms excluded from keyword extraction.
// Chunk keywords exist for cheap matching without re-scanning full
// content, so high-frequency function words only add noise.
var stopWords = map[string]bool{
	"a": true, "about": true, "after": true, "all": true, "also": true,
	"an": true, "and": true, "any": true, "are": true, "as": true,
	"at": true, "be": true, "been": true, "but": true, "by": true,
	"can": true, "could": true, "do": true, "does": true, "each": true,
	"for": true, "from": true, "had": true, "has": true, "have": true,
	"how": true, "if": true, "in": true, "into": true, "is": true,
	"it": true, "its": true, "may": true, "more": true, "must": true,
	"not": true, "of": true, "on": true, "or": true, "other": true,
	"our": true, "should": true, "so": true, "some": true, "such": true,
	"than": true, "that": true, "the": true, "their": true, "then": true,
	"there": true, "these": true, "they": true, "this": true, "to": true,
	"use": true, "used": true, "using": true, "was": true, "we": true,
	"were": true, "when": true, "where": true, "which": true, "while": true,
	"will": true, "with": true, "you": true, "your": true,
}

// minKeywordLength filters out short tokens that rarely carry meaning.
const minKeywordLength = 3

// maxKeywords caps the keyword set per text to keep chunk records small.
const maxKeywords = 30

// ExtractKeywords returns the lower-cased, stop-word-filtered,
// length-filtered keyword set for a text, in first-seen order.
// Extraction is deterministic: identical text yields identical keywords.
func ExtractKeywords(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !isWordRune(r)
	})

	seen := make(map[string]bool, len(fields))
	keywords := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < minKeywordLength || stopWords[f] || seen[f] {
			continue
		}
		seen[f] = true
		keywords = append(keywords, f)
		if len(keywords) >= maxKeywords {
			break
		}
	}
	return keywords
}

func isWordRune(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r >= 'A' && r <= 'Z' || r == '_' || r > 127
}
