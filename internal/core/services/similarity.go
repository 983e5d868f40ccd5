package services

import "strings"

// textSimilarity returns a fuzzy similarity between two strings in
// [0,1] using the Sorensen-Dice coefficient over character bigrams.
// The measure is symmetric, and identical strings score 1. It is the
// single similarity measure shared by relevance scoring and scenario
// deduplication so their thresholds stay comparable.
func textSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if len(a) < 2 || len(b) < 2 {
		return 0
	}

	bigramsA := bigramCounts(a)
	bigramsB := bigramCounts(b)

	var intersection int
	for bg, countA := range bigramsA {
		if countB, ok := bigramsB[bg]; ok {
			if countA < countB {
				intersection += countA
			} else {
				intersection += countB
			}
		}
	}

	totalA := len(a) - 1
	totalB := len(b) - 1
	return 2 * float64(intersection) / float64(totalA+totalB)
}

// bigramCounts builds the character-bigram multiset of a string.
func bigramCounts(s string) map[string]int {
	counts := make(map[string]int, len(s))
	for i := 0; i+2 <= len(s); i++ {
		counts[s[i:i+2]]++
	}
	return counts
}

// boundedSimilarity compares at most maxLen characters per side.
// Whole-text comparison is a coarse signal; capping the input keeps the
// cost bounded for very large chunks.
func boundedSimilarity(a, b string, maxLen int) float64 {
	return textSimilarity(truncate(a, maxLen), truncate(b, maxLen))
}

func truncate(s string, maxLen int) string {
	if maxLen > 0 && len(s) > maxLen {
		return s[:maxLen]
	}
	return s
}

// keywordOverlap returns the fraction of wanted keywords that fuzzy-match
// any candidate keyword at or above the threshold, plus the matched
// wanted keywords. Returns 0 when either set is empty.
func keywordOverlap(candidates, wanted []string, threshold float64) (float64, []string) {
	if len(candidates) == 0 || len(wanted) == 0 {
		return 0, nil
	}

	var matched []string
	for _, w := range wanted {
		for _, c := range candidates {
			if c == w || textSimilarity(c, w) >= threshold {
				matched = append(matched, w)
				break
			}
		}
	}
	return float64(len(matched)) / float64(len(wanted)), matched
}

// normaliseText lower-cases and collapses whitespace for comparison.
func normaliseText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
