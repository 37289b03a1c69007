package matching

import (
	"regexp"
	"strings"

	"github.com/avishek-m/pricecompare/internal/domain"
)

const lexicalSimThreshold = 0.80

var punctuationPattern = regexp.MustCompile(`[^\w\s]`)

// normalizeForLexical lowercases and strips punctuation, collapsing
// whitespace, per spec §4.6's fallback-path normalization.
func normalizeForLexical(s string) string {
	s = strings.ToLower(s)
	s = punctuationPattern.ReplaceAllString(s, "")
	return collapseSpaces(s)
}

// lcsLength computes the length of the longest common subsequence between
// two strings using the standard O(n*m) dynamic-programming table.
func lcsLength(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	n, m := len(ra), len(rb)
	if n == 0 || m == 0 {
		return 0
	}
	prev := make([]int, m+1)
	curr := make([]int, m+1)
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[m]
}

// LexicalSimilarity returns a normalized longest-common-subsequence ratio
// between two strings: 2*lcs / (len(a)+len(b)), in [0,1]. Empty inputs on
// both sides yield 1; exactly one empty yields 0.
func LexicalSimilarity(a, b string) float64 {
	na, nb := normalizeForLexical(a), normalizeForLexical(b)
	la, lb := len([]rune(na)), len([]rune(nb))
	if la == 0 && lb == 0 {
		return 1
	}
	if la == 0 || lb == 0 {
		return 0
	}
	lcs := lcsLength(na, nb)
	return 2 * float64(lcs) / float64(la+lb)
}

// matchLexical is the fallback grouping path used when the embedding
// provider is unavailable. Grouping follows the same single-pass,
// all-three-conditions rule as the embedding path, substituting
// LexicalSimilarity for cosine similarity; query_similarity is treated as
// 0 throughout, so ranking degrades to (-store_count, min_price,
// min_quantity_value).
func matchLexical(_ string, listings []domain.ProductListing) []domain.ProductGroup {
	used := make([]bool, len(listings))
	var groups []domain.ProductGroup

	for i := range listings {
		if used[i] {
			continue
		}
		used[i] = true
		group := newGroup(listings[i], 0)
		platforms := map[domain.Platform]bool{listings[i].Platform: true}

		for j := i + 1; j < len(listings); j++ {
			if used[j] || platforms[listings[j].Platform] {
				continue
			}
			if !allMatchLexical(listings[i], listings[j]) {
				continue
			}
			used[j] = true
			platforms[listings[j].Platform] = true
			addToGroup(&group, listings[j])
		}
		groups = append(groups, group)
	}
	return rank(groups)
}

func allMatchLexical(a, b domain.ProductListing) bool {
	if !PriceClose(a.Price, b.Price, priceTolerance) {
		return false
	}
	if !QuantitySimilar(a.Quantity, b.Quantity, quantityTolerance) {
		return false
	}
	return LexicalSimilarity(a.Name, b.Name) >= lexicalSimThreshold
}
