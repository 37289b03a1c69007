package matching

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/avishek-m/pricecompare/internal/domain"
)

const (
	priceTolerance    = 0.20
	quantityTolerance = 0.10
	nameSimThreshold  = 0.90
	maxGroups         = 35
)

// Embedder produces vector embeddings for a batch of strings, preserving
// input order. Implemented by *embedding.Client; declared as an interface
// here so the matching engine can be tested without a live provider.
type Embedder interface {
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
}

// Match groups listings into ProductGroups ranked against the query. It
// embeds the query and every distinct listing name in a single batch call;
// if the embedder fails, it falls back to lexical similarity (spec §4.6).
func Match(ctx context.Context, embedder Embedder, query string, listings []domain.ProductListing) []domain.ProductGroup {
	if len(listings) == 0 {
		return nil
	}

	vectors, queryVector, ok := embedAll(ctx, embedder, query, listings)
	if !ok {
		return matchLexical(query, listings)
	}
	return rank(groupByEmbedding(listings, vectors, queryVector))
}

// embedAll deduplicates listing names (caching within the request, per
// spec §9) and embeds the query plus every distinct name in one call.
func embedAll(ctx context.Context, embedder Embedder, query string, listings []domain.ProductListing) (perListing [][]float32, queryVec []float32, ok bool) {
	if embedder == nil {
		return nil, nil, false
	}

	order := make([]string, 0, len(listings)+1)
	seen := make(map[string]int)
	addText := func(text string) int {
		key := strings.ToLower(strings.TrimSpace(text))
		if idx, exists := seen[key]; exists {
			return idx
		}
		idx := len(order)
		seen[key] = idx
		order = append(order, text)
		return idx
	}

	queryIdx := addText(query)
	listingIdx := make([]int, len(listings))
	for i, l := range listings {
		listingIdx[i] = addText(l.Name)
	}

	vectors, err := embedder.EmbedMany(ctx, order)
	if err != nil {
		return nil, nil, false
	}

	perListing = make([][]float32, len(listings))
	for i, idx := range listingIdx {
		if idx < len(vectors) {
			perListing[i] = vectors[idx]
		}
	}
	if queryIdx < len(vectors) {
		queryVec = vectors[queryIdx]
	}
	return perListing, queryVec, true
}

// CosineSimilarity computes cosine similarity between two vectors using
// explicit norms; a zero norm on either side yields 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// groupByEmbedding keeps at most one offer per platform in each group —
// a parent listing and its near-identical child variant from the same
// platform must never merge into a single group entry.
func groupByEmbedding(listings []domain.ProductListing, vectors [][]float32, queryVector []float32) []domain.ProductGroup {
	used := make([]bool, len(listings))
	var groups []domain.ProductGroup

	for i := range listings {
		if used[i] {
			continue
		}
		used[i] = true
		group := newGroup(listings[i], CosineSimilarity(vectors[i], queryVector))
		platforms := map[domain.Platform]bool{listings[i].Platform: true}

		for j := i + 1; j < len(listings); j++ {
			if used[j] || platforms[listings[j].Platform] {
				continue
			}
			if !allMatch(listings[i], listings[j], vectors[i], vectors[j]) {
				continue
			}
			used[j] = true
			platforms[listings[j].Platform] = true
			addToGroup(&group, listings[j])
		}
		groups = append(groups, group)
	}
	return groups
}

func allMatch(a, b domain.ProductListing, va, vb []float32) bool {
	if !PriceClose(a.Price, b.Price, priceTolerance) {
		return false
	}
	if !QuantitySimilar(a.Quantity, b.Quantity, quantityTolerance) {
		return false
	}
	return CosineSimilarity(va, vb) >= nameSimThreshold
}

func newGroup(representative domain.ProductListing, querySimilarity float64) domain.ProductGroup {
	g := domain.ProductGroup{
		Name:            representative.Name,
		Image:           representative.ImageURL,
		QuerySimilarity: querySimilarity,
	}
	addToGroup(&g, representative)
	return g
}

func addToGroup(g *domain.ProductGroup, l domain.ProductListing) {
	g.Price = append(g.Price, domain.GroupedPrice{
		Store:    l.Platform.DisplayName(),
		Price:    l.Price,
		Quantity: l.Quantity.Raw,
		URL:      l.URL,
	})
	g.StoreCount = len(g.Price)
	if !g.MinPriceOk || (l.PriceOk && l.Price < g.MinPrice) {
		if l.PriceOk {
			g.MinPrice = l.Price
			g.MinPriceOk = true
		}
	}
	if !g.MinQuantityOk || (l.Quantity.Ok && l.Quantity.Value < g.MinQuantityVal) {
		if l.Quantity.Ok {
			g.MinQuantityVal = l.Quantity.Value
			g.MinQuantityOk = true
		}
	}
}

// rank sorts groups by (-query_similarity, -store_count, min_price,
// min_quantity_value) ascending, with null numeric fields sorting last,
// then truncates to maxGroups (spec §4.6).
func rank(groups []domain.ProductGroup) []domain.ProductGroup {
	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if a.QuerySimilarity != b.QuerySimilarity {
			return a.QuerySimilarity > b.QuerySimilarity
		}
		if a.StoreCount != b.StoreCount {
			return a.StoreCount > b.StoreCount
		}
		if a.MinPriceOk != b.MinPriceOk {
			return a.MinPriceOk
		}
		if a.MinPriceOk && a.MinPrice != b.MinPrice {
			return a.MinPrice < b.MinPrice
		}
		if a.MinQuantityOk != b.MinQuantityOk {
			return a.MinQuantityOk
		}
		if a.MinQuantityOk && a.MinQuantityVal != b.MinQuantityVal {
			return a.MinQuantityVal < b.MinQuantityVal
		}
		return false
	})
	if len(groups) > maxGroups {
		groups = groups[:maxGroups]
	}
	return groups
}
