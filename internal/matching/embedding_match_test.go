package matching

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avishek-m/pricecompare/internal/domain"
)

// fakeEmbedder returns a fixed vector per input text, looked up by exact
// match (case-insensitive, trimmed) against a table the test supplies.
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) EmbedMany(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vectors[strings.ToLower(strings.TrimSpace(t))]
	}
	return out, nil
}

func listing(platform domain.Platform, name string, price int64, quantity string, url string) domain.ProductListing {
	return domain.ProductListing{
		Platform: platform,
		Name:     name,
		Price:    price,
		PriceOk:  true,
		Quantity: ParseQuantity(quantity),
		URL:      url,
	}
}

func TestMatch_IdenticalSKUAcrossTwoStores(t *testing.T) {
	listings := []domain.ProductListing{
		listing(domain.Blinkit, "Aashirvaad Atta 5 kg", 275, "5 kg", "https://blinkit.com/atta"),
		listing(domain.Zepto, "Aashirvaad Whole Wheat Atta 5kg", 280, "5kg", "https://zepto.com/atta"),
	}
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"aashirvaad atta":                   {1, 0},
		"aashirvaad atta 5 kg":              {0.99, 0.01},
		"aashirvaad whole wheat atta 5kg":   {0.98, 0.02},
	}}

	groups := Match(context.Background(), embedder, "aashirvaad atta", listings)

	require.Len(t, groups, 1)
	assert.Equal(t, int64(275), groups[0].MinPrice)
	assert.Equal(t, 2, groups[0].StoreCount)
	assert.Equal(t, "Blinkit", groups[0].Price[0].Store)
	assert.Equal(t, "Zepto", groups[0].Price[1].Store)
}

func TestMatch_SamePlatformListingsNeverShareAGroup(t *testing.T) {
	listings := []domain.ProductListing{
		listing(domain.BigBasket, "Aashirvaad Atta 5 kg", 275, "5 kg", "https://bigbasket.com/atta-parent"),
		listing(domain.BigBasket, "Aashirvaad Atta 5 kg", 275, "5 kg", "https://bigbasket.com/atta-child"),
	}
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"aashirvaad atta": {1, 0},
		"aashirvaad atta 5 kg": {1, 0},
	}}

	groups := Match(context.Background(), embedder, "aashirvaad atta", listings)

	require.Len(t, groups, 2)
	assert.Equal(t, 1, groups[0].StoreCount)
	assert.Equal(t, 1, groups[1].StoreCount)
}

func TestMatch_PriceToleranceBoundary(t *testing.T) {
	sameVec := map[string][]float32{"q": {1, 0}, "product x 1 kg": {1, 0}}

	beyond := []domain.ProductListing{
		listing(domain.Blinkit, "Product X 1 kg", 100, "1 kg", "u1"),
		listing(domain.Zepto, "Product X 1 kg", 121, "1 kg", "u2"),
	}
	groups := Match(context.Background(), &fakeEmbedder{vectors: sameVec}, "q", beyond)
	assert.Len(t, groups, 2)

	within := []domain.ProductListing{
		listing(domain.Blinkit, "Product X 1 kg", 100, "1 kg", "u1"),
		listing(domain.Zepto, "Product X 1 kg", 120, "1 kg", "u2"),
	}
	groups = Match(context.Background(), &fakeEmbedder{vectors: sameVec}, "q", within)
	assert.Len(t, groups, 1)
}

func TestMatch_QuantityUnitMismatch(t *testing.T) {
	sameVec := map[string][]float32{"q": {1, 0}, "product y": {1, 0}}
	listings := []domain.ProductListing{
		listing(domain.Blinkit, "Product Y", 100, "500 g", "u1"),
		listing(domain.Zepto, "Product Y", 100, "500 ml", "u2"),
	}
	groups := Match(context.Background(), &fakeEmbedder{vectors: sameVec}, "q", listings)
	assert.Len(t, groups, 2)
}

func TestMatch_ZeroListingsInZeroGroupsOut(t *testing.T) {
	groups := Match(context.Background(), &fakeEmbedder{}, "q", nil)
	assert.Empty(t, groups)
}

func TestMatch_OneListingYieldsOneGroupStoreCountOne(t *testing.T) {
	listings := []domain.ProductListing{listing(domain.DMart, "Solo Product", 50, "1 kg", "u1")}
	groups := Match(context.Background(), &fakeEmbedder{vectors: map[string][]float32{"q": {1}, "solo product": {1}}}, "q", listings)

	require.Len(t, groups, 1)
	assert.Equal(t, 1, groups[0].StoreCount)
}

func TestMatch_ResultCapAt35(t *testing.T) {
	vectors := map[string][]float32{"q": {1, 0, 0}}
	var listings []domain.ProductListing
	for i := 0; i < 40; i++ {
		name := "unique product " + strconv.Itoa(i)
		vectors[name] = orthogonalVector(i)
		listings = append(listings, listing(domain.Platform("PLATFORM"), name, int64(100+i), "1 kg", "u"))
	}
	groups := Match(context.Background(), &fakeEmbedder{vectors: vectors}, "q", listings)
	assert.Len(t, groups, 35)
}

func TestMatch_EmbeddingFailureFallsBackToLexical(t *testing.T) {
	listings := []domain.ProductListing{
		listing(domain.Blinkit, "Aashirvaad Atta 5 kg", 275, "5 kg", "u1"),
		listing(domain.Zepto, "Aashirvaad Atta 5 kg", 280, "5 kg", "u2"),
	}
	groups := Match(context.Background(), &fakeEmbedder{err: errors.New("provider down")}, "q", listings)

	require.Len(t, groups, 1)
	assert.Equal(t, float64(0), groups[0].QuerySimilarity)
}

func TestCosineSimilarity_ZeroNormIsZero(t *testing.T) {
	assert.Equal(t, float64(0), CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
	assert.Equal(t, float64(0), CosineSimilarity(nil, []float32{1}))
}

func TestCosineSimilarity_IdenticalVectorsIsOne(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{3, 4}, []float32{3, 4}), 1e-9)
}

func orthogonalVector(i int) []float32 {
	v := make([]float32, 40)
	v[i] = 1
	return v
}
