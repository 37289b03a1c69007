package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleGeocodeResponse = `{
	"status": "OK",
	"results": [{
		"formatted_address": "MG Road, Bengaluru, Karnataka 560001, India",
		"place_id": "ChIJ123",
		"geometry": {"location": {"lat": 12.9756, "lng": 77.6068}},
		"address_components": [{"long_name": "560001", "types": ["postal_code"]}]
	}]
}`

func newTestServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestForward_ParsesResult(t *testing.T) {
	server := newTestServer(t, sampleGeocodeResponse, http.StatusOK)
	defer server.Close()

	c := New(Config{APIKeys: []string{"k1", "k2"}, GeocodeURL: server.URL}, nil)
	desc, err := c.Forward(context.Background(), "MG Road Bengaluru")

	require.NoError(t, err)
	assert.InDelta(t, 12.9756, desc.Lat, 0.0001)
	assert.Equal(t, "560001", desc.PostalCode)
	assert.Equal(t, "ChIJ123", desc.PlaceID)
}

func TestReverse_OverridesLatLonWithInput(t *testing.T) {
	server := newTestServer(t, sampleGeocodeResponse, http.StatusOK)
	defer server.Close()

	c := New(Config{APIKeys: []string{"k1"}, GeocodeURL: server.URL}, nil)
	desc, err := c.Reverse(context.Background(), 12.0, 77.0)

	require.NoError(t, err)
	assert.Equal(t, 12.0, desc.Lat)
	assert.Equal(t, 77.0, desc.Lon)
}

func TestForward_NonOKStatusFails(t *testing.T) {
	server := newTestServer(t, `{"status":"REQUEST_DENIED","results":[]}`, http.StatusOK)
	defer server.Close()

	c := New(Config{APIKeys: []string{"k1"}, GeocodeURL: server.URL}, nil)
	_, err := c.Forward(context.Background(), "anywhere")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "REQUEST_DENIED"))
}

func TestForward_NoAPIKeysConfigured(t *testing.T) {
	c := New(Config{APIKeys: nil, GeocodeURL: "http://unused"}, nil)
	_, err := c.Forward(context.Background(), "anywhere")
	require.Error(t, err)
}

func TestForward_UsesCacheOnSecondCall(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(sampleGeocodeResponse))
	}))
	defer server.Close()

	cache := newTestRedis(t)
	c := New(Config{APIKeys: []string{"k1"}, GeocodeURL: server.URL}, cache)

	_, err := c.Forward(context.Background(), "MG Road")
	require.NoError(t, err)
	_, err = c.Forward(context.Background(), "MG Road")
	require.NoError(t, err)

	assert.Equal(t, 1, hits)
}

func TestAutocomplete_DedupesPreservingOrder(t *testing.T) {
	server := newTestServer(t, `{
		"status": "OK",
		"predictions": [
			{"description": "MG Road, Bengaluru"},
			{"description": "Indiranagar, Bengaluru"},
			{"description": "MG Road, Bengaluru"}
		]
	}`, http.StatusOK)
	defer server.Close()

	c := New(Config{APIKeys: []string{"k1"}, AutocompleteURL: server.URL}, nil)
	results, err := c.Autocomplete(context.Background(), "bengaluru")

	require.NoError(t, err)
	assert.Equal(t, []string{"MG Road, Bengaluru", "Indiranagar, Bengaluru"}, results)
}

func TestAutocomplete_ZeroResultsIsNotAnError(t *testing.T) {
	server := newTestServer(t, `{"status":"ZERO_RESULTS","predictions":[]}`, http.StatusOK)
	defer server.Close()

	c := New(Config{APIKeys: []string{"k1"}, AutocompleteURL: server.URL}, nil)
	results, err := c.Autocomplete(context.Background(), "xyzzy")
	require.NoError(t, err)
	assert.Empty(t, results)
}
