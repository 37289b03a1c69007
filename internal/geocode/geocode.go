// Package geocode resolves coordinates and addresses through an external
// geocoding provider, with a pool of API keys drawn from uniformly at
// random on every call and a Redis response cache in front of the
// provider to absorb repeat lookups for the same rounded coordinate.
package geocode

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/avishek-m/pricecompare/internal/domain"
	apperrors "github.com/avishek-m/pricecompare/pkg/errors"
	"github.com/avishek-m/pricecompare/pkg/httpclient"
)

const cacheTTL = 24 * time.Hour

// Client resolves locations via a forward/reverse geocoding API and a
// place-autocomplete endpoint, all gated behind a pool of API keys.
type Client struct {
	apiKeys        []string
	geocodeURL     string
	autocompleteURL string
	http           *httpclient.Client
	cache          *redis.Client
}

// Config configures a Client.
type Config struct {
	APIKeys         []string
	GeocodeURL      string
	AutocompleteURL string
}

// New builds a geocoding Client. cache may be nil, in which case every
// call reaches the live provider.
func New(cfg Config, cache *redis.Client) *Client {
	return &Client{
		apiKeys:         cfg.APIKeys,
		geocodeURL:      cfg.GeocodeURL,
		autocompleteURL: cfg.AutocompleteURL,
		http:            httpclient.New(httpclient.DefaultConfig()),
		cache:           cache,
	}
}

// randomAPIKey draws one key uniformly at random from the pool, freshly on
// every call. Unlike a cache or a package-level default-argument pattern,
// nothing about this selection is fixed across calls.
func (c *Client) randomAPIKey() (string, error) {
	if len(c.apiKeys) == 0 {
		return "", apperrors.Geocode("no map provider API keys configured")
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(c.apiKeys))))
	if err != nil {
		return "", apperrors.Geocode("failed to select API key: " + err.Error())
	}
	return c.apiKeys[n.Int64()], nil
}

type geocodeAPIResponse struct {
	Status  string `json:"status"`
	Results []struct {
		FormattedAddress string `json:"formatted_address"`
		PlaceID          string `json:"place_id"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
		AddressComponents []struct {
			LongName string   `json:"long_name"`
			Types    []string `json:"types"`
		} `json:"address_components"`
	} `json:"results"`
}

func (r *geocodeAPIResponse) postalCode() string {
	if len(r.Results) == 0 {
		return ""
	}
	for _, ac := range r.Results[0].AddressComponents {
		for _, t := range ac.Types {
			if t == "postal_code" {
				return ac.LongName
			}
		}
	}
	return ""
}

// Forward resolves a free-text address to a LocationDescriptor.
func (c *Client) Forward(ctx context.Context, address string) (*domain.LocationDescriptor, error) {
	cacheKey := "geocode:forward:" + address
	if desc, ok := c.readCache(ctx, cacheKey); ok {
		return desc, nil
	}

	key, err := c.randomAPIKey()
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("address", address)
	q.Set("key", key)

	desc, err := c.fetch(ctx, c.geocodeURL+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, desc)
	return desc, nil
}

// Reverse resolves a (lat, lon) pair to a LocationDescriptor.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (*domain.LocationDescriptor, error) {
	cacheKey := fmt.Sprintf("geocode:reverse:%.5f,%.5f", lat, lon)
	if desc, ok := c.readCache(ctx, cacheKey); ok {
		return desc, nil
	}

	key, err := c.randomAPIKey()
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("latlng", fmt.Sprintf("%f,%f", lat, lon))
	q.Set("key", key)

	desc, err := c.fetch(ctx, c.geocodeURL+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	desc.Lat, desc.Lon = lat, lon
	c.writeCache(ctx, cacheKey, desc)
	return desc, nil
}

func (c *Client) fetch(ctx context.Context, reqURL string) (*domain.LocationDescriptor, error) {
	resp, err := c.http.Get(ctx, reqURL)
	if err != nil {
		return nil, apperrors.Geocode("request failed: " + err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.Geocode(fmt.Sprintf("unexpected HTTP status %d", resp.StatusCode))
	}

	var parsed geocodeAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, apperrors.Geocode("failed to decode response: " + err.Error())
	}
	if parsed.Status != "OK" || len(parsed.Results) == 0 {
		return nil, apperrors.Geocode("provider returned status " + parsed.Status)
	}

	result := parsed.Results[0]
	return &domain.LocationDescriptor{
		Lat:              result.Geometry.Location.Lat,
		Lon:              result.Geometry.Location.Lng,
		FormattedAddress: result.FormattedAddress,
		PostalCode:       parsed.postalCode(),
		PlaceID:          result.PlaceID,
	}, nil
}

func (c *Client) readCache(ctx context.Context, key string) (*domain.LocationDescriptor, bool) {
	if c.cache == nil {
		return nil, false
	}
	data, err := c.cache.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var desc domain.LocationDescriptor
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, false
	}
	return &desc, true
}

func (c *Client) writeCache(ctx context.Context, key string, desc *domain.LocationDescriptor) {
	if c.cache == nil {
		return
	}
	data, err := json.Marshal(desc)
	if err != nil {
		return
	}
	_ = c.cache.Set(ctx, key, data, cacheTTL).Err()
}
