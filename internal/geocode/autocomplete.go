package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	apperrors "github.com/avishek-m/pricecompare/pkg/errors"
)

type autocompleteAPIResponse struct {
	Status      string `json:"status"`
	Predictions []struct {
		Description string `json:"description"`
	} `json:"predictions"`
}

// Autocomplete delegates to the geocoding provider's place-autocomplete
// endpoint and dedupes results while preserving the provider's order.
func (c *Client) Autocomplete(ctx context.Context, query string) ([]string, error) {
	key, err := c.randomAPIKey()
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("input", query)
	q.Set("key", key)

	resp, err := c.http.Get(ctx, c.autocompleteURL+"?"+q.Encode())
	if err != nil {
		return nil, apperrors.Geocode("autocomplete request failed: " + err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.Geocode(fmt.Sprintf("autocomplete unexpected HTTP status %d", resp.StatusCode))
	}

	var parsed autocompleteAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, apperrors.Geocode("failed to decode autocomplete response: " + err.Error())
	}
	if parsed.Status != "OK" && parsed.Status != "ZERO_RESULTS" {
		return nil, apperrors.Geocode("autocomplete provider returned status " + parsed.Status)
	}

	seen := make(map[string]struct{}, len(parsed.Predictions))
	out := make([]string, 0, len(parsed.Predictions))
	for _, p := range parsed.Predictions {
		if _, dup := seen[p.Description]; dup {
			continue
		}
		seen[p.Description] = struct{}{}
		out = append(out, p.Description)
	}
	return out, nil
}
