// Package embedding produces fixed-dimension vector embeddings for short
// strings via an external embedding API, with a cross-request Redis cache
// keyed by the normalized input text so repeated listing names across
// requests skip the network call entirely.
package embedding

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/avishek-m/pricecompare/pkg/errors"
	"github.com/avishek-m/pricecompare/pkg/httpclient"
)

const cacheTTL = 7 * 24 * time.Hour

// Client produces embeddings through a remote provider, batching requests
// and caching results by normalized text across calls.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	http    *httpclient.Client
	cache   *redis.Client
}

// Config configures a Client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// New builds an embedding Client. cache may be nil, in which case every
// text is embedded live on every call.
func New(cfg Config, cache *redis.Client) *Client {
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		http:    httpclient.New(httpclient.DefaultConfig()),
		cache:   cache,
	}
}

// EmbedOne embeds a single string.
func (c *Client) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || vectors[0] == nil {
		return nil, apperrors.Embedding(fmt.Errorf("no embedding returned for input"))
	}
	return vectors[0], nil
}

// EmbedMany embeds a batch of strings in one request, preserving input
// order. A cross-request cache (keyed by the normalized text's sha256) is
// consulted first; only cache misses reach the provider, which are then
// stitched back into their original positions.
func (c *Client) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	result := make([][]float32, len(texts))
	missIndexes := make([]int, 0, len(texts))
	missTexts := make([]string, 0, len(texts))

	for i, text := range texts {
		key := cacheKey(text, c.model)
		if vec, ok := c.readCache(ctx, key); ok {
			result[i] = vec
			continue
		}
		missIndexes = append(missIndexes, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return result, nil
	}

	fetched, err := c.fetch(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	for j, idx := range missIndexes {
		if j >= len(fetched) {
			// Backend returned fewer vectors than requested; leave the
			// corresponding slot nil so callers can mark it missing.
			continue
		}
		result[idx] = fetched[j]
		c.writeCache(ctx, cacheKey(texts[idx], c.model), fetched[j])
	}

	return result, nil
}

type embeddingAPIRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingAPIResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (c *Client) fetch(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody, err := json.Marshal(embeddingAPIRequest{Model: c.model, Input: texts})
	if err != nil {
		return nil, apperrors.Embedding(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, apperrors.Embedding(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, apperrors.Embedding(fmt.Errorf("request failed: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.Embedding(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var parsed embeddingAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, apperrors.Embedding(fmt.Errorf("decode response: %w", err))
	}

	// If the backend tags results with indices, those take precedence over
	// positional order (spec §4.3); otherwise assume response order mirrors
	// request order.
	out := make([][]float32, len(texts))
	tagged := false
	for i, d := range parsed.Data {
		if d.Index != i {
			tagged = true
			break
		}
	}
	if tagged {
		for _, d := range parsed.Data {
			if d.Index >= 0 && d.Index < len(out) {
				out[d.Index] = d.Embedding
			}
		}
		return out, nil
	}
	for i, d := range parsed.Data {
		if i >= len(out) {
			break
		}
		out[i] = d.Embedding
	}
	return out, nil
}

func cacheKey(text, model string) string {
	normalized := strings.ToLower(strings.TrimSpace(text))
	sum := sha256.Sum256([]byte(normalized))
	return "embedding:" + model + ":" + hex.EncodeToString(sum[:])
}

func (c *Client) readCache(ctx context.Context, key string) ([]float32, bool) {
	if c.cache == nil {
		return nil, false
	}
	data, err := c.cache.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil {
		return nil, false
	}
	return vec, true
}

func (c *Client) writeCache(ctx context.Context, key string, vec []float32) {
	if c.cache == nil || vec == nil {
		return
	}
	data, err := json.Marshal(vec)
	if err != nil {
		return
	}
	_ = c.cache.Set(ctx, key, data, cacheTTL).Err()
}
