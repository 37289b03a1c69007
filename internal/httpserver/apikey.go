package httpserver

import (
	"crypto/rand"
	"encoding/base64"
	"math/big"
	"net/http"
	"time"

	"github.com/avishek-m/pricecompare/pkg/httputil"
)

// APIKeyHandler serves POST /get-api-key's time-obfuscated map-key
// endpoint. Grounded on original_source/backend/utils/main_functions.py's
// get_api_key: pick a random key from the configured pool, then
// base64-encode it once per hour of the current 12-hour clock (1-12
// iterations), so the wire value changes every hour without the client
// ever needing the raw key.
type APIKeyHandler struct {
	keyPool []string
}

func NewAPIKeyHandler(keyPool []string) *APIKeyHandler {
	return &APIKeyHandler{keyPool: keyPool}
}

// obfuscateKey base64-encodes key once per hour of clock's 12-hour
// representation (1-12, never 0).
func obfuscateKey(key string, clock time.Time) string {
	hour := clock.Hour() % 12
	if hour == 0 {
		hour = 12
	}
	encoded := []byte(key)
	for i := 0; i < hour; i++ {
		buf := make([]byte, base64.StdEncoding.EncodedLen(len(encoded)))
		base64.StdEncoding.Encode(buf, encoded)
		encoded = buf
	}
	return string(encoded)
}

func randomKey(pool []string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(pool))))
	if err != nil {
		return "", err
	}
	return pool[n.Int64()], nil
}

// GetAPIKey handles POST /get-api-key.
func (h *APIKeyHandler) GetAPIKey(w http.ResponseWriter, r *http.Request) {
	if len(h.keyPool) == 0 {
		http.Error(w, "no map provider keys configured", http.StatusInternalServerError)
		return
	}

	key, err := randomKey(h.keyPool)
	if err != nil {
		http.Error(w, "failed to select an api key", http.StatusInternalServerError)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, obfuscateKey(key, time.Now()))
}
