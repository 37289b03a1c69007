package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/avishek-m/pricecompare/internal/domain"
	"github.com/avishek-m/pricecompare/internal/orchestrator"
	apperrors "github.com/avishek-m/pricecompare/pkg/errors"
	"github.com/avishek-m/pricecompare/pkg/httputil"
)

// SearchHandler serves POST /get-search-results.
type SearchHandler struct {
	orchestrator *orchestrator.Orchestrator
	logger       *slog.Logger
}

func NewSearchHandler(o *orchestrator.Orchestrator, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{orchestrator: o, logger: logger}
}

// compareRequest is the wire shape of POST /get-search-results' body
// (spec §6): {item_name, lat, lon, credentials}.
type compareRequest struct {
	ItemName    string          `json:"item_name"`
	Lat         float64         `json:"lat"`
	Lon         float64         `json:"lon"`
	Credentials json.RawMessage `json:"credentials"`
}

// statusEnvelope wraps every search/autocomplete response in the
// {"status": "success", "data": ...} shape spec §6 names.
type statusEnvelope struct {
	Status string `json:"status"`
	Data   any    `json:"data"`
}

// Compare handles POST /get-search-results, returning the bit-exact
// SearchResult response schema (spec §6).
func (h *SearchHandler) Compare(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}
	if req.ItemName == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("item_name is required"), h.logger)
		return
	}

	credentials, err := domain.UnmarshalCredentialBundle(req.Credentials)
	if err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid credentials: "+err.Error()), h.logger)
		return
	}

	result, err := h.orchestrator.Compare(r.Context(), req.ItemName, req.Lat, req.Lon, credentials)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, statusEnvelope{Status: "success", Data: result})
}
