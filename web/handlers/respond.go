// Package handlers provides the HTTP surface of the Lumikid memory core.
package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/lumikid/lumikid/internal/graph"
	"github.com/lumikid/lumikid/internal/llm"
	"github.com/lumikid/lumikid/internal/memory"
	"github.com/lumikid/lumikid/internal/profilestore"
)

// maxBodyBytes caps request bodies. Observations and reports are text; a
// megabyte is generous.
const maxBodyBytes = 1 << 20

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("handlers: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Code: code})
}

// writeServiceError maps the internal error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, memory.ErrValidation):
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error())
	case errors.Is(err, memory.ErrNotFound), errors.Is(err, profilestore.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, llm.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "LLM_RATE_LIMITED", err.Error())
	case errors.Is(err, llm.ErrSchemaViolation):
		writeError(w, http.StatusBadGateway, "EXTRACTION_FAILED", err.Error())
	case errors.Is(err, llm.ErrUnavailable):
		writeError(w, http.StatusBadGateway, "LLM_UNAVAILABLE", err.Error())
	case errors.Is(err, graph.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "GRAPH_UNAVAILABLE", err.Error())
	default:
		log.Printf("handlers: internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

// decodeJSON decodes a request body with a size cap and strict field checks.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
