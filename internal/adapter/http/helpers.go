// Package http exposes the claim pipeline over a chi-routed REST API.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/joebrashear31/RCM-Automation-Project/internal/domain"
	"github.com/joebrashear31/RCM-Automation-Project/internal/domain/claim"
)

// bodyLimit caps request body size for JSON endpoints.
const bodyLimit = 1 << 20

// readJSON decodes a JSON request body with a size limit.
func readJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		if err.Error() == "http: request body too large" {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		} else {
			writeError(w, http.StatusBadRequest, "invalid request body")
		}
		return v, false
	}
	return v, true
}

// urlParam is a short alias for chi.URLParam.
func urlParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

type errorResponse struct {
	Error string `json:"error"`
}

// transitionErrorResponse carries the valid next states so the caller
// can correct and retry.
type transitionErrorResponse struct {
	Error     string         `json:"error"`
	From      claim.Status   `json:"from_status"`
	To        claim.Status   `json:"to_status"`
	ValidNext []claim.Status `json:"valid_next_states"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeDomainError(w http.ResponseWriter, err error, fallbackMsg string) {
	var ite *claim.InvalidTransitionError
	switch {
	case errors.As(err, &ite):
		writeJSON(w, http.StatusConflict, transitionErrorResponse{
			Error:     ite.Error(),
			From:      ite.From,
			To:        ite.To,
			ValidNext: ite.ValidNext,
		})
	case errors.Is(err, domain.ErrUnknownClaim), errors.Is(err, domain.ErrUnknownDecision),
		errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, fallbackMsg)
	case errors.Is(err, domain.ErrAlreadyExecuted):
		writeError(w, http.StatusConflict, "decision has already been executed or overridden")
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "resource was modified by another request")
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, strings.TrimSuffix(err.Error(), ": "+domain.ErrValidation.Error()))
	default:
		slog.Error("unhandled domain error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
