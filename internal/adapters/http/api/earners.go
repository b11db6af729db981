// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"
)

// EarnersDependencies defines the interface for earnings board queries
type EarnersDependencies interface {
	TopEarners(ctx context.Context, n int) ([]Entry, error)
}

// EarnersHandler handles top-earner requests
type EarnersHandler struct {
	deps     EarnersDependencies
	maxLimit int
}

// NewEarnersHandler creates a new earners handler
func NewEarnersHandler(deps EarnersDependencies, maxLimit int) *EarnersHandler {
	return &EarnersHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGetEarners handles GET /earners?limit=N requests
func (h *EarnersHandler) HandleGetEarners(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	limitStr := r.URL.Query().Get("limit")
	n, err := strconv.Atoi(limitStr)
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", ErrBadRequest)
		return
	}
	entries, err := h.deps.TopEarners(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
