// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/meskan/granary/internal/domain/allocation"
	"github.com/meskan/granary/internal/domain/dedupe"
	"github.com/meskan/granary/internal/domain/model"
)

// DistributionDependencies defines the interface for distribution processing
type DistributionDependencies interface {
	dedupe.Deduper
	Enqueue(ctx context.Context, job model.DistributionJob) bool
	Distribution(ctx context.Context, requestID string) (allocation.Distribution, error)
}

// DistributionsHandler handles distribution submission and retrieval
type DistributionsHandler struct {
	deps DistributionDependencies
}

// NewDistributionsHandler creates a new distributions handler
func NewDistributionsHandler(deps DistributionDependencies) *DistributionsHandler {
	return &DistributionsHandler{deps: deps}
}

// HandlePostDistribution handles POST /distributions requests
func (h *DistributionsHandler) HandlePostDistribution(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	var req distributionRequest
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	// Idempotency check - mark as seen first
	if h.deps.SeenAndRecord(r.Context(), req.RequestID) {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true, RequestID: req.RequestID})
		return
	}

	// Try to enqueue for async processing
	if ok := h.deps.Enqueue(r.Context(), req.job()); !ok {
		// Rollback the "seen" status since enqueue failed
		h.deps.Unrecord(r.Context(), req.RequestID)
		writeError(w, http.StatusTooManyRequests, "backpressure", ErrBackpressure)
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Duplicate: false, RequestID: req.RequestID})
}

// HandleGetDistribution handles GET /distributions/{request_id} requests
func (h *DistributionsHandler) HandleGetDistribution(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	// Extract path parameter after /distributions/
	requestID := strings.TrimPrefix(r.URL.Path, "/distributions/")
	if requestID == "" || strings.Contains(requestID, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	dist, err := h.deps.Distribution(r.Context(), requestID)
	if err != nil {
		// Accepted jobs stay 404 until a worker records the result, so
		// clients poll this endpoint after a 202.
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, distributionResponse{RequestID: requestID, Distribution: dist})
}
