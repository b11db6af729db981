// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"github.com/meskan/granary/internal/domain/mintcap"
)

// MintCapDependencies defines the interface for minting cap evaluation.
type MintCapDependencies interface {
	ApplyMintCap(ctx context.Context, weights map[mintcap.Address]float64, s mintcap.Schedule, partition []mintcap.Window) (map[mintcap.Address]float64, error)
}

// MintCapHandler handles minting cap requests.
type MintCapHandler struct {
	deps MintCapDependencies
}

// NewMintCapHandler creates a new mint cap handler.
func NewMintCapHandler(deps MintCapDependencies) *MintCapHandler {
	return &MintCapHandler{deps: deps}
}

// mintCapRequest mirrors the wire schema for POST /mintcap.
type mintCapRequest struct {
	Schedule  mintcap.Schedule `json:"schedule"`
	Weights   []weightPayload  `json:"weights"`
	Partition []mintcap.Window `json:"partition"`
}

// weightPayload pairs an address with its weight. Weights travel as an
// array because a JSON object keyed by composite addresses has no stable
// wire form.
type weightPayload struct {
	Address mintcap.Address `json:"address"`
	Weight  float64         `json:"weight"`
}

type mintCapResponse struct {
	Adjusted []weightPayload `json:"adjusted"`
}

// HandleApplyCap handles POST /mintcap requests. Cap evaluation is pure
// computation, so the endpoint answers synchronously instead of queueing.
func (h *MintCapHandler) HandleApplyCap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	var req mintCapRequest
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	weights := make(map[mintcap.Address]float64, len(req.Weights))
	for _, p := range req.Weights {
		if _, ok := weights[p.Address]; ok {
			writeError(w, http.StatusBadRequest, "bad_request", errors.New("duplicate weight address"))
			return
		}
		weights[p.Address] = p.Weight
	}

	adjusted, err := h.deps.ApplyMintCap(r.Context(), weights, req.Schedule, req.Partition)
	if err != nil {
		if isCapValidation(err) {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}

	out := make([]weightPayload, 0, len(adjusted))
	for addr, weight := range adjusted {
		out = append(out, weightPayload{Address: addr, Weight: weight})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })

	writeJSON(w, http.StatusOK, mintCapResponse{Adjusted: out})
}

// isCapValidation reports whether the error is one of the cap input
// validation kinds, which map to 400 rather than 500.
func isCapValidation(err error) bool {
	for _, kind := range []error{
		mintcap.ErrInvalidAddress,
		mintcap.ErrBadSchedule,
		mintcap.ErrPrefixConflict,
		mintcap.ErrUnorderedPeriods,
		mintcap.ErrUnsupportedGranularity,
		mintcap.ErrInvalidCeiling,
		mintcap.ErrInvalidPartition,
		mintcap.ErrInvalidWeight,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
