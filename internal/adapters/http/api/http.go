// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/meskan/granary/internal/adapters/repository"
	"github.com/meskan/granary/internal/domain/allocation"
	"github.com/meskan/granary/internal/domain/dedupe"
	"github.com/meskan/granary/internal/domain/grain"
	"github.com/meskan/granary/internal/domain/mintcap"
	"github.com/meskan/granary/internal/domain/model"
	"github.com/meskan/granary/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	dedupe.Deduper

	// Enqueue pushes a distribution job for async processing. Returns false on backpressure.
	Enqueue(ctx context.Context, job model.DistributionJob) bool

	// Read operations expose computed distributions and the earnings board.
	Distribution(ctx context.Context, requestID string) (allocation.Distribution, error)
	TopEarners(ctx context.Context, n int) ([]Entry, error)
	Earnings(ctx context.Context, id allocation.IdentityID) (Entry, error)

	// ApplyMintCap caps weights against a minting schedule synchronously.
	ApplyMintCap(ctx context.Context, weights map[mintcap.Address]float64, s mintcap.Schedule, partition []mintcap.Window) (map[mintcap.Address]float64, error)
}

// Entry mirrors the read shape returned by earnings board queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler        *HealthHandler
	statsHandler         *StatsHandler
	distributionsHandler *DistributionsHandler
	earnersHandler       *EarnersHandler
	rankHandler          *RankHandler
	mintCapHandler       *MintCapHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxEarnersLimit int) *Server {
	return &Server{
		healthHandler:        NewHealthHandler(),
		statsHandler:         NewStatsHandler(statsProvider),
		distributionsHandler: NewDistributionsHandler(deps),
		earnersHandler:       NewEarnersHandler(deps, maxEarnersLimit),
		rankHandler:          NewRankHandler(deps),
		mintCapHandler:       NewMintCapHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/distributions", MetricsMiddleware(s.distributionsHandler.HandlePostDistribution, "distributions"))
	mux.HandleFunc("/distributions/", MetricsMiddleware(s.distributionsHandler.HandleGetDistribution, "distribution"))
	mux.HandleFunc("/earners", MetricsMiddleware(s.earnersHandler.HandleGetEarners, "earners"))
	mux.HandleFunc("/rank/", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
	mux.HandleFunc("/mintcap", MetricsMiddleware(s.mintCapHandler.HandleApplyCap, "mintcap"))
}

// distributionRequest mirrors the wire schema for POST /distributions.
type distributionRequest struct {
	RequestID       string              `json:"request_id"`
	CredTimestampMs int64               `json:"cred_timestamp_ms"`
	Identities      []identityPayload   `json:"identities"`
	Policies        []allocation.Policy `json:"policies"`
}

// identityPayload is one roster row: a stable id, the cred series over the
// interval sequence, and how much the identity was already paid.
type identityPayload struct {
	ID   string       `json:"id"`
	Cred []float64    `json:"cred"`
	Paid grain.Amount `json:"paid"`
}

func (d distributionRequest) validate() error {
	switch {
	case strings.TrimSpace(d.RequestID) == "":
		return errors.New("missing request_id")
	case d.CredTimestampMs <= 0:
		return errors.New("missing cred_timestamp_ms")
	case len(d.Identities) == 0:
		return errors.New("missing identities")
	case len(d.Policies) == 0:
		return errors.New("missing policies")
	}
	for _, p := range d.Identities {
		if strings.TrimSpace(p.ID) == "" {
			return errors.New("missing identity id")
		}
	}
	return nil
}

// job converts the request into the queue payload. Deep roster validation
// stays with the allocator; the handler only rejects structural problems.
func (d distributionRequest) job() model.DistributionJob {
	ids := make([]allocation.Identity, len(d.Identities))
	for i, p := range d.Identities {
		ids[i] = allocation.Identity{
			ID:   allocation.IdentityID(p.ID),
			Cred: p.Cred,
			Paid: p.Paid,
		}
	}
	return model.DistributionJob{
		RequestID:       d.RequestID,
		CredTimestampMs: d.CredTimestampMs,
		Identities:      ids,
		Policies:        d.Policies,
		SubmittedAt:     time.Now(),
	}
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
	RequestID string `json:"request_id"`
}

type distributionResponse struct {
	RequestID    string                  `json:"request_id"`
	Distribution allocation.Distribution `json:"distribution"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// isNotFound translates upstream not-found errors to 404.
func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
