// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"runtime"
	"sync"
	"time"

	jobqueue "github.com/meskan/granary/internal/adapters/mq/queue"
	workerpool "github.com/meskan/granary/internal/adapters/mq/worker"
	repository "github.com/meskan/granary/internal/adapters/repository"
	"github.com/meskan/granary/internal/domain/allocation"
	"github.com/meskan/granary/internal/domain/dedupe"
	"github.com/meskan/granary/internal/domain/mintcap"
	"github.com/meskan/granary/internal/domain/model"
	"github.com/meskan/granary/internal/domain/types"
	"github.com/meskan/granary/pkg/logger"
	"github.com/meskan/granary/pkg/metrics"
)

// allocatorAdapter adapts the allocation entry point to worker.Allocator.
// The computation is pure, so the adapter carries no state.
type allocatorAdapter struct{}

func (allocatorAdapter) Allocate(ctx context.Context, job workerpool.Job) (allocation.Distribution, error) {
	return allocation.ComputeDistribution(job.CredTimestampMs, job.Policies, job.Identities)
}

// recorderAdapter adapts the earnings store to worker.Recorder.
type recorderAdapter struct {
	store repository.Store
}

func (a recorderAdapter) RecordDistribution(ctx context.Context, requestID string, dist allocation.Distribution) error {
	return a.store.SaveDistribution(ctx, requestID, dist)
}

// Service implements the API dependencies for the distribution system.
type Service struct {
	mu sync.RWMutex

	// Core components
	board      repository.Store
	deduper    dedupe.Deduper
	jobQueue   jobqueue.Queue
	workerPool *workerpool.Pool

	// Configuration
	workerCount      int
	queueSize        int
	dedupeSize       int
	snapshotInterval time.Duration
	topCacheSize     int

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithSnapshotInterval sets how often the earnings board publishes a
// read-optimized snapshot.
func WithSnapshotInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.snapshotInterval = interval
		}
	}
}

// WithTopCacheSize sets how many top entries each snapshot caches.
func WithTopCacheSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.topCacheSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU() * 2, // Default to 2x CPU cores
		queueSize:   100000,               // Default queue size
		dedupeSize:  50000,                // Default dedupe cache size
		logger:      nil,                  // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting distribution service...")

	// Initialize components
	var storeOpts []repository.Option
	if s.snapshotInterval > 0 {
		storeOpts = append(storeOpts, repository.WithSnapshotInterval(s.snapshotInterval))
	}
	if s.topCacheSize > 0 {
		storeOpts = append(storeOpts, repository.WithTopCacheSize(s.topCacheSize))
	}
	s.board = repository.NewTreapStore(ctx, storeOpts...)
	s.logger.Info(ctx, "using treap store")
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.jobQueue = jobqueue.NewInMemoryQueue(
		jobqueue.WithCapacity(s.queueSize),
		jobqueue.WithBufferSize(s.queueSize),
	)

	// Create and start the worker pool over the allocator and the store
	s.workerPool = workerpool.NewPool(s.workerCount, s.jobQueue, allocatorAdapter{}, recorderAdapter{store: s.board})
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "distribution service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping distribution service...")

	// Shut down the worker pool. This closes the queue first so workers
	// drain the remaining jobs and exit.
	if s.workerPool != nil {
		_ = s.workerPool.Shutdown(ctx)
	}

	// Close the earnings board
	if s.board != nil {
		if closer, ok := s.board.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
	}

	// Close the queue in case the pool never ran
	if s.jobQueue != nil {
		_ = s.jobQueue.Close()
	}

	s.started = false
	s.logger.Info(ctx, "distribution service stopped")
}

// SeenAndRecord atomically checks if a request id was seen and records it
// if not. Returns true if the request was already seen, false if it was
// newly recorded. This is the ONLY method for deduplication - thread-safe
// and atomic.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordDistributionDuplicate()
	}
	return seen
}

// Unrecord removes a request ID from the seen list, allowing it to be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// Enqueue submits a distribution job for asynchronous processing.
func (s *Service) Enqueue(ctx context.Context, job model.DistributionJob) bool {
	s.logger.Debug(ctx, "enqueueing distribution job",
		logger.String("requestID", job.RequestID),
		logger.Int64("credTimestampMs", job.CredTimestampMs),
		logger.Int("identities", len(job.Identities)),
		logger.Int("policies", len(job.Policies)),
	)

	success := s.jobQueue.Enqueue(ctx, job)
	if success {
		metrics.UpdateQueueSize(s.jobQueue.Len(ctx))
	} else {
		s.logger.Warn(ctx, "job queue rejected request",
			logger.String("requestID", job.RequestID),
		)
	}
	return success
}

// Distribution returns the recorded distribution for a request id.
func (s *Service) Distribution(ctx context.Context, requestID string) (allocation.Distribution, error) {
	return s.board.Distribution(ctx, requestID)
}

// TopEarners returns the top N earnings board entries.
func (s *Service) TopEarners(ctx context.Context, n int) ([]types.Entry, error) {
	entries, err := s.board.TopEarners(ctx, n)
	if err != nil {
		return nil, err
	}

	// Convert to API format
	apiEntries := make([]types.Entry, len(entries))
	for i, entry := range entries {
		apiEntries[i] = types.Entry{
			Rank:       entry.Rank,
			IdentityID: entry.IdentityID,
			Total:      entry.Total,
		}
	}

	return apiEntries, nil
}

// Earnings returns the rank and lifetime total for a given identity id.
func (s *Service) Earnings(ctx context.Context, id allocation.IdentityID) (types.Entry, error) {
	entry, err := s.board.Earnings(ctx, id)
	if err != nil {
		return types.Entry{}, err
	}

	return types.Entry{
		Rank:       entry.Rank,
		IdentityID: entry.IdentityID,
		Total:      entry.Total,
	}, nil
}

// ApplyMintCap evaluates the minting schedule against the weights and
// returns the capped weight map.
func (s *Service) ApplyMintCap(ctx context.Context, weights map[mintcap.Address]float64, schedule mintcap.Schedule, partition []mintcap.Window) (map[mintcap.Address]float64, error) {
	metrics.RecordMintCapRequest()

	adjusted, err := mintcap.ApplyCap(weights, schedule, partition)
	if err != nil {
		metrics.RecordMintCapError()
		s.logger.Warn(ctx, "mint cap evaluation rejected", logger.Error(err))
		return nil, err
	}

	// Adjusted entries either shrank or were absent from the input, which
	// means a default weight was scaled.
	scaled := 0
	for addr, w := range adjusted {
		if orig, ok := weights[addr]; !ok || w != orig {
			scaled++
		}
	}
	if scaled > 0 {
		metrics.RecordMintCapScaledAddresses(scaled)
		s.logger.Debug(ctx, "mint cap scaled weights",
			logger.Int("addresses", scaled),
		)
	}

	return adjusted, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}

	if s.started {
		queueLen := s.jobQueue.Len(ctx)
		totalEarners := s.board.Count(ctx)
		totalDistributions := s.board.DistributionCount(ctx)

		stats["queueLength"] = queueLen
		stats["totalEarners"] = totalEarners
		stats["totalDistributions"] = totalDistributions

		// Snapshot reads take no lock.
		if snapshotter, ok := s.board.(interface{ Snapshot() *repository.Snapshot }); ok {
			snap := snapshotter.Snapshot()
			stats["snapshotEarners"] = len(snap.RankByIdentity)
			stats["snapshotTopCached"] = len(snap.TopCache)
		}

		// Update metrics
		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateTotalEarners(totalEarners)
		metrics.UpdateWorkerCount(s.workerCount)
	}

	return stats
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}
