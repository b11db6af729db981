// Package worker defines worker contracts for asynchronous distribution
// computation and recording.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/meskan/granary/internal/adapters/mq/queue"
	"github.com/meskan/granary/internal/domain/allocation"
	"github.com/meskan/granary/internal/domain/grain"
	"github.com/meskan/granary/internal/domain/model"
	"github.com/meskan/granary/pkg/logger"
	"github.com/meskan/granary/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 20 // multiplier for runtime.NumCPU()
	metricsUpdateInterval   = 5 * time.Second
	workerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Job abstracts what workers read off the queue.
// Using the model.DistributionJob type for consistency.
type Job = model.DistributionJob

// Allocator computes a full distribution for a job's policies and roster.
type Allocator interface {
	Allocate(ctx context.Context, job Job) (allocation.Distribution, error)
}

// Recorder persists a computed distribution under its request id and
// credits every receipt to the earnings board.
type Recorder interface {
	RecordDistribution(ctx context.Context, requestID string, dist allocation.Distribution) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker processes distribution jobs using the provided interfaces.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	// It will process any remaining jobs before stopping.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for processing distribution jobs.
type InMemoryWorker struct {
	queue     Queue
	allocator Allocator
	recorder  Recorder
	name      string
	processed *atomic.Int64 // shared pool counter, may be nil

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	// Logging
	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, allocator Allocator, recorder Recorder, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		allocator: allocator,
		recorder:  recorder,
		name:      "worker", // default name
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"), // will be updated by options
	}

	// Apply all options
	for _, opt := range opts {
		opt(w)
	}

	// Set up logger with worker name if not already set
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer func() {
		close(w.done)
	}()

	jobChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobChan:
			if !ok {
				// Channel closed, worker should stop
				return
			}

			// Process the job
			if err := w.processJob(ctx, job); err != nil {
				w.logger.Error(ctx, "error processing job", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	// Signal shutdown
	close(w.shutdown)

	// Wait for worker to finish or context to timeout
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processJob computes and records a single distribution.
func (w *InMemoryWorker) processJob(ctx context.Context, job queue.Job) error {
	// Track overall processing latency
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordWorkerProcessingLatency(float64(latency))
	}()

	// Track allocation latency separately from recording
	allocStart := time.Now()
	dist, err := w.allocator.Allocate(ctx, job)
	allocLatency := time.Since(allocStart).Milliseconds()

	metrics.RecordAllocationLatency(float64(allocLatency))

	if err != nil {
		metrics.RecordAllocationError()
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "allocation_error")
		metrics.RecordErrorByType("allocation_error", "high")
		if errors.Is(err, allocation.ErrConservation) {
			metrics.RecordConservationViolation()
		}
		w.logger.Error(ctx, "allocation failed for request",
			logger.String("requestID", job.RequestID),
			logger.Error(err),
		)
		return fmt.Errorf("failed to allocate request %s: %w", job.RequestID, err)
	}

	// Record the distribution and credit the earnings board
	if err := w.recorder.RecordDistribution(ctx, job.RequestID, dist); err != nil {
		metrics.RecordBoardError()
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "record_error")
		metrics.RecordErrorByType("record_error", "high")
		w.logger.Error(ctx, "recording failed for request",
			logger.String("requestID", job.RequestID),
			logger.Error(err),
		)
		return fmt.Errorf("recording distribution failed: %w", err)
	}

	metrics.RecordBoardUpdate()
	metrics.RecordDistributionProcessed()

	receipts := 0
	total := grain.Zero
	for _, a := range dist.Allocations {
		receipts += len(a.Receipts)
		for _, r := range a.Receipts {
			total = total.Add(r.Amount)
		}
	}
	metrics.RecordReceiptsEmitted(receipts)
	metrics.RecordGrainDistributed(total.Float64())

	if w.processed != nil {
		w.processed.Add(1)
	}
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers   []*InMemoryWorker
	queue     Queue
	allocator Allocator
	recorder  Recorder

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	// Metrics tracking
	processedCount    atomic.Int64
	lastProcessedTime time.Time

	// Logging
	logger logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, q Queue, allocator Allocator, recorder Recorder) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers:           make([]*InMemoryWorker, workerCount),
		queue:             q,
		allocator:         allocator,
		recorder:          recorder,
		shutdown:          make(chan struct{}),
		done:              make(chan struct{}),
		lastProcessedTime: time.Now(),
		logger:            logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			q,
			allocator,
			recorder,
			WithName("worker-"+strconv.Itoa(i)),
			withProcessedCounter(&pool.processedCount),
		)
	}

	// Initialize worker metrics
	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(workerCount)
	metrics.UpdateWorkerIdleCount(0)
	metrics.UpdateWorkerJobsPerSecond(0.0)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}

	// Start metrics updater
	go p.startMetricsUpdater(ctx)
}

// startMetricsUpdater starts a background goroutine that updates worker metrics.
func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			p.updateMetrics()
		}
	}
}

// updateMetrics updates worker-related metrics.
func (p *Pool) updateMetrics() {
	now := time.Now()
	elapsed := now.Sub(p.lastProcessedTime).Seconds()
	if elapsed > 0 {
		jobsPerSecond := float64(p.processedCount.Swap(0)) / elapsed
		metrics.UpdateWorkerJobsPerSecond(jobsPerSecond)
	}
	p.lastProcessedTime = now
}

// Stop gracefully stops all workers.
func (p *Pool) Stop() {
	// Signal shutdown to all workers
	close(p.shutdown)

	// Wait for all workers to finish
	for _, worker := range p.workers {
		select {
		case <-worker.done:
			// Worker finished
		case <-time.After(workerShutdownTimeout):
			// Worker timeout
		}
	}
}

// Shutdown gracefully shuts down the entire worker pool.
func (p *Pool) Shutdown(ctx context.Context) error {
	// First close the queue to stop new jobs
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	// Signal shutdown to all workers
	close(p.shutdown)

	// Wait for all workers to finish or context to timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, worker := range p.workers {
		select {
		case <-worker.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	return nil
}
