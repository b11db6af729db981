package repository

import (
	"context"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/meskan/granary/internal/domain/allocation"
	"github.com/meskan/granary/internal/domain/grain"
	"github.com/meskan/granary/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: lifetime total DESC, then identity ASC (deterministic).
// The comparator treats "less" as "ranks earlier", so an in-order
// traversal walks the board from highest earner to lowest. Totals are
// exact amounts, never floats, so identities whose earnings collide as
// float64 still order correctly.

// boardRecord holds one identity's accumulated earnings.
type boardRecord struct {
	total      grain.Amount
	receipts   int
	lastCredMs int64
}

// Snapshot represents an immutable snapshot of the earnings board.
type Snapshot struct {
	// Rank and total in O(1) for reads
	RankByIdentity  map[allocation.IdentityID]int
	TotalByIdentity map[allocation.IdentityID]grain.Amount

	// Fast top-K cache up to the configured cache size
	TopCache []Entry // sorted by total desc, identity asc
}

// treap node
type node struct {
	id    allocation.IdentityID
	total grain.Amount
	prio  uint64
	left  *node
	right *node
}

// less returns true if (aTotal, aID) should appear before (bTotal, bID)
// on the earnings board (higher earners first).
func less(aTotal grain.Amount, aID allocation.IdentityID, bTotal grain.Amount, bID allocation.IdentityID) bool {
	if c := aTotal.Cmp(bTotal); c != 0 {
		return c > 0 // larger total ranks earlier
	}
	return aID < bID // tie-breaker by id asc
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	return y
}

func insert(n *node, id allocation.IdentityID, total grain.Amount) *node {
	if n == nil {
		// Random priorities keep the tree balanced in expectation.
		return &node{id: id, total: total, prio: rand.Uint64()}
	}
	if less(total, id, n.total, n.id) {
		n.left = insert(n.left, id, total)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, total)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	return n
}

func deleteNode(n *node, id allocation.IdentityID, total grain.Amount) *node {
	if n == nil {
		return nil
	}
	if n.id == id && n.total.Cmp(total) == 0 {
		// Rotate the higher-priority child up until the node is a leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, total)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, total)
		}
	} else if less(total, id, n.total, n.id) {
		n.left = deleteNode(n.left, id, total)
	} else {
		n.right = deleteNode(n.right, id, total)
	}
	return n
}

// collectTopN appends up to limit entries in board order (highest totals first).
func collectTopN(n *node, limit int, board map[allocation.IdentityID]boardRecord, out *[]Entry) {
	if n == nil || len(*out) >= limit {
		return
	}

	// In-order traversal yields board order because the BST comparator
	// already handles the identity tie-break.
	collectTopN(n.left, limit, board, out)

	if len(*out) < limit {
		if rec, ok := board[n.id]; ok {
			*out = append(*out, Entry{
				IdentityID: n.id,
				Total:      rec.total,
				Receipts:   rec.receipts,
				LastCredMs: rec.lastCredMs,
			})
		}
	}

	if len(*out) < limit {
		collectTopN(n.right, limit, board, out)
	}
}

// collectAll appends every entry in board order (highest totals first).
func collectAll(n *node, board map[allocation.IdentityID]boardRecord, out *[]Entry) {
	if n == nil {
		return
	}
	collectAll(n.left, board, out)
	if rec, ok := board[n.id]; ok {
		*out = append(*out, Entry{
			IdentityID: n.id,
			Total:      rec.total,
			Receipts:   rec.receipts,
			LastCredMs: rec.lastCredMs,
		})
	}
	collectAll(n.right, board, out)
}

// assignRanks assigns dense ranks over entries already in board order.
// Identities with equal totals share a rank and the next distinct total
// takes the following rank.
func assignRanks(entries []Entry) {
	rank := 0
	for i := range entries {
		if i == 0 || entries[i].Total.Cmp(entries[i-1].Total) != 0 {
			rank++
		}
		entries[i].Rank = rank
	}
}

type TreapStore struct {
	mu               sync.RWMutex
	root             *node
	byIdentity       map[allocation.IdentityID]boardRecord
	byRequest        map[string]allocation.Distribution
	snapshotInterval time.Duration // how often to publish board snapshots
	topCacheSize     int           // maximum number of top entries kept in a snapshot

	// snapshot is an atomic pointer to the latest published Snapshot
	snapshot atomic.Pointer[Snapshot]

	// Periodic snapshot management
	wg       sync.WaitGroup
	stopChan chan struct{}
}

// NewTreapStore constructs a treap store with configuration options.
func NewTreapStore(ctx context.Context, opts ...Option) *TreapStore {
	s := &TreapStore{
		snapshotInterval: 1 * time.Second, // default snapshot interval
		topCacheSize:     500,             // default top cache size
		byIdentity:       make(map[allocation.IdentityID]boardRecord),
		byRequest:        make(map[string]allocation.Distribution),
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	// Initialize stop channel and start periodic snapshot goroutine
	s.stopChan = make(chan struct{})
	s.startPeriodicSnapshots(ctx)
	s.startMetricsUpdater(ctx)

	return s
}

// startPeriodicSnapshots starts a background goroutine that publishes snapshots at the configured interval.
func (s *TreapStore) startPeriodicSnapshots(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.snapshotInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.publishSnapshot()
			}
		}
	}()
}

// publishSnapshot rebuilds and publishes a new snapshot.
func (s *TreapStore) publishSnapshot() {
	start := time.Now()
	s.mu.RLock()
	s.publishSnapshotInternal()
	s.mu.RUnlock()

	ms := float64(time.Since(start).Milliseconds())
	metrics.RecordRepositorySnapshotRebuildDuration(ms)
	metrics.UpdateRepositorySnapshotLastDurationMs(ms)
	metrics.UpdateRepositorySnapshotLastUnix(time.Now().Unix())
	metrics.IncrementRepositorySnapshotCount()
}

// publishSnapshotInternal rebuilds and publishes a new snapshot (assumes lock is held).
func (s *TreapStore) publishSnapshotInternal() {
	// Top cache for fast dashboard reads
	topCache := make([]Entry, 0, s.topCacheSize)
	collectTopN(s.root, s.topCacheSize, s.byIdentity, &topCache)
	assignRanks(topCache)

	// Full rank and total maps
	all := make([]Entry, 0, len(s.byIdentity))
	collectAll(s.root, s.byIdentity, &all)
	assignRanks(all)

	rankByIdentity := make(map[allocation.IdentityID]int, len(all))
	totalByIdentity := make(map[allocation.IdentityID]grain.Amount, len(all))
	for _, e := range all {
		rankByIdentity[e.IdentityID] = e.Rank
		totalByIdentity[e.IdentityID] = e.Total
	}

	s.snapshot.Store(&Snapshot{
		RankByIdentity:  rankByIdentity,
		TotalByIdentity: totalByIdentity,
		TopCache:        topCache,
	})
}

// Snapshot returns the most recently published board snapshot.
// It never blocks on the write path.
func (s *TreapStore) Snapshot() *Snapshot {
	if snap := s.snapshot.Load(); snap != nil {
		return snap
	}
	return &Snapshot{}
}

// Close gracefully shuts down the background goroutines.
func (s *TreapStore) Close() error {
	select {
	case <-s.stopChan:
		// Channel already closed
	default:
		close(s.stopChan)
	}
	s.wg.Wait()
	return nil
}

// SaveDistribution implements Store.SaveDistribution. Each receipt update
// runs in O(log n) expected time.
func (s *TreapStore) SaveDistribution(ctx context.Context, requestID string, dist allocation.Distribution) error {
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordRepositoryUpdateLatency(float64(latency))
	}()

	s.mu.Lock()
	if _, ok := s.byRequest[requestID]; ok {
		s.mu.Unlock()
		metrics.RecordErrorByComponent("repository", "duplicate_distribution")
		return ErrDistributionExists
	}
	s.byRequest[requestID] = dist

	for _, a := range dist.Allocations {
		for _, r := range a.Receipts {
			old, ok := s.byIdentity[r.ID]
			if ok {
				s.root = deleteNode(s.root, r.ID, old.total)
			}
			next := boardRecord{
				total:      old.total.Add(r.Amount),
				receipts:   old.receipts + 1,
				lastCredMs: dist.CredTimestampMs,
			}
			s.byIdentity[r.ID] = next
			s.root = insert(s.root, r.ID, next.total)
		}
	}
	identities := len(s.byIdentity)
	distributions := len(s.byRequest)
	s.mu.Unlock()

	// Update metrics outside the lock
	metrics.UpdateRepositoryRecordsTotal(identities)
	metrics.UpdateRepositoryDistributionsTotal(distributions)
	return nil
}

// Distribution returns the distribution recorded for a request id.
func (s *TreapStore) Distribution(ctx context.Context, requestID string) (allocation.Distribution, error) {
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordRepositoryQueryLatency(float64(latency))
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	dist, ok := s.byRequest[requestID]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return allocation.Distribution{}, ErrNotFound
	}
	return dist, nil
}

// Earnings returns the current rank and lifetime total for an identity.
func (s *TreapStore) Earnings(ctx context.Context, id allocation.IdentityID) (Entry, error) {
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordRepositoryQueryLatency(float64(latency))
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.byIdentity[id]; !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Entry{}, ErrNotFound
	}

	// Walk the whole board so ties share ranks consistently with TopEarners.
	all := make([]Entry, 0, len(s.byIdentity))
	collectAll(s.root, s.byIdentity, &all)
	assignRanks(all)

	for _, e := range all {
		if e.IdentityID == id {
			return e, nil
		}
	}

	return Entry{}, ErrNotFound
}

// TopEarners returns the top N entries ordered by total desc.
func (s *TreapStore) TopEarners(ctx context.Context, n int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordRepositoryQueryLatency(float64(latency))
	}()

	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, n)
	collectTopN(s.root, n, s.byIdentity, &out)

	// Dense ranks over a top-N prefix match the global ranks because an
	// entry's rank only depends on the entries above it.
	assignRanks(out)
	return out, nil
}

// Count returns the total number of identities on the board.
func (s *TreapStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byIdentity)
}

// DistributionCount returns the number of recorded distributions.
func (s *TreapStore) DistributionCount(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byRequest)
}

// startMetricsUpdater starts a background goroutine that updates repository metrics.
func (s *TreapStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics()
			}
		}
	}()
}

// updateMetrics updates all repository-related metrics.
func (s *TreapStore) updateMetrics() {
	s.mu.RLock()
	identities := len(s.byIdentity)
	distributions := len(s.byRequest)
	s.mu.RUnlock()

	metrics.UpdateRepositoryRecordsTotal(identities)
	metrics.UpdateRepositoryDistributionsTotal(distributions)
	metrics.UpdateTotalEarners(identities)
}
