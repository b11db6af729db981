// Package dedupe defines the interface for idempotency tracking.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records seen request IDs so a distribution submission is accepted
// at most once no matter how often a client retries it.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	// This is the ONLY method for deduplication - thread-safe and atomic.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord removes an ID from the seen list, allowing it to be retried.
	// This should only be used when a request was marked as seen but failed
	// to be admitted (e.g., queue backpressure).
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// entry is a single tracked request id in the eviction list.
type entry struct {
	id         string
	prev, next *entry
}

// reset clears the entry state for reuse.
func (e *entry) reset() {
	e.id = ""
	e.prev = nil
	e.next = nil
}

// memoryDeduper implements Deduper using an in-memory doubly linked list.
// Bounded mode (maxSize > 0) keeps ids in arrival order, evicts the oldest
// once full, and recycles entries through a sync.Pool.
// Unbounded mode (maxSize <= 0) is a plain grow-only map.
type memoryDeduper struct {
	mu        sync.RWMutex
	seen      map[string]*entry // id -> list entry in bounded mode, nil in unbounded
	head      *entry            // most recently recorded
	tail      *entry            // oldest recorded, next to evict
	maxSize   int               // maximum ids kept in memory (0 or negative = unbounded)
	size      atomic.Int64
	entryPool sync.Pool
}

const defaultMaxSize = 50000

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &memoryDeduper{
		maxSize: defaultMaxSize,
	}

	for _, opt := range opts {
		opt(d)
	}

	d.seen = make(map[string]*entry)

	if d.maxSize > 0 {
		d.entryPool = sync.Pool{
			New: func() interface{} {
				return &entry{}
			},
		}
	}

	return d
}

// SeenAndRecord atomically checks if id was seen and records it if not.
// Returns true if id was already seen, false if it was newly recorded.
func (d *memoryDeduper) SeenAndRecord(ctx context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; exists {
		return true
	}

	if d.maxSize > 0 {
		if len(d.seen) >= d.maxSize {
			d.evictOldest()
		}

		e := d.entryPool.Get().(*entry)
		e.id = id
		d.push(e)
		d.seen[id] = e
	} else {
		d.seen[id] = nil
	}
	d.size.Add(1)
	return false
}

// Unrecord removes an ID from the seen list, allowing it to be retried.
func (d *memoryDeduper) Unrecord(ctx context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, exists := d.seen[id]
	if !exists {
		return
	}
	delete(d.seen, id)

	if d.maxSize > 0 {
		d.unlink(e)
		e.reset()
		d.entryPool.Put(e)
	}
	d.size.Add(-1)
}

// Size returns the current number of entries in the deduper.
func (d *memoryDeduper) Size() int64 {
	return d.size.Load()
}

// push links e in as the newest entry. Must be called with d.mu held.
func (d *memoryDeduper) push(e *entry) {
	e.next = d.head
	e.prev = nil
	if d.head != nil {
		d.head.prev = e
	} else {
		d.tail = e
	}
	d.head = e
}

// unlink removes e from the list. Must be called with d.mu held.
func (d *memoryDeduper) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		d.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		d.tail = e.prev
	}
}

// evictOldest drops the tail entry to make room for a new id.
// Must be called with d.mu held.
func (d *memoryDeduper) evictOldest() {
	e := d.tail
	if e == nil {
		return
	}
	d.unlink(e)
	delete(d.seen, e.id)
	e.reset()
	d.entryPool.Put(e)
	d.size.Add(-1)
}
