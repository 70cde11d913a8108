// Package pool provides per-column string interning (reference pooling) for
// the parsing engine. A RefPool maps distinct string values to small
// monotonically assigned integer ids so low-cardinality string columns can be
// stored as dictionary references instead of repeated text.
package pool

import (
	"sync"
	"sync/atomic"

	"github.com/zeebo/xxh3"

	strpool "github.com/ajitpratap0/pulsar/pkg/strings"
)

// MissingRef is the reserved reference id for the missing value. It is
// pre-seeded: real content never receives it, so the first distinct string
// always gets id 1.
const MissingRef uint32 = 0

type refEntry struct {
	key string // materialized copy, owned by the pool
	id  uint32
}

// RefPool interns observed strings for one column. Lookup keys are zero-copy
// views into the shared input buffer; stored keys are materialized copies,
// since the buffer region of a spent chunk may be reused or unmapped.
//
// A pool created shared carries a mutex so chunk workers can insert
// concurrently; a private pool skips locking entirely. Contention on shared
// pools is expected to be low since pooling only pays off for
// low-cardinality columns.
type RefPool struct {
	mu     sync.Mutex
	shared bool

	buckets map[uint64][]refEntry
	values  []string // values[id-1] = interned string, id order
	lastref uint32

	// pooling is abandoned once distinct values exceed threshold*estRows;
	// checked incrementally to bound memory growth
	threshold float64
	estRows   int
	abandoned atomic.Bool

	hits   int64
	misses int64
}

// NewRefPool creates a pool for one column. threshold is the distinct-value
// ratio above which pooling is abandoned; estRows is the estimated row count
// the ratio is measured against. shared pools are safe for concurrent use.
func NewRefPool(threshold float64, estRows int, shared bool) *RefPool {
	if estRows < 1 {
		estRows = 1
	}
	return &RefPool{
		shared:    shared,
		buckets:   make(map[uint64][]refEntry, 64),
		threshold: threshold,
		estRows:   estRows,
	}
}

// GetOrInsert resolves the byte range [view] of buf to a reference id,
// interning the content on first sight. Equality is content equality over
// the referenced bytes, never pointer identity. The second return is false
// once pooling has been abandoned for this column; the caller must fall back
// to plain string storage.
func (p *RefPool) GetOrInsert(buf []byte, view strpool.View) (uint32, bool) {
	if p.abandoned.Load() {
		return 0, false
	}

	b := view.Bytes(buf)
	h := xxh3.Hash(b)

	if p.shared {
		p.mu.Lock()
		defer p.mu.Unlock()
	}

	for _, e := range p.buckets[h] {
		if e.key == strpool.BytesToString(b) {
			atomic.AddInt64(&p.hits, 1)
			return e.id, true
		}
	}

	// incremental abandon check before growing
	if p.threshold > 0 && float64(len(p.values)+1) > p.threshold*float64(p.estRows) {
		p.abandoned.Store(true)
		return 0, false
	}

	p.lastref++
	id := p.lastref
	key := view.Clone(buf)
	p.buckets[h] = append(p.buckets[h], refEntry{key: key, id: id})
	p.values = append(p.values, key)
	atomic.AddInt64(&p.misses, 1)
	return id, true
}

// Lookup resolves content to an id without inserting.
func (p *RefPool) Lookup(buf []byte, view strpool.View) (uint32, bool) {
	b := view.Bytes(buf)
	h := xxh3.Hash(b)

	if p.shared {
		p.mu.Lock()
		defer p.mu.Unlock()
	}
	for _, e := range p.buckets[h] {
		if e.key == strpool.BytesToString(b) {
			return e.id, true
		}
	}
	return 0, false
}

// Resolve returns the interned string for a reference id. The reserved
// missing id and ids past the pool size resolve to false.
func (p *RefPool) Resolve(ref uint32) (string, bool) {
	if ref == MissingRef {
		return "", false
	}
	if p.shared {
		p.mu.Lock()
		defer p.mu.Unlock()
	}
	if int(ref) > len(p.values) {
		return "", false
	}
	return p.values[ref-1], true
}

// Abandoned reports whether pooling was abandoned for this column.
func (p *RefPool) Abandoned() bool { return p.abandoned.Load() }

// Len returns the number of distinct interned values, the reserved missing
// id excluded.
func (p *RefPool) Len() int {
	if p.shared {
		p.mu.Lock()
		defer p.mu.Unlock()
	}
	return len(p.values)
}

// Values returns the interned strings in reference-id order: Values()[i]
// carries id i+1. The missing id 0 has no entry. The returned slice is a
// copy safe to hand to a dictionary-column materializer.
func (p *RefPool) Values() []string {
	if p.shared {
		p.mu.Lock()
		defer p.mu.Unlock()
	}
	out := make([]string, len(p.values))
	copy(out, p.values)
	return out
}

// Stats returns pool statistics
func (p *RefPool) Stats() (size int, hits, misses int64) {
	return p.Len(), atomic.LoadInt64(&p.hits), atomic.LoadInt64(&p.misses)
}

// Seed copies the pool's current contents into a new private pool. Workers
// that do not need cross-chunk pooling start from a seed derived during
// initial sampling instead of sharing the parent's lock.
func (p *RefPool) Seed() *RefPool {
	if p.shared {
		p.mu.Lock()
		defer p.mu.Unlock()
	}
	child := NewRefPool(p.threshold, p.estRows, false)
	for h, entries := range p.buckets {
		child.buckets[h] = append([]refEntry(nil), entries...)
	}
	child.values = append(child.values, p.values...)
	child.lastref = p.lastref
	return child
}
