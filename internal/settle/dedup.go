package settle

import (
	"sync"
	"time"
)

// Dedup is an in-memory fast path in front of the store-backed idempotency
// check. It remembers payment references that have already committed, so a
// redelivered webhook within the TTL window can be answered without opening a
// transaction. It is safe for concurrent use.
//
// A reference is only marked after a successful commit; a miss here proves
// nothing and the transactional check remains authoritative.
type Dedup struct {
	settled map[string]time.Time // paymentRef -> commit time
	ttl     time.Duration
	mu      sync.Mutex
}

// NewDedup creates a Dedup that remembers committed references for ttl.
func NewDedup(ttl time.Duration) *Dedup {
	return &Dedup{
		settled: make(map[string]time.Time),
		ttl:     ttl,
	}
}

// Seen reports whether the payment reference committed within the TTL window.
func (d *Dedup) Seen(paymentRef string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	committedAt, ok := d.settled[paymentRef]
	return ok && time.Since(committedAt) < d.ttl
}

// Mark records a payment reference as committed.
func (d *Dedup) Mark(paymentRef string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.settled[paymentRef] = time.Now()
}

// Cleanup removes expired entries. Call periodically to bound memory growth.
func (d *Dedup) Cleanup() {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	for ref, ts := range d.settled {
		if now.Sub(ts) >= d.ttl {
			delete(d.settled, ref)
		}
	}
}
