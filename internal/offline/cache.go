// Package offline implements the offline-resilient read path: an
// in-process result cache keyed by query signature, and a tiered fetch
// routine that falls back through memory cache, local mirror, and remote
// server with retry.
package offline

import (
	"sync"
	"time"

	"github.com/staffdesk/ops-system/internal/core/ports"
)

// DefaultFreshness is the window within which a cached entry is served
// without consulting any other tier.
const DefaultFreshness = 5 * time.Minute

// Entry is a cached query result and the time it was stored. Staleness is
// judged by the caller; the cache itself never evicts.
type Entry struct {
	Records  []ports.Record
	StoredAt time.Time
}

// ResultCache memoizes query results by signature. It is unbounded:
// collections in this system are small and the process is restarted
// regularly, so eviction is a scaling concern rather than a correctness
// one.
//
// Payloads have value semantics: Put and Get both copy, so a caller
// mutating a returned slice cannot corrupt the cached copy.
type ResultCache struct {
	mu      sync.Mutex
	entries map[string]Entry
}

func NewResultCache() *ResultCache {
	return &ResultCache{entries: make(map[string]Entry)}
}

// Get returns the stored entry for the signature, fresh or not, along
// with whether one exists.
func (c *ResultCache) Get(signature string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[signature]
	if !ok {
		return Entry{}, false
	}
	return Entry{Records: cloneRecords(e.Records), StoredAt: e.StoredAt}, true
}

// Put stores (or overwrites) the entry for the signature with the given
// timestamp.
func (c *ResultCache) Put(signature string, records []ports.Record, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[signature] = Entry{Records: cloneRecords(records), StoredAt: at}
}

// Len reports the number of cached signatures. Used by metrics.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func cloneRecords(records []ports.Record) []ports.Record {
	out := make([]ports.Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}
