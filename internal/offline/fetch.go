package offline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/staffdesk/ops-system/internal/api/metrics"
	"github.com/staffdesk/ops-system/internal/core/fault"
	"github.com/staffdesk/ops-system/internal/core/ports"
)

const (
	defaultRetries    = 3
	defaultRetryDelay = time.Second
)

// ErrDataUnavailable is returned when every tier is exhausted: no cached
// entry, local mirror empty, and all remote attempts failed.
var ErrDataUnavailable = errors.New("data unavailable")

// DataUnavailableError wraps ErrDataUnavailable with the translated
// category of the last underlying failure.
type DataUnavailableError struct {
	Collection string
	Code       fault.Code
	Last       error
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("fetch %q: data unavailable (%s): %v", e.Collection, e.Code, e.Last)
}

func (e *DataUnavailableError) Is(target error) bool { return target == ErrDataUnavailable }

func (e *DataUnavailableError) Unwrap() error { return e.Last }

// Sleeper pauses between retry attempts. Tests inject one that records
// delays instead of sleeping.
type Sleeper func(ctx context.Context, d time.Duration) error

func defaultSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Option tunes a Fetcher.
type Option func(*Fetcher)

func WithRetries(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.retries = n
		}
	}
}

func WithRetryDelay(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.retryDelay = d
		}
	}
}

func WithFreshness(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.freshness = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) { f.now = now }
}

func WithSleeper(s Sleeper) Option {
	return func(f *Fetcher) { f.sleep = s }
}

// WithMirror attaches an asynchronous mirror writer that persists remote
// results into the local store after a successful server fetch.
func WithMirror(m *MirrorWriter) Option {
	return func(f *Fetcher) { f.mirror = m }
}

// Fetcher orchestrates the tiered read path. Tiers execute strictly in
// order and short-circuit on first success:
//
//  1. fresh memory-cache entry,
//  2. local persisted mirror,
//  3. remote server with retry,
//  4. any cached entry regardless of freshness (stale-if-error).
//
// Only when all four are exhausted does Fetch fail, and then always with
// ErrDataUnavailable carrying the translated last error.
type Fetcher struct {
	cache  *ResultCache
	local  ports.LocalStore
	remote ports.RecordSource
	mirror *MirrorWriter

	retries    int
	retryDelay time.Duration
	freshness  time.Duration
	now        func() time.Time
	sleep      Sleeper
	log        zerolog.Logger

	// seq guards against a superseded in-flight call overwriting the
	// cache with older data: each call takes a per-signature sequence
	// number and completions older than the latest started call do not
	// write.
	mu  sync.Mutex
	seq map[string]uint64
}

func NewFetcher(cache *ResultCache, local ports.LocalStore, remote ports.RecordSource, log zerolog.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		cache:      cache,
		local:      local,
		remote:     remote,
		retries:    defaultRetries,
		retryDelay: defaultRetryDelay,
		freshness:  DefaultFreshness,
		now:        time.Now,
		sleep:      defaultSleep,
		log:        log,
		seq:        make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the records for (collection, constraints), best effort.
// A non-error result may be stale: tier-2 and tier-4 results come from
// local copies, and even a fresh cache entry may wrap data that was stale
// when it was stored.
func (f *Fetcher) Fetch(ctx context.Context, collection string, constraints []ports.Constraint) ([]ports.Record, error) {
	sig := ports.QuerySignature(collection, constraints)
	call := f.begin(sig)

	// Tier 1: fresh memory cache.
	if entry, ok := f.cache.Get(sig); ok && f.now().Sub(entry.StoredAt) < f.freshness {
		metrics.FetchTierTotal.WithLabelValues("memory").Inc()
		return entry.Records, nil
	}

	// Tier 2: local persisted mirror. Possibly-stale local data is
	// preferred over a network round trip.
	if records, err := f.local.Query(ctx, collection, constraints); err == nil && len(records) > 0 {
		metrics.FetchTierTotal.WithLabelValues("local").Inc()
		f.store(sig, call, records)
		return records, nil
	} else if err != nil {
		f.log.Debug().Err(err).Str("collection", collection).Msg("local mirror miss")
	}

	// Tier 3: remote server with retry.
	var lastErr error
	for attempt := 1; attempt <= f.retries; attempt++ {
		records, err := f.remote.Query(ctx, collection, constraints)
		if err == nil {
			metrics.FetchTierTotal.WithLabelValues("server").Inc()
			f.store(sig, call, records)
			if f.mirror != nil {
				f.mirror.Enqueue(collection, records)
			}
			return records, nil
		}

		lastErr = err
		metrics.FetchRetriesTotal.Inc()
		f.log.Warn().Err(err).
			Str("collection", collection).
			Int("attempt", attempt).
			Msg("server fetch failed")

		if attempt < f.retries {
			if serr := f.sleep(ctx, f.retryDelay); serr != nil {
				lastErr = serr
				break
			}
		}
	}

	// Tier 4: stale-if-error. Any cached entry beats a hard failure.
	if entry, ok := f.cache.Get(sig); ok {
		metrics.FetchTierTotal.WithLabelValues("stale").Inc()
		f.log.Info().Str("collection", collection).Msg("serving stale cached result after fetch failure")
		return entry.Records, nil
	}

	metrics.FetchTierTotal.WithLabelValues("failed").Inc()
	if lastErr == nil {
		lastErr = errors.New("no attempts made")
	}
	return nil, &DataUnavailableError{
		Collection: collection,
		Code:       fault.CodeOf(lastErr),
		Last:       lastErr,
	}
}

// begin allocates the next sequence number for a signature.
func (f *Fetcher) begin(sig string) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq[sig]++
	return f.seq[sig]
}

// store writes to the result cache unless this call has been superseded
// by a newer one for the same signature.
func (f *Fetcher) store(sig string, call uint64, records []ports.Record) {
	f.mu.Lock()
	latest := f.seq[sig]
	f.mu.Unlock()

	if call < latest {
		f.log.Debug().Str("signature", sig).Msg("superseded fetch result dropped")
		return
	}
	f.cache.Put(sig, records, f.now())
}
