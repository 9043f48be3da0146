package offline

import (
	"context"
	"hash/fnv"

	"github.com/rs/zerolog"

	"github.com/staffdesk/ops-system/internal/core/ports"
)

const (
	defaultMirrorWorkers = 4
	mirrorBuffer         = 64
)

type mirrorJob struct {
	collection string
	records    []ports.Record
}

// MirrorWriter persists remote fetch results into the local store off the
// request path. Jobs are sharded by collection name so writes for the
// same collection are applied in order, while different collections
// proceed in parallel.
type MirrorWriter struct {
	workers []chan mirrorJob
	store   ports.LocalStore
	log     zerolog.Logger
}

// NewMirrorWriter creates a MirrorWriter with numWorkers sharded workers.
// If numWorkers <= 0, defaultMirrorWorkers is used.
func NewMirrorWriter(numWorkers int, store ports.LocalStore, log zerolog.Logger) *MirrorWriter {
	if numWorkers <= 0 {
		numWorkers = defaultMirrorWorkers
	}
	w := &MirrorWriter{
		workers: make([]chan mirrorJob, numWorkers),
		store:   store,
		log:     log,
	}
	for i := range w.workers {
		w.workers[i] = make(chan mirrorJob, mirrorBuffer)
	}
	return w
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (w *MirrorWriter) Start(ctx context.Context) {
	for i, ch := range w.workers {
		go w.runWorker(ctx, i, ch)
	}
}

// Enqueue schedules a collection snapshot for mirroring. When the shard's
// buffer is full the job is dropped: the mirror is an optimisation, not a
// system of record.
func (w *MirrorWriter) Enqueue(collection string, records []ports.Record) {
	job := mirrorJob{collection: collection, records: cloneRecords(records)}
	select {
	case w.workers[w.shardIndex(collection)] <- job:
	default:
		w.log.Warn().Str("collection", collection).Msg("mirror queue full, snapshot dropped")
	}
}

// shardIndex maps a collection deterministically to a worker index.
func (w *MirrorWriter) shardIndex(collection string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(collection))
	return int(h.Sum32()) % len(w.workers)
}

func (w *MirrorWriter) runWorker(ctx context.Context, id int, ch <-chan mirrorJob) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-ch:
			if !ok {
				return
			}
			if err := w.store.Mirror(ctx, job.collection, job.records); err != nil {
				w.log.Error().Err(err).
					Str("collection", job.collection).
					Int("worker_id", id).
					Msg("mirror write failed")
			}
		}
	}
}
