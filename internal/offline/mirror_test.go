package offline

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/staffdesk/ops-system/internal/core/ports"
)

func TestMirrorWriter_PersistsSnapshot(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	local := &stubLocal{}
	w := NewMirrorWriter(2, local, zerolog.Nop())
	w.Start(ctx)

	w.Enqueue("documents", []ports.Record{{"id": "d1"}})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		local.mu.Lock()
		got := local.mirrored["documents"]
		local.mu.Unlock()
		if len(got) == 1 && got[0].String("id") == "d1" {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("snapshot never reached the local store")
}

func TestMirrorWriter_EnqueueCopiesRecords(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	local := &stubLocal{}
	w := NewMirrorWriter(1, local, zerolog.Nop())

	records := []ports.Record{{"id": "d1", "title": "before"}}
	w.Enqueue("documents", records)
	records[0]["title"] = "after"

	w.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		local.mu.Lock()
		got := local.mirrored["documents"]
		local.mu.Unlock()
		if len(got) == 1 {
			if got[0].String("title") != "before" {
				t.Fatalf("caller mutation leaked into queued snapshot: %+v", got[0])
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("snapshot never reached the local store")
}

func TestMirrorWriter_SameCollectionSameShard(t *testing.T) {
	w := NewMirrorWriter(4, &stubLocal{}, zerolog.Nop())
	a := w.shardIndex("sales")
	for i := 0; i < 10; i++ {
		if w.shardIndex("sales") != a {
			t.Fatal("shard index must be deterministic per collection")
		}
	}
}
