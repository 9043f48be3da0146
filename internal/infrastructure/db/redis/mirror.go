package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/staffdesk/ops-system/internal/core/fault"
	"github.com/staffdesk/ops-system/internal/core/ports"
)

// MirrorStore is the device-local durable cache: a Redis-backed mirror of
// backend collections that survives process restarts. It is queried with
// the same constraint shape as the remote backend and may return a subset
// of the data or nothing at all.
//
// Key format: mirror:<collection>
type MirrorStore struct {
	client *redis.Client
}

// NewMirrorStore creates a MirrorStore wrapping the given Redis client.
func NewMirrorStore(client *redis.Client) *MirrorStore {
	return &MirrorStore{client: client}
}

// Query loads the mirrored collection and evaluates the constraints
// in-process. An absent mirror is an empty result, not an error.
func (m *MirrorStore) Query(ctx context.Context, collection string, constraints []ports.Constraint) ([]ports.Record, error) {
	raw, err := m.client.Get(ctx, m.key(collection)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fault.New(fault.NetworkUnavailable, fmt.Errorf("mirror read: %w", err))
	}

	var rows []map[string]any
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fault.New(fault.Unknown, fmt.Errorf("mirror decode: %w", err))
	}

	records := make([]ports.Record, len(rows))
	for i, row := range rows {
		records[i] = reviveTimes(row)
	}
	return ports.ApplyLocal(records, constraints), nil
}

// Mirror replaces the persisted copy of a collection's records.
func (m *MirrorStore) Mirror(ctx context.Context, collection string, records []ports.Record) error {
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("mirror encode: %w", err)
	}
	if err := m.client.Set(ctx, m.key(collection), raw, 0).Err(); err != nil {
		return fault.New(fault.NetworkUnavailable, fmt.Errorf("mirror write: %w", err))
	}
	return nil
}

func (m *MirrorStore) key(collection string) string {
	return "mirror:" + collection
}

// reviveTimes restores timestamp typing lost in the JSON round trip.
// Values that parse as RFC 3339 come back as time.Time so range
// constraints and decoding behave identically to the remote source.
func reviveTimes(row map[string]any) ports.Record {
	rec := make(ports.Record, len(row))
	for k, v := range row {
		if s, ok := v.(string); ok {
			if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
				rec[k] = t.UTC()
				continue
			}
		}
		rec[k] = v
	}
	return rec
}
