package ports

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Record is a schemaless document as returned by the backing store.
// Payloads flow through the offline fetch layer untyped; services decode
// them into domain structs at the edge.
type Record map[string]any

// Clone returns a copy of the record one level deep. Nested values are
// shared, which is acceptable because records are treated as read-only
// once fetched.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// String returns the value under key as a string, or "" if absent.
func (r Record) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Float returns the value under key as a float64, or 0 if absent.
func (r Record) Float(key string) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

// Time returns the value under key as a time.Time, or the zero time.
func (r Record) Time(key string) time.Time {
	t, _ := r[key].(time.Time)
	return t
}

// ConstraintKind discriminates the supported query constraints.
type ConstraintKind string

const (
	KindWhere   ConstraintKind = "where"
	KindOrderBy ConstraintKind = "order_by"
	KindLimit   ConstraintKind = "limit"
)

// Constraint is one element of a composed query: a field filter, a sort
// directive, or a result limit. The set mirrors what the hosted backend's
// query language supports.
type Constraint struct {
	Kind  ConstraintKind
	Field string
	Op    string // "==", "<", "<=", ">", ">="
	Value any
	Desc  bool
	N     int
}

func Where(field, op string, value any) Constraint {
	return Constraint{Kind: KindWhere, Field: field, Op: op, Value: value}
}

func OrderBy(field string, desc bool) Constraint {
	return Constraint{Kind: KindOrderBy, Field: field, Desc: desc}
}

func Limit(n int) Constraint {
	return Constraint{Kind: KindLimit, N: n}
}

// key returns the canonical encoding of a constraint used in query
// signatures. Time values are encoded at nanosecond precision so two
// queries over the same instant always produce the same key.
func (c Constraint) key() string {
	switch c.Kind {
	case KindWhere:
		v := c.Value
		if t, ok := v.(time.Time); ok {
			v = t.UTC().Format(time.RFC3339Nano)
		}
		return fmt.Sprintf("where(%s%s%v)", c.Field, c.Op, v)
	case KindOrderBy:
		dir := "asc"
		if c.Desc {
			dir = "desc"
		}
		return fmt.Sprintf("order_by(%s,%s)", c.Field, dir)
	default:
		return fmt.Sprintf("limit(%d)", c.N)
	}
}

// QuerySignature returns a string uniquely identifying (collection,
// constraints). The same logical query yields the same signature
// regardless of call site. Constraint order is preserved in the key
// because the backend treats it as significant.
func QuerySignature(collection string, constraints []Constraint) string {
	parts := make([]string, 0, len(constraints)+1)
	parts = append(parts, collection)
	for _, c := range constraints {
		parts = append(parts, c.key())
	}
	return strings.Join(parts, "|")
}

// ApplyLocal evaluates constraints against an in-memory record set. Used
// by local mirror stores that persist whole collections and filter on
// read, matching the query shape of the remote backend.
func ApplyLocal(records []Record, constraints []Constraint) []Record {
	out := records
	limit := -1
	for _, c := range constraints {
		switch c.Kind {
		case KindWhere:
			filtered := make([]Record, 0, len(out))
			for _, r := range out {
				if matches(r, c) {
					filtered = append(filtered, r)
				}
			}
			out = filtered
		case KindOrderBy:
			c := c
			sorted := make([]Record, len(out))
			copy(sorted, out)
			sort.SliceStable(sorted, func(i, j int) bool {
				cmp := compare(sorted[i][c.Field], sorted[j][c.Field])
				if c.Desc {
					return cmp > 0
				}
				return cmp < 0
			})
			out = sorted
		case KindLimit:
			limit = c.N
		}
	}
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func matches(r Record, c Constraint) bool {
	cmp := compare(r[c.Field], c.Value)
	switch c.Op {
	case "==":
		return cmp == 0
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	}
	return false
}

// compare orders two record values. Supported types are the ones the
// backend indexes: strings, numbers, and timestamps.
func compare(a, b any) int {
	switch av := a.(type) {
	case string:
		bv, _ := b.(string)
		return strings.Compare(av, bv)
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	case float64, int, int64:
		af := toFloat(a)
		bf := toFloat(b)
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	return 0
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	}
	return 0
}

// RecordSource runs a composed query against a collection and returns
// ordered records, or fails with a fault-coded error. The remote backend
// implements this; the offline layer treats it as an opaque capability.
type RecordSource interface {
	Query(ctx context.Context, collection string, constraints []Constraint) ([]Record, error)
}

// LocalStore is a device-local durable mirror of the backend. It is
// queried with the same shape as the remote source and may return a
// subset of the data or nothing at all.
type LocalStore interface {
	RecordSource
	// Mirror replaces the locally persisted copy of a collection's
	// records for later offline reads.
	Mirror(ctx context.Context, collection string, records []Record) error
}
