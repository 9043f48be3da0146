package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/staffdesk/ops-system/internal/core/fault"
	"github.com/staffdesk/ops-system/internal/core/ports"
)

// RecordSource runs composed queries against the hosted document store.
// It implements ports.RecordSource for the offline fetch layer's remote
// tier.
type RecordSource struct {
	db *mongo.Database
}

func NewRecordSource(db *mongo.Database) *RecordSource {
	return &RecordSource{db: db}
}

// Query translates the constraint list into a driver query, runs it, and
// returns the matching records in order. Failures come back fault-coded.
func (s *RecordSource) Query(ctx context.Context, collection string, constraints []ports.Constraint) ([]ports.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter, opts, err := buildQuery(constraints)
	if err != nil {
		return nil, err
	}

	cur, err := s.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, translate(err)
	}
	defer cur.Close(ctx)

	var records []ports.Record
	for cur.Next(ctx) {
		var raw bson.M
		if derr := cur.Decode(&raw); derr != nil {
			return nil, translate(derr)
		}
		records = append(records, normalize(raw))
	}
	if cerr := cur.Err(); cerr != nil {
		return nil, translate(cerr)
	}
	return records, nil
}

// buildQuery converts the constraint list into a driver filter and find
// options. Repeated Where constraints on one field merge into a single
// operator document so range queries keep both bounds.
func buildQuery(constraints []ports.Constraint) (bson.M, *options.FindOptions, error) {
	filter := bson.M{}
	opts := options.Find()
	for _, c := range constraints {
		switch c.Kind {
		case ports.KindWhere:
			op, err := mongoOperator(c.Op)
			if err != nil {
				return nil, nil, err
			}
			if m, ok := filter[c.Field].(bson.M); ok {
				m[op] = c.Value
			} else {
				filter[c.Field] = bson.M{op: c.Value}
			}
		case ports.KindOrderBy:
			dir := 1
			if c.Desc {
				dir = -1
			}
			opts.SetSort(bson.D{{Key: c.Field, Value: dir}})
		case ports.KindLimit:
			opts.SetLimit(int64(c.N))
		}
	}
	return filter, opts, nil
}

func mongoOperator(op string) (string, error) {
	switch op {
	case "==":
		return "$eq", nil
	case "<":
		return "$lt", nil
	case "<=":
		return "$lte", nil
	case ">":
		return "$gt", nil
	case ">=":
		return "$gte", nil
	}
	return "", fault.New(fault.PreconditionFailed, fmt.Errorf("unsupported operator %q", op))
}

// normalize converts driver types into the plain values the rest of the
// system works with: ObjectIDs become the "id" field as a hex string,
// DateTimes become time.Time.
func normalize(raw bson.M) ports.Record {
	rec := make(ports.Record, len(raw))
	for k, v := range raw {
		switch tv := v.(type) {
		case primitive.ObjectID:
			if k == "_id" {
				rec["id"] = tv.Hex()
				continue
			}
			rec[k] = tv.Hex()
		case primitive.DateTime:
			rec[k] = tv.Time().UTC()
		default:
			rec[k] = v
		}
	}
	return rec
}

// translate maps driver errors onto the stable fault categories. This is
// the only place driver-specific failure signals are inspected.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return fault.New(fault.NotFound, err)
	case mongo.IsDuplicateKeyError(err):
		return fault.New(fault.AlreadyExists, err)
	case mongo.IsTimeout(err), mongo.IsNetworkError(err),
		errors.Is(err, context.DeadlineExceeded):
		return fault.New(fault.NetworkUnavailable, err)
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Name {
		case "Unauthorized":
			return fault.New(fault.PermissionDenied, err)
		case "AuthenticationFailed":
			return fault.New(fault.Unauthenticated, err)
		case "TooManyRequests":
			return fault.New(fault.RateLimited, err)
		}
	}
	return fault.New(fault.Unknown, err)
}
