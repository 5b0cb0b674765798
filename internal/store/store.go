package store

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("document not found")

// ServerTimestamp is a sentinel value. Any field set to it is replaced with
// the store clock at write time, so timestamps are always store-assigned.
var ServerTimestamp = serverTimestamp{}

type serverTimestamp struct{}

// Document is one record in a collection. CreatedAt and UpdatedAt are
// assigned by the store, never by the caller.
type Document struct {
	ID        string         `json:"id"`
	Data      map[string]any `json:"data"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Op is a filter operator.
type Op string

const (
	OpEqual         Op = "=="
	OpArrayContains Op = "array-contains"
)

// Filter restricts a query to documents matching one field predicate.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Query describes a filtered, ordered read of one collection. Ties after
// OrderBy are broken by document id, which is arbitrary but stable.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    string
	Descending bool
}

// C starts a query over a collection.
func C(collection string) Query {
	return Query{Collection: collection}
}

// Where adds a filter predicate.
func (q Query) Where(field string, op Op, value any) Query {
	q.Filters = append(q.Filters, Filter{Field: field, Op: op, Value: value})
	return q
}

// OrderedBy sets the sort key.
func (q Query) OrderedBy(field string, descending bool) Query {
	q.OrderBy = field
	q.Descending = descending
	return q
}

// SnapshotFunc receives the complete current result set of a live query.
// Each call is a full replacement of the previous one, never a diff.
type SnapshotFunc func(docs []Document)

// ErrorFunc receives live-query failures.
type ErrorFunc func(err error)

// Store is a collection-of-documents database with live queries.
type Store interface {
	// Add appends a document with an auto-assigned id.
	Add(ctx context.Context, collection string, data map[string]any) (Document, error)
	// Set merge-writes a document, creating it if absent. Fields not
	// present in data are preserved.
	Set(ctx context.Context, collection, id string, data map[string]any) error
	// Update overwrites the given fields of an existing document.
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	// Get reads a single document.
	Get(ctx context.Context, collection, id string) (Document, error)
	// GetAll runs a one-shot query.
	GetAll(ctx context.Context, q Query) ([]Document, error)
	// Subscribe opens a live query. An initial snapshot is delivered, then a
	// fresh full snapshot after every write to the collection. Snapshots for
	// one subscription are delivered in order and never concurrently. The
	// returned function tears the subscription down and is idempotent.
	Subscribe(q Query, onSnapshot SnapshotFunc, onError ErrorFunc) (unsubscribe func())
	Close() error
}

// timeLayout is RFC3339 with fixed nanosecond width so encoded timestamps
// order correctly under plain string comparison.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FormatTime encodes a timestamp the way documents store them.
func FormatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// resolveTimestamps returns a copy of data with ServerTimestamp sentinels
// replaced by now. All time values are encoded as fixed-width RFC3339
// strings so both drivers store and order them identically.
func resolveTimestamps(data map[string]any, now time.Time) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		switch tv := v.(type) {
		case serverTimestamp:
			out[k] = FormatTime(now)
		case time.Time:
			out[k] = FormatTime(tv)
		default:
			out[k] = v
		}
	}
	return out
}
