// Package store provides the partitioned sorted key-value table store used by
// the event journal. The store supports equality and range filters on the
// partition key, ordered scans on the row key within a partition, and a
// segmented scan protocol with opaque continuation tokens.
// Backends include an in-memory store and SQLite.
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/eventrail/eventrail/pkg/types"
)

// Common errors for table store operations.
var (
	ErrInvalidToken  = errors.New("store: invalid continuation token")
	ErrInvalidFilter = errors.New("store: invalid filter")
	ErrClosed        = errors.New("store: closed")
)

// Field identifies a key column a filter condition applies to.
type Field int

const (
	// FieldPartitionKey targets the partition key column.
	FieldPartitionKey Field = iota

	// FieldRowKey targets the row key column.
	FieldRowKey
)

// Op is a comparison operator in a filter condition.
type Op string

const (
	OpEq Op = "="
	OpLt Op = "<"
	OpLe Op = "<="
	OpGt Op = ">"
	OpGe Op = ">="
)

// Condition compares one key column against a literal value.
type Condition struct {
	Field Field
	Op    Op
	Value string
}

// Filter is a conjunction of key conditions.
type Filter struct {
	Conditions []Condition
}

// Where appends a condition and returns the filter for chaining.
func (f Filter) Where(field Field, op Op, value string) Filter {
	f.Conditions = append(f.Conditions, Condition{Field: field, Op: op, Value: value})
	return f
}

// PinsPartition reports whether the filter restricts the scan to a single
// partition through an equality condition on the partition key. Only then is
// the scan's native order reverse chronological end to end; a filter spanning
// a partition-key range visits partitions oldest first.
func (f Filter) PinsPartition() bool {
	for _, c := range f.Conditions {
		if c.Field == FieldPartitionKey && c.Op == OpEq {
			return true
		}
	}
	return false
}

// Matches evaluates the filter against a key pair.
func (f Filter) Matches(partitionKey, rowKey string) bool {
	for _, c := range f.Conditions {
		v := partitionKey
		if c.Field == FieldRowKey {
			v = rowKey
		}
		cmp := strings.Compare(v, c.Value)
		var ok bool
		switch c.Op {
		case OpEq:
			ok = cmp == 0
		case OpLt:
			ok = cmp < 0
		case OpLe:
			ok = cmp <= 0
		case OpGt:
			ok = cmp > 0
		case OpGe:
			ok = cmp >= 0
		}
		if !ok {
			return false
		}
	}
	return true
}

// String renders the filter in a canonical form. Used for continuation-token
// signing and diagnostics.
func (f Filter) String() string {
	var b strings.Builder
	for i, c := range f.Conditions {
		if i > 0 {
			b.WriteString(" AND ")
		}
		if c.Field == FieldPartitionKey {
			b.WriteString("pk")
		} else {
			b.WriteString("rk")
		}
		b.WriteByte(' ')
		b.WriteString(string(c.Op))
		b.WriteString(" '")
		b.WriteString(c.Value)
		b.WriteByte('\'')
	}
	return b.String()
}

// Page is one segment of a scan. An empty NextToken means the scan is
// exhausted.
type Page struct {
	Rows      []types.EventRow
	NextToken string
}

// TableStore abstracts the sorted key-value store. Scan returns rows in the
// store's native order (partition key ascending, then row key ascending,
// which is reverse chronological within a partition) one segment at a time.
// Each caller owns its own continuation token; there is no ambient cursor
// state.
type TableStore interface {
	// EnsureShard creates the logical collection for a shard if missing.
	EnsureShard(ctx context.Context, shard string) error

	// ShardExists reports whether the shard's collection exists.
	ShardExists(ctx context.Context, shard string) (bool, error)

	// Insert adds a single row. Rows are never updated or deleted.
	Insert(ctx context.Context, shard string, row *types.EventRow) error

	// Scan returns the next segment of rows matching the filter. Pass an
	// empty token to start and the returned NextToken to continue.
	Scan(ctx context.Context, shard string, filter Filter, token string) (*Page, error)

	// Close releases backend resources.
	Close() error
}
