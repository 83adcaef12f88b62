// Package blob provides the object store that holds event content too large
// to live inline in an identity row. Implementations include S3 and the local
// filesystem for testing.
package blob

import (
	"context"
	"errors"
)

// Common errors for blob operations.
var (
	ErrBlobNotFound = errors.New("blob: object not found")
	ErrPutFailed    = errors.New("blob: put failed")
	ErrGetFailed    = errors.New("blob: get failed")
)

// BlobStore abstracts the overflow content store. Each shard owns its own
// blob namespace; keys are content ids derived from the event identifier and
// row key.
type BlobStore interface {
	// EnsureShard creates the shard's blob namespace if missing.
	EnsureShard(ctx context.Context, shard string) error

	// ShardExists reports whether the shard's blob namespace exists.
	ShardExists(ctx context.Context, shard string) (bool, error)

	// Put stores data under key in the shard's namespace.
	Put(ctx context.Context, shard, key string, data []byte) error

	// Get retrieves the data stored under key. Returns ErrBlobNotFound if
	// absent.
	Get(ctx context.Context, shard, key string) ([]byte, error)

	// Exists reports whether key is present in the shard's namespace.
	Exists(ctx context.Context, shard, key string) (bool, error)
}
