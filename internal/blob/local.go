package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalBlob implements BlobStore on the local filesystem, one directory per
// shard. Primarily used for testing and development.
type LocalBlob struct {
	basePath string
}

// NewLocalBlob creates a filesystem-backed blob store rooted at basePath.
func NewLocalBlob(basePath string) (*LocalBlob, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("blob: create base directory: %w", err)
	}
	return &LocalBlob{basePath: basePath}, nil
}

// EnsureShard creates the shard directory if missing.
func (l *LocalBlob) EnsureShard(ctx context.Context, shard string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(l.basePath, shard), 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrPutFailed, err)
	}
	return nil
}

// ShardExists reports whether the shard directory exists.
func (l *LocalBlob) ShardExists(ctx context.Context, shard string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	info, err := os.Stat(filepath.Join(l.basePath, shard))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

// Put writes data to the shard directory under key.
func (l *LocalBlob) Put(ctx context.Context, shard, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := l.objectPath(shard, key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrPutFailed, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("%w: %v", ErrPutFailed, err)
	}
	return nil
}

// Get reads the data stored under key.
func (l *LocalBlob) Get(ctx context.Context, shard, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(l.objectPath(shard, key))
	if os.IsNotExist(err) {
		return nil, ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGetFailed, err)
	}
	return data, nil
}

// Exists reports whether key is present in the shard directory.
func (l *LocalBlob) Exists(ctx context.Context, shard, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := os.Stat(l.objectPath(shard, key))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (l *LocalBlob) objectPath(shard, key string) string {
	return filepath.Join(l.basePath, shard, key)
}
