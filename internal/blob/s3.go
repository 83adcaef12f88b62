package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Blob implements BlobStore on AWS S3. Each shard maps to a key prefix
// within a single bucket.
type S3Blob struct {
	client     *s3.Client
	bucket     string
	maxRetries int
}

// S3Config holds configuration for S3 blob storage.
type S3Config struct {
	// Region is the AWS region for the bucket.
	Region string
	// Endpoint is an optional custom endpoint (for MinIO, LocalStack, etc.).
	Endpoint string
	// UsePathStyle enables path-style addressing (required for MinIO).
	UsePathStyle bool
}

// NewS3Blob creates a new S3-backed blob store.
func NewS3Blob(ctx context.Context, bucket string, cfg S3Config) (*S3Blob, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("blob: load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return &S3Blob{
		client:     s3.NewFromConfig(awsCfg, s3Opts...),
		bucket:     bucket,
		maxRetries: 3,
	}, nil
}

// NewS3BlobWithClient creates an S3 blob store with a pre-configured client.
func NewS3BlobWithClient(client *s3.Client, bucket string) *S3Blob {
	return &S3Blob{client: client, bucket: bucket, maxRetries: 3}
}

// EnsureShard writes a namespace marker object so the shard prefix is
// discoverable. S3 prefixes need no creation otherwise.
func (s *S3Blob) EnsureShard(ctx context.Context, shard string) error {
	return s.retryWithBackoff(ctx, func() error {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.markerKey(shard)),
			Body:   bytes.NewReader(nil),
		})
		return err
	})
}

// ShardExists reports whether the shard's namespace marker exists.
func (s *S3Blob) ShardExists(ctx context.Context, shard string) (bool, error) {
	return s.headExists(ctx, s.markerKey(shard))
}

// Put stores data under the shard's prefix.
func (s *S3Blob) Put(ctx context.Context, shard, key string, data []byte) error {
	err := s.retryWithBackoff(ctx, func() error {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.objectKey(shard, key)),
			Body:   bytes.NewReader(data),
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPutFailed, err)
	}
	return nil
}

// Get retrieves the data stored under the shard's prefix.
func (s *S3Blob) Get(ctx context.Context, shard, key string) ([]byte, error) {
	var data []byte
	err := s.retryWithBackoff(ctx, func() error {
		resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.objectKey(shard, key)),
		})
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		data, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrGetFailed, err)
	}
	return data, nil
}

// Exists reports whether key is present under the shard's prefix.
func (s *S3Blob) Exists(ctx context.Context, shard, key string) (bool, error) {
	return s.headExists(ctx, s.objectKey(shard, key))
}

func (s *S3Blob) headExists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := s.retryWithBackoff(ctx, func() error {
		_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			var notFound *types.NotFound
			if errors.As(err, &notFound) {
				exists = false
				return nil
			}
			return err
		}
		exists = true
		return nil
	})
	return exists, err
}

func (s *S3Blob) objectKey(shard, key string) string {
	return fmt.Sprintf("shards/%s/content/%s", shard, key)
}

func (s *S3Blob) markerKey(shard string) string {
	return fmt.Sprintf("shards/%s/.namespace", shard)
}

// retryWithBackoff retries transient S3 failures with exponential backoff.
// Not-found responses surface through the returned error unchanged.
func (s *S3Blob) retryWithBackoff(ctx context.Context, op func() error) error {
	var err error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err = op()
		if err == nil {
			return nil
		}

		var noSuchKey *types.NoSuchKey
		var notFound *types.NotFound
		if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
			return err
		}
	}
	return err
}
