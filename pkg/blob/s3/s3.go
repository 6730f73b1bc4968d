// Package s3 implements the blob port on Amazon S3 or S3-compatible object
// storage (MinIO, Cloudflare R2, Localstack, ...).
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/marmos91/dittovault/pkg/blob"
)

// S3Store implements blob.Store over a single bucket.
//
// Storage paths map directly to object keys (optionally under KeyPrefix),
// so the bucket contents stay inspectable: one object per unique digest.
//
// Thread safety: the AWS SDK client is safe for concurrent use, and the
// store holds no mutable state of its own.
type S3Store struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
}

// S3StoreConfig contains configuration for the S3 blob store.
type S3StoreConfig struct {
	// Client is the configured S3 client.
	Client *s3.Client

	// Bucket is the bucket name. Must already exist.
	Bucket string

	// KeyPrefix is an optional prefix for all object keys, e.g.
	// "dittovault/content/".
	KeyPrefix string
}

// NewS3Store creates an S3-backed blob store and verifies bucket access.
// The bucket is not created here.
func NewS3Store(ctx context.Context, cfg S3StoreConfig) (*S3Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 blob store: client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3 blob store: bucket is required")
	}

	// Verify we can reach the bucket before accepting traffic.
	_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	return &S3Store{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

// objectKey maps a storage path to the S3 object key.
func (s *S3Store) objectKey(path string) string {
	return s.keyPrefix + path
}

func (s *S3Store) Put(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(path)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("put %s: %v: %w", path, err, blob.ErrWriteFailed)
	}

	return nil
}

func (s *S3Store) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(path)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("get %s: %w", path, blob.ErrNotFound)
		}
		return nil, fmt.Errorf("get %s: %v: %w", path, err, blob.ErrReadFailed)
	}

	return out.Body, nil
}

func (s *S3Store) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// S3 DeleteObject is idempotent: deleting a missing key succeeds,
	// which matches the port contract.
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(path)),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}

	return nil
}

func (s *S3Store) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(path)),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("head %s: %w", path, err)
	}

	return true, nil
}
