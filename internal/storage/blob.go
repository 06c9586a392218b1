package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("blob not found")

// BlobStore is the opaque key/value object store the workers read inputs
// from and write results to. Result keys are write-once; callers check
// Exists before Put instead of overwriting.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
	Exists(ctx context.Context, key string) (bool, error)
}
