// Package filestore defines the read-only object store map definitions
// can be fetched from.
//
// Usage:
//
//	cfg := filestore.DefaultConfig("localhost:9000", "minioadmin", "minioadmin")
//	store, err := minio.New(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
//
//	data, err := filestore.ReadAll(ctx, store, "maps", "orders.yaml")
package filestore

import (
	"context"
	"io"

	"github.com/koustreak/xmldbms/internal/errs"
)

// MaxObjectSize caps how much of an object ReadAll will load.
const MaxObjectSize = 8 << 20

// Store is the interface all file storage providers implement.
type Store interface {
	// Ping verifies the storage backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any held resources.
	Close() error

	// GetObject opens a streaming handle to the object at key inside bucket.
	// The caller MUST close the reader.
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// ReadAll loads the object at key into memory. Objects larger than
// MaxObjectSize are rejected.
func ReadAll(ctx context.Context, s Store, bucket, key string) ([]byte, error) {
	r, err := s.GetObject(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	data, err := io.ReadAll(io.LimitReader(r, MaxObjectSize+1))
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to read object "+key, err)
	}
	if len(data) > MaxObjectSize {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "object %s exceeds %d bytes", key, MaxObjectSize)
	}
	return data, nil
}
