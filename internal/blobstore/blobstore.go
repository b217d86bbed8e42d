// Package blobstore defines the capability interface over the S3-compatible
// object store. Keys are flat strings; folder-like prefixes are a naming
// convention only.
package blobstore

import (
	"context"
	"io"
	"net/url"
	"time"
)

// ObjectInfo describes a stored object as reported by a head call.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
}

// ObjectStore is the interface for the key-addressed blob store.
// Implementations must be safe for concurrent use.
type ObjectStore interface {
	// Put streams data to the store under the given key.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Get retrieves an object as a stream. The caller must close it.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Head reports whether the object exists and, if so, its metadata.
	// A missing object is not an error.
	Head(ctx context.Context, key string) (ObjectInfo, bool, error)

	// Delete removes the object at key.
	Delete(ctx context.Context, key string) error

	// PresignPut returns a time-limited signed URL authorizing a single
	// PUT of the given content type to key.
	PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (*url.URL, error)

	// PresignGet returns a time-limited signed URL authorizing a GET of key.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (*url.URL, error)
}
