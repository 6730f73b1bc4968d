// Package blob defines the blob port: opaque byte storage keyed by storage
// path. The vault core computes digests, reference counts and permissions;
// this package only moves bytes.
//
// The port is deliberately small. Put/Get/Delete/Exists is the whole
// contract the content store needs, and every implementation (S3-compatible
// object storage, in-memory for tests) honors the same sentinel errors so
// callers can branch with errors.Is.
package blob

import (
	"context"
	"errors"
	"io"
)

// Store is the blob port.
//
// Storage paths are opaque to implementations; the vault derives them from
// content digests, which means a concurrent double-Put of identical bytes
// targets the same object and last-write-wins is harmless.
//
// All operations respect context cancellation and deadlines. Callers supply
// timeouts; no operation blocks indefinitely on its own.
//
// Thread safety: implementations must be safe for concurrent use.
type Store interface {
	// Put stores data under path, overwriting any existing object.
	// Returns an error wrapping ErrWriteFailed when bytes did not land;
	// the caller's reference counting depends on knowing that.
	Put(ctx context.Context, path string, data []byte) error

	// Get returns a reader for the object at path. The caller closes it.
	// Returns an error wrapping ErrNotFound when no object exists.
	Get(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes the object at path. Deleting an absent object is not
	// an error (the vault retries blob deletion out of band).
	Delete(ctx context.Context, path string) error

	// Exists reports whether an object is stored under path.
	Exists(ctx context.Context, path string) (bool, error)
}

var (
	// ErrNotFound indicates no object exists at the requested path.
	ErrNotFound = errors.New("blob not found")

	// ErrWriteFailed indicates a Put did not persist the bytes. Never
	// swallowed: metadata must not be committed for bytes that are not
	// actually stored.
	ErrWriteFailed = errors.New("blob write failed")

	// ErrReadFailed indicates a Get failed after the object was located.
	ErrReadFailed = errors.New("blob read failed")

	// ErrUnavailable indicates the backend is temporarily unreachable.
	// Transient; retrying may succeed.
	ErrUnavailable = errors.New("blob store unavailable")
)
