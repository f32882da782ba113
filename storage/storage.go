// Package storage provides the pluggable object-persistence layer for
// uploaded files.
//
// It defines a Provider interface implemented by the local-disk reference
// backend (localwr) and by S3-compatible object stores (miniowr, s3wr,
// spaceswr). The interface is intentionally narrow: callers hand over fully
// buffered bytes plus metadata and get a descriptor back; physical layout
// and retrieval scheme stay provider-specific.
package storage

import (
	"context"
	"time"
)

// Provider defines the contract for a storage backend.
// Implementations must be safe for concurrent use.
type Provider interface {
	// Put persists data under a logical directory and a generated storage
	// name, and returns the resulting object descriptor. The directory is
	// resolved from meta via ResolveDir rules when meta.Directory is empty.
	Put(ctx context.Context, data []byte, meta PutMeta) (*Object, error)

	// Get retrieves a stored object's bytes.
	// Returns a NotFound-typed error when the object is absent.
	Get(ctx context.Context, filename, directory string) ([]byte, error)

	// Delete removes an object. Soft delete (the default) moves it into a
	// trash area with a sidecar record of its original location; hard
	// delete removes the bytes permanently. Soft-deleting an absent object
	// is not an error; hard-deleting an absent object is NotFound.
	Delete(ctx context.Context, filename, directory string, opts DeleteOptions) error

	// List returns the objects under a logical directory.
	List(ctx context.Context, directory string) ([]ObjectInfo, error)

	// Exists probes for an object without reading it.
	Exists(ctx context.Context, filename, directory string) (bool, error)

	// Stat returns metadata for a single object.
	// Returns a NotFound-typed error when the object is absent.
	Stat(ctx context.Context, filename, directory string) (*ObjectInfo, error)

	// Move relocates an object to another logical directory.
	Move(ctx context.Context, filename, fromDir, toDir string) error

	// Copy duplicates an object into another logical directory.
	Copy(ctx context.Context, filename, fromDir, toDir string) error

	// Stats aggregates object counts and byte totals per directory.
	Stats(ctx context.Context) (*Stats, error)

	// Cleanup purges stale temp files and trashed objects older than the
	// retention window, returning how many objects were removed.
	Cleanup(ctx context.Context, retention time.Duration) (int, error)
}

// PutMeta carries the caller-side context a provider needs to place a file.
type PutMeta struct {
	// OriginalName is the client-declared filename. It is never used as
	// the storage name, only as a sanitized base for name generation.
	OriginalName string

	// ContentType is the (validated) MIME type of the bytes.
	ContentType string

	// ContentHash is the content digest, used for the storage-name
	// fragment. Optional; name generation falls back to a uuid fragment.
	ContentHash string

	// Directory is an explicit logical directory override.
	Directory string

	// RelatedEntityType optionally names the owning domain entity
	// (property, investment, user) for directory inference.
	RelatedEntityType string
}

// Object describes a persisted file as returned by Put.
type Object struct {
	Filename  string
	Directory string
	URL       string
	Size      int64
}

// ObjectInfo is the metadata view of a stored object.
type ObjectInfo struct {
	Filename    string
	Directory   string
	Size        int64
	ContentType string
	ModifiedAt  time.Time
}

// DeleteOptions controls Delete behavior.
type DeleteOptions struct {
	// Hard removes bytes permanently instead of trashing them.
	Hard bool
}

// Stats aggregates storage usage.
type Stats struct {
	TotalObjects int64
	TotalBytes   int64
	Directories  map[string]DirStats
}

// DirStats holds per-directory aggregates.
type DirStats struct {
	Objects int64
	Bytes   int64
}
