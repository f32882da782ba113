package upload

import (
	"context"
	"time"

	"github.com/deedvault/fileguard/hasher"
	"github.com/deedvault/fileguard/upload/strategy"
)

// Metadata is the computed (not client-declared) description of an
// accepted file.
type Metadata struct {
	Hash          string           `json:"hash"`
	HashAlgorithm hasher.Algorithm `json:"hash_algorithm"`
	SniffedMIME   string           `json:"sniffed_mime"`

	// Width and Height are set for decodable images, zero otherwise.
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`
}

// Thumbnail describes one persisted derived image.
type Thumbnail struct {
	Width       int    `json:"width"`
	StorageName string `json:"storage_name"`
	URL         string `json:"url"`
	Size        int64  `json:"size"`
}

// PersistedFileDescriptor is the return of a successful upload. It is a
// value object: the storage provider owns the bytes, callers copy the
// descriptor freely into their own domain records.
type PersistedFileDescriptor struct {
	ID           string      `json:"id"`
	OriginalName string      `json:"original_name"`
	StorageName  string      `json:"storage_name"`
	Directory    string      `json:"directory"`
	URL          string      `json:"url"`
	Size         int64       `json:"size"`
	ContentType  string      `json:"content_type"`
	Channel      string      `json:"channel"`
	Metadata     Metadata    `json:"metadata"`
	Thumbnails   []Thumbnail `json:"thumbnails,omitempty"`
	UploadedAt   time.Time   `json:"uploaded_at"`

	// Caller-supplied routing hints, echoed back so the post-persist
	// hook can build its registry record without re-reading the request.
	RelatedEntityType string `json:"related_entity_type,omitempty"`
	RelatedEntityID   string `json:"related_entity_id,omitempty"`
	DocumentType      string `json:"document_type,omitempty"`
	UploaderID        string `json:"uploader_id,omitempty"`
}

// Result is one file's outcome inside a batch. A batch never fails as a
// whole because of one bad file; each entry reports its own verdict in
// submission order.
type Result struct {
	OriginalName string                   `json:"original_name"`
	OK           bool                     `json:"ok"`
	File         *PersistedFileDescriptor `json:"file,omitempty"`
	Error        string                   `json:"error,omitempty"`
	Code         string                   `json:"code,omitempty"`
}

// PersistHook runs after the bytes are stored, typically to write the
// file-registry record. A hook failure surfaces to the caller but never
// triggers a compensating delete of the stored object.
type PersistHook func(ctx context.Context, d *PersistedFileDescriptor) error

// VirusScanHook is the pluggable scan point between security validation
// and structural validation. A non-nil error rejects the file. No engine
// ships with this package.
type VirusScanHook func(ctx context.Context, f *strategy.NormalizedFile) error
