// Package registry persists the metadata record of every accepted upload.
//
// The record, not the storage object, is the source of truth an
// authorization check consults before serving a download or preview. The
// upload pipeline writes records through its post-persist hook; a failed
// record write never rolls back the stored bytes (reconciliation runs out
// of band over records missing their object and vice versa).
package registry

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/deedvault/fileguard/pg"
)

// Visibility values for a file record.
const (
	VisibilityPrivate = "private"
	VisibilityPublic  = "public"
)

// timestamps aliases pg.BaseModel so it can be embedded alongside
// bun.BaseModel without an embedded-field name collision.
type timestamps = pg.BaseModel

// FileRecord is the persisted descriptor of one accepted upload.
type FileRecord struct {
	bun.BaseModel `bun:"table:file_records"`

	ID           string `bun:"id,pk" json:"id"`
	OriginalName string `bun:"original_name,notnull" json:"original_name"`
	StorageName  string `bun:"storage_name,notnull,unique" json:"storage_name"`
	Directory    string `bun:"directory,notnull" json:"directory"`
	URL          string `bun:"url,notnull" json:"url"`
	Size         int64  `bun:"size,notnull" json:"size"`
	ContentType  string `bun:"content_type,notnull" json:"content_type"`
	ContentHash  string `bun:"content_hash,notnull" json:"content_hash"`
	Channel      string `bun:"channel,notnull" json:"channel"`

	RelatedEntityType string `bun:"related_entity_type,nullzero" json:"related_entity_type,omitempty"`
	RelatedEntityID   string `bun:"related_entity_id,nullzero" json:"related_entity_id,omitempty"`
	DocumentType      string `bun:"document_type,nullzero" json:"document_type,omitempty"`

	UploaderID string `bun:"uploader_id,nullzero" json:"uploader_id,omitempty"`
	Visibility string `bun:"visibility,notnull,default:'private'" json:"visibility"`

	DeletedAt time.Time `bun:"deleted_at,nullzero" json:"deleted_at,omitempty"`

	timestamps
}
