package registry

import (
	"context"
	"time"

	"github.com/code19m/errx"
	"github.com/uptrace/bun"

	"github.com/deedvault/fileguard/pg"
	"github.com/deedvault/fileguard/upload"
)

// Repository provides file-record persistence over bun.
type Repository struct {
	idb bun.IDB
}

// NewRepository creates a Repository bound to a database or transaction.
func NewRepository(idb bun.IDB) *Repository {
	return &Repository{idb: idb}
}

// Create inserts a new file record.
func (r *Repository) Create(ctx context.Context, rec *FileRecord) (*FileRecord, error) {
	if rec.Visibility == "" {
		rec.Visibility = VisibilityPrivate
	}

	q := r.idb.NewInsert().Model(rec).Returning("*")
	if _, err := q.Exec(ctx); err != nil {
		if pg.IsConflict(err) {
			return nil, errx.New(
				"file record collides on storage name",
				errx.WithCode(CodeDuplicateStorageName),
				errx.WithType(errx.T_Conflict),
				errx.WithDetails(pg.GetPgErrorDetails(err, q)),
			)
		}
		return nil, errx.Wrap(err, errx.WithDetails(pg.GetPgErrorDetails(err, q)))
	}
	return rec, nil
}

// GetByID returns a non-deleted record by its ID.
func (r *Repository) GetByID(ctx context.Context, id string) (*FileRecord, error) {
	rec := new(FileRecord)
	q := r.idb.NewSelect().Model(rec).
		Where("id = ?", id).
		Where("deleted_at IS NULL")

	if err := q.Scan(ctx); err != nil {
		if pg.IsNotFound(err) {
			return nil, errx.New(
				"file record not found",
				errx.WithCode(CodeFileRecordNotFound),
				errx.WithType(errx.T_NotFound),
				errx.WithDetails(errx.D{"id": id}),
			)
		}
		return nil, errx.Wrap(err, errx.WithDetails(pg.GetPgErrorDetails(err, q)))
	}
	return rec, nil
}

// ListByEntity returns the live records attached to one domain entity,
// newest first.
func (r *Repository) ListByEntity(ctx context.Context, entityType, entityID string) ([]FileRecord, error) {
	var recs []FileRecord
	q := r.idb.NewSelect().Model(&recs).
		Where("related_entity_type = ?", entityType).
		Where("related_entity_id = ?", entityID).
		Where("deleted_at IS NULL").
		Order("created_at DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, errx.Wrap(err, errx.WithDetails(pg.GetPgErrorDetails(err, q)))
	}
	return recs, nil
}

// MarkDeleted soft-deletes a record. Marking an already-deleted or absent
// record returns NotFound so callers can reconcile against storage state.
func (r *Repository) MarkDeleted(ctx context.Context, id string) error {
	q := r.idb.NewUpdate().Model((*FileRecord)(nil)).
		Set("deleted_at = ?", time.Now()).
		Where("id = ?", id).
		Where("deleted_at IS NULL")

	res, err := q.Exec(ctx)
	if err != nil {
		return errx.Wrap(err, errx.WithDetails(pg.GetPgErrorDetails(err, q)))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errx.Wrap(err)
	}
	if affected == 0 {
		return errx.New(
			"file record not found",
			errx.WithCode(CodeFileRecordNotFound),
			errx.WithType(errx.T_NotFound),
			errx.WithDetails(errx.D{"id": id}),
		)
	}
	return nil
}

// PersistHook adapts the repository into the upload pipeline's
// post-persist hook: every accepted upload gets its registry record,
// visibility private.
func (r *Repository) PersistHook() upload.PersistHook {
	return func(ctx context.Context, d *upload.PersistedFileDescriptor) error {
		_, err := r.Create(ctx, &FileRecord{
			ID:                d.ID,
			OriginalName:      d.OriginalName,
			StorageName:       d.StorageName,
			Directory:         d.Directory,
			URL:               d.URL,
			Size:              d.Size,
			ContentType:       d.ContentType,
			ContentHash:       d.Metadata.Hash,
			Channel:           d.Channel,
			RelatedEntityType: d.RelatedEntityType,
			RelatedEntityID:   d.RelatedEntityID,
			DocumentType:      d.DocumentType,
			UploaderID:        d.UploaderID,
			Visibility:        VisibilityPrivate,
		})
		return errx.Wrap(err)
	}
}
