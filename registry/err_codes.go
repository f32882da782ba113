package registry

const (
	// CodeFileRecordNotFound is returned when no record matches the
	// requested ID.
	CodeFileRecordNotFound = "FILE_RECORD_NOT_FOUND"

	// CodeDuplicateStorageName marks an insert that collides on the
	// unique storage name.
	CodeDuplicateStorageName = "DUPLICATE_STORAGE_NAME"
)
