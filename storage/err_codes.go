package storage

// Error codes for storage operations.
const (
	// CodeObjectNotFound is returned when an object is absent from the
	// backend. Callers map it to a 404-equivalent instead of a 500.
	CodeObjectNotFound = "OBJECT_NOT_FOUND"

	// CodeStorageIO is returned for backend read/write/delete failures.
	CodeStorageIO = "STORAGE_IO_FAILURE"

	// CodeUnknownBackend is returned when a configuration names a backend
	// no constructor is registered for.
	CodeUnknownBackend = "UNKNOWN_STORAGE_BACKEND"

	// CodeInvalidDirectory is returned when a logical directory escapes
	// the provider root.
	CodeInvalidDirectory = "INVALID_DIRECTORY"
)
