package strategy

// Error codes for extraction failures.
const (
	// CodeExtractionFailed is returned when the parser could not make
	// sense of the request body.
	CodeExtractionFailed = "EXTRACTION_FAILED"

	// CodeUnsafeFilename is returned for traversal sequences, NUL bytes
	// or reserved device names in an uploaded filename.
	CodeUnsafeFilename = "UNSAFE_FILENAME"

	// CodeBlockedExtension is returned when a file's extension is on the
	// channel's blocklist.
	CodeBlockedExtension = "BLOCKED_EXTENSION"

	// CodeMIMENotAllowed is returned when a declared MIME type is outside
	// the channel's allow-list.
	CodeMIMENotAllowed = "MIME_NOT_ALLOWED"

	// CodeFileTooLarge is returned when a part exceeds the channel's size
	// ceiling during streaming extraction.
	CodeFileTooLarge = "FILE_TOO_LARGE"

	// CodeUnknownStrategy is returned when a channel names a strategy no
	// implementation exists for.
	CodeUnknownStrategy = "UNKNOWN_UPLOAD_STRATEGY"
)
