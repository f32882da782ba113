package upload

const (
	// CodeUnknownChannel is returned when no channel with the requested
	// name is configured.
	CodeUnknownChannel = "UNKNOWN_UPLOAD_CHANNEL"

	// CodeChannelConfig marks an invalid channel definition caught at
	// manager construction.
	CodeChannelConfig = "INVALID_CHANNEL_CONFIG"

	// CodeSecurityRejected marks a file that failed security validation
	// and was moved to quarantine.
	CodeSecurityRejected = "SECURITY_REJECTED"

	// CodeVirusDetected marks a file rejected by the configured
	// virus-scan hook.
	CodeVirusDetected = "VIRUS_DETECTED"

	// CodeContentInvalid marks a structurally malformed payload
	// (undecodable image, truncated document).
	CodeContentInvalid = "CONTENT_INVALID"

	// CodePersistHookFailed marks a post-persist hook failure. The stored
	// bytes are NOT removed; reconciliation is the caller's job.
	CodePersistHookFailed = "PERSIST_HOOK_FAILED"
)
