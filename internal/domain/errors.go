package domain

import "errors"

var (
	// ErrSourceUnavailable means a reference or pandemic source could not be
	// fetched or was not valid JSON. The run must stop.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrCredentialMissing means the weather API key is not configured.
	// Raised before any network call.
	ErrCredentialMissing = errors.New("weather credential missing")

	// ErrLookupMiss marks a single failed weather lookup. Never fatal.
	ErrLookupMiss = errors.New("weather lookup miss")

	// ErrMalformedRecord marks a source entry that is not a JSON object.
	// The entry is skipped.
	ErrMalformedRecord = errors.New("malformed record")
)
