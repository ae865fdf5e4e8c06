package jobs

import "errors"

var (
	// ErrInvalidKind is returned for unknown kinds or attempts to request
	// the reserved synthetic kind from the backend.
	ErrInvalidKind = errors.New("invalid job kind")

	// ErrSyntheticJob is returned when a caller tries to mutate the locally
	// derived summary job.
	ErrSyntheticJob = errors.New("synthetic summary job cannot be modified")

	// ErrEmptyContent is returned by Update before any request is sent.
	ErrEmptyContent = errors.New("content must not be empty")

	// ErrUnknownJob is returned when an operation names a job ID the
	// session does not hold.
	ErrUnknownJob = errors.New("job not found in session")
)
