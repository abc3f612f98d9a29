package apk

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned when build inputs are missing or inconsistent,
	// such as an empty metadata record or signing requested without a key.
	ErrInvalidConfig = errors.New("invalid build configuration")

	// ErrUnsupportedEntry is returned when the payload directory contains a
	// filesystem object the archiver cannot represent, such as a device node,
	// and the caller has not opted in to special files.
	ErrUnsupportedEntry = errors.New("unsupported filesystem entry")

	// ErrKeyUnavailable is returned when the signing key cannot be read,
	// parsed, or decrypted.
	ErrKeyUnavailable = errors.New("signing key unavailable")

	// ErrSigningUnavailable is returned when signing was requested but no
	// signing backend is available at runtime.
	ErrSigningUnavailable = errors.New("signing backend unavailable")

	// ErrMalformedArchive is returned when an archive decompresses but its
	// metadata segment is missing or unparsable.
	ErrMalformedArchive = errors.New("malformed archive")

	// ErrUnsupportedFormat is returned when a byte stream is not a recognized
	// compressed-tar concatenation.
	ErrUnsupportedFormat = errors.New("unsupported archive format")

	// ErrDestinationExists is returned by Save when the destination path is
	// already occupied. Archives are never silently overwritten.
	ErrDestinationExists = errors.New("destination file exists")
)

// StageError wraps a failure with the identity of the pipeline stage it
// came from.
type StageError struct {
	Stage string
	Err   error
}

// Error implements error.
func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}
