package persist

import "errors"

var (
	// ErrUnsupportedFormat means the destination extension has no writer.
	ErrUnsupportedFormat = errors.New("no writer for destination format")

	// ErrUnsupportedOperation means saving is not defined for the format,
	// e.g. structured markup.
	ErrUnsupportedOperation = errors.New("save not supported for this format")

	// ErrFileLocked means the destination was held open by another process
	// when the save tried to finalize; the original file is untouched.
	ErrFileLocked = errors.New("destination file is locked")
)
