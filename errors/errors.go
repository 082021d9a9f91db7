// Package errors provides error types and handling for artifact sync jobs.
package errors

import (
	"errors"
	"fmt"
)

// Error represents a sync operation error with context about the operation
// that failed. It wraps the underlying cause with the bucket and object key
// involved so failures can be attributed to a specific object.
type Error struct {
	// Op is the operation that failed (e.g., "fetch", "list", "upload")
	Op string

	// Bucket is the S3 bucket name (if applicable)
	Bucket string

	// Key is the object key (if applicable)
	Key string

	// Err is the underlying error
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	if e.Bucket != "" && e.Key != "" {
		return fmt.Sprintf("sitesync.%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	}
	if e.Bucket != "" {
		return fmt.Sprintf("sitesync.%s bucket %s: %v", e.Op, e.Bucket, e.Err)
	}
	if e.Key != "" {
		return fmt.Sprintf("sitesync.%s object %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("sitesync.%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithBucket adds bucket context to an existing error.
func (e *Error) WithBucket(bucket string) *Error {
	e.Bucket = bucket
	return e
}

// WithKey adds object key context to an existing error.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError creates a new Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// NewBucketError creates a new Error with bucket context.
func NewBucketError(op, bucket string, err error) *Error {
	return &Error{
		Op:     op,
		Bucket: bucket,
		Err:    err,
	}
}

// NewObjectError creates a new Error with bucket and key context.
func NewObjectError(op, bucket, key string, err error) *Error {
	return &Error{
		Op:     op,
		Bucket: bucket,
		Key:    key,
		Err:    err,
	}
}

// Tag wraps err with the given sentinel so callers can match the failure
// class with errors.Is while preserving the underlying cause chain.
func Tag(sentinel, err error) error {
	if err == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

// Sentinel errors covering the job failure taxonomy. Each maps 1:1 to a
// reason code reported back to the pipeline; check them with errors.Is.
var (
	// ErrFetch indicates the input artifact could not be retrieved
	ErrFetch = errors.New("sitesync: artifact fetch failed")

	// ErrInvalidEntry indicates the bundle is malformed or contains an
	// entry with an unusable path (traversal, absolute, control characters)
	ErrInvalidEntry = errors.New("sitesync: invalid archive entry")

	// ErrSizeLimit indicates an archive entry exceeds the configured maximum size
	ErrSizeLimit = errors.New("sitesync: archive entry exceeds size limit")

	// ErrList indicates the destination bucket could not be enumerated
	ErrList = errors.New("sitesync: destination listing failed")

	// ErrTransfer indicates an upload or delete failed after retries
	ErrTransfer = errors.New("sitesync: transfer failed")

	// ErrReporting indicates the completion callback could not be delivered
	ErrReporting = errors.New("sitesync: result reporting failed")

	// ErrInvalidInput indicates a malformed job descriptor or configuration
	ErrInvalidInput = errors.New("sitesync: invalid input")
)

// IsFetch checks if an error indicates an artifact fetch failure.
func IsFetch(err error) bool {
	return errors.Is(err, ErrFetch)
}

// IsInvalidEntry checks if an error indicates a rejected archive entry.
func IsInvalidEntry(err error) bool {
	return errors.Is(err, ErrInvalidEntry)
}

// IsSizeLimit checks if an error indicates an oversized archive entry.
func IsSizeLimit(err error) bool {
	return errors.Is(err, ErrSizeLimit)
}

// IsList checks if an error indicates a destination listing failure.
func IsList(err error) bool {
	return errors.Is(err, ErrList)
}

// IsTransfer checks if an error indicates a failed upload or delete.
func IsTransfer(err error) bool {
	return errors.Is(err, ErrTransfer)
}

// IsReporting checks if an error indicates a failed completion callback.
func IsReporting(err error) bool {
	return errors.Is(err, ErrReporting)
}
