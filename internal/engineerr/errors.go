// Package engineerr defines the error-kind taxonomy for the download engine:
// a category + retryable + resource envelope around an underlying error,
// generalized from HTTP-chunk categories to playlist/segment/mux/storage
// kinds.
package engineerr

import (
	"errors"
	"fmt"
)

// Kind classifies the operation that failed.
type Kind string

const (
	KindPlaylistParse    Kind = "playlist-parse"
	KindSegmentTransport Kind = "segment-transport"
	KindSegmentEmpty     Kind = "segment-empty"
	KindSegmentExhausted Kind = "segment-exhausted"
	KindMuxBinaryMissing Kind = "mux-binary-missing"
	KindMuxRun           Kind = "mux-run"
	KindCleanup          Kind = "cleanup"
	KindStorage          Kind = "storage"
	KindCancelRequested  Kind = "cancel-requested"
)

// Error wraps an underlying cause with its kind and whether a caller should
// retry the operation that produced it.
type Error struct {
	Kind      Kind
	Resource  string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Resource, e.Err)
	}
	return fmt.Sprintf("[%s] %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of the given kind.
func New(kind Kind, resource string, retryable bool, err error) *Error {
	return &Error{Kind: kind, Resource: resource, Retryable: retryable, Err: err}
}

// IsRetryable reports whether err is an *Error marked retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// ErrCancelRequested is the sentinel propagated internally when a fetch is
// aborted because the job's liveness flag was cleared. It is never surfaced
// as a job error.
var ErrCancelRequested = New(KindCancelRequested, "", false, errors.New("cancel requested"))
