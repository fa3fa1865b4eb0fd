package job

import "errors"

// ErrNoSegments is returned by Start when the job record has an empty
// segment list — the one core failure that is fatal to the operation
// besides a storage error.
var ErrNoSegments = errors.New("job: no segments to download")

// ErrRetryMergeNotAllowed is returned by RetryMerge unless the job's status
// is completed or error.
var ErrRetryMergeNotAllowed = errors.New("job: retry-merge only allowed from completed or error")
