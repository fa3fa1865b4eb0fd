// Package store persists Job records and the Settings singleton behind a
// single interface with two backends: a Repository-shaped CRUD-over-one-
// aggregate contract generalized with a second, in-memory implementation
// and retargeted at Job/Settings.
package store

import (
	"context"
	"errors"

	"github.com/streamvault/hlsdl/internal/common"
)

// ErrNotFound is returned when a lookup finds no matching job.
var ErrNotFound = errors.New("store: job not found")

// Store is the persistence contract the engine depends on. Both backends
// must make Save idempotent: saving a job with the same ID overwrites it.
type Store interface {
	SaveJob(ctx context.Context, job *common.Job) error
	GetJob(ctx context.Context, id string) (*common.Job, error)
	ListJobs(ctx context.Context) ([]*common.Job, error)
	DeleteJob(ctx context.Context, id string) error

	// UpdateJobProgress applies a partial progress update without requiring
	// the caller to read-modify-write the whole record, so concurrent
	// progress updates from the fetch pool cannot clobber unrelated fields.
	UpdateJobProgress(ctx context.Context, id string, downloadedSegments int, downloadedBytes, speed, eta int64, progress float64) error

	// UpdateJobStatus sets status/error_message/output_file/duration in one
	// atomic write, for lifecycle transitions that aren't plain progress.
	UpdateJobStatus(ctx context.Context, id string, status common.Status, errorMessage, outputFile string, duration float64) error

	GetSettings(ctx context.Context) (common.Settings, error)
	SaveSettings(ctx context.Context, s common.Settings) error

	Close() error
}
