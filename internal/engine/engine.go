// Package engine owns the process-wide job registry: one *job.Supervisor per
// job id, constructed lazily and kept until the job is cancelled so repeated
// start/pause calls reuse the same liveness flag and ephemeral state.
// Global maps for active jobs, stats, and failed sets are generalized into
// per-job supervisor values held by this registry instead.
package engine

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/streamvault/hlsdl/internal/common"
	"github.com/streamvault/hlsdl/internal/engineerr"
	"github.com/streamvault/hlsdl/internal/events"
	"github.com/streamvault/hlsdl/internal/job"
	"github.com/streamvault/hlsdl/internal/logging"
	"github.com/streamvault/hlsdl/internal/metrics"
	"github.com/streamvault/hlsdl/internal/mux"
	"github.com/streamvault/hlsdl/internal/playlist"
	"github.com/streamvault/hlsdl/internal/segment"
	"github.com/streamvault/hlsdl/internal/store"
)

// Engine is the process-wide singleton: a registry of job supervisors plus
// the shared store, event sink, fetcher, and muxer driver they're built
// from. Construct exactly one per process.
type Engine struct {
	cfg      *Config
	st       store.Store
	sink     events.Sink
	muxer    *mux.Driver
	metrics  *metrics.Registry
	resolver *playlist.Resolver

	mu          sync.Mutex
	supervisors map[string]*job.Supervisor
}

// New constructs the engine and locates the muxer binary once, up front, so
// that initialization failures surface at construction time rather than on
// a job's first completion. A missing muxer binary is not fatal to
// construction — raw-concat fallback is a valid core behavior — but it is
// logged so operators notice before a job needs it.
func New(cfg *Config, st store.Store, sink events.Sink) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	muxer := mux.NewDriver()
	log := logging.For("engine")
	if !muxer.HasBinary() {
		log.Warn().Msg("no muxer binary located on PATH; merges will fall back to raw concatenation")
	}

	return &Engine{
		cfg:         cfg,
		st:          st,
		sink:        sink,
		muxer:       muxer,
		metrics:     metrics.NewRegistry(),
		resolver:    playlist.New(),
		supervisors: make(map[string]*job.Supervisor),
	}, nil
}

// AddJob resolves sourceURL — following a master playlist to its
// highest-bandwidth variant when necessary — and persists a new queued job
// for it. threads and outputDir of zero/empty fall back to the engine's
// configured defaults.
func (e *Engine) AddJob(ctx context.Context, sourceURL string, threads int, outputDir string) (*common.Job, error) {
	segments, err := e.resolveSegments(ctx, sourceURL)
	if err != nil {
		return nil, err
	}

	if threads <= 0 {
		threads = e.cfg.DefaultThreads
	}
	if outputDir == "" {
		outputDir = e.cfg.DefaultOutputDir
	}

	now := time.Now()
	j := &common.Job{
		ID:            uuid.New().String(),
		SourceURL:     sourceURL,
		PlaylistURL:   sourceURL,
		Filename:      filenameFromURL(sourceURL),
		Status:        common.StatusQueued,
		Threads:       threads,
		OutputDir:     outputDir,
		Segments:      segments,
		TotalSegments: len(segments),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := e.st.SaveJob(ctx, j); err != nil {
		return nil, engineerr.New(engineerr.KindStorage, sourceURL, false, err)
	}
	return j, nil
}

// resolveSegments follows one level of master-to-media indirection: a master
// playlist's variants are ordered by descending bandwidth and the first one
// resolved successfully wins.
func (e *Engine) resolveSegments(ctx context.Context, sourceURL string) ([]string, error) {
	result, err := e.resolver.Resolve(ctx, sourceURL)
	if err != nil {
		return nil, err
	}
	if !result.IsMaster {
		return result.Media.Segments, nil
	}

	variants := append([]playlist.Variant(nil), result.Master.Variants...)
	sort.Slice(variants, func(i, j int) bool { return variants[i].Bandwidth > variants[j].Bandwidth })

	var lastErr error
	for _, v := range variants {
		media, err := e.resolver.Resolve(ctx, v.URL)
		if err != nil {
			lastErr = err
			continue
		}
		if media.IsMaster {
			continue
		}
		return media.Media.Segments, nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, engineerr.New(engineerr.KindPlaylistParse, sourceURL, false, fmt.Errorf("master playlist has no resolvable media variant"))
}

// filenameFromURL derives a base filename (no extension) from the source
// URL's last path segment, falling back to "download" when the URL has no
// usable path component.
func filenameFromURL(sourceURL string) string {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return "download"
	}
	base := path.Base(u.Path)
	base = strings.TrimSuffix(base, path.Ext(base))
	base = strings.TrimSpace(base)
	if base == "" || base == "." || base == "/" {
		return "download"
	}
	return base
}

// supervisorFor returns the registry entry for id, constructing one on
// first use. Entries are never evicted except by Cancel, so a later Start
// for the same id after a pause reuses the supervisor that already holds
// its ephemeral accounting.
func (e *Engine) supervisorFor(id string) *job.Supervisor {
	e.mu.Lock()
	defer e.mu.Unlock()

	if sup, ok := e.supervisors[id]; ok {
		return sup
	}
	sup := job.New(id, e.st, e.sink, segment.New(), e.muxer).WithMetrics(e.metrics)
	e.supervisors[id] = sup
	return sup
}

// StartJob begins or resumes job id. It errors if the job is absent
// (preflighted synchronously so callers don't get a silently dropped
// background start); a second StartJob while the job is already
// downloading is a no-op, per the supervisor's own idempotent-double-start
// guard.
func (e *Engine) StartJob(ctx context.Context, id string) error {
	if _, err := e.st.GetJob(ctx, id); err != nil {
		return fmt.Errorf("engine: start %s: %w", id, err)
	}

	sup := e.supervisorFor(id)
	go func() {
		if err := sup.Start(context.Background()); err != nil {
			engineLog := logging.For("engine")
			engineLog.Error().Err(err).Str("job_id", id).Msg("job start failed")
		}
	}()
	return nil
}

// PauseJob requests a cooperative pause. No error when the job is not
// currently downloading.
func (e *Engine) PauseJob(ctx context.Context, id string) error {
	return e.supervisorFor(id).Pause(ctx)
}

// CancelJob requests cancellation and removes the job from the registry, so
// a later job created with the same id starts fresh rather than inheriting
// stale ephemeral state. Idempotent.
func (e *Engine) CancelJob(ctx context.Context, id string) error {
	sup := e.supervisorFor(id)
	if err := sup.Cancel(ctx); err != nil {
		return err
	}

	e.mu.Lock()
	delete(e.supervisors, id)
	e.mu.Unlock()
	return nil
}

// RetryMergeJob re-runs the muxer for a completed or errored job. Errors
// unless the job's status is completed or error.
func (e *Engine) RetryMergeJob(ctx context.Context, id string) error {
	return e.supervisorFor(id).RetryMerge(ctx)
}

// List returns every job the store currently holds, in the backend's own
// order: oldest first by creation time for SQLite, unordered for Memory.
func (e *Engine) List(ctx context.Context) ([]*common.Job, error) {
	jobs, err := e.st.ListJobs(ctx)
	if err != nil {
		return nil, engineerr.New(engineerr.KindStorage, "", false, err)
	}
	return jobs, nil
}

// Stats returns a snapshot of the process-wide counters.
func (e *Engine) Stats() metrics.Snapshot {
	return e.metrics.Snapshot()
}

// Close releases the underlying store.
func (e *Engine) Close() error {
	return e.st.Close()
}
