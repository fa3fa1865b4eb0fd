package job

import (
	"context"
	"fmt"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/streamvault/hlsdl/internal/common"
	"github.com/streamvault/hlsdl/internal/engineerr"
	"github.com/streamvault/hlsdl/internal/events"
	"github.com/streamvault/hlsdl/internal/logging"
	"github.com/streamvault/hlsdl/internal/metrics"
	"github.com/streamvault/hlsdl/internal/mux"
	"github.com/streamvault/hlsdl/internal/segment"
	"github.com/streamvault/hlsdl/internal/store"
)

// Supervisor owns one job's in-memory lifecycle: fetch orchestration,
// progress accounting, and lifecycle transitions. One Supervisor exists per
// job in the engine's registry, replacing global
// active-flag/stats/failed-set/file-list maps with fields here.
type Supervisor struct {
	id      string
	st      store.Store
	sink    events.Sink
	fetcher *segment.Fetcher
	muxer   *mux.Driver
	metrics *metrics.Registry

	mu        sync.Mutex
	running   bool
	alive     atomic.Bool
	runCtx    context.Context
	runCancel context.CancelFunc

	// progressMu serializes onSegmentComplete so persisted and emitted
	// progress never goes backwards under concurrent completions.
	progressMu         sync.Mutex
	downloadedSegments atomic.Int64
	downloadedBytes    atomic.Int64

	eph *ephemeral
}

// New builds a Supervisor for job id.
func New(id string, st store.Store, sink events.Sink, fetcher *segment.Fetcher, muxer *mux.Driver) *Supervisor {
	return &Supervisor{id: id, st: st, sink: sink, fetcher: fetcher, muxer: muxer}
}

// WithMetrics attaches a metrics registry the supervisor reports segment and
// merge outcomes to. Optional: a Supervisor with no registry attached skips
// recording rather than panicking.
func (s *Supervisor) WithMetrics(reg *metrics.Registry) *Supervisor {
	s.metrics = reg
	return s
}

// Start begins or resumes the job. A second Start while the first is still
// downloading is a no-op (idempotent double-start guard); it is not an
// error.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.alive.Store(true)
	runCtx, cancel := context.WithCancel(context.Background())
	s.runCtx = runCtx
	s.runCancel = cancel
	s.mu.Unlock()

	log := logging.For("job").With().Str("job_id", s.id).Logger()

	j, err := s.st.GetJob(ctx, s.id)
	if err != nil {
		s.clearRunning()
		return engineerr.New(engineerr.KindStorage, s.id, false, err)
	}
	if len(j.Segments) == 0 {
		s.clearRunning()
		return ErrNoSegments
	}

	if err := os.MkdirAll(j.OutputDir, 0o755); err != nil {
		s.clearRunning()
		return engineerr.New(engineerr.KindStorage, j.OutputDir, false, err)
	}

	s.eph = newEphemeral()
	s.eph.startedAt = time.Now()

	existing, missing := s.reconcile(j)
	s.downloadedSegments.Store(int64(len(existing)))
	s.downloadedBytes.Store(j.DownloadedBytes)
	for _, p := range existing {
		s.eph.addFile(p)
	}

	j.Status = common.StatusDownloading
	j.DownloadedSegments = len(existing)
	j.Progress = round2(ratio(len(existing), j.TotalSegments) * 100)
	if err := s.st.SaveJob(ctx, j); err != nil {
		log.Warn().Err(err).Msg("failed to persist reconciled job state")
	}
	s.emitStatus(common.StatusDownloading, "", "", "resuming")

	if s.metrics != nil {
		s.metrics.JobStarted()
		defer s.metrics.JobFinished()
	}

	if len(missing) > 0 {
		s.runFetches(runCtx, j, missing)
	}

	if !s.alive.Load() || s.runCtx.Err() != nil {
		// pause or cancel already set the terminal-for-this-run status.
		s.clearRunning()
		return nil
	}

	s.checkCompletion(runCtx, j)
	s.clearRunning()
	return nil
}

func (s *Supervisor) clearRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// reconcile classifies each segment index as existing (file present,
// nonzero size) or missing, per the deterministic-path invariant.
func (s *Supervisor) reconcile(j *common.Job) (existing []string, missing []int) {
	for i := 0; i < j.TotalSegments; i++ {
		if segment.Exists(j.OutputDir, j.Filename, i) {
			existing = append(existing, segmentFilePath(j.OutputDir, j.Filename, i))
		} else {
			missing = append(missing, i)
		}
	}
	return existing, missing
}

func segmentFilePath(dir, filename string, index int) string {
	return fmt.Sprintf("%s/%s_segment_%d.ts", dir, filename, index)
}

// runFetches dispatches the missing segment indices with concurrency bounded
// by j.Threads. Per-segment failures are recorded into the failed set and
// never fail the group.
func (s *Supervisor) runFetches(ctx context.Context, j *common.Job, missing []int) {
	threads := j.Threads
	if threads < 1 {
		threads = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(threads)

	for _, idx := range missing {
		idx := idx
		g.Go(func() error {
			if !s.alive.Load() || gctx.Err() != nil {
				return nil
			}

			res, err := s.fetcher.Fetch(gctx, j.Segments[idx], j.OutputDir, j.Filename, idx)
			if err != nil {
				if engineerr.Is(err, engineerr.KindCancelRequested) {
					return nil
				}
				s.eph.markFailed(idx)
				if s.metrics != nil {
					s.metrics.SegmentFailed()
				}
				jobLog := logging.For("job")
				jobLog.Warn().Err(err).Str("job_id", s.id).Int("segment", idx).Msg("segment failed all attempts")
				return nil
			}

			if s.metrics != nil {
				s.metrics.SegmentFetched()
			}
			s.onSegmentComplete(ctx, j, res)
			return nil
		})
	}

	_ = g.Wait()
}

func (s *Supervisor) onSegmentComplete(ctx context.Context, j *common.Job, res segment.Result) {
	s.progressMu.Lock()
	defer s.progressMu.Unlock()

	s.eph.addFile(res.Path)
	s.eph.recordSegmentDownloaded()

	downloaded := s.downloadedSegments.Add(1)
	totalBytes := s.downloadedBytes.Add(res.Bytes)

	elapsed := time.Since(s.eph.startedAt).Seconds()
	progress := round2(ratio(int(downloaded), j.TotalSegments) * 100)

	var speed int64
	if elapsed > 0 {
		speed = int64(float64(totalBytes) / elapsed)
	}

	eta := computeETA(j.TotalSegments, int(downloaded), s.eph.failedCount(), s.eph.downloadedThisRun(), elapsed)

	if err := s.st.UpdateJobProgress(ctx, s.id, int(downloaded), totalBytes, speed, eta, progress); err != nil {
		jobLog := logging.For("job")
		jobLog.Warn().Err(err).Str("job_id", s.id).Msg("failed to persist progress")
	}

	s.sink.Emit(events.DownloadProgress(s.id, progress, int(downloaded), speed, eta, totalBytes))
}

// computeETA implements the avg-segment-time projection; it returns 0 when
// there is nothing left to download or no completions yet this run.
func computeETA(total, downloaded, failed, downloadedThisRun int, elapsedSeconds float64) int64 {
	if downloadedThisRun <= 0 {
		return 0
	}
	remaining := total - downloaded - failed
	if remaining <= 0 {
		return 0
	}
	avgSegmentTime := elapsedSeconds / float64(downloadedThisRun)
	return int64(math.Round(float64(remaining) * avgSegmentTime))
}

// checkCompletion applies the completion rules once all missing-segment
// tasks have settled.
func (s *Supervisor) checkCompletion(ctx context.Context, j *common.Job) {
	total := j.TotalSegments
	downloaded := int(s.downloadedSegments.Load())
	failed := s.eph.failedCount()

	r := ratio(downloaded, total)
	threshold := int(math.Ceil(float64(total) * 0.02))
	if threshold < 2 {
		threshold = 2
	}

	complete := downloaded >= total ||
		(r >= 0.98 && downloaded > 0) ||
		(downloaded+failed >= total && failed <= threshold)

	if !complete {
		msg := fmt.Sprintf("too many segments failed: %d/%d", failed, total)
		s.st.UpdateJobStatus(ctx, s.id, common.StatusError, msg, "", 0)
		s.emitStatus(common.StatusError, msg, "", "download failed")
		return
	}

	progress := math.Min(100, math.Round(r*100))
	s.st.UpdateJobProgress(ctx, s.id, downloaded, s.downloadedBytes.Load(), 0, 0, progress)

	result, mergeErr := s.muxer.Merge(ctx, s.eph.files(), j.OutputDir, j.Filename, s.emitMergeProgress)
	if s.metrics != nil {
		s.metrics.MergeOutcome(result.UsedBinary, mergeErr)
	}

	// Post-merge contract: the job stays completed even if the merge failed.
	errMsg := ""
	outputFile := ""
	duration := 0.0
	if mergeErr != nil {
		errMsg = fmt.Sprintf("merge failed: %v", mergeErr)
	} else {
		outputFile = result.OutputPath
		if d, err := mux.Duration(ctx, "", result.OutputPath); err == nil {
			duration = d
		}
		// The source segments are deleted here after either merge path
		// succeeds; a merge failure retains them for recovery.
		for _, p := range s.eph.files() {
			os.Remove(p)
		}
	}

	s.st.UpdateJobStatus(ctx, s.id, common.StatusCompleted, errMsg, outputFile, duration)
	s.emitStatus(common.StatusCompleted, errMsg, outputFile, "download complete")
}

// Pause clears the liveness flag so unscheduled admissions abort; in-flight
// fetches are left to finish naturally.
func (s *Supervisor) Pause(ctx context.Context) error {
	s.mu.Lock()
	wasRunning := s.running
	s.mu.Unlock()

	s.alive.Store(false)
	if !wasRunning {
		return nil
	}

	if err := s.st.UpdateJobStatus(ctx, s.id, common.StatusPaused, "", "", 0); err != nil {
		return engineerr.New(engineerr.KindStorage, s.id, false, err)
	}
	s.emitStatus(common.StatusPaused, "", "", "paused")
	return nil
}

// Cancel forcibly aborts in-flight fetches via the run context, in addition
// to clearing the liveness flag for unscheduled work.
func (s *Supervisor) Cancel(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.runCancel
	s.mu.Unlock()

	s.alive.Store(false)
	if cancel != nil {
		cancel()
	}

	if err := s.st.UpdateJobStatus(ctx, s.id, common.StatusCancelled, "", "", 0); err != nil {
		return engineerr.New(engineerr.KindStorage, s.id, false, err)
	}
	s.emitStatus(common.StatusCancelled, "", "", "cancelled")
	s.clearRunning()
	return nil
}

// RetryMerge is permitted only from completed or error. If the in-memory
// segment-file list is empty (typical after a process restart), it is
// reconstructed by probing deterministic paths.
func (s *Supervisor) RetryMerge(ctx context.Context) error {
	j, err := s.st.GetJob(ctx, s.id)
	if err != nil {
		return engineerr.New(engineerr.KindStorage, s.id, false, err)
	}
	if j.Status != common.StatusCompleted && j.Status != common.StatusError {
		return ErrRetryMergeNotAllowed
	}

	var paths []string
	if s.eph != nil {
		paths = s.eph.files()
	}
	if len(paths) == 0 {
		for i := 0; i < j.TotalSegments; i++ {
			if segment.Exists(j.OutputDir, j.Filename, i) {
				paths = append(paths, segmentFilePath(j.OutputDir, j.Filename, i))
			}
		}
	}
	if len(paths) == 0 {
		s.emitStatus(j.Status, "retry-merge found no segment files", "", "nothing to merge")
		return nil
	}

	result, mergeErr := s.muxer.Merge(ctx, paths, j.OutputDir, j.Filename, s.emitMergeProgress)
	if mergeErr != nil {
		msg := fmt.Sprintf("merge failed: %v", mergeErr)
		s.st.UpdateJobStatus(ctx, s.id, common.StatusCompleted, msg, "", 0)
		s.emitStatus(common.StatusCompleted, msg, "", "retry-merge failed")
		return nil
	}

	duration := 0.0
	if d, err := mux.Duration(ctx, "", result.OutputPath); err == nil {
		duration = d
	}
	s.st.UpdateJobStatus(ctx, s.id, common.StatusCompleted, "", result.OutputPath, duration)
	s.emitStatus(common.StatusCompleted, "", result.OutputPath, "retry-merge complete")
	return nil
}

func (s *Supervisor) emitStatus(status common.Status, errMsg, outputFile, message string) {
	s.sink.Emit(events.DownloadStatus(s.id, status.String(), errMsg, outputFile, message))
}

// emitMergeProgress is passed to the muxer driver as its progress callback.
func (s *Supervisor) emitMergeProgress(percent float64) {
	s.sink.Emit(events.MergeProgress(s.id, percent))
}

func ratio(n, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(n) / float64(total)
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
