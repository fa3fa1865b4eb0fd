// Package metrics holds process-wide counters the engine updates as jobs
// run. No HTTP exposition layer is wired here; a caller (e.g. the
// out-of-core API layer) can render these however it likes.
package metrics

import "sync/atomic"

// Registry is a process-wide singleton of plain atomic counters/gauges.
// Construct one per engine and pass it down to whatever needs to record
// against it.
type Registry struct {
	segmentsFetched atomic.Int64
	segmentsFailed  atomic.Int64
	activeJobs      atomic.Int64
	mergesSucceeded atomic.Int64
	mergesFellBack  atomic.Int64
	mergesFailed    atomic.Int64
}

// NewRegistry returns a zeroed Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) SegmentFetched() { r.segmentsFetched.Add(1) }
func (r *Registry) SegmentFailed()  { r.segmentsFailed.Add(1) }
func (r *Registry) JobStarted()     { r.activeJobs.Add(1) }
func (r *Registry) JobFinished()    { r.activeJobs.Add(-1) }

// MergeOutcome records how a merge concluded: succeeded via the external
// binary, fell back to raw concatenation, or failed outright.
func (r *Registry) MergeOutcome(usedBinary bool, err error) {
	switch {
	case err != nil:
		r.mergesFailed.Add(1)
	case usedBinary:
		r.mergesSucceeded.Add(1)
	default:
		r.mergesFellBack.Add(1)
	}
}

// Snapshot is a point-in-time copy of every counter, safe to read
// concurrently with further mutation.
type Snapshot struct {
	SegmentsFetched int64
	SegmentsFailed  int64
	ActiveJobs      int64
	MergesSucceeded int64
	MergesFellBack  int64
	MergesFailed    int64
}

func (r *Registry) Snapshot() Snapshot {
	return Snapshot{
		SegmentsFetched: r.segmentsFetched.Load(),
		SegmentsFailed:  r.segmentsFailed.Load(),
		ActiveJobs:      r.activeJobs.Load(),
		MergesSucceeded: r.mergesSucceeded.Load(),
		MergesFellBack:  r.mergesFellBack.Load(),
		MergesFailed:    r.mergesFailed.Load(),
	}
}
