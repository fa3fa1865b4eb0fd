package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryTracksCounters(t *testing.T) {
	r := NewRegistry()
	r.SegmentFetched()
	r.SegmentFetched()
	r.SegmentFailed()
	r.JobStarted()
	r.JobStarted()
	r.JobFinished()
	r.MergeOutcome(true, nil)
	r.MergeOutcome(false, nil)
	r.MergeOutcome(false, errors.New("boom"))

	snap := r.Snapshot()
	assert.Equal(t, int64(2), snap.SegmentsFetched)
	assert.Equal(t, int64(1), snap.SegmentsFailed)
	assert.Equal(t, int64(1), snap.ActiveJobs)
	assert.Equal(t, int64(1), snap.MergesSucceeded)
	assert.Equal(t, int64(1), snap.MergesFellBack)
	assert.Equal(t, int64(1), snap.MergesFailed)
}
