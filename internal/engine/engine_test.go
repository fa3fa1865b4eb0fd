package engine

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/streamvault/hlsdl/internal/common"
	"github.com/streamvault/hlsdl/internal/events"
	"github.com/streamvault/hlsdl/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingSink struct {
	ch chan events.Event
}

func newRecordingSink() *recordingSink {
	return &recordingSink{ch: make(chan events.Event, 256)}
}

func (s *recordingSink) Emit(e events.Event) {
	select {
	case s.ch <- e:
	default:
	}
}

var testJobSeq atomic.Int64

func newTestJob(t *testing.T, st store.Store, urls []string) *common.Job {
	t.Helper()
	now := time.Now().UTC()
	j := &common.Job{
		ID:            fmt.Sprintf("job-%s-%d", t.Name(), testJobSeq.Add(1)),
		Filename:      "movie",
		Status:        common.StatusQueued,
		Threads:       2,
		OutputDir:     t.TempDir(),
		Segments:      urls,
		TotalSegments: len(urls),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, st.SaveJob(context.Background(), j))
	return j
}

func TestStartJobErrorsWhenJobAbsent(t *testing.T) {
	st := store.NewMemory()
	e, err := New(nil, st, newRecordingSink())
	require.NoError(t, err)
	defer e.Close()

	err = e.StartJob(context.Background(), "nonexistent")
	assert.Error(t, err)
}

func TestStartJobCompletesAndRegistrySurvivesForPauseResume(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	urls := []string{srv.URL + "/seg0.ts", srv.URL + "/seg1.ts", srv.URL + "/seg2.ts"}
	st := store.NewMemory()
	j := newTestJob(t, st, urls)

	e, err := New(nil, st, newRecordingSink())
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.StartJob(context.Background(), j.ID))

	require.Eventually(t, func() bool {
		got, err := st.GetJob(context.Background(), j.ID)
		return err == nil && got.Status == common.StatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	got, err := st.GetJob(context.Background(), j.ID)
	require.NoError(t, err)
	_, statErr := os.Stat(got.OutputFile)
	assert.NoError(t, statErr)

	e.mu.Lock()
	_, stillRegistered := e.supervisors[j.ID]
	e.mu.Unlock()
	assert.True(t, stillRegistered)
}

func TestStartJobIsIdempotentWhileRunning(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	urls := []string{srv.URL + "/seg0.ts"}
	st := store.NewMemory()
	j := newTestJob(t, st, urls)

	e, err := New(nil, st, newRecordingSink())
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.StartJob(context.Background(), j.ID))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, e.StartJob(context.Background(), j.ID)) // second call: no-op while running

	close(block)
	require.Eventually(t, func() bool {
		got, err := st.GetJob(context.Background(), j.ID)
		return err == nil && got.Status == common.StatusCompleted
	}, 5*time.Second, 10*time.Millisecond)
}

func TestPauseJobNoErrorWhenNotDownloading(t *testing.T) {
	st := store.NewMemory()
	j := newTestJob(t, st, []string{"http://example.com/seg0.ts"})

	e, err := New(nil, st, newRecordingSink())
	require.NoError(t, err)
	defer e.Close()

	assert.NoError(t, e.PauseJob(context.Background(), j.ID))
}

func TestCancelJobRemovesSupervisorFromRegistry(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	urls := []string{srv.URL + "/seg0.ts"}
	st := store.NewMemory()
	j := newTestJob(t, st, urls)

	e, err := New(nil, st, newRecordingSink())
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.StartJob(context.Background(), j.ID))
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, e.CancelJob(context.Background(), j.ID))
	close(block)

	e.mu.Lock()
	_, stillRegistered := e.supervisors[j.ID]
	e.mu.Unlock()
	assert.False(t, stillRegistered)

	got, err := st.GetJob(context.Background(), j.ID)
	require.NoError(t, err)
	assert.Equal(t, common.StatusCancelled, got.Status)
}

func TestRetryMergeJobRejectedWhileDownloading(t *testing.T) {
	st := store.NewMemory()
	j := newTestJob(t, st, []string{"http://example.com/seg0.ts"})
	j.Status = common.StatusDownloading
	require.NoError(t, st.SaveJob(context.Background(), j))

	e, err := New(nil, st, newRecordingSink())
	require.NoError(t, err)
	defer e.Close()

	assert.Error(t, e.RetryMergeJob(context.Background(), j.ID))
}

func TestAddJobResolvesMediaPlaylistAndPersists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/movie.m3u8":
			w.Write([]byte("#EXTM3U\n#EXT-X-PLAYLIST-TYPE:VOD\n#EXTINF:4.0,\nseg0.ts\n#EXTINF:4.0,\nseg1.ts\n"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	st := store.NewMemory()
	e, err := New(nil, st, newRecordingSink())
	require.NoError(t, err)
	defer e.Close()

	j, err := e.AddJob(context.Background(), srv.URL+"/movie.m3u8", 2, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, common.StatusQueued, j.Status)
	assert.Equal(t, 2, j.TotalSegments)
	assert.Equal(t, "movie", j.Filename)
	assert.Equal(t, []string{srv.URL + "/seg0.ts", srv.URL + "/seg1.ts"}, j.Segments)

	stored, err := st.GetJob(context.Background(), j.ID)
	require.NoError(t, err)
	assert.Equal(t, j.ID, stored.ID)
}

func TestAddJobFollowsMasterToHighestBandwidthVariant(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/master.m3u8":
			w.Write([]byte("#EXTM3U\n" +
				"#EXT-X-STREAM-INF:BANDWIDTH=800000,RESOLUTION=640x360\n" +
				"low.m3u8\n" +
				"#EXT-X-STREAM-INF:BANDWIDTH=3000000,RESOLUTION=1920x1080\n" +
				"high.m3u8\n"))
		case "/high.m3u8":
			w.Write([]byte("#EXTM3U\n#EXT-X-PLAYLIST-TYPE:VOD\n#EXTINF:4.0,\nseg0.ts\n"))
		case "/low.m3u8":
			w.Write([]byte("#EXTM3U\n#EXT-X-PLAYLIST-TYPE:VOD\n#EXTINF:4.0,\nlow-seg0.ts\n"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	st := store.NewMemory()
	e, err := New(nil, st, newRecordingSink())
	require.NoError(t, err)
	defer e.Close()

	j, err := e.AddJob(context.Background(), srv.URL+"/master.m3u8", 0, "")
	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/seg0.ts"}, j.Segments)
}

func TestListReturnsAllJobs(t *testing.T) {
	st := store.NewMemory()
	newTestJob(t, st, []string{"http://example.com/seg0.ts"})
	newTestJob(t, st, []string{"http://example.com/seg1.ts"})

	e, err := New(nil, st, newRecordingSink())
	require.NoError(t, err)
	defer e.Close()

	jobs, err := e.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}
