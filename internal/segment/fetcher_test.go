package segment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchSucceedsFirstAttempt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("tsdata"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	f := New()
	res, err := f.Fetch(context.Background(), srv.URL+"/seg0.ts", dir, "job1", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(6), res.Bytes)
	assert.True(t, Exists(dir, "job1", 0))
}

func TestFetchRetriesTransientFailureThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("tsdata"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	f := New()

	start := time.Now()
	res, err := f.Fetch(context.Background(), srv.URL+"/seg1.ts", dir, "job1", 1)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, int64(6), res.Bytes)
	// two backoff waits of 1s and 2s between the three attempts.
	assert.GreaterOrEqual(t, elapsed, 3*time.Second)
}

func TestFetchExhaustsAttemptsOnPersistentFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	dir := t.TempDir()
	f := New()
	_, err := f.Fetch(context.Background(), srv.URL+"/seg2.ts", dir, "job1", 2)
	require.Error(t, err)
	assert.Equal(t, int32(maxAttempts), atomic.LoadInt32(&calls))
}

func TestFetchZeroByteBodyFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	dir := t.TempDir()
	f := New()
	_, err := f.Fetch(context.Background(), srv.URL+"/seg3.ts", dir, "job1", 3)
	require.Error(t, err)

	_, statErr := os.Stat(segmentPath(dir, "job1", 3))
	assert.True(t, os.IsNotExist(statErr))
}

func TestExistsRequiresNonzeroSize(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, Exists(dir, "job1", 0))

	f, err := os.Create(segmentPath(dir, "job1", 0))
	require.NoError(t, err)
	f.Close()
	assert.False(t, Exists(dir, "job1", 0))

	require.NoError(t, os.WriteFile(segmentPath(dir, "job1", 0), []byte("x"), 0o644))
	assert.True(t, Exists(dir, "job1", 0))
}

func TestBackoffIsCappedAt5Seconds(t *testing.T) {
	assert.Equal(t, time.Second, backoff(1))
	assert.Equal(t, 2*time.Second, backoff(2))
	assert.Equal(t, 5*time.Second, backoff(5))
	assert.Equal(t, 5*time.Second, backoff(10))
}
