// Package segment downloads the individual transport-stream segments of a
// resolved media playlist to disk, retrying transient failures with a
// bounded backoff. Each attempt copies the response body into a ".part"
// file and renames it into place, a whole-segment fetch rather than
// byte-range HTTP chunks.
package segment

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/streamvault/hlsdl/internal/engineerr"
)

const (
	maxAttempts     = 3
	attemptDeadline = 15 * time.Second
	maxRedirects    = 5
	browserUA       = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// Result describes one completed segment fetch.
type Result struct {
	Index int
	Path  string
	Bytes int64
}

// Fetcher downloads a single segment URL to a deterministic path under dir.
type Fetcher struct {
	client *http.Client
}

// New builds a Fetcher with a client that caps redirect chains at
// maxRedirects.
func New() *Fetcher {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxConnsPerHost:       16,
	}
	client := &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("segment: stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
	return &Fetcher{client: client}
}

// segmentPath is the deterministic on-disk path for segment index of job
// filename, under dir. Deterministic so a restarted job can detect segments
// it already has without re-downloading them.
func segmentPath(dir, filename string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("%s_segment_%d.ts", filename, index))
}

// Exists reports whether index's segment is already present with nonzero
// size, the reconciliation check the supervisor runs on Start/resume.
func Exists(dir, filename string, index int) bool {
	info, err := os.Stat(segmentPath(dir, filename, index))
	return err == nil && info.Size() > 0
}

// Fetch downloads segmentURL to its deterministic path, retrying up to
// maxAttempts times with backoff between attempts. It returns as soon as a
// cancellation is observed on ctx without counting it as a failed attempt.
func (f *Fetcher) Fetch(ctx context.Context, segmentURL, dir, filename string, index int) (Result, error) {
	dest := segmentPath(dir, filename, index)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result{}, engineerr.New(engineerr.KindCancelRequested, segmentURL, false, err)
		}

		n, err := f.attempt(ctx, segmentURL, dest)
		if err == nil {
			return Result{Index: index, Path: dest, Bytes: n}, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return Result{}, engineerr.New(engineerr.KindCancelRequested, segmentURL, false, ctx.Err())
		}

		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return Result{}, engineerr.New(engineerr.KindCancelRequested, segmentURL, false, ctx.Err())
			case <-time.After(backoff(attempt)):
			}
		}
	}

	return Result{}, engineerr.New(engineerr.KindSegmentExhausted, segmentURL, false, lastErr)
}

// backoff is min(1000*attempt, 5000) milliseconds.
func backoff(attempt int) time.Duration {
	ms := attempt * 1000
	if ms > 5000 {
		ms = 5000
	}
	return time.Duration(ms) * time.Millisecond
}

func (f *Fetcher) attempt(ctx context.Context, segmentURL, dest string) (int64, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, attemptDeadline)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, segmentURL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", browserUA)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Encoding", "identity")
	req.Header.Set("Connection", "keep-alive")
	if ref := refererFor(segmentURL); ref != "" {
		req.Header.Set("Referer", ref)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("segment: unexpected status %d", resp.StatusCode)
	}

	tmp := dest + ".part"
	file, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("segment: open %s: %w", tmp, err)
	}

	n, copyErr := io.Copy(file, resp.Body)
	closeErr := file.Close()
	if copyErr != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("segment: write: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("segment: close: %w", closeErr)
	}
	if n == 0 {
		os.Remove(tmp)
		return 0, engineerr.New(engineerr.KindSegmentEmpty, segmentURL, true, fmt.Errorf("segment: zero-byte body"))
	}

	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("segment: finalize %s: %w", dest, err)
	}

	return n, nil
}

// refererFor builds scheme://host from a segment URL, the value the
// fetcher sends as Referer.
func refererFor(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
