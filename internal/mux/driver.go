// Package mux merges a job's downloaded segments into a single output
// file, preferring an external muxer binary (ffmpeg, via its concat
// demuxer) and falling back to raw byte concatenation when no binary is
// available on PATH. The merge/cleanup pairing and the binary-invocation
// shape follow ManuGH-xg2g's ffmpeg runner/prober pair.
package mux

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/streamvault/hlsdl/internal/engineerr"
)

var videoExtensions = map[string]bool{
	".mp4": true, ".mkv": true, ".ts": true, ".mov": true, ".avi": true,
}

var segmentIndexPattern = regexp.MustCompile(`_segment_(\d+)\.ts$`)

// Result describes a completed merge.
type Result struct {
	OutputPath string
	Bytes      int64
	UsedBinary bool
}

// Driver merges segment files into a single output.
type Driver struct {
	binaryPath string // empty when no muxer binary was found at construction
}

// NewDriver locates a muxer binary once, at construction, so that every
// later Merge call already knows whether it has one without re-probing
// PATH. Construction never fails: an unresolved binary just means every
// Merge falls back to raw concatenation.
func NewDriver() *Driver {
	path, err := Locate()
	if err != nil {
		return &Driver{}
	}
	return &Driver{binaryPath: path}
}

// HasBinary reports whether a muxer binary was located at construction.
func (d *Driver) HasBinary() bool {
	return d.binaryPath != ""
}

// Merge concatenates segmentPaths, in declared-index order, into
// outputDir/filename. Segment order is recovered from each path's embedded
// _segment_<n>.ts suffix rather than by re-parsing the playlist, since the
// fetcher's deterministic naming already encodes it.
//
// onProgress, if non-nil, is called with a 0-100 completion percentage as
// the merge proceeds; it may be called zero or more times before Merge
// returns and is never called concurrently with itself.
//
// A missing or failing muxer binary falls back to concatRaw; the job's
// status is left Completed by the caller either way; only Result.UsedBinary
// distinguishes a binary merge from a fallback.
func (d *Driver) Merge(ctx context.Context, segmentPaths []string, outputDir, filename string, onProgress func(percent float64)) (Result, error) {
	if onProgress == nil {
		onProgress = func(float64) {}
	}
	if len(segmentPaths) == 0 {
		return Result{}, engineerr.New(engineerr.KindMuxRun, filename, false, fmt.Errorf("mux: no segments"))
	}

	ordered := sortByEmbeddedIndex(segmentPaths)
	outputPath := filepath.Join(outputDir, outputFilename(filename))

	if d.binaryPath != "" {
		if res, err := d.mergeWithBinary(ctx, ordered, outputPath, onProgress); err == nil {
			return res, nil
		}
	}

	n, err := concatRaw(ordered, outputPath, onProgress)
	if err != nil {
		return Result{}, engineerr.New(engineerr.KindMuxRun, outputPath, false, err)
	}
	return Result{OutputPath: outputPath, Bytes: n, UsedBinary: false}, nil
}

func (d *Driver) mergeWithBinary(ctx context.Context, ordered []string, outputPath string, onProgress func(percent float64)) (Result, error) {
	manifestPath, err := writeConcatManifest(filepath.Dir(outputPath), ordered)
	if err != nil {
		return Result{}, err
	}
	defer os.Remove(manifestPath)

	totalSeconds, _ := durationOfConcat(ctx, "", manifestPath)

	cmd := exec.CommandContext(ctx, d.binaryPath,
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", manifestPath,
		"-c", "copy",
		"-avoid_negative_ts", "make_zero",
		"-fflags", "+genpts",
		"-progress", "pipe:1",
		"-nostats",
		outputPath,
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, engineerr.New(engineerr.KindMuxRun, outputPath, false, err)
	}

	if err := cmd.Start(); err != nil {
		return Result{}, engineerr.New(engineerr.KindMuxRun, outputPath, false, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		watchMergeProgress(stdout, totalSeconds, onProgress)
	}()
	<-done

	if err := cmd.Wait(); err != nil {
		return Result{}, engineerr.New(engineerr.KindMuxRun, outputPath, false, err)
	}
	onProgress(100)

	info, err := os.Stat(outputPath)
	if err != nil {
		return Result{}, engineerr.New(engineerr.KindMuxRun, outputPath, false, err)
	}

	return Result{OutputPath: outputPath, Bytes: info.Size(), UsedBinary: true}, nil
}

// watchMergeProgress reads ffmpeg's "-progress pipe:1" key=value stream and
// reports percent-complete against totalSeconds. A totalSeconds of 0 (probe
// failed) means percentages can't be computed; the stream is still drained
// so ffmpeg never blocks on a full pipe.
func watchMergeProgress(r io.Reader, totalSeconds float64, onProgress func(percent float64)) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		if key != "out_time_ms" && key != "out_time_us" {
			continue
		}
		if totalSeconds <= 0 {
			continue
		}

		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			continue
		}
		elapsed := float64(n) / 1_000_000.0
		percent := elapsed / totalSeconds * 100
		if percent > 100 {
			percent = 100
		}
		if percent < 0 {
			percent = 0
		}
		onProgress(percent)
	}
}

func sortByEmbeddedIndex(paths []string) []string {
	ordered := make([]string, len(paths))
	copy(ordered, paths)
	sort.SliceStable(ordered, func(i, j int) bool {
		return embeddedIndex(ordered[i]) < embeddedIndex(ordered[j])
	})
	return ordered
}

// embeddedIndex extracts the numeric segment index from a deterministic
// fetcher path; paths without the suffix fall to index 0, tying with any
// real index-0 segment and broken by input order (sort.SliceStable).
func embeddedIndex(path string) int {
	m := segmentIndexPattern.FindStringSubmatch(path)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// outputFilename appends ".mp4" to filename unless it already ends with a
// recognized video extension, avoiding names like "movie.mp4.mp4".
func outputFilename(filename string) string {
	ext := filepath.Ext(filename)
	if videoExtensions[ext] {
		return filename
	}
	return filename + ".mp4"
}
