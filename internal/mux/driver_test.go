package mux

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSegments(t *testing.T, dir string, contents []string) []string {
	t.Helper()
	paths := make([]string, len(contents))
	for i, c := range contents {
		p := filepath.Join(dir, "job1_segment_"+itoa(i)+".ts")
		require.NoError(t, os.WriteFile(p, []byte(c), 0o644))
		paths[i] = p
	}
	return paths
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := ""
	for n > 0 {
		digits = string(rune('0'+n%10)) + digits
		n /= 10
	}
	return digits
}

func TestMergeFallsBackWithoutBinary(t *testing.T) {
	dir := t.TempDir()
	paths := writeSegments(t, dir, []string{"aaa", "bbb", "ccc"})

	d := &Driver{} // no binaryPath: forces the raw-concat fallback
	res, err := d.Merge(context.Background(), paths, dir, "movie", nil)
	require.NoError(t, err)
	assert.False(t, res.UsedBinary)

	got, err := os.ReadFile(res.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, "aaabbbccc", string(got))
}

func TestMergeOrdersByEmbeddedIndexNotInputOrder(t *testing.T) {
	dir := t.TempDir()
	p0 := filepath.Join(dir, "job1_segment_0.ts")
	p1 := filepath.Join(dir, "job1_segment_1.ts")
	p2 := filepath.Join(dir, "job1_segment_2.ts")
	require.NoError(t, os.WriteFile(p0, []byte("A"), 0o644))
	require.NoError(t, os.WriteFile(p1, []byte("B"), 0o644))
	require.NoError(t, os.WriteFile(p2, []byte("C"), 0o644))

	// pass them out of order
	d := &Driver{}
	res, err := d.Merge(context.Background(), []string{p2, p0, p1}, dir, "movie", nil)
	require.NoError(t, err)

	got, err := os.ReadFile(res.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, "ABC", string(got))
}

func TestMergePartialSegmentSetStillProducesOutput(t *testing.T) {
	dir := t.TempDir()
	contents := make([]string, 99)
	for i := range contents {
		contents[i] = "x"
	}
	paths := writeSegments(t, dir, contents)

	d := &Driver{}
	res, err := d.Merge(context.Background(), paths, dir, "movie", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(99), res.Bytes)
}

func TestOutputFilenameCoalescesDuplicateExtension(t *testing.T) {
	assert.Equal(t, "movie.mp4", outputFilename("movie.mp4"))
	assert.Equal(t, "movie.mp4", outputFilename("movie"))
	assert.Equal(t, "movie.mkv", outputFilename("movie.mkv"))
}

func TestMergeFallbackIsByteExactWithBinaryPathUnset(t *testing.T) {
	// The merge-fallback equivalence law: concatenating the same segments
	// with the binary path forced empty produces byte-identical output to
	// concatRaw called directly.
	dir := t.TempDir()
	paths := writeSegments(t, dir, []string{"111", "222", "333"})

	direct, err := concatRaw(paths, filepath.Join(dir, "direct.mp4"), nil)
	require.NoError(t, err)

	d := &Driver{}
	res, err := d.Merge(context.Background(), paths, dir, "viamerge", nil)
	require.NoError(t, err)

	directBytes, _ := os.ReadFile(filepath.Join(dir, "direct.mp4"))
	mergedBytes, _ := os.ReadFile(res.OutputPath)
	assert.Equal(t, directBytes, mergedBytes)
	assert.Equal(t, direct, res.Bytes)
}

func TestMergeNoSegmentsFails(t *testing.T) {
	d := &Driver{}
	_, err := d.Merge(context.Background(), nil, t.TempDir(), "movie", nil)
	require.Error(t, err)
}
