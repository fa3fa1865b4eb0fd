package mux

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// writeConcatManifest writes an ffmpeg concat-demuxer manifest listing paths
// in order, returning the manifest's path. The caller removes it once the
// muxer run completes, successfully or not.
func writeConcatManifest(dir string, paths []string) (string, error) {
	manifestPath := filepath.Join(dir, "concat.txt")

	var b strings.Builder
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return "", fmt.Errorf("mux: resolve %s: %w", p, err)
		}
		fmt.Fprintf(&b, "file '%s'\n", escapeSingleQuotes(abs))
	}

	if err := os.WriteFile(manifestPath, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("mux: write manifest: %w", err)
	}
	return manifestPath, nil
}

// escapeSingleQuotes follows ffmpeg's own concat-manifest quoting rule: a
// literal ' inside a quoted path is written by closing the quote, emitting
// \', and reopening the quote.
func escapeSingleQuotes(s string) string {
	return strings.ReplaceAll(s, "'", `'\''`)
}
