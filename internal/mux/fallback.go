package mux

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// concatRaw merges paths, in order, by raw byte concatenation: a single
// buffered writer over the output file, each input copied through in turn.
// onProgress is reported once per file copied, as a fraction of file count
// (there's no duration to measure against without decoding).
//
// This is the fallback path when no muxer binary is available: MPEG-TS
// segments concatenate losslessly at the byte level, so the result plays
// correctly without a container rewrite.
func concatRaw(paths []string, targetPath string, onProgress func(percent float64)) (int64, error) {
	if len(paths) == 0 {
		return 0, fmt.Errorf("mux: no segments to merge")
	}
	if onProgress == nil {
		onProgress = func(float64) {}
	}

	out, err := os.Create(targetPath)
	if err != nil {
		return 0, fmt.Errorf("mux: create %s: %w", targetPath, err)
	}
	defer out.Close()

	bufWriter := bufio.NewWriterSize(out, 4*1024*1024)

	var total int64
	for i, p := range paths {
		in, err := os.Open(p)
		if err != nil {
			return total, fmt.Errorf("mux: open %s: %w", p, err)
		}

		n, copyErr := io.Copy(bufWriter, in)
		in.Close()
		total += n
		if copyErr != nil {
			return total, fmt.Errorf("mux: copy %s: %w", p, copyErr)
		}
		onProgress(float64(i+1) / float64(len(paths)) * 100)
	}

	if err := bufWriter.Flush(); err != nil {
		return total, fmt.Errorf("mux: flush %s: %w", targetPath, err)
	}
	return total, nil
}
