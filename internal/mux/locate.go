package mux

import (
	"os/exec"
	"sync"
)

// searchNames are the binary names probed on PATH, in order, grounded in the
// teacher's platform.OptionalExtractorBinaries name-list-then-LookPath
// pattern.
var searchNames = []string{"ffmpeg", "avconv"}

var (
	locateOnce sync.Once
	locatedBin string
	locateErr  error
)

// Locate finds a usable muxer binary on PATH, memoizing the result for the
// life of the process. A process that never finds a binary always falls
// back to raw concatenation rather than retrying the search on every job.
func Locate() (string, error) {
	locateOnce.Do(func() {
		for _, name := range searchNames {
			if path, err := exec.LookPath(name); err == nil {
				locatedBin = path
				return
			}
		}
		locateErr = errBinaryMissing
	})
	return locatedBin, locateErr
}

// reset clears the memoized binary path. Test-only: production callers rely
// on Locate being a one-shot, process-wide lookup.
func reset() {
	locateOnce = sync.Once{}
	locatedBin = ""
	locateErr = nil
}
