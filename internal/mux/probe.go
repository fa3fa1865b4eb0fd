package mux

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strconv"
	"time"
)

const probeDeadline = 10 * time.Second

// Duration runs ffprobe against path and returns the container's declared
// duration in seconds. Modeled on ManuGH-xg2g's ffmpeg.Probe, trimmed to
// the one field the muxer driver needs to populate Job.Duration.
func Duration(ctx context.Context, ffprobeBin, path string) (float64, error) {
	return probeDuration(ctx, ffprobeBin, nil, path)
}

// durationOfConcat probes the total declared duration of a concat-demuxer
// manifest, the same way ffmpeg itself will read it for the merge, so
// progress percentages computed against it line up with ffmpeg's own
// reported position.
func durationOfConcat(ctx context.Context, ffprobeBin, manifestPath string) (float64, error) {
	return probeDuration(ctx, ffprobeBin, []string{"-f", "concat", "-safe", "0"}, manifestPath)
}

func probeDuration(ctx context.Context, ffprobeBin string, inputArgs []string, path string) (float64, error) {
	if ffprobeBin == "" {
		ffprobeBin = "ffprobe"
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeDeadline)
	defer cancel()

	args := append([]string{"-v", "error", "-print_format", "json", "-show_format"}, inputArgs...)
	args = append(args, "-i", path)

	cmd := exec.CommandContext(probeCtx, ffprobeBin, args...)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return 0, err
	}

	var data struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &data); err != nil {
		return 0, err
	}

	d, err := strconv.ParseFloat(data.Format.Duration, 64)
	if err != nil {
		return 0, err
	}
	return d, nil
}
