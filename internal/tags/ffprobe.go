package tags

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"sync"
	"time"
)

const ffprobeTimeout = 30 * time.Second

var errNoFFProbe = errors.New("ffprobe not available")

var (
	ffprobeOnce sync.Once
	ffprobePath string
)

// externalDuration is the last-resort duration source. Replaced in tests.
var externalDuration = ffexternalDuration

// ffexternalDuration asks ffprobe for the container duration. It fails with
// errNoFFProbe when ffprobe is not on PATH.
func ffexternalDuration(path string) (int64, error) {
	ffprobeOnce.Do(func() {
		ffprobePath, _ = exec.LookPath("ffprobe")
	})
	if ffprobePath == "" {
		return 0, errNoFFProbe
	}

	ctx, cancel := context.WithTimeout(context.Background(), ffprobeTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		path).Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}
	return parseFFProbe(out)
}

func parseFFProbe(out []byte) (int64, error) {
	var res struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out, &res); err != nil {
		return 0, fmt.Errorf("parse ffprobe output: %w", err)
	}
	secs, err := strconv.ParseFloat(res.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration %q: %w", res.Format.Duration, err)
	}
	return int64(secs), nil
}
