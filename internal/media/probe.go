package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
)

// ErrMetadataUnavailable is returned when ffprobe is missing, exits non-zero,
// or reports no usable duration for the file.
var ErrMetadataUnavailable = errors.New("audio metadata unavailable")

// Metadata describes the probed audio source. BitRate is zero when the
// container does not report one; duration is always positive.
type Metadata struct {
	DurationMS int64
	BitRate    int64
}

// Prober extracts duration and bit rate from a local audio file via ffprobe.
type Prober struct {
	ffprobePath string
	runner      commandRunner
}

func NewProber(ffprobePath string) *Prober {
	if ffprobePath == "" {
		if path, err := exec.LookPath("ffprobe"); err == nil {
			ffprobePath = path
		} else {
			ffprobePath = "ffprobe"
		}
	}
	return &Prober{ffprobePath: ffprobePath, runner: osCommandRunner{}}
}

// ffprobe reports numeric fields as JSON strings.
type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
	} `json:"format"`
	Streams []struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
	} `json:"streams"`
}

// Probe runs ffprobe once against path. Container-level duration/bit_rate are
// preferred; the first stream that reports a value is the fallback.
func (p *Prober) Probe(ctx context.Context, path string) (Metadata, error) {
	out, err := p.runner.Output(ctx, p.ffprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Metadata{}, fmt.Errorf("%w: ffprobe: %s", ErrMetadataUnavailable, string(exitErr.Stderr))
		}
		return Metadata{}, fmt.Errorf("%w: ffprobe: %v", ErrMetadataUnavailable, err)
	}

	var probed probeOutput
	if err := json.Unmarshal(out, &probed); err != nil {
		return Metadata{}, fmt.Errorf("%w: parse ffprobe output: %v", ErrMetadataUnavailable, err)
	}

	durationMS := parseSecondsToMS(probed.Format.Duration)
	bitRate := parseInt(probed.Format.BitRate)
	for _, s := range probed.Streams {
		if durationMS <= 0 {
			durationMS = parseSecondsToMS(s.Duration)
		}
		if bitRate <= 0 {
			bitRate = parseInt(s.BitRate)
		}
	}

	if durationMS <= 0 {
		return Metadata{}, fmt.Errorf("%w: no positive duration reported for %s", ErrMetadataUnavailable, path)
	}
	if bitRate < 0 {
		bitRate = 0
	}

	return Metadata{DurationMS: durationMS, BitRate: bitRate}, nil
}

func parseSecondsToMS(s string) int64 {
	if s == "" {
		return 0
	}
	seconds, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(seconds * 1000)
}

func parseInt(s string) int64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
