package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// ErrExportFailed is returned when ffmpeg is missing or exits non-zero while
// extracting a segment.
var ErrExportFailed = errors.New("segment export failed")

// Extensions that do not round-trip through ffmpeg under their own name are
// remuxed into a compatible container.
var exportFormatOverrides = map[string]string{
	"m4a":  "mp4",
	"mpga": "mp3",
	"mpeg": "mp3",
}

// ResolveExportFormat maps a source extension to the ffmpeg muxer name and
// the extension segments of that format should carry.
func ResolveExportFormat(ext string) (format, chunkExt string) {
	if override, ok := exportFormatOverrides[ext]; ok {
		return override, override
	}
	return ext, ext
}

// Exporter extracts time-bounded audio segments from a local file via ffmpeg.
type Exporter struct {
	ffmpegPath string
	runner     commandRunner
}

func NewExporter(ffmpegPath string) *Exporter {
	if ffmpegPath == "" {
		if path, err := exec.LookPath("ffmpeg"); err == nil {
			ffmpegPath = path
		} else {
			ffmpegPath = "ffmpeg"
		}
	}
	return &Exporter{ffmpegPath: ffmpegPath, runner: osCommandRunner{}}
}

// ExportSegment extracts [startMS, startMS+durationMS) from path as an
// independent payload in the given container format. Any video stream is
// stripped. MP4 output is fragmented so the resulting payload is valid
// without a trailing seek, which ffmpeg cannot perform on streamed output.
func (e *Exporter) ExportSegment(ctx context.Context, path, format string, startMS, durationMS int64) ([]byte, error) {
	outDir, err := os.MkdirTemp("", "skryba-segment-*")
	if err != nil {
		return nil, fmt.Errorf("create segment dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	outPath := filepath.Join(outDir, "segment."+format)
	args := []string{
		"-y",
		"-v", "error",
		"-i", path,
		"-ss", formatSeconds(startMS),
		"-t", formatSeconds(durationMS),
		"-vn",
		"-f", format,
	}
	if format == "mp4" {
		args = append(args, "-movflags", "+frag_keyframe+empty_moov")
	}
	args = append(args, outPath)

	if out, err := e.runner.CombinedOutput(ctx, e.ffmpegPath, args...); err != nil {
		return nil, fmt.Errorf("%w: ffmpeg: %v: %s", ErrExportFailed, err, string(out))
	}

	payload, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read exported segment: %v", ErrExportFailed, err)
	}
	return payload, nil
}

// formatSeconds renders a millisecond offset as fractional seconds for
// ffmpeg's -ss/-t arguments.
func formatSeconds(ms int64) string {
	return fmt.Sprintf("%d.%03d", ms/1000, ms%1000)
}
