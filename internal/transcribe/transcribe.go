// Package transcribe turns an uploaded audio stream of unknown bitrate into
// an ordered sequence of transcribed segments, each exported small enough to
// clear the transcription API's upload ceiling.
package transcribe

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mkowalczyk/skryba/internal/media"
)

// ErrUnsupportedFormat is returned before any I/O when the uploaded
// filename's extension is not in the supported set.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// ErrChunkTooLarge is returned when a segment exceeds the byte budget even at
// the minimum chunk duration. The run cannot proceed without raising the
// budget or lowering the floor.
var ErrChunkTooLarge = errors.New("chunk remained above the upload limit even at the minimum length")

var supportedExtensions = map[string]bool{
	"mp3":  true,
	"mp4":  true,
	"mpeg": true,
	"mpga": true,
	"m4a":  true,
	"ogg":  true,
	"wav":  true,
	"webm": true,
}

// IsSupportedFilename reports whether the filename's extension is in the
// supported set, case-insensitively.
func IsSupportedFilename(filename string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	return supportedExtensions[ext]
}

// SupportedExtensions returns the ingestible audio extensions, sorted.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(supportedExtensions))
	for ext := range supportedExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// ChunkTranscript is the transcription result for a single segment.
type ChunkTranscript struct {
	ChunkIndex int    `json:"chunk_index"`
	StartMS    int64  `json:"start_ms"`
	EndMS      int64  `json:"end_ms"`
	TotalMS    int64  `json:"total_ms"`
	Text       string `json:"text"`
}

// Progress is the fraction of the source processed once this chunk is done.
// The final chunk always reports exactly 1.0.
func (c ChunkTranscript) Progress() float64 {
	if c.TotalMS == 0 {
		return 0
	}
	p := float64(c.EndMS) / float64(c.TotalMS)
	if p > 1 {
		p = 1
	}
	return p
}

// Prober extracts duration and bit rate from a local audio file.
type Prober interface {
	Probe(ctx context.Context, path string) (media.Metadata, error)
}

// Exporter extracts a time-bounded slice of a local audio file as an
// independent payload in the given container format.
type Exporter interface {
	ExportSegment(ctx context.Context, path, format string, startMS, durationMS int64) ([]byte, error)
}

// Request carries one segment payload to the transcription service.
type Request struct {
	Filename string
	Payload  []byte
	Prompt   string
}

// Transcriber is the remote speech-to-text call, one segment at a time.
type Transcriber interface {
	Transcribe(ctx context.Context, req Request) (string, error)
}

// Collect drains a stream to completion, invoking onChunk (if non-nil) per
// segment and returning the concatenated transcript. Empty chunks are
// skipped when joining.
func Collect(ctx context.Context, s *Stream, onChunk func(ChunkTranscript)) (string, error) {
	var parts []string
	for {
		chunk, err := s.Recv(ctx)
		if errors.Is(err, ErrStreamDone) {
			return strings.Join(parts, "\n"), nil
		}
		if err != nil {
			return "", err
		}
		if onChunk != nil {
			onChunk(chunk)
		}
		if chunk.Text != "" {
			parts = append(parts, chunk.Text)
		}
	}
}
