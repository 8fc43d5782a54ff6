package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mkowalczyk/skryba/internal/media"
)

// ErrStreamDone is returned by Stream.Recv after the final segment has been
// delivered.
var ErrStreamDone = errors.New("transcription stream exhausted")

// PipelineConfig bounds the chunking behavior. ShrinkFactor is the geometric
// backoff applied to a segment's target duration when its export overflows
// the byte budget.
type PipelineConfig struct {
	ByteBudget   int64
	MinChunkMS   int64
	ShrinkFactor float64
}

// Pipeline drives probe -> plan -> export -> transcribe for one source at a
// time. It is strictly sequential: segment N+1 is never exported before
// segment N's transcription has returned.
type Pipeline struct {
	prober      Prober
	exporter    Exporter
	transcriber Transcriber
	cfg         PipelineConfig
}

func NewPipeline(prober Prober, exporter Exporter, transcriber Transcriber, cfg PipelineConfig) *Pipeline {
	return &Pipeline{
		prober:      prober,
		exporter:    exporter,
		transcriber: transcriber,
		cfg:         cfg,
	}
}

// Transcribe validates the upload, materializes it to a temp file, probes it,
// and returns a stream the caller pulls segment results from. The stream is
// finite and non-restartable; abandoning it early via Close performs no
// further export or remote work.
func (p *Pipeline) Transcribe(ctx context.Context, src io.Reader, filename, prompt string) (*Stream, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if !supportedExtensions[ext] {
		return nil, fmt.Errorf("%w: %q (supported: %s)",
			ErrUnsupportedFormat, ext, strings.Join(SupportedExtensions(), ", "))
	}

	tmp, err := os.CreateTemp("", "skryba-upload-*."+ext)
	if err != nil {
		return nil, fmt.Errorf("create temp audio file: %w", err)
	}
	size, err := io.Copy(tmp, src)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("materialize audio source: %w", err)
	}

	meta, err := p.prober.Probe(ctx, tmp.Name())
	if err != nil {
		os.Remove(tmp.Name())
		return nil, err
	}

	exportFormat, chunkExt := media.ResolveExportFormat(ext)
	estimateMS := media.EstimateChunkDuration(meta.DurationMS, meta.BitRate, size, p.cfg.ByteBudget, p.cfg.MinChunkMS)

	return &Stream{
		pipeline:     p,
		path:         tmp.Name(),
		exportFormat: exportFormat,
		chunkExt:     chunkExt,
		prompt:       strings.TrimSpace(prompt),
		totalMS:      meta.DurationMS,
		estimateMS:   estimateMS,
		startedAt:    time.Now(),
	}, nil
}

// Stream is a finite, ordered, non-restartable sequence of ChunkTranscript.
// Recv performs the export and remote call for the next segment on demand, so
// a caller that stops pulling stops all downstream work. The first failure is
// sticky and terminates the sequence.
type Stream struct {
	pipeline     *Pipeline
	path         string
	exportFormat string
	chunkExt     string
	prompt       string

	totalMS    int64
	estimateMS int64
	cursorMS   int64
	index      int

	startedAt time.Time
	progress  float64
	err       error
	closed    bool
}

// Recv produces the next segment's transcript. It returns ErrStreamDone once
// the cursor has covered the full duration.
func (s *Stream) Recv(ctx context.Context) (ChunkTranscript, error) {
	if s.err != nil {
		return ChunkTranscript{}, s.err
	}
	if s.closed {
		return ChunkTranscript{}, ErrStreamDone
	}
	if s.cursorMS >= s.totalMS {
		s.finish(ErrStreamDone)
		return ChunkTranscript{}, ErrStreamDone
	}

	targetMS := s.estimateMS
	if remaining := s.totalMS - s.cursorMS; targetMS > remaining {
		targetMS = remaining
	}

	// Shrink loop: the planner estimate is advisory, the measured export
	// size is authoritative. The cursor does not advance until a segment
	// fits the budget.
	var payload []byte
	for {
		exported, err := s.pipeline.exporter.ExportSegment(ctx, s.path, s.exportFormat, s.cursorMS, targetMS)
		if err != nil {
			s.finish(err)
			return ChunkTranscript{}, err
		}
		if int64(len(exported)) <= s.pipeline.cfg.ByteBudget {
			payload = exported
			break
		}
		if targetMS <= s.pipeline.cfg.MinChunkMS {
			err := fmt.Errorf("%w: %d bytes at %dms (budget %d)",
				ErrChunkTooLarge, len(exported), targetMS, s.pipeline.cfg.ByteBudget)
			s.finish(err)
			return ChunkTranscript{}, err
		}
		targetMS = int64(float64(targetMS) * s.pipeline.cfg.ShrinkFactor)
		if targetMS < s.pipeline.cfg.MinChunkMS {
			targetMS = s.pipeline.cfg.MinChunkMS
		}
	}

	text, err := s.pipeline.transcriber.Transcribe(ctx, Request{
		Filename: fmt.Sprintf("chunk-%d.%s", s.index, s.chunkExt),
		Payload:  payload,
		Prompt:   s.prompt,
	})
	if err != nil {
		s.finish(err)
		return ChunkTranscript{}, err
	}

	chunk := ChunkTranscript{
		ChunkIndex: s.index,
		StartMS:    s.cursorMS,
		EndMS:      s.cursorMS + targetMS,
		TotalMS:    s.totalMS,
		Text:       text,
	}
	s.cursorMS += targetMS
	s.index++
	s.progress = chunk.Progress()
	return chunk, nil
}

// ETA estimates the remaining wall time by interpolating elapsed time over
// the fraction completed. It reports false until the first segment lands.
func (s *Stream) ETA() (time.Duration, bool) {
	if s.progress <= 0 {
		return 0, false
	}
	if s.progress >= 1 {
		return 0, true
	}
	elapsed := time.Since(s.startedAt)
	return time.Duration(float64(elapsed) * (1 - s.progress) / s.progress), true
}

// TotalMS returns the probed duration of the source.
func (s *Stream) TotalMS() int64 { return s.totalMS }

// Close abandons the stream and removes the materialized source file. It is
// safe to call multiple times and after exhaustion.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.finish(ErrStreamDone)
	return nil
}

func (s *Stream) finish(err error) {
	if !errors.Is(err, ErrStreamDone) {
		s.err = err
	}
	if !s.closed {
		s.closed = true
		os.Remove(s.path)
	}
}
