package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/mkowalczyk/skryba/internal/media"
)

type fakeProber struct {
	meta  media.Metadata
	err   error
	calls int
}

func (p *fakeProber) Probe(_ context.Context, _ string) (media.Metadata, error) {
	p.calls++
	return p.meta, p.err
}

type exportCall struct {
	startMS    int64
	durationMS int64
}

// fakeExporter sizes each payload via bytesPerMS so tests control whether an
// export overflows the byte budget.
type fakeExporter struct {
	bytesPerMS int64
	err        error
	calls      []exportCall
}

func (e *fakeExporter) ExportSegment(_ context.Context, _, _ string, startMS, durationMS int64) ([]byte, error) {
	e.calls = append(e.calls, exportCall{startMS: startMS, durationMS: durationMS})
	if e.err != nil {
		return nil, e.err
	}
	return make([]byte, durationMS*e.bytesPerMS), nil
}

type fakeTranscriber struct {
	err      error
	requests []Request
}

func (t *fakeTranscriber) Transcribe(_ context.Context, req Request) (string, error) {
	t.requests = append(t.requests, req)
	if t.err != nil {
		return "", t.err
	}
	return fmt.Sprintf("text-%d", len(t.requests)-1), nil
}

func newTestPipeline(prober *fakeProber, exporter *fakeExporter, transcriber *fakeTranscriber, budget, minChunk int64) *Pipeline {
	return NewPipeline(prober, exporter, transcriber, PipelineConfig{
		ByteBudget:   budget,
		MinChunkMS:   minChunk,
		ShrinkFactor: 0.7,
	})
}

func TestTranscribeRejectsUnsupportedFormatBeforeAnyWork(t *testing.T) {
	prober := &fakeProber{}
	p := newTestPipeline(prober, &fakeExporter{bytesPerMS: 1}, &fakeTranscriber{}, 1000, 100)

	_, err := p.Transcribe(context.Background(), strings.NewReader("x"), "lecture.flac", "")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
	if prober.calls != 0 {
		t.Fatalf("prober was invoked %d times before the format gate", prober.calls)
	}
}

func TestTranscribeSingleSegment(t *testing.T) {
	// 10 s at 128 kbps against a 24 MB budget: the estimate covers the whole
	// file, so exactly one segment spans [0, 10000).
	prober := &fakeProber{meta: media.Metadata{DurationMS: 10_000, BitRate: 128_000}}
	exporter := &fakeExporter{bytesPerMS: 16}
	transcriber := &fakeTranscriber{}
	p := newTestPipeline(prober, exporter, transcriber, 24*1024*1024, 5000)

	stream, err := p.Transcribe(context.Background(), strings.NewReader("audio"), "lecture.mp3", "")
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	defer stream.Close()

	chunk, err := stream.Recv(context.Background())
	if err != nil {
		t.Fatalf("Recv returned error: %v", err)
	}
	if chunk.StartMS != 0 || chunk.EndMS != 10_000 {
		t.Fatalf("segment = [%d, %d), want [0, 10000)", chunk.StartMS, chunk.EndMS)
	}
	if chunk.Progress() != 1.0 {
		t.Fatalf("Progress = %v, want exactly 1.0", chunk.Progress())
	}

	if _, err := stream.Recv(context.Background()); !errors.Is(err, ErrStreamDone) {
		t.Fatalf("err = %v, want ErrStreamDone after final segment", err)
	}
}

func TestTranscribeSegmentsAreContiguous(t *testing.T) {
	// 100 s source, estimate lands at 30 s per segment.
	prober := &fakeProber{meta: media.Metadata{DurationMS: 100_000, BitRate: 240_000}}
	exporter := &fakeExporter{bytesPerMS: 30}
	transcriber := &fakeTranscriber{}
	p := newTestPipeline(prober, exporter, transcriber, 900_000, 5000)

	stream, err := p.Transcribe(context.Background(), strings.NewReader("audio"), "lecture.mp3", "")
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	defer stream.Close()

	var chunks []ChunkTranscript
	for {
		chunk, err := stream.Recv(context.Background())
		if errors.Is(err, ErrStreamDone) {
			break
		}
		if err != nil {
			t.Fatalf("Recv returned error: %v", err)
		}
		chunks = append(chunks, chunk)
	}

	if len(chunks) != 4 {
		t.Fatalf("got %d segments, want 4", len(chunks))
	}
	if chunks[0].StartMS != 0 {
		t.Fatalf("first segment starts at %d, want 0", chunks[0].StartMS)
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].StartMS != chunks[i-1].EndMS {
			t.Fatalf("gap between segment %d and %d: %d != %d",
				i-1, i, chunks[i-1].EndMS, chunks[i].StartMS)
		}
		if chunks[i].ChunkIndex != i {
			t.Fatalf("segment %d has index %d", i, chunks[i].ChunkIndex)
		}
	}
	last := chunks[len(chunks)-1]
	if last.EndMS != 100_000 {
		t.Fatalf("final segment ends at %d, want 100000", last.EndMS)
	}
	if last.Progress() != 1.0 {
		t.Fatalf("final Progress = %v, want exactly 1.0", last.Progress())
	}
}

func TestTranscribeShrinksWithoutAdvancingCursor(t *testing.T) {
	// Estimate of 10 s overshoots a 10 kB budget at 2 bytes/ms; the target
	// shrinks geometrically (10000 -> 7000 -> floor 5000) and only then the
	// cursor advances.
	prober := &fakeProber{meta: media.Metadata{DurationMS: 60_000, BitRate: 8000}}
	exporter := &fakeExporter{bytesPerMS: 2}
	transcriber := &fakeTranscriber{}
	p := newTestPipeline(prober, exporter, transcriber, 10_000, 5000)

	stream, err := p.Transcribe(context.Background(), strings.NewReader("audio"), "lecture.mp3", "")
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	defer stream.Close()

	chunk, err := stream.Recv(context.Background())
	if err != nil {
		t.Fatalf("Recv returned error: %v", err)
	}

	wantCalls := []exportCall{
		{startMS: 0, durationMS: 10_000},
		{startMS: 0, durationMS: 7000},
		{startMS: 0, durationMS: 5000},
	}
	if len(exporter.calls) != len(wantCalls) {
		t.Fatalf("got %d export calls, want %d: %+v", len(exporter.calls), len(wantCalls), exporter.calls)
	}
	for i, want := range wantCalls {
		if exporter.calls[i] != want {
			t.Fatalf("export call %d = %+v, want %+v", i, exporter.calls[i], want)
		}
	}
	if chunk.StartMS != 0 || chunk.EndMS != 5000 {
		t.Fatalf("segment = [%d, %d), want [0, 5000)", chunk.StartMS, chunk.EndMS)
	}
	if len(transcriber.requests) != 1 {
		t.Fatalf("transcriber invoked %d times during shrink, want 1", len(transcriber.requests))
	}
}

func TestTranscribeChunkTooLargeAtFloor(t *testing.T) {
	// Even the minimum duration overflows the budget.
	prober := &fakeProber{meta: media.Metadata{DurationMS: 60_000, BitRate: 8000}}
	exporter := &fakeExporter{bytesPerMS: 100}
	transcriber := &fakeTranscriber{}
	p := newTestPipeline(prober, exporter, transcriber, 10_000, 5000)

	stream, err := p.Transcribe(context.Background(), strings.NewReader("audio"), "lecture.mp3", "")
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	defer stream.Close()

	_, err = stream.Recv(context.Background())
	if !errors.Is(err, ErrChunkTooLarge) {
		t.Fatalf("err = %v, want ErrChunkTooLarge", err)
	}
	if len(transcriber.requests) != 0 {
		t.Fatalf("no segment should reach transcription, got %d", len(transcriber.requests))
	}

	// The failure is sticky.
	if _, err := stream.Recv(context.Background()); !errors.Is(err, ErrChunkTooLarge) {
		t.Fatalf("err = %v, want sticky ErrChunkTooLarge", err)
	}
}

func TestTranscribeChunkFilenamesAndPrompt(t *testing.T) {
	prober := &fakeProber{meta: media.Metadata{DurationMS: 20_000, BitRate: 8000}}
	exporter := &fakeExporter{bytesPerMS: 1}
	transcriber := &fakeTranscriber{}
	p := newTestPipeline(prober, exporter, transcriber, 10_000, 5000)

	// m4a remuxes to mp4, so chunks carry the mp4 extension.
	stream, err := p.Transcribe(context.Background(), strings.NewReader("audio"), "Talk.M4A", "  names: Dante, Petrarca  ")
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	defer stream.Close()

	for {
		if _, err := stream.Recv(context.Background()); err != nil {
			break
		}
	}

	if len(transcriber.requests) != 2 {
		t.Fatalf("got %d transcription calls, want 2", len(transcriber.requests))
	}
	for i, req := range transcriber.requests {
		wantName := fmt.Sprintf("chunk-%d.mp4", i)
		if req.Filename != wantName {
			t.Fatalf("request %d filename = %q, want %q", i, req.Filename, wantName)
		}
		if req.Prompt != "names: Dante, Petrarca" {
			t.Fatalf("request %d prompt = %q, want trimmed prompt", i, req.Prompt)
		}
	}
}

func TestTranscribeRemoteFailureTerminatesStream(t *testing.T) {
	prober := &fakeProber{meta: media.Metadata{DurationMS: 20_000, BitRate: 8000}}
	exporter := &fakeExporter{bytesPerMS: 1}
	remoteErr := errors.New("rate limited")
	transcriber := &fakeTranscriber{err: remoteErr}
	p := newTestPipeline(prober, exporter, transcriber, 10_000, 5000)

	stream, err := p.Transcribe(context.Background(), strings.NewReader("audio"), "lecture.mp3", "")
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	defer stream.Close()

	if _, err := stream.Recv(context.Background()); !errors.Is(err, remoteErr) {
		t.Fatalf("err = %v, want remote failure", err)
	}
	if _, err := stream.Recv(context.Background()); !errors.Is(err, remoteErr) {
		t.Fatalf("err = %v, want sticky remote failure", err)
	}
}

func TestStreamCloseStopsWorkAndRemovesTempFile(t *testing.T) {
	prober := &fakeProber{meta: media.Metadata{DurationMS: 60_000, BitRate: 8000}}
	exporter := &fakeExporter{bytesPerMS: 1}
	transcriber := &fakeTranscriber{}
	p := newTestPipeline(prober, exporter, transcriber, 10_000, 5000)

	stream, err := p.Transcribe(context.Background(), strings.NewReader("audio"), "lecture.mp3", "")
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}

	if _, err := stream.Recv(context.Background()); err != nil {
		t.Fatalf("Recv returned error: %v", err)
	}
	exportsBefore := len(exporter.calls)

	if err := stream.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if _, err := os.Stat(stream.path); !os.IsNotExist(err) {
		t.Fatalf("temp source file still present after Close")
	}

	if _, err := stream.Recv(context.Background()); !errors.Is(err, ErrStreamDone) {
		t.Fatalf("err = %v, want ErrStreamDone after Close", err)
	}
	if len(exporter.calls) != exportsBefore {
		t.Fatalf("exports continued after Close")
	}
}

func TestCollectJoinsChunks(t *testing.T) {
	prober := &fakeProber{meta: media.Metadata{DurationMS: 30_000, BitRate: 8000}}
	exporter := &fakeExporter{bytesPerMS: 1}
	transcriber := &fakeTranscriber{}
	p := newTestPipeline(prober, exporter, transcriber, 10_000, 5000)

	stream, err := p.Transcribe(context.Background(), strings.NewReader("audio"), "lecture.mp3", "")
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	defer stream.Close()

	var seen int
	transcript, err := Collect(context.Background(), stream, func(ChunkTranscript) { seen++ })
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if seen != 3 {
		t.Fatalf("onChunk fired %d times, want 3", seen)
	}
	if transcript != "text-0\ntext-1\ntext-2" {
		t.Fatalf("transcript = %q", transcript)
	}
}
