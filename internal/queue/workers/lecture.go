package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/mkowalczyk/skryba/internal/docgen"
	"github.com/mkowalczyk/skryba/internal/jobs"
	"github.com/mkowalczyk/skryba/internal/queue"
	"github.com/mkowalczyk/skryba/internal/transcribe"
)

// LectureWorker runs one uploaded lecture through transcription and document
// synthesis, publishing progress to the job store as segments complete.
type LectureWorker struct {
	pipeline *transcribe.Pipeline
	synth    *docgen.Synthesizer
	store    *jobs.Store
}

func NewLectureWorker(pipeline *transcribe.Pipeline, synth *docgen.Synthesizer, store *jobs.Store) *LectureWorker {
	return &LectureWorker{pipeline: pipeline, synth: synth, store: store}
}

func (w *LectureWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.LectureProcessPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	defer os.Remove(payload.AudioPath)

	slog.Info("processing lecture", "job_id", payload.JobID, "filename", payload.Filename)

	job, err := w.store.Get(ctx, payload.JobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", payload.JobID, err)
	}

	transcript, err := w.transcribeAll(ctx, job, payload)
	if err != nil {
		w.fail(ctx, job, err)
		return fmt.Errorf("transcribe job %s: %w", payload.JobID, err)
	}

	job.State = jobs.StateGenerating
	job.Transcript = transcript
	w.update(ctx, job)

	docs, err := w.synth.Generate(ctx, transcript)
	if err != nil {
		w.fail(ctx, job, err)
		return fmt.Errorf("generate documents for job %s: %w", payload.JobID, err)
	}

	for _, doc := range docs {
		if err := w.store.PutArtifact(ctx, job.ID, doc.SourceFilename, []byte(doc.Source)); err != nil {
			w.fail(ctx, job, err)
			return err
		}
		if err := w.store.PutArtifact(ctx, job.ID, doc.PDFFilename, doc.PDF); err != nil {
			w.fail(ctx, job, err)
			return err
		}
		job.Documents = append(job.Documents, jobs.DocumentInfo{
			Key:            doc.Key,
			Title:          doc.Title,
			SourceFilename: doc.SourceFilename,
			PDFFilename:    doc.PDFFilename,
		})
	}

	job.State = jobs.StateDone
	job.Progress = 1
	job.ETAMS = 0
	w.update(ctx, job)

	slog.Info("lecture processed", "job_id", job.ID, "documents", len(docs))
	return nil
}

func (w *LectureWorker) transcribeAll(ctx context.Context, job *jobs.Job, payload queue.LectureProcessPayload) (string, error) {
	f, err := os.Open(payload.AudioPath)
	if err != nil {
		return "", fmt.Errorf("open uploaded audio: %w", err)
	}
	defer f.Close()

	stream, err := w.pipeline.Transcribe(ctx, f, payload.Filename, payload.Prompt)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	job.State = jobs.StateTranscribing
	w.update(ctx, job)

	return transcribe.Collect(ctx, stream, func(chunk transcribe.ChunkTranscript) {
		job.Progress = chunk.Progress()
		if eta, ok := stream.ETA(); ok {
			job.ETAMS = eta.Milliseconds()
		}
		w.update(ctx, job)
		slog.Info("chunk transcribed",
			"job_id", job.ID,
			"chunk_index", chunk.ChunkIndex,
			"progress", job.Progress,
			"eta", time.Duration(job.ETAMS)*time.Millisecond)
	})
}

func (w *LectureWorker) fail(ctx context.Context, job *jobs.Job, cause error) {
	job.State = jobs.StateFailed
	job.Error = cause.Error()
	w.update(ctx, job)
}

func (w *LectureWorker) update(ctx context.Context, job *jobs.Job) {
	if err := w.store.Put(ctx, job); err != nil {
		slog.Error("failed to update job", "job_id", job.ID, "error", err)
	}
}
