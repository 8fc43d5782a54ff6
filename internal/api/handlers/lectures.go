package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mkowalczyk/skryba/internal/jobs"
	"github.com/mkowalczyk/skryba/internal/queue"
	"github.com/mkowalczyk/skryba/internal/transcribe"
)

// LectureHandler accepts audio uploads. With ?stream=true it transcribes
// synchronously, streaming one NDJSON object per segment; otherwise it
// enqueues a background job covering transcription and document synthesis.
type LectureHandler struct {
	pipeline *transcribe.Pipeline
	queue    *queue.Client
	store    *jobs.Store
}

func NewLectureHandler(pipeline *transcribe.Pipeline, qc *queue.Client, store *jobs.Store) *LectureHandler {
	return &LectureHandler{pipeline: pipeline, queue: qc, store: store}
}

func (h *LectureHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil { // larger uploads spool to disk
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file required"})
		return
	}
	defer file.Close()

	// Gate the extension before touching the payload.
	if !transcribe.IsSupportedFilename(header.Filename) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("unsupported audio format; upload one of: %s",
				strings.Join(transcribe.SupportedExtensions(), ", ")),
		})
		return
	}

	prompt := r.FormValue("prompt")

	if r.URL.Query().Get("stream") == "true" {
		h.streamTranscription(w, r, file, header.Filename, prompt)
		return
	}

	h.enqueueJob(w, r, file, header.Filename, prompt)
}

// streamTranscription pulls the segment stream and flushes one JSON line per
// transcribed chunk. A mid-stream failure is reported as a final error line;
// headers have long been sent by then.
func (h *LectureHandler) streamTranscription(w http.ResponseWriter, r *http.Request, file io.Reader, filename, prompt string) {
	stream, err := h.pipeline.Transcribe(r.Context(), file, filename, prompt)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, transcribe.ErrUnsupportedFormat) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)

	for {
		chunk, err := stream.Recv(r.Context())
		if errors.Is(err, transcribe.ErrStreamDone) {
			return
		}
		if err != nil {
			enc.Encode(map[string]string{"error": err.Error()})
			return
		}

		line := map[string]interface{}{
			"chunk_index": chunk.ChunkIndex,
			"start_ms":    chunk.StartMS,
			"end_ms":      chunk.EndMS,
			"total_ms":    chunk.TotalMS,
			"text":        chunk.Text,
			"progress":    chunk.Progress(),
		}
		if eta, ok := stream.ETA(); ok {
			line["eta_ms"] = eta.Milliseconds()
		}
		enc.Encode(line)
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func (h *LectureHandler) enqueueJob(w http.ResponseWriter, r *http.Request, file io.Reader, filename, prompt string) {
	ext := filepath.Ext(filename)
	tmp, err := os.CreateTemp("", "skryba-upload-*"+ext)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to store upload"})
		return
	}
	_, err = io.Copy(tmp, file)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to store upload"})
		return
	}

	job := &jobs.Job{
		ID:        uuid.NewString(),
		Filename:  filename,
		State:     jobs.StateQueued,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.store.Put(r.Context(), job); err != nil {
		os.Remove(tmp.Name())
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if err := h.queue.EnqueueLectureProcess(queue.LectureProcessPayload{
		JobID:     job.ID,
		AudioPath: tmp.Name(),
		Filename:  filename,
		Prompt:    prompt,
	}); err != nil {
		os.Remove(tmp.Name())
		slog.Error("failed to enqueue lecture", "job_id", job.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID})
}
