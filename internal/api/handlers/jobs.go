package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mkowalczyk/skryba/internal/jobs"
)

type JobHandler struct {
	store *jobs.Store
}

func NewJobHandler(store *jobs.Store) *JobHandler {
	return &JobHandler{store: store}
}

func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	job, ok := h.loadJob(w, r)
	if !ok {
		return
	}
	// The full transcript has its own endpoint.
	job.Transcript = ""
	writeJSON(w, http.StatusOK, job)
}

func (h *JobHandler) Transcript(w http.ResponseWriter, r *http.Request) {
	job, ok := h.loadJob(w, r)
	if !ok {
		return
	}
	if job.State != jobs.StateGenerating && job.State != jobs.StateDone {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "transcript not ready", "state": string(job.State)})
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(job.Transcript))
}

func (h *JobHandler) Document(w http.ResponseWriter, r *http.Request) {
	job, ok := h.loadJob(w, r)
	if !ok {
		return
	}
	if job.State != jobs.StateDone {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "documents not ready", "state": string(job.State)})
		return
	}

	key := chi.URLParam(r, "key")
	kind := chi.URLParam(r, "kind")

	var filename, contentType string
	for _, doc := range job.Documents {
		if doc.Key != key {
			continue
		}
		switch kind {
		case "tex":
			filename, contentType = doc.SourceFilename, "application/x-tex"
		case "pdf":
			filename, contentType = doc.PDFFilename, "application/pdf"
		}
	}
	if filename == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no such document"})
		return
	}

	data, err := h.store.GetArtifact(r.Context(), job.ID, filename)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, jobs.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *JobHandler) loadJob(w http.ResponseWriter, r *http.Request) (*jobs.Job, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid job ID"})
		return nil, false
	}

	job, err := h.store.Get(r.Context(), id.String())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, jobs.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return nil, false
	}
	return job, true
}
