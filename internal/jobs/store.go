// Package jobs holds the in-flight state of lecture processing runs in
// redis. Records carry a TTL: they hand results from the worker to the API
// within a session and are not durable storage.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned for unknown or expired job IDs.
var ErrNotFound = errors.New("job not found")

const ttl = 6 * time.Hour

type State string

const (
	StateQueued       State = "queued"
	StateTranscribing State = "transcribing"
	StateGenerating   State = "generating"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// DocumentInfo lists one generated document's files; the bytes themselves are
// stored as separate artifacts.
type DocumentInfo struct {
	Key            string `json:"key"`
	Title          string `json:"title"`
	SourceFilename string `json:"source_filename"`
	PDFFilename    string `json:"pdf_filename"`
}

type Job struct {
	ID         string         `json:"id"`
	Filename   string         `json:"filename"`
	State      State          `json:"state"`
	Progress   float64        `json:"progress"`
	ETAMS      int64          `json:"eta_ms,omitempty"`
	Transcript string         `json:"transcript,omitempty"`
	Documents  []DocumentInfo `json:"documents,omitempty"`
	Error      string         `json:"error,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Put(ctx context.Context, job *Job) error {
	job.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := s.client.Set(ctx, jobKey(job.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("store job %s: %w", job.ID, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	data, err := s.client.Get(ctx, jobKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", id, err)
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job %s: %w", id, err)
	}
	return &job, nil
}

// PutArtifact stores a generated file's bytes under the job.
func (s *Store) PutArtifact(ctx context.Context, jobID, filename string, data []byte) error {
	if err := s.client.Set(ctx, artifactKey(jobID, filename), data, ttl).Err(); err != nil {
		return fmt.Errorf("store artifact %s/%s: %w", jobID, filename, err)
	}
	return nil
}

func (s *Store) GetArtifact(ctx context.Context, jobID, filename string) ([]byte, error) {
	data, err := s.client.Get(ctx, artifactKey(jobID, filename)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load artifact %s/%s: %w", jobID, filename, err)
	}
	return data, nil
}

func jobKey(id string) string { return "job:" + id }

func artifactKey(jobID, filename string) string {
	return "job:" + jobID + ":artifact:" + filename
}
