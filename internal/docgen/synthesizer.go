// Package docgen fans a finished transcript out to a fixed set of
// document-generation tasks, compiles each result to PDF, and reports
// all-or-nothing per run.
package docgen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/mkowalczyk/skryba/internal/llm"
)

// ErrEmptyGeneration is returned when the generation service responds with
// nothing but whitespace.
var ErrEmptyGeneration = errors.New("generation returned an empty document")

// GeneratedDocument is the output of one successful task: the LaTeX source
// and its rendered PDF.
type GeneratedDocument struct {
	Key            string `json:"key"`
	Title          string `json:"title"`
	Source         string `json:"-"`
	PDF            []byte `json:"-"`
	SourceFilename string `json:"source_filename"`
	PDFFilename    string `json:"pdf_filename"`
}

// TaskFailure records one failed task inside a GenerationError.
type TaskFailure struct {
	Key string
	Err error
}

// GenerationError aggregates every failed task from one synthesis run.
// Partial success is never surfaced: a single failing task fails the run.
type GenerationError struct {
	Failures []TaskFailure
}

func (e *GenerationError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = fmt.Sprintf("%s: %v", f.Key, f.Err)
	}
	return "failed to generate all documents: " + strings.Join(msgs, "; ")
}

// Renderer compiles a LaTeX source to PDF bytes.
type Renderer interface {
	Render(ctx context.Context, key, source string) ([]byte, error)
}

// Synthesizer runs the fixed task set concurrently against a generation
// provider and a renderer.
type Synthesizer struct {
	provider llm.Provider
	renderer Renderer
	model    string
	tasks    []Task
}

func NewSynthesizer(provider llm.Provider, renderer Renderer, model string, tasks []Task) *Synthesizer {
	if len(tasks) == 0 {
		tasks = DefaultTasks()
	}
	return &Synthesizer{provider: provider, renderer: renderer, model: model, tasks: tasks}
}

// Generate runs one goroutine per task — the pool is bounded by the task
// count — and waits for every task regardless of sibling failures; there is
// no cross-task cancellation. On any failure the whole call fails with a
// GenerationError naming each failed task. On success the documents are
// returned in task order, not completion order.
func (s *Synthesizer) Generate(ctx context.Context, transcript string) ([]GeneratedDocument, error) {
	type result struct {
		doc GeneratedDocument
		err error
	}
	results := make([]result, len(s.tasks))

	var wg sync.WaitGroup
	for i, task := range s.tasks {
		wg.Add(1)
		go func(i int, task Task) {
			defer wg.Done()
			doc, err := s.generateOne(ctx, task, transcript)
			results[i] = result{doc: doc, err: err}
		}(i, task)
	}
	wg.Wait()

	genErr := &GenerationError{}
	docs := make([]GeneratedDocument, 0, len(s.tasks))
	for i, res := range results {
		if res.err != nil {
			genErr.Failures = append(genErr.Failures, TaskFailure{Key: s.tasks[i].Key, Err: res.err})
			continue
		}
		docs = append(docs, res.doc)
	}
	if len(genErr.Failures) > 0 {
		return nil, genErr
	}
	return docs, nil
}

func (s *Synthesizer) generateOne(ctx context.Context, task Task, transcript string) (GeneratedDocument, error) {
	text, err := s.provider.Complete(ctx, llm.Request{
		Model:  s.model,
		System: task.Prompt,
		User:   "BEGIN_TRANSCRIPT\n" + transcript + "\nEND_TRANSCRIPT",
	})
	if err != nil {
		return GeneratedDocument{}, err
	}
	source := strings.TrimSpace(text)
	if source == "" {
		return GeneratedDocument{}, ErrEmptyGeneration
	}

	pdf, err := s.renderer.Render(ctx, task.Key, source)
	if err != nil {
		return GeneratedDocument{}, err
	}

	return GeneratedDocument{
		Key:            task.Key,
		Title:          task.Title,
		Source:         source,
		PDF:            pdf,
		SourceFilename: task.Key + ".tex",
		PDFFilename:    task.Key + ".pdf",
	}, nil
}
