package llm

import "context"

// Request is a single-turn completion: a fixed system instruction plus one
// user message, expecting one completed text response (not streamed).
type Request struct {
	Model  string
	System string
	User   string
}

// Provider abstracts a text-generation backend (OpenAI, Anthropic). Each
// implementation is responsible for normalizing its wire response shapes to
// one canonical text value; callers never see provider-specific structures.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
	Name() string
}
