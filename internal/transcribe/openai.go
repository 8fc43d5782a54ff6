package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAITranscriber sends segment payloads to the OpenAI transcription API.
type OpenAITranscriber struct {
	client *openai.Client
	model  string
}

func NewOpenAITranscriber(apiKey, model string) *OpenAITranscriber {
	if model == "" {
		model = "gpt-4o-transcribe"
	}
	return &OpenAITranscriber{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Transcribe uploads one segment and returns its transcript as a trimmed
// string. The payload travels under the synthetic chunk filename so the API
// can infer the container format.
func (t *OpenAITranscriber) Transcribe(ctx context.Context, req Request) (string, error) {
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: req.Filename,
		Reader:   bytes.NewReader(req.Payload),
		Prompt:   req.Prompt,
		Format:   openai.AudioResponseFormatText,
	})
	if err != nil {
		return "", fmt.Errorf("openai transcription: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}
