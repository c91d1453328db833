package tools

import (
	"context"
	"fmt"
	"net/http"

	"quizd/internal/assistant"
	"quizd/internal/httpclient"
)

// Transcriber downloads an audio file and converts it to text.
type Transcriber struct {
	client   *http.Client
	maxBytes int64
}

func NewTranscriber(client *http.Client, maxBytes int64) *Transcriber {
	if maxBytes <= 0 {
		maxBytes = 25 * 1024 * 1024
	}
	return &Transcriber{client: client, maxBytes: maxBytes}
}

func (t *Transcriber) Name() string { return "audio_transcriber" }

func (t *Transcriber) Definition() assistant.Tool {
	return assistant.Tool{
		Type: "function",
		Function: &assistant.FunctionSpec{
			Name:        t.Name(),
			Description: "Download an audio file from a URL and return its transcript.",
			Parameters: assistant.ParameterSchema{
				Type: "object",
				Properties: map[string]assistant.Property{
					"url": {
						Type:        "string",
						Description: "Full URL of the audio file",
					},
				},
				Required: []string{"url"},
			},
		},
	}
}

func (t *Transcriber) Execute(ctx context.Context, env Environment, args map[string]any) (string, error) {
	urlStr := stringArg(args, "url")
	if urlStr == "" {
		return "", fmt.Errorf("url parameter required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	data, err := httpclient.ReadAllWithLimit(resp.Body, t.maxBytes)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	text, err := env.TranscribeAudio(ctx, filenameFromURL(urlStr), data)
	if err != nil {
		return "", fmt.Errorf("transcribe audio: %w", err)
	}
	return text, nil
}
