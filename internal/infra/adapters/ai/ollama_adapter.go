package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"telegram-english-tutor/internal/domain/ports/adapter"
)

var _ adapter.TutorModel = (*OllamaAdapter)(nil)

// OllamaAdapter implements adapter.TutorModel against a local Ollama server
// using the non-streaming /api/generate endpoint.
type OllamaAdapter struct {
	base   string // e.g., http://localhost:11434
	model  string
	client *http.Client
}

func NewOllamaAdapter(base, model string, timeout time.Duration) (*OllamaAdapter, error) {
	if base == "" {
		return nil, errors.New("ollama base url empty")
	}
	if model == "" {
		model = "llama3:latest"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OllamaAdapter{
		base:   strings.TrimRight(base, "/"),
		model:  model,
		client: &http.Client{Timeout: timeout},
	}, nil
}

func (o *OllamaAdapter) Name() string { return "ollama/" + o.model }

func (o *OllamaAdapter) Complete(ctx context.Context, prompt string, opts adapter.CompletionOptions) (string, error) {
	reqBody := struct {
		Model   string         `json:"model"`
		Prompt  string         `json:"prompt"`
		Stream  bool           `json:"stream"`
		Options map[string]any `json:"options"`
	}{
		Model:  o.model,
		Prompt: prompt,
		Stream: false,
		Options: map[string]any{
			"temperature": opts.Temperature,
			"top_p":       opts.TopP,
			"max_tokens":  opts.MaxTokens,
		},
	}

	b, _ := json.Marshal(reqBody)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, o.base+"/api/generate", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("ollama http %d", resp.StatusCode)
	}
	var payload struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	out := strings.TrimSpace(payload.Response)
	if out == "" {
		return "", errors.New("empty completion")
	}
	return out, nil
}
