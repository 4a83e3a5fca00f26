package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/manthysbr/llmsender/internal/confmap"
)

// OllamaSummarizer talks to a local Ollama instance. No credentials; handy
// for running tasks fully offline.
type OllamaSummarizer struct {
	client      *http.Client
	baseURL     string
	model       string
	temperature float64
}

// NewOllama builds an Ollama summarizer from a plugin configuration map.
// Recognized keys: base_url, model, temperature.
func NewOllama(config map[string]any) (any, error) {
	return &OllamaSummarizer{
		// Local models can be slow to load; give them more headroom than the
		// hosted backends.
		client:      &http.Client{Timeout: 5 * time.Minute},
		baseURL:     confmap.String(config, "base_url", "http://localhost:11434"),
		model:       confmap.String(config, "model", "llama3.2"),
		temperature: confmap.Float(config, "temperature", 0.7),
	}, nil
}

func (s *OllamaSummarizer) Summarize(ctx context.Context, prompt, content string) (string, error) {
	url := fmt.Sprintf("%s/api/generate", s.baseURL)

	payload := map[string]any{
		"model":  s.model,
		"prompt": combine(prompt, content),
		"stream": false,
		"options": map[string]any{
			"temperature": s.temperature,
		},
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payloadBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return result.Response, nil
}
