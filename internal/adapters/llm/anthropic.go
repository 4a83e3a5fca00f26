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

const anthropicVersion = "2023-06-01"

// AnthropicSummarizer talks to the Anthropic messages API.
type AnthropicSummarizer struct {
	client      *http.Client
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
}

// NewAnthropic builds an Anthropic summarizer from a plugin configuration
// map. Recognized keys: api_key, base_url, model, temperature, max_tokens.
func NewAnthropic(config map[string]any) (any, error) {
	return &AnthropicSummarizer{
		client:      &http.Client{Timeout: 60 * time.Second},
		baseURL:     confmap.String(config, "base_url", "https://api.anthropic.com"),
		apiKey:      apiKeyFromConfig(config, "ANTHROPIC_API_KEY"),
		model:       confmap.String(config, "model", "claude-3-5-haiku-latest"),
		temperature: confmap.Float(config, "temperature", 0.7),
		maxTokens:   confmap.Int(config, "max_tokens", 1024),
	}, nil
}

func (s *AnthropicSummarizer) Summarize(ctx context.Context, prompt, content string) (string, error) {
	url := fmt.Sprintf("%s/v1/messages", s.baseURL)

	payload := map[string]any{
		"model":      s.model,
		"max_tokens": s.maxTokens,
		"messages": []map[string]string{
			{"role": "user", "content": combine(prompt, content)},
		},
		"temperature": s.temperature,
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
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

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
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	for _, block := range result.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text block in response")
}
