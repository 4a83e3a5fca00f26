// Package llm implements the summarizer backends. Each backend is a thin
// HTTP client over one provider's completion API; configuration arrives as
// the loosely-typed map the task descriptor carries.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/manthysbr/llmsender/internal/confmap"
)

// OpenAISummarizer talks to an OpenAI-compatible chat completions API.
// Works with: OpenAI, Azure OpenAI, Together AI, local Ollama /v1, etc.
type OpenAISummarizer struct {
	client      *http.Client
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	tools       []map[string]any
}

// NewOpenAI builds an OpenAI summarizer from a plugin configuration map.
// Recognized keys: api_key, base_url, model, temperature, max_tokens, tools.
func NewOpenAI(config map[string]any) (any, error) {
	return &OpenAISummarizer{
		client:      &http.Client{Timeout: 60 * time.Second},
		baseURL:     confmap.String(config, "base_url", "https://api.openai.com/v1"),
		apiKey:      apiKeyFromConfig(config, "OPENAI_API_KEY"),
		model:       confmap.String(config, "model", "gpt-4o-mini"),
		temperature: confmap.Float(config, "temperature", 0.7),
		maxTokens:   confmap.Int(config, "max_tokens", 1024),
		tools:       confmap.Maps(config, "tools"),
	}, nil
}

// Summarize sends the prompt and content as a single user message and
// returns the first choice's text.
func (s *OpenAISummarizer) Summarize(ctx context.Context, prompt, content string) (string, error) {
	url := fmt.Sprintf("%s/chat/completions", s.baseURL)

	payload := map[string]any{
		"model": s.model,
		"messages": []map[string]string{
			{"role": "user", "content": combine(prompt, content)},
		},
		"temperature": s.temperature,
		"max_tokens":  s.maxTokens,
	}
	if len(s.tools) > 0 {
		payload["tools"] = s.tools
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
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

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
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return result.Choices[0].Message.Content, nil
}

// combine joins the summarization prompt and the fetched content into the
// single user message every backend sends.
func combine(prompt, content string) string {
	if prompt == "" {
		return content
	}
	return prompt + "\n\n" + content
}

// apiKeyFromConfig prefers the task-supplied api_key and falls back to the
// conventional environment variable the dependency guard checked.
func apiKeyFromConfig(config map[string]any, envVar string) string {
	if key := confmap.String(config, "api_key", ""); key != "" {
		return key
	}
	return os.Getenv(envVar)
}
