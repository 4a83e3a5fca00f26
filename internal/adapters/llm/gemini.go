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

// GeminiSummarizer talks to the Google Generative Language API.
type GeminiSummarizer struct {
	client      *http.Client
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
}

// NewGemini builds a Gemini summarizer from a plugin configuration map.
// Recognized keys: api_key, base_url, model, temperature, max_tokens.
func NewGemini(config map[string]any) (any, error) {
	return &GeminiSummarizer{
		client:      &http.Client{Timeout: 60 * time.Second},
		baseURL:     confmap.String(config, "base_url", "https://generativelanguage.googleapis.com/v1beta"),
		apiKey:      apiKeyFromConfig(config, "GEMINI_API_KEY"),
		model:       confmap.String(config, "model", "gemini-1.5-flash"),
		temperature: confmap.Float(config, "temperature", 0.7),
		maxTokens:   confmap.Int(config, "max_tokens", 1024),
	}, nil
}

func (s *GeminiSummarizer) Summarize(ctx context.Context, prompt, content string) (string, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", s.baseURL, s.model, s.apiKey)

	payload := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": combine(prompt, content)}}},
		},
		"generationConfig": map[string]any{
			"temperature":     s.temperature,
			"maxOutputTokens": s.maxTokens,
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
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}
	return result.Candidates[0].Content.Parts[0].Text, nil
}
